package robloxbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	msgMissingAPIKey       = "Error: Roblox Open Cloud API Key is required."
	msgInitiateFailed      = "Error: Failed to initiate script update."
	msgPathNotFound        = "Error: Operation path not found in PATCH response."
	msgPollFailed          = "Error: Failed to poll for script update status."
	msgNotCompleted        = "Script update operation did not complete within the allowed time."
	msgSucceededPrefix     = "Script updated successfully! Final Response: "
	msgRemoteErrorPrefix   = "Script update failed. Error: "
	msgUnsupportedInstance = "Error: Unsupported instance type %q."
)

// OutcomeKind classifies how an update invocation ended.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota
	OutcomeRemoteError
	OutcomeNotCompleted
	OutcomeFailed
	OutcomeInvalid
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeRemoteError:
		return "remote_error"
	case OutcomeNotCompleted:
		return "not_completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of one update invocation. Message is what the
// tool host sees; Payload holds the operation's response or error, if any.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Payload any
}

// translatePoll maps the poller's final result onto an Outcome.
func translatePoll(res Result) Outcome {
	if !res.OK() {
		if res.Failure == FailureNotCompleted {
			return Outcome{Kind: OutcomeNotCompleted, Message: msgNotCompleted}
		}
		return Outcome{Kind: OutcomeFailed, Message: msgPollFailed}
	}
	if !res.Envelope.Done() {
		return Outcome{Kind: OutcomeNotCompleted, Message: msgNotCompleted}
	}
	if resp, ok := res.Envelope["response"]; ok {
		return Outcome{Kind: OutcomeSucceeded, Message: msgSucceededPrefix + renderField(res, "response"), Payload: resp}
	}
	if opErr, ok := res.Envelope["error"]; ok {
		return Outcome{Kind: OutcomeRemoteError, Message: msgRemoteErrorPrefix + renderField(res, "error"), Payload: opErr}
	}
	return Outcome{Kind: OutcomeNotCompleted, Message: msgNotCompleted}
}

// renderField renders one top-level field of the envelope. Keys keep the order
// the server sent them when the raw body is available.
func renderField(res Result, key string) string {
	if len(res.Body) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(res.Body, &fields); err == nil {
			if raw, ok := fields[key]; ok {
				if s, err := renderJSON(raw); err == nil {
					return s
				}
			}
		}
	}
	return renderValue(res.Envelope[key])
}

// renderJSON formats raw JSON for status messages in document order,
// e.g. {'status': 'ok', 'count': 2, 'ready': True}.
func renderJSON(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var b strings.Builder
	if err := writeToken(&b, dec); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeToken(b *strings.Builder, dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		writeValue(b, tok)
		return nil
	}

	closing := byte(']')
	if delim == '{' {
		closing = '}'
	}
	b.WriteByte(byte(delim))
	for i := 0; dec.More(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		if delim == '{' {
			key, err := dec.Token()
			if err != nil {
				return err
			}
			k, ok := key.(string)
			if !ok {
				return fmt.Errorf("unexpected object key %v", key)
			}
			b.WriteString(quoteString(k))
			b.WriteString(": ")
		}
		if err := writeToken(b, dec); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	b.WriteByte(closing)
	return nil
}

// renderValue formats an already decoded JSON value. Map iteration order is
// lost, so object keys are sorted.
func renderValue(v any) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("None")
	case bool:
		if t {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case string:
		b.WriteString(quoteString(t))
	case json.Number:
		b.WriteString(t.String())
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case Envelope:
		writeObject(b, t)
	case map[string]any:
		writeObject(b, t)
	case []any:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, item)
		}
		b.WriteByte(']')
	default:
		fmt.Fprint(b, t)
	}
}

func writeObject(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteString(k))
		b.WriteString(": ")
		writeValue(b, m[k])
	}
	b.WriteByte('}')
}

// quoteString uses single quotes unless the text contains a single quote and no
// double quote, in which case double quotes avoid escaping.
func quoteString(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}

	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(q):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}
