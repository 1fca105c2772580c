// internal/time_parser.go
// ------------------------
// This internal package provides helper functions for turning the rate limit
// headers Open Cloud sends into absolute reset timestamps.
//
// Functions:
// - ParseTimeStr: Convert strings like "30", "1s", "6m0s" into milliseconds.
// - ResetAtMs: Convert a relative reset header into a UNIX timestamp in ms.
// - IsInFuture: Check if a given timestamp (ms) is after now.
package internal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeStr converts strings like "30" (seconds), "1s", "6m0s" into ms.
// Unparseable input yields 0.
func ParseTimeStr(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		if sec < 0 {
			return 0
		}
		return int64(sec * 1000)
	}

	if strings.HasSuffix(s, "s") && !strings.Contains(s, "m") {
		val := strings.TrimSuffix(s, "s")
		sec, err := strconv.Atoi(val)
		if err == nil && sec >= 0 {
			return int64(sec) * 1000
		}
	}

	var minutes, seconds int
	n, err := fmt.Sscanf(s, "%dm%ds", &minutes, &seconds)
	if n == 2 && err == nil {
		return int64(minutes)*60_000 + int64(seconds)*1_000
	}

	return 0
}

// ResetAtMs returns now plus the relative duration in s, or nil when s is empty
// or not understood.
func ResetAtMs(s string, now time.Time) *int64 {
	ms := ParseTimeStr(s)
	if ms <= 0 {
		return nil
	}
	at := now.UnixMilli() + ms
	return &at
}

// IsInFuture checks if a timestamp (in ms) is after now.
func IsInFuture(ms int64, now time.Time) bool {
	return ms > now.UnixMilli()
}
