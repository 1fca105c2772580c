// Package server exposes the bridge to tool-calling hosts over the Model Context Protocol.
package server

import (
	"context"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	robloxbridge "github.com/opengovern/roblox-bridge"
)

const (
	ServerName     = "mcp-roblox-demo"
	UpdateToolName = "update_script"
)

// Updater is the part of the bridge the tool handler needs.
type Updater interface {
	UpdateScript(ctx context.Context, upd robloxbridge.ScriptUpdate) string
}

// New returns an MCP server with the update_script tool registered.
func New(updater Updater, version string, logger *logrus.Entry) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false))
	s.AddTool(UpdateScriptTool(), UpdateScriptHandler(updater, logger))
	return s
}

// ServeStdio runs s on stdin/stdout until the host disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// UpdateScriptTool describes the update_script tool and its arguments.
func UpdateScriptTool() mcp.Tool {
	return mcp.NewTool(UpdateToolName,
		mcp.WithDescription("Updates a Roblox script instance using a PATCH request and polls for completion."),
		mcp.WithNumber("universe_id",
			mcp.Required(),
			mcp.Description("The ID of the Roblox universe."),
		),
		mcp.WithNumber("place_id",
			mcp.Required(),
			mcp.Description("The ID of the Roblox place within the universe."),
		),
		mcp.WithString("instance_id",
			mcp.Required(),
			mcp.Description("The ID of the script instance to update."),
		),
		mcp.WithString("script_content",
			mcp.Required(),
			mcp.Description("Only the contents of a Roblox Lua file"),
		),
		mcp.WithString("instance_type",
			mcp.Description("Engine class of the instance. Defaults to Script."),
			mcp.Enum(string(robloxbridge.InstanceTypeScript)),
		),
	)
}

// UpdateScriptHandler validates the tool arguments and runs the update. Bridge
// outcomes, failures included, come back as plain text results.
func UpdateScriptHandler(updater Updater, logger *logrus.Entry) server.ToolHandlerFunc {
	log := logger.WithField("component", "mcp-server")
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		upd, err := scriptUpdateFromRequest(request)
		if err != nil {
			log.WithError(err).Warn("Rejected update_script call")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(updater.UpdateScript(ctx, upd)), nil
	}
}

func scriptUpdateFromRequest(request mcp.CallToolRequest) (robloxbridge.ScriptUpdate, error) {
	universeID, err := requireID(request, "universe_id")
	if err != nil {
		return robloxbridge.ScriptUpdate{}, err
	}
	placeID, err := requireID(request, "place_id")
	if err != nil {
		return robloxbridge.ScriptUpdate{}, err
	}
	instanceID, err := request.RequireString("instance_id")
	if err != nil {
		return robloxbridge.ScriptUpdate{}, err
	}
	source, err := request.RequireString("script_content")
	if err != nil {
		return robloxbridge.ScriptUpdate{}, err
	}

	return robloxbridge.ScriptUpdate{
		UniverseID:   universeID,
		PlaceID:      placeID,
		InstanceID:   instanceID,
		Source:       source,
		InstanceType: robloxbridge.InstanceType(request.GetString("instance_type", string(robloxbridge.InstanceTypeScript))),
	}, nil
}

// requireID reads a numeric argument that must hold a whole, non-negative number.
func requireID(request mcp.CallToolRequest, key string) (int64, error) {
	f, err := request.RequireFloat(key)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) || f >= 1<<63 {
		return 0, fmt.Errorf("argument %q must be a non-negative integer", key)
	}
	return int64(f), nil
}
