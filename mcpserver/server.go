// Package mcpserver exposes the chat tools over the Model Context Protocol so
// external agents can browse the menu and place orders without the chat model.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/itsneelabh/sushichat/chat"
	"github.com/itsneelabh/sushichat/core"
)

// Tools wraps every chat tool as an MCP tool backed by router.
func Tools(router *chat.Router) []server.ServerTool {
	defs := chat.Definitions()
	tools := make([]server.ServerTool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, server.ServerTool{
			Tool:    mcp.NewToolWithRawSchema(def.Name, def.Description, def.Parameters),
			Handler: handler(router, def.Name),
		})
	}
	return tools
}

func handler(router *chat.Router, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal arguments: %v", err)), nil
		}
		reply := router.Dispatch(ctx, name, args)
		if reply.Status >= http.StatusBadRequest {
			return mcp.NewToolResultError(reply.Text), nil
		}
		return mcp.NewToolResultText(reply.Text), nil
	}
}

// New builds an MCP server publishing the chat tools.
func New(name, version string, router *chat.Router) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTools(Tools(router)...)
	return s
}

// ServeStdio serves the tools on stdin/stdout until the input closes.
func ServeStdio(router *chat.Router, name, version string, logger core.Logger) error {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	logger.Info("Starting MCP stdio server", map[string]interface{}{
		"operation": "mcp_serve",
		"tools":     len(chat.Definitions()),
	})
	if err := server.ServeStdio(New(name, version, router)); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
