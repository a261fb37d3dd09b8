// sutra-tools is the demo tool host: an MCP server speaking stdio, serving
// the single-text tools the orchestrator plans against. It stands in for
// whatever real tool host a deployment points sutra at.
package main

import (
	"context"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rahul/sutra/internal/tools"
)

func main() {
	// stdout carries the MCP wire; all logging must go to stderr.
	log.SetOutput(os.Stderr)

	registry := tools.NewRegistry()
	registry.Register(tools.NewReverseTool())
	registry.Register(tools.NewUpperCaseTool())
	registry.Register(tools.NewLowerCaseTool())
	registry.Register(tools.NewWordCountTool())
	registry.Register(tools.NewScraperTool())

	searchTool, err := tools.NewSearchTool()
	if err != nil {
		log.Printf("Warning: failed to initialize search tool: %v", err)
	} else {
		registry.Register(searchTool)
	}

	s := server.NewMCPServer(
		"Sutra Demo Tools",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	for _, t := range registry.Tools {
		s.AddTool(
			mcp.NewTool(t.Name(),
				mcp.WithDescription(t.Description()),
				mcp.WithString("text",
					mcp.Required(),
					mcp.Description(t.InputHint()),
				),
			),
			makeHandler(t),
		)
	}

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("tool host error: %v", err)
	}
}

func makeHandler(t tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Printf("Executing %s with input: %s", t.Name(), text)
		out, err := t.Execute(ctx, text)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}
