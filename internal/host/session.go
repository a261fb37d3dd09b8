package host

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Session is the channel to the tool host. The executor and the catalog
// adapter consume this interface; tests substitute their own.
type Session interface {
	// ListTools returns the host's available tools.
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	// CallTool invokes a named tool with a single text input and returns
	// the first text content of the result.
	CallTool(ctx context.Context, name string, text string) (string, error)
	// Close tears down the channel.
	Close() error
}

// Config describes how to reach the tool host process over stdio.
type Config struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env" yaml:"env"`
}

type stdioSession struct {
	client *client.Client
}

// Dial starts the tool host process, initializes the MCP handshake and
// returns a ready session. The caller owns the session for one request and
// must Close it on every exit path.
func Dial(ctx context.Context, cfg Config) (Session, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("tool host command is not configured")
	}

	c, err := client.NewStdioMCPClient(cfg.Command, envSlice(cfg.Env), cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start tool host: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "sutra",
		Version: "1.0.0",
	}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION

	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize tool host session: %w", err)
	}

	log.Printf("Connected to tool host: %s", cfg.Command)
	return &stdioSession{client: c}, nil
}

func (s *stdioSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return result.Tools, nil
}

func (s *stdioSession) CallTool(ctx context.Context, name string, text string) (string, error) {
	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = name
	callReq.Params.Arguments = map[string]any{"text": text}

	result, err := s.client.CallTool(ctx, callReq)
	if err != nil {
		return "", fmt.Errorf("tool %s call failed: %w", name, err)
	}

	return resultText(name, result)
}

func (s *stdioSession) Close() error {
	return s.client.Close()
}

// resultText reduces a tool result to its first text element. The error
// flag is checked before the content shape: a failing tool with no text is
// still a tool error, not a malformed result.
func resultText(name string, result *mcp.CallToolResult) (string, error) {
	out, ok := firstText(result)
	if result.IsError {
		if ok {
			return "", fmt.Errorf("tool %s reported an error: %s", name, out)
		}
		return "", fmt.Errorf("tool %s reported an error", name)
	}
	if !ok {
		return "", fmt.Errorf("tool %s returned no text content", name)
	}
	return out, nil
}

// firstText extracts the first text element of a tool result.
func firstText(result *mcp.CallToolResult) (string, bool) {
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text, true
		}
	}
	return "", false
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
