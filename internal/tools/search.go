package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

type SearchTool struct {
	client *duckduckgo.Tool
}

func NewSearchTool() (*SearchTool, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchTool{client: ddg}, nil
}

func (s *SearchTool) Name() string {
	return "web_search"
}

func (s *SearchTool) Description() string {
	return "Search the web using DuckDuckGo for real-time information."
}

func (s *SearchTool) InputHint() string {
	return "The search query to look up"
}

func (s *SearchTool) Execute(ctx context.Context, text string) (string, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return "", fmt.Errorf("empty query")
	}

	res, err := s.client.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	return res, nil
}
