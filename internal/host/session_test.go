package host

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultText_HappyPath(t *testing.T) {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "dlroW olleH"},
		},
	}

	out, err := resultText("reverse_string", result)
	require.NoError(t, err)
	assert.Equal(t, "dlroW olleH", out)
}

func TestResultText_ErrorWithText(t *testing.T) {
	result := &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "empty URL"},
		},
	}

	_, err := resultText("scrape_article", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape_article")
	assert.Contains(t, err.Error(), "empty URL")
}

func TestResultText_ErrorWithoutText(t *testing.T) {
	// The error flag wins over the missing-content diagnosis.
	result := &mcp.CallToolResult{IsError: true}

	_, err := resultText("scrape_article", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reported an error")
	assert.NotContains(t, err.Error(), "no text content")
}

func TestResultText_NoContent(t *testing.T) {
	result := &mcp.CallToolResult{}

	_, err := resultText("reverse_string", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}
