package tools

import (
	"context"
	"fmt"
	"strings"
)

// ReverseTool reverses its input rune-wise.
type ReverseTool struct{}

func NewReverseTool() *ReverseTool {
	return &ReverseTool{}
}

func (t *ReverseTool) Name() string {
	return "reverse_string"
}

func (t *ReverseTool) Description() string {
	return "Reverse a given string."
}

func (t *ReverseTool) InputHint() string {
	return "The text to reverse"
}

func (t *ReverseTool) Execute(ctx context.Context, text string) (string, error) {
	runes := []rune(text)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

// CaseTool upper- or lower-cases its input.
type CaseTool struct {
	upper bool
}

func NewUpperCaseTool() *CaseTool {
	return &CaseTool{upper: true}
}

func NewLowerCaseTool() *CaseTool {
	return &CaseTool{upper: false}
}

func (t *CaseTool) Name() string {
	if t.upper {
		return "upper_case"
	}
	return "lower_case"
}

func (t *CaseTool) Description() string {
	if t.upper {
		return "Convert text to upper case."
	}
	return "Convert text to lower case."
}

func (t *CaseTool) InputHint() string {
	return "The text to convert"
}

func (t *CaseTool) Execute(ctx context.Context, text string) (string, error) {
	if t.upper {
		return strings.ToUpper(text), nil
	}
	return strings.ToLower(text), nil
}

// WordCountTool reports word and character counts.
type WordCountTool struct{}

func NewWordCountTool() *WordCountTool {
	return &WordCountTool{}
}

func (t *WordCountTool) Name() string {
	return "word_count"
}

func (t *WordCountTool) Description() string {
	return "Count the words and characters in a text."
}

func (t *WordCountTool) InputHint() string {
	return "The text to measure"
}

func (t *WordCountTool) Execute(ctx context.Context, text string) (string, error) {
	words := len(strings.Fields(text))
	return fmt.Sprintf("%d words, %d characters", words, len([]rune(text))), nil
}
