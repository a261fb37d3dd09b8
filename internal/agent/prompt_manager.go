package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultPlannerPrompt is used when no prompts directory overrides it.
const defaultPlannerPrompt = `You are an AI assistant that plans tool usage to satisfy a user request.

Analyze the user request and create a step-by-step plan using the available tools.
If the request requires multiple steps or tool chaining, break it down.

Format your response as a sequence of steps:
STEP 1: Use [tool_name] with input: [input_text]
STEP 2: Use [tool_name] with input: RESULT_1

Use RESULT_<n> as a step's input to feed it the output of step n.
Only include the steps required. If no tools are needed, respond with:
NO_TOOLS_NEEDED: [your helpful response]`

// structuredDirective replaces the line-format instructions when the planner
// runs in JSON mode.
const structuredDirective = `Respond with a single JSON object and nothing else:
{
  "steps": [
    {"step_number": 1, "tool_name": "<tool>", "input": "<text or RESULT_<n>>", "reasoning_type": "<optional>"}
  ],
  "fallback_response": "<set this instead of steps when no tools are needed>"
}`

// PromptManager loads the planner prompt, preferring planner.md from the
// prompts directory and extending it with any extra .md files found there.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// GetPlannerPrompt returns the base planner prompt. A missing directory or
// planner.md is not an error; the built-in prompt covers it.
func (pm *PromptManager) GetPlannerPrompt() (string, error) {
	base := defaultPlannerPrompt

	if pm.Directory != "" {
		data, err := os.ReadFile(filepath.Join(pm.Directory, "planner.md"))
		if err == nil {
			base = strings.TrimSpace(string(data))
		}

		extras, err := pm.readExtras()
		if err != nil {
			return "", err
		}
		if extras != "" {
			base = base + "\n\n---\n\n" + extras
		}
	}

	return base, nil
}

// readExtras merges every .md file other than planner.md, in name order, so
// deployments can layer identity or policy text under the planner prompt.
func (pm *PromptManager) readExtras() (string, error) {
	entries, err := os.ReadDir(pm.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read prompts directory: %v", err)
	}

	var contents []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || name == "planner.md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(pm.Directory, name))
		if err != nil {
			continue
		}
		contents = append(contents, strings.TrimSpace(string(data)))
	}

	return strings.Join(contents, "\n\n---\n\n"), nil
}

// BuildPlanningPrompt assembles the system prompt sent to the planner:
// base prompt, response-format directive and the tool catalog.
func (pm *PromptManager) BuildPlanningPrompt(catalogJSON string, structured bool) (string, error) {
	base, err := pm.GetPlannerPrompt()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(base)
	if structured {
		b.WriteString("\n\n")
		b.WriteString(structuredDirective)
	}
	b.WriteString("\n\n## Available Tools:\n")
	b.WriteString(catalogJSON)
	return b.String(), nil
}
