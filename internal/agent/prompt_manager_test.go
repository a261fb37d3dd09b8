package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromptManager_GetPlannerPrompt(t *testing.T) {
	tempDir := t.TempDir()

	files := map[string]string{
		"planner.md":  "Planner Content",
		"identity.md": "Identity Content",
		"user.md":     "User Content",
	}

	for name, content := range files {
		err := os.WriteFile(filepath.Join(tempDir, name), []byte(content), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}

	pm := NewPromptManager(tempDir)
	prompt, err := pm.GetPlannerPrompt()
	if err != nil {
		t.Fatal(err)
	}

	expectedParts := []string{
		"Planner Content",
		"Identity Content",
		"User Content",
	}

	for _, part := range expectedParts {
		if !strings.Contains(prompt, part) {
			t.Errorf("Prompt missing expected part: %s", part)
		}
	}

	// planner.md leads, extras follow
	if strings.Index(prompt, "Planner Content") >= strings.Index(prompt, "Identity Content") {
		t.Error("Planner content should come first")
	}
}

func TestPromptManager_DefaultPrompt(t *testing.T) {
	pm := NewPromptManager("")
	prompt, err := pm.GetPlannerPrompt()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "NO_TOOLS_NEEDED") {
		t.Error("Default prompt should describe the no-tools escape")
	}
	if !strings.Contains(prompt, "RESULT_") {
		t.Error("Default prompt should describe result references")
	}
}

func TestPromptManager_BuildPlanningPrompt(t *testing.T) {
	pm := NewPromptManager("")

	prompt, err := pm.BuildPlanningPrompt(`[{"name":"reverse_string"}]`, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "reverse_string") {
		t.Error("Prompt should embed the tool catalog")
	}
	if strings.Contains(prompt, "fallback_response") {
		t.Error("Free-text prompt should not include the JSON directive")
	}

	structured, err := pm.BuildPlanningPrompt(`[]`, true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(structured, "fallback_response") {
		t.Error("Structured prompt should include the JSON directive")
	}
}
