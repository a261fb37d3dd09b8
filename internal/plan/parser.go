package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// directPrefix marks a planner response that needs no tools.
const directPrefix = "NO_TOOLS_NEEDED:"

// stepLine matches the line-oriented plan format:
// STEP 1: Use reverse_string with input: Hello World
var stepLine = regexp.MustCompile(`^STEP\s+(\d+):\s+Use\s+(\w+)\s+with\s+input:\s+(.+)$`)

var (
	// ErrNoValidSteps means the planner output parsed but yielded neither
	// a direct answer nor a single usable step.
	ErrNoValidSteps = errors.New("no valid tool steps found in the plan")

	// ErrDuplicateStep means two steps claimed the same step number.
	ErrDuplicateStep = errors.New("duplicate step number in plan")
)

// structuredPlan is the JSON shape the planner produces in structured mode.
type structuredPlan struct {
	FallbackResponse string           `json:"fallback_response"`
	Steps            []structuredStep `json:"steps"`
}

type structuredStep struct {
	StepNumber    int    `json:"step_number"`
	ToolName      string `json:"tool_name"`
	Input         string `json:"input"`
	ReasoningType string `json:"reasoning_type"`
}

// Parse turns raw planner output into a Plan. It tries the structured JSON
// format first, then the STEP-line format, then the NO_TOOLS_NEEDED escape.
// Malformed individual entries and unmatched lines are skipped, never fatal;
// the planner is free-form and noise is expected.
func Parse(raw string) (*Plan, error) {
	trimmed := strings.TrimSpace(raw)

	if p, ok := parseStructured(trimmed); ok {
		if p.IsDirect() {
			return p, nil
		}
		if err := validateSteps(p.Steps); err != nil {
			return nil, err
		}
		return p, nil
	}

	if steps := parseLines(trimmed); len(steps) > 0 {
		if err := validateSteps(steps); err != nil {
			return nil, err
		}
		return &Plan{Steps: steps}, nil
	}

	if strings.HasPrefix(trimmed, directPrefix) {
		answer := strings.TrimSpace(strings.TrimPrefix(trimmed, directPrefix))
		if answer != "" {
			return &Plan{Direct: answer}, nil
		}
	}

	return nil, ErrNoValidSteps
}

// parseStructured attempts the JSON plan format. The second return value is
// false when the input is not a structured plan at all, which sends the
// caller down the line-oriented path.
func parseStructured(raw string) (*Plan, bool) {
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}

	var sp structuredPlan
	if err := json.Unmarshal([]byte(raw), &sp); err != nil {
		log.Printf("Plan is not valid JSON, falling back to line format: %v", err)
		return nil, false
	}

	// A non-empty fallback response wins regardless of steps.
	if fallback := strings.TrimSpace(sp.FallbackResponse); fallback != "" {
		return &Plan{Direct: fallback}, true
	}

	var steps []Step
	for _, s := range sp.Steps {
		if s.StepNumber <= 0 || s.ToolName == "" || s.Input == "" {
			log.Printf("Skipping malformed plan entry: %+v", s)
			continue
		}
		steps = append(steps, Step{
			Number:    s.StepNumber,
			Tool:      s.ToolName,
			Input:     strings.TrimSpace(s.Input),
			Reasoning: s.ReasoningType,
		})
	}

	return &Plan{Steps: steps}, true
}

// parseLines scans for STEP lines, silently ignoring everything else.
func parseLines(raw string) []Step {
	var steps []Step
	for _, line := range strings.Split(raw, "\n") {
		m := stepLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil || num <= 0 {
			continue
		}
		steps = append(steps, Step{
			Number: num,
			Tool:   m[2],
			Input:  strings.TrimSpace(m[3]),
		})
	}
	return steps
}

// validateSteps sorts steps into execution order and rejects plans where the
// parser survived but the plan itself is unusable.
func validateSteps(steps []Step) error {
	if len(steps) == 0 {
		return ErrNoValidSteps
	}
	sortSteps(steps)
	for i := 1; i < len(steps); i++ {
		if steps[i].Number == steps[i-1].Number {
			return fmt.Errorf("%w: step %d", ErrDuplicateStep, steps[i].Number)
		}
	}
	return nil
}
