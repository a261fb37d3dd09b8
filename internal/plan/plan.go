package plan

import (
	"sort"
)

// Step is one planned tool invocation. Number controls execution order,
// Input is either literal text or a RESULT_<n> reference to an earlier
// step's output. Reasoning is carried for observability only.
type Step struct {
	Number    int    `json:"step_number"`
	Tool      string `json:"tool_name"`
	Input     string `json:"input"`
	Reasoning string `json:"reasoning_type,omitempty"`
}

// Plan is the parsed output of the planner: either a direct answer that
// needs no tools, or an ordered sequence of steps.
type Plan struct {
	Direct string
	Steps  []Step
}

// IsDirect reports whether the planner answered without tools.
func (p *Plan) IsDirect() bool {
	return p.Direct != ""
}

func sortSteps(steps []Step) {
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].Number < steps[j].Number
	})
}
