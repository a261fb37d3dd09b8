// Package chain drives a parsed plan against the tool host, one step at a
// time in ascending step-number order. Step N's input may reference step
// N-1's output, so sequential execution is a correctness requirement here,
// not a simplification.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/rahul/sutra/internal/governance"
	"github.com/rahul/sutra/internal/host"
	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/plan"
)

var (
	// ErrToolCallFailed covers remote call errors and malformed results.
	ErrToolCallFailed = errors.New("tool call failed")

	// ErrPolicyDenied means the policy engine refused a step.
	ErrPolicyDenied = errors.New("step denied by policy")
)

// Outcome records one executed step for observability.
type Outcome struct {
	StepNumber    int
	Tool          string
	ResolvedInput string
	Result        string
}

// Executor runs plan steps over a tool-host session. Results live only for
// one Run call; an Executor itself is reusable across requests.
type Executor struct {
	Session   host.Session
	Policy    governance.PolicyEngine
	Logger    *observability.Logger
	SessionID string
	RequestID string
}

// Run executes steps in ascending step-number order, threading stored
// outputs through RESULT_ references. The first failing step aborts the
// whole chain; prior outputs are discarded with it. On success the final
// step's raw output is returned.
func (e *Executor) Run(ctx context.Context, steps []plan.Step) (string, error) {
	ordered := make([]plan.Step, len(steps))
	copy(ordered, steps)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	results := plan.NewResults()

	var finalResult string
	for _, step := range ordered {
		outcome, err := e.runStep(ctx, step, results)
		if err != nil {
			return "", err
		}
		results.Store(step.Number, outcome.Result)
		finalResult = outcome.Result
	}
	return finalResult, nil
}

func (e *Executor) runStep(ctx context.Context, step plan.Step, results *plan.Results) (*Outcome, error) {
	resolved, err := results.Resolve(step.Input)
	if err != nil {
		return nil, fmt.Errorf("step %d (%s): %w", step.Number, step.Tool, err)
	}
	if resolved != step.Input {
		e.Logger.LogResolve(e.SessionID, e.RequestID, step.Number, step.Input)
	}

	if e.Policy != nil {
		res, err := e.Policy.Evaluate(ctx, governance.StepCheck{
			StepNumber: step.Number,
			Tool:       step.Tool,
			Input:      resolved,
			SessionID:  e.SessionID,
		})
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): policy evaluation: %w", step.Number, step.Tool, err)
		}
		e.Logger.LogPolicyCheck(e.SessionID, e.RequestID, step.Tool, string(res.Effect), res.Reason)
		if res.Effect == governance.EffectDeny {
			return nil, fmt.Errorf("step %d (%s): %w: %s", step.Number, step.Tool, ErrPolicyDenied, res.Reason)
		}
	}

	log.Printf("Executing step %d: %s with input: %s", step.Number, step.Tool, resolved)
	e.Logger.LogToolCall(e.SessionID, e.RequestID, step.Tool, resolved)

	result, err := e.Session.CallTool(ctx, step.Tool, resolved)
	if err != nil {
		// Both the class and the cause stay matchable: the orchestrator
		// re-classifies context errors as channel failures.
		return nil, fmt.Errorf("step %d (%s): %w: %w", step.Number, step.Tool, ErrToolCallFailed, err)
	}

	e.Logger.LogToolResult(e.SessionID, e.RequestID, step.Tool, result)

	return &Outcome{
		StepNumber:    step.Number,
		Tool:          step.Tool,
		ResolvedInput: resolved,
		Result:        result,
	}, nil
}
