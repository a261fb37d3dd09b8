package governance

import (
	"context"
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// StepCheck carries one planned step, post-resolution, for evaluation.
// The resolved input is evaluated rather than the declared one so that a
// denied pattern cannot be smuggled in through a RESULT_ reference.
type StepCheck struct {
	StepNumber int
	Tool       string
	Input      string
	SessionID  string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates planned steps against a set of rules before they
// are dispatched to the tool host.
type PolicyEngine interface {
	Evaluate(ctx context.Context, check StepCheck) (Result, error)
}

// DefaultPolicyEngine denies by tool name or by input pattern and allows
// everything else.
type DefaultPolicyEngine struct {
	DeniedTools map[string]bool
	DeniedInput []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedTools: make(map[string]bool),
		DeniedInput: make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyTool(name string) {
	e.DeniedTools[name] = true
}

func (e *DefaultPolicyEngine) DenyInput(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedInput = append(e.DeniedInput, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, check StepCheck) (Result, error) {
	if e.DeniedTools[check.Tool] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Tool '%s' is restricted by system policy", check.Tool),
		}, nil
	}

	for _, re := range e.DeniedInput {
		if re.MatchString(check.Input) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Step input matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
