package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahul/sutra/internal/chain"
	"github.com/rahul/sutra/internal/plan"
)

var (
	// ErrCatalogUnavailable means the tool host could not be reached or
	// refused to list its tools.
	ErrCatalogUnavailable = errors.New("tool catalog unavailable")

	// ErrPlanningFailed means the planner call errored or its output could
	// not be parsed in any accepted format.
	ErrPlanningFailed = errors.New("planning failed")

	// ErrChannelBroken covers transport-level failures: cancellation,
	// timeout, broken connection to the tool host.
	ErrChannelBroken = errors.New("channel to tool host broken")
)

// classifyTransport converts context-level failures into the channel-broken
// class so raw transport errors never reach the caller.
func classifyTransport(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: request cancelled", ErrChannelBroken)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: request timed out", ErrChannelBroken)
	default:
		return nil
	}
}

// UserMessage renders an orchestration error as the single descriptive
// string handed to the user. The caller gets either a result or one of
// these, never both.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrCatalogUnavailable):
		return fmt.Sprintf("Error connecting to tool host: %v", err)
	case errors.Is(err, ErrPlanningFailed):
		return fmt.Sprintf("Error in planning: %v", err)
	case errors.Is(err, plan.ErrNoValidSteps):
		return "No valid tool steps found in the plan."
	case errors.Is(err, plan.ErrUnresolvedReference):
		return fmt.Sprintf("Error: %v", err)
	case errors.Is(err, chain.ErrPolicyDenied):
		return fmt.Sprintf("Request blocked: %v", err)
	case errors.Is(err, chain.ErrToolCallFailed):
		return fmt.Sprintf("Error executing plan: %v", err)
	case errors.Is(err, ErrChannelBroken):
		return fmt.Sprintf("Connection failure: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
