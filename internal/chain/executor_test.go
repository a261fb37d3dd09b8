package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/sutra/internal/governance"
	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/plan"
)

// mockSession records calls and answers from a per-tool script.
type mockSession struct {
	calls   []string // "tool:input" in invocation order
	outputs map[string]string
	failOn  string
	callErr error // returned from every CallTool when set
	closed  bool
}

func (m *mockSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return nil, nil
}

func (m *mockSession) CallTool(ctx context.Context, name string, text string) (string, error) {
	m.calls = append(m.calls, name+":"+text)
	if m.callErr != nil {
		return "", m.callErr
	}
	if name == m.failOn {
		return "", fmt.Errorf("tool %s exploded", name)
	}
	out, ok := m.outputs[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %s", name)
	}
	return out, nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

func newExecutor(session *mockSession) *Executor {
	return &Executor{
		Session:   session,
		Logger:    observability.NewLogger(""),
		SessionID: "test",
		RequestID: "req-1",
	}
}

func TestRun_ReturnsLastStepOutput(t *testing.T) {
	session := &mockSession{outputs: map[string]string{
		"reverse_string": "dlroW olleH",
		"upper_case":     "DLROW OLLEH",
	}}

	final, err := newExecutor(session).Run(context.Background(), []plan.Step{
		{Number: 1, Tool: "reverse_string", Input: "Hello World"},
		{Number: 2, Tool: "upper_case", Input: "RESULT_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "DLROW OLLEH", final)
}

func TestRun_ThreadsResultsBetweenSteps(t *testing.T) {
	session := &mockSession{outputs: map[string]string{
		"reverse_string": "dlroW olleH",
		"upper_case":     "DLROW OLLEH",
	}}

	_, err := newExecutor(session).Run(context.Background(), []plan.Step{
		{Number: 1, Tool: "reverse_string", Input: "Hello World"},
		{Number: 2, Tool: "upper_case", Input: "RESULT_1"},
	})
	require.NoError(t, err)

	// Step 2 received step 1's output, not the literal token.
	require.Len(t, session.calls, 2)
	assert.Equal(t, "reverse_string:Hello World", session.calls[0])
	assert.Equal(t, "upper_case:dlroW olleH", session.calls[1])
}

func TestRun_ExecutesInStepNumberOrder(t *testing.T) {
	session := &mockSession{outputs: map[string]string{
		"reverse_string": "a",
		"upper_case":     "b",
		"word_count":     "c",
	}}

	// Steps arrive out of order and with a gap in the numbering.
	final, err := newExecutor(session).Run(context.Background(), []plan.Step{
		{Number: 7, Tool: "word_count", Input: "z"},
		{Number: 1, Tool: "reverse_string", Input: "x"},
		{Number: 3, Tool: "upper_case", Input: "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, "c", final)
	assert.Equal(t, []string{"reverse_string:x", "upper_case:y", "word_count:z"}, session.calls)
}

func TestRun_HaltsOnFirstFailure(t *testing.T) {
	session := &mockSession{
		outputs: map[string]string{
			"reverse_string": "a",
			"word_count":     "c",
		},
		failOn: "upper_case",
	}

	_, err := newExecutor(session).Run(context.Background(), []plan.Step{
		{Number: 1, Tool: "reverse_string", Input: "x"},
		{Number: 2, Tool: "upper_case", Input: "y"},
		{Number: 3, Tool: "word_count", Input: "z"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolCallFailed)
	assert.Contains(t, err.Error(), "step 2")
	assert.Contains(t, err.Error(), "upper_case")

	// Step 3 was never invoked.
	assert.Len(t, session.calls, 2)
}

func TestRun_CallFailureKeepsCauseChain(t *testing.T) {
	session := &mockSession{callErr: context.Canceled}

	_, err := newExecutor(session).Run(context.Background(), []plan.Step{
		{Number: 1, Tool: "reverse_string", Input: "x"},
	})
	require.Error(t, err)

	// The class and the underlying cause must both survive the wrap so a
	// cancelled call can be re-classified upstream.
	assert.ErrorIs(t, err, ErrToolCallFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_UnresolvedReferenceIsFatal(t *testing.T) {
	session := &mockSession{outputs: map[string]string{"upper_case": "b"}}

	_, err := newExecutor(session).Run(context.Background(), []plan.Step{
		{Number: 1, Tool: "upper_case", Input: "RESULT_9"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrUnresolvedReference)
	assert.Empty(t, session.calls)
}

func TestRun_PolicyDenyAbortsChain(t *testing.T) {
	session := &mockSession{outputs: map[string]string{
		"reverse_string": "a",
		"shell":          "b",
	}}

	gov := governance.NewDefaultPolicyEngine()
	gov.DenyTool("shell")

	ex := newExecutor(session)
	ex.Policy = gov

	_, err := ex.Run(context.Background(), []plan.Step{
		{Number: 1, Tool: "reverse_string", Input: "x"},
		{Number: 2, Tool: "shell", Input: "rm everything"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPolicyDenied)
	assert.Len(t, session.calls, 1)
}

func TestRun_PolicyErrorSurfaces(t *testing.T) {
	session := &mockSession{outputs: map[string]string{"reverse_string": "a"}}

	ex := newExecutor(session)
	ex.Policy = failingPolicy{}

	_, err := ex.Run(context.Background(), []plan.Step{
		{Number: 1, Tool: "reverse_string", Input: "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy evaluation")
}

type failingPolicy struct{}

func (failingPolicy) Evaluate(ctx context.Context, check governance.StepCheck) (governance.Result, error) {
	return governance.Result{}, errors.New("policy backend down")
}
