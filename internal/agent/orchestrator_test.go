package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/sutra/internal/host"
	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/plan"
)

// fakePlanner returns a canned response for every planning call.
type fakePlanner struct {
	response string
	err      error
	calls    int
}

func (f *fakePlanner) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakePlanner) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeSession is a scripted tool host.
type fakeSession struct {
	tools     []mcp.Tool
	outputs   map[string]string
	callErr   error // returned from every CallTool when set
	toolCalls []string
	closed    bool
}

func (f *fakeSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return f.tools, nil
}

func (f *fakeSession) CallTool(ctx context.Context, name string, text string) (string, error) {
	f.toolCalls = append(f.toolCalls, name+":"+text)
	if f.callErr != nil {
		return "", f.callErr
	}
	out, ok := f.outputs[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %s", name)
	}
	return out, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type recordedMessage struct {
	Role    string
	Content string
}

type fakeHistory struct {
	messages []recordedMessage
}

func (f *fakeHistory) AddMessage(sessionID, role, content string) error {
	f.messages = append(f.messages, recordedMessage{Role: role, Content: content})
	return nil
}

func (f *fakeHistory) GetHistory(sessionID string, limit int) ([]llms.MessageContent, error) {
	return nil, nil
}

func demoTools() []mcp.Tool {
	return []mcp.Tool{
		{Name: "reverse_string", Description: "Reverse a given string."},
		{Name: "upper_case", Description: "Convert text to upper case."},
	}
}

func newTestOrchestrator(planner *fakePlanner, session *fakeSession) *Orchestrator {
	return &Orchestrator{
		Model: planner,
		Dial: func(ctx context.Context, cfg host.Config) (host.Session, error) {
			return session, nil
		},
		Prompts: NewPromptManager(""),
		Logger:  observability.NewLogger(""),
	}
}

func TestProcess_SingleStepPlan(t *testing.T) {
	planner := &fakePlanner{response: "STEP 1: Use reverse_string with input: Hello World"}
	session := &fakeSession{tools: demoTools(), outputs: map[string]string{"reverse_string": "dlroW olleH"}}

	result, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "reverse 'Hello World'")
	require.NoError(t, err)
	assert.Equal(t, "dlroW olleH", result)
	assert.Equal(t, 1, planner.calls)
	assert.True(t, session.closed, "session must be closed on success")
}

func TestProcess_DirectAnswerSkipsTools(t *testing.T) {
	planner := &fakePlanner{response: "NO_TOOLS_NEEDED: Sure, here's a fact."}
	session := &fakeSession{tools: demoTools()}

	result, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "tell me a fact")
	require.NoError(t, err)
	assert.Equal(t, "Sure, here's a fact.", result)
	assert.Empty(t, session.toolCalls)
	assert.True(t, session.closed)
}

func TestProcess_ChainedPlan(t *testing.T) {
	planner := &fakePlanner{response: `STEP 1: Use reverse_string with input: Hello World
STEP 2: Use upper_case with input: RESULT_1`}
	session := &fakeSession{tools: demoTools(), outputs: map[string]string{
		"reverse_string": "dlroW olleH",
		"upper_case":     "DLROW OLLEH",
	}}

	result, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "reverse then shout")
	require.NoError(t, err)
	assert.Equal(t, "DLROW OLLEH", result)
	require.Len(t, session.toolCalls, 2)
	assert.Equal(t, "upper_case:dlroW olleH", session.toolCalls[1])
}

func TestProcess_StructuredPlan(t *testing.T) {
	planner := &fakePlanner{response: `{"steps":[{"step_number":1,"tool_name":"reverse_string","input":"Hello World"}]}`}
	session := &fakeSession{tools: demoTools(), outputs: map[string]string{"reverse_string": "dlroW olleH"}}

	orch := newTestOrchestrator(planner, session)
	orch.Structured = true

	result, err := orch.Process(context.Background(), "s1", "reverse 'Hello World'")
	require.NoError(t, err)
	assert.Equal(t, "dlroW olleH", result)
}

func TestProcess_PlannerErrorIsPlanningFailure(t *testing.T) {
	planner := &fakePlanner{err: errors.New("model unavailable")}
	session := &fakeSession{tools: demoTools()}

	_, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlanningFailed)
	assert.True(t, session.closed, "session must be closed on planning failure")
}

func TestProcess_ProseResponseHasNoValidSteps(t *testing.T) {
	planner := &fakePlanner{response: "I would rather chat about the weather."}
	session := &fakeSession{tools: demoTools()}

	_, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrNoValidSteps)
	assert.True(t, session.closed)
}

func TestProcess_DuplicateStepsArePlanningFailure(t *testing.T) {
	planner := &fakePlanner{response: `STEP 1: Use reverse_string with input: a
STEP 1: Use upper_case with input: b`}
	session := &fakeSession{tools: demoTools()}

	_, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlanningFailed)
}

func TestProcess_DialFailureIsCatalogUnavailable(t *testing.T) {
	planner := &fakePlanner{response: "unused"}
	orch := &Orchestrator{
		Model: planner,
		Dial: func(ctx context.Context, cfg host.Config) (host.Session, error) {
			return nil, errors.New("no such command")
		},
		Prompts: NewPromptManager(""),
		Logger:  observability.NewLogger(""),
	}

	_, err := orch.Process(context.Background(), "s1", "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.Equal(t, 0, planner.calls)
}

func TestProcess_CancellationIsChannelBroken(t *testing.T) {
	planner := &fakePlanner{err: context.Canceled}
	session := &fakeSession{tools: demoTools()}

	_, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChannelBroken)
	assert.True(t, session.closed, "session must be closed on cancellation")
}

func TestProcess_CancelledToolCallIsChannelBroken(t *testing.T) {
	planner := &fakePlanner{response: "STEP 1: Use reverse_string with input: Hello World"}
	session := &fakeSession{tools: demoTools(), callErr: context.Canceled}

	_, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "reverse 'Hello World'")
	require.Error(t, err)

	// A cancelled remote call is a transport failure, not a tool failure.
	assert.ErrorIs(t, err, ErrChannelBroken)
	assert.True(t, session.closed, "session must be closed when a step is cancelled")
}

func TestProcess_TimedOutToolCallIsChannelBroken(t *testing.T) {
	planner := &fakePlanner{response: "STEP 1: Use reverse_string with input: Hello World"}
	session := &fakeSession{tools: demoTools(), callErr: context.DeadlineExceeded}

	_, err := newTestOrchestrator(planner, session).Process(context.Background(), "s1", "reverse 'Hello World'")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChannelBroken)
}

func TestProcess_RecordsExchange(t *testing.T) {
	planner := &fakePlanner{response: "STEP 1: Use reverse_string with input: Hello World"}
	session := &fakeSession{tools: demoTools(), outputs: map[string]string{"reverse_string": "dlroW olleH"}}
	history := &fakeHistory{}

	orch := newTestOrchestrator(planner, session)
	orch.History = history

	_, err := orch.Process(context.Background(), "s1", "reverse 'Hello World'")
	require.NoError(t, err)

	require.Len(t, history.messages, 2)
	assert.Equal(t, recordedMessage{Role: "human", Content: "reverse 'Hello World'"}, history.messages[0])
	assert.Equal(t, recordedMessage{Role: "ai", Content: "dlroW olleH"}, history.messages[1])
}

func TestUserMessage_Classes(t *testing.T) {
	assert.Contains(t, UserMessage(fmt.Errorf("%w: boom", ErrCatalogUnavailable)), "tool host")
	assert.Contains(t, UserMessage(fmt.Errorf("%w: boom", ErrPlanningFailed)), "planning")
	assert.Equal(t, "No valid tool steps found in the plan.", UserMessage(plan.ErrNoValidSteps))
	assert.Contains(t, UserMessage(fmt.Errorf("%w: boom", ErrChannelBroken)), "Connection failure")
}
