// Package agent contains the request orchestrator: it fetches the tool
// catalog, asks the planner for a plan, parses it and hands surviving steps
// to the chain executor.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/rahul/sutra/internal/catalog"
	"github.com/rahul/sutra/internal/chain"
	"github.com/rahul/sutra/internal/governance"
	"github.com/rahul/sutra/internal/host"
	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/plan"
	"github.com/tmc/langchaingo/llms"
)

// historyLimit is how many prior exchanges are embedded in the planning
// prompt as conversation context.
const historyLimit = 5

// HistoryStore records finished exchanges and supplies conversation context
// for the planner.
type HistoryStore interface {
	AddMessage(sessionID string, role string, content string) error
	GetHistory(sessionID string, limit int) ([]llms.MessageContent, error)
}

// Dialer opens a session to the tool host. Overridable for tests.
type Dialer func(ctx context.Context, cfg host.Config) (host.Session, error)

// Orchestrator drives one user request end to end. It is safe for reuse
// across requests; everything request-scoped (session, results, catalog) is
// created inside Process.
type Orchestrator struct {
	Model      llms.Model
	Host       host.Config
	Dial       Dialer
	Prompts    *PromptManager
	Policy     governance.PolicyEngine
	History    HistoryStore
	Logger     *observability.Logger
	Structured bool
}

// Process runs CatalogFetch -> Planning -> Parsing -> {DirectAnswer |
// Executing} for one request. It returns exactly one of: the final tool
// output, the planner's direct answer, or a classified error. The tool-host
// channel is opened here and closed on every exit path.
func (o *Orchestrator) Process(ctx context.Context, sessionID string, request string) (string, error) {
	requestID := uuid.NewString()

	observability.SetStatus(observability.PhaseCatalog, request)
	defer observability.SetStatus(observability.PhaseIdle, "")

	dial := o.Dial
	if dial == nil {
		dial = host.Dial
	}

	session, err := dial(ctx, o.Host)
	if err != nil {
		return "", o.classify(err, ErrCatalogUnavailable)
	}
	defer session.Close()

	descriptors, err := catalog.Fetch(ctx, session)
	if err != nil {
		return "", o.classify(err, ErrCatalogUnavailable)
	}

	observability.SetStatus(observability.PhasePlanning, request)

	raw, err := o.invokePlanner(ctx, sessionID, requestID, descriptors, request)
	if err != nil {
		return "", err
	}

	parsed, err := plan.Parse(raw)
	if err != nil {
		if errors.Is(err, plan.ErrDuplicateStep) {
			return "", fmt.Errorf("%w: %v", ErrPlanningFailed, err)
		}
		return "", err
	}

	o.Logger.LogPlan(sessionID, requestID, len(parsed.Steps), parsed.IsDirect())

	if parsed.IsDirect() {
		log.Printf("Planner answered directly without tool usage")
		o.record(sessionID, request, parsed.Direct)
		return parsed.Direct, nil
	}

	observability.SetStatus(observability.PhaseExecuting, request)

	executor := &chain.Executor{
		Session:   session,
		Policy:    o.Policy,
		Logger:    o.Logger,
		SessionID: sessionID,
		RequestID: requestID,
	}

	final, err := executor.Run(ctx, parsed.Steps)
	if err != nil {
		if t := classifyTransport(err); t != nil {
			return "", t
		}
		return "", err
	}

	o.record(sessionID, request, final)
	return final, nil
}

// invokePlanner builds the planning prompt and calls the model exactly once.
// A failed or empty response is a planning failure, never silently retried.
func (o *Orchestrator) invokePlanner(ctx context.Context, sessionID, requestID string, descriptors []catalog.Descriptor, request string) (string, error) {
	systemPrompt, err := o.Prompts.BuildPlanningPrompt(catalog.Render(descriptors), o.Structured)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlanningFailed, err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
	}
	if o.History != nil {
		history, err := o.History.GetHistory(sessionID, historyLimit)
		if err != nil {
			log.Printf("Warning: failed to load history for %s: %v", sessionID, err)
		} else {
			messages = append(messages, history...)
		}
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, request))

	var opts []llms.CallOption
	if o.Structured {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := o.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", o.classify(err, ErrPlanningFailed)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("%w: planner returned an empty response", ErrPlanningFailed)
	}

	raw := resp.Choices[0].Content
	o.Logger.LogLLM(sessionID, requestID, systemPrompt, raw)
	return raw, nil
}

// classify wraps an error into its stage class, letting transport-level
// failures take precedence over the stage.
func (o *Orchestrator) classify(err error, class error) error {
	if t := classifyTransport(err); t != nil {
		return t
	}
	return fmt.Errorf("%w: %v", class, err)
}

func (o *Orchestrator) record(sessionID, request, response string) {
	if o.History == nil {
		return
	}
	if err := o.History.AddMessage(sessionID, "human", request); err != nil {
		log.Printf("Warning: failed to record request: %v", err)
	}
	if err := o.History.AddMessage(sessionID, "ai", response); err != nil {
		log.Printf("Warning: failed to record response: %v", err)
	}
}
