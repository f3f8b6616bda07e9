package agent

import (
	"context"
	"testing"

	"github.com/sift-dev/sift/pkg/entity"
	"github.com/sift-dev/sift/pkg/llms"
)

// scriptedProvider replays responses in order.
type scriptedProvider struct {
	responses []*llms.Response
	calls     int
}

func (p *scriptedProvider) Generate(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (*llms.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.calls >= len(p.responses) {
		return &llms.Response{Text: "out of script"}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func (p *scriptedProvider) ModelName() string { return "scripted" }
func (p *scriptedProvider) Close() error      { return nil }

// stateDispatcher applies simple canned behaviors against the real state.
type stateDispatcher struct{}

func (d *stateDispatcher) Definitions() []llms.ToolDefinition { return nil }

func (d *stateDispatcher) Dispatch(ctx context.Context, state *State, calls []ToolCall) []CompletedToolCall {
	out := make([]CompletedToolCall, 0, len(calls))
	for _, call := range calls {
		completed := CompletedToolCall{ToolCall: call}
		switch call.Name {
		case ToolGetPageContent:
			url, _ := call.Arguments["url"].(string)
			state.MarkVisited(url)
			completed.Output = "rendered content of " + url
		case ToolInferEntities:
			url, _ := call.Arguments["url"].(string)
			ids := state.MergeProposed([]entity.ProposedEntity{
				{EntityTypeID: "type-a", Provenance: entity.Provenance{SourceURL: url}},
				{EntityTypeID: "type-a", Provenance: entity.Provenance{SourceURL: url}},
			})
			state.RecordFileUsed(url, "type-a")
			completed.Output = "proposed: " + ids[0] + ", " + ids[1]
		case ToolSubmitEntities:
			rawIDs, _ := call.Arguments["entityIds"].([]any)
			ids := make([]string, 0, len(rawIDs))
			for _, r := range rawIDs {
				if s, ok := r.(string); ok {
					ids = append(ids, s)
				}
			}
			if err := state.Submit(ids); err != nil {
				completed.Output = err.Error()
				completed.IsError = true
			} else {
				completed.Output = "submitted"
			}
		default:
			completed.Output = "unknown tool"
			completed.IsError = true
		}
		out = append(out, completed)
	}
	return out
}

func planResponse() *llms.Response {
	return &llms.Response{Text: "Plan: visit page, extract, submit, complete."}
}

func callsResponse(calls ...llms.ToolCall) *llms.Response {
	return &llms.Response{ToolCalls: calls, StopReason: "tool_use"}
}

func testTask() *Task {
	return &Task{
		Prompt:      "find the companies on the page",
		ResourceURL: "https://example.com/a",
		TypeConstraints: []entity.TypeConstraint{
			{EntityTypeID: "type-a", Title: "Company"},
		},
	}
}

func newTestController(p llms.Provider) *Controller {
	return NewController(p, &stateDispatcher{}, NewAssembler(nil, 0), nil, 20, nil)
}

func TestRunCompletesFullScenario(t *testing.T) {
	provider := &scriptedProvider{responses: []*llms.Response{
		planResponse(),
		callsResponse(
			llms.ToolCall{ID: "c1", Name: ToolGetPageContent, Arguments: map[string]any{"url": "https://example.com/a"}},
		),
		callsResponse(
			llms.ToolCall{ID: "c2", Name: ToolInferEntities, Arguments: map[string]any{"url": "https://example.com/a"}},
		),
		callsResponse(
			llms.ToolCall{ID: "c3", Name: ToolSubmitEntities, Arguments: map[string]any{"entityIds": []any{"entity-1", "entity-2"}}},
			llms.ToolCall{ID: "c4", Name: ToolComplete, Arguments: map[string]any{}},
		),
	}}

	result, err := newTestController(provider).Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Outcome, result.Message)
	}
	if len(result.InferredEntities) != 2 {
		t.Errorf("expected 2 inferred entities, got %d", len(result.InferredEntities))
	}
	if len(result.Provenance) == 0 {
		t.Error("expected provenance records")
	}
}

func TestRunTerminateAborts(t *testing.T) {
	explanation := "no tools can access this resource"
	provider := &scriptedProvider{responses: []*llms.Response{
		planResponse(),
		callsResponse(
			llms.ToolCall{ID: "c1", Name: ToolTerminate, Arguments: map[string]any{"explanation": explanation}},
		),
	}}

	result, err := newTestController(provider).Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("terminate is not a system error: %v", err)
	}
	if result.Outcome != OutcomeAborted {
		t.Fatalf("expected aborted, got %s", result.Outcome)
	}
	if result.Message != explanation {
		t.Errorf("message must carry the model explanation, got %q", result.Message)
	}
	if len(result.InferredEntities) != 0 {
		t.Errorf("aborted task must return no entities, got %d", len(result.InferredEntities))
	}
}

func TestRunTerminateBeatsCompleteInSameRound(t *testing.T) {
	provider := &scriptedProvider{responses: []*llms.Response{
		planResponse(),
		callsResponse(
			llms.ToolCall{ID: "c1", Name: ToolComplete, Arguments: map[string]any{}},
			llms.ToolCall{ID: "c2", Name: ToolTerminate, Arguments: map[string]any{"explanation": "stuck"}},
		),
	}}

	result, err := newTestController(provider).Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Outcome != OutcomeAborted {
		t.Errorf("terminate must win over complete, got %s", result.Outcome)
	}
}

func TestRunCompleteProcessesSameRoundSubmissions(t *testing.T) {
	provider := &scriptedProvider{responses: []*llms.Response{
		planResponse(),
		callsResponse(
			llms.ToolCall{ID: "c1", Name: ToolInferEntities, Arguments: map[string]any{"url": "https://example.com/a"}},
		),
		callsResponse(
			// Submission and completion in the same round: the submission
			// must land before the task finishes.
			llms.ToolCall{ID: "c2", Name: ToolSubmitEntities, Arguments: map[string]any{"entityIds": []any{"entity-1"}}},
			llms.ToolCall{ID: "c3", Name: ToolComplete, Arguments: map[string]any{}},
		),
	}}

	result, err := newTestController(provider).Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s", result.Outcome)
	}
	if len(result.InferredEntities) != 1 {
		t.Errorf("same-round submission lost: got %d entities", len(result.InferredEntities))
	}
}

func TestRunPlanRetryExhaustion(t *testing.T) {
	// Scenario D: three planning responses with tool calls instead of text.
	badPlan := callsResponse(llms.ToolCall{ID: "x", Name: ToolGetPageContent, Arguments: map[string]any{"url": "u"}})
	provider := &scriptedProvider{responses: []*llms.Response{badPlan, badPlan, badPlan}}

	result, err := newTestController(provider).Run(context.Background(), testTask())
	if err == nil {
		t.Fatal("expected retry-exhausted error")
	}
	if result.Outcome != OutcomeError {
		t.Errorf("expected error outcome, got %s", result.Outcome)
	}
}

func TestRunPlanRetriesThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{responses: []*llms.Response{
		{Text: ""}, // empty text: retry
		planResponse(),
		callsResponse(llms.ToolCall{ID: "c1", Name: ToolComplete, Arguments: map[string]any{}}),
	}}

	result, err := newTestController(provider).Run(context.Background(), testTask())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Errorf("expected completed after plan retry, got %s", result.Outcome)
	}
}

func TestRunCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{responses: []*llms.Response{planResponse()}}
	result, err := newTestController(provider).Run(ctx, testTask())
	if err != nil {
		t.Fatalf("cancellation is not a system error: %v", err)
	}
	if result.Outcome != OutcomeCanceled {
		t.Errorf("expected canceled, got %s", result.Outcome)
	}
}

func TestRunNoToolCallStreakFails(t *testing.T) {
	provider := &scriptedProvider{responses: []*llms.Response{
		planResponse(),
		{Text: "thinking..."},
		{Text: "still thinking..."},
		{Text: "hmm"},
	}}

	result, err := newTestController(provider).Run(context.Background(), testTask())
	if err == nil {
		t.Fatal("expected error after repeated no-call rounds")
	}
	if result.Outcome != OutcomeError {
		t.Errorf("expected error outcome, got %s", result.Outcome)
	}
}

func TestRunInvalidTask(t *testing.T) {
	provider := &scriptedProvider{}
	if _, err := newTestController(provider).Run(context.Background(), &Task{}); err == nil {
		t.Fatal("expected validation error for empty task")
	}
}

func TestRunRoundBudgetExhaustion(t *testing.T) {
	fetch := callsResponse(llms.ToolCall{ID: "c", Name: ToolGetPageContent, Arguments: map[string]any{"url": "https://example.com/a"}})
	provider := &scriptedProvider{responses: []*llms.Response{
		planResponse(), fetch, fetch, fetch, fetch, fetch,
	}}

	controller := NewController(provider, &stateDispatcher{}, NewAssembler(nil, 0), nil, 3, nil)
	result, err := controller.Run(context.Background(), testTask())
	if err == nil {
		t.Fatal("expected round budget error")
	}
	if result.Outcome != OutcomeError {
		t.Errorf("expected error outcome, got %s", result.Outcome)
	}
	if result.Rounds != 3 {
		t.Errorf("expected 3 rounds, got %d", result.Rounds)
	}
}
