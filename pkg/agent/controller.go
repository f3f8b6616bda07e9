package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sift-dev/sift/pkg/entity"
	"github.com/sift-dev/sift/pkg/llms"
)

// Outcome is the terminal state of one research task.
type Outcome string

const (
	// OutcomeCompleted means the model called complete and submitted
	// entities are the task's answer.
	OutcomeCompleted Outcome = "completed"

	// OutcomeAborted means the model called terminate. A valid outcome,
	// not a system error.
	OutcomeAborted Outcome = "aborted"

	// OutcomeCanceled means the caller's context was canceled.
	OutcomeCanceled Outcome = "canceled"

	// OutcomeError means an unrecoverable failure: plan retries exhausted
	// or a collaborator transport failure.
	OutcomeError Outcome = "error"
)

// Result is what a finished task returns to the caller.
type Result struct {
	RunID            string                      `json:"runId"`
	Outcome          Outcome                     `json:"outcome"`
	InferredEntities []entity.ProposedEntity     `json:"inferredEntities"`
	Provenance       []entity.AccessedRemoteFile `json:"provenance"`
	Message          string                      `json:"message,omitempty"`
	Rounds           int                         `json:"rounds"`
	TokensUsed       int                         `json:"tokensUsed"`
}

// Dispatcher validates and executes one round's tool calls concurrently.
// Every returned result carries its originating call id. Tool-level
// failures surface as IsError results, never as returned errors.
type Dispatcher interface {
	Dispatch(ctx context.Context, state *State, calls []ToolCall) []CompletedToolCall
	Definitions() []llms.ToolDefinition
}

// Snapshotter optionally persists state between rounds as a debugging aid.
type Snapshotter interface {
	Save(state *State) error
}

// Controller drives one research task to a terminal outcome.
type Controller struct {
	provider   llms.Provider
	dispatcher Dispatcher
	assembler  *Assembler
	snapshots  Snapshotter // nil disables snapshotting
	maxRounds  int
	logger     *slog.Logger
}

// planRetryBound is the total number of planning attempts before the task
// fails with a retry-exhausted error. The same bound applies to consecutive
// acting responses carrying no tool calls.
const planRetryBound = 3

// NewController creates a controller. maxRounds of zero or less means the
// loop is bounded only by the caller's context.
func NewController(provider llms.Provider, dispatcher Dispatcher, assembler *Assembler, snapshots Snapshotter, maxRounds int, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		provider:   provider,
		dispatcher: dispatcher,
		assembler:  assembler,
		snapshots:  snapshots,
		maxRounds:  maxRounds,
		logger:     logger,
	}
}

// Run executes one task. The returned error is non-nil only for outcome
// "error"; aborted and canceled tasks return a nil error with the outcome
// explaining what happened.
func (c *Controller) Run(ctx context.Context, task *Task) (*Result, error) {
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}

	runID := uuid.NewString()
	logger := c.logger.With("run", runID)
	state := NewState(task.ExistingEntities)
	result := &Result{RunID: runID}

	plan, tokens, err := c.plan(ctx, task)
	result.TokensUsed += tokens
	if err != nil {
		if ctx.Err() != nil {
			return c.canceled(result, state), nil
		}
		result.Outcome = OutcomeError
		result.Message = err.Error()
		return result, err
	}
	state.SetPlan(plan)
	logger.Info("plan established", "tokens", tokens)

	noCallStreak := 0
	nudge := ""

	for round := 0; c.maxRounds <= 0 || round < c.maxRounds; round++ {
		if ctx.Err() != nil {
			return c.canceled(result, state), nil
		}

		messages := c.assembler.Build(state, task, nudge)
		nudge = ""

		resp, err := c.provider.Generate(ctx, messages, c.dispatcher.Definitions())
		if err != nil {
			if ctx.Err() != nil {
				return c.canceled(result, state), nil
			}
			result.Outcome = OutcomeError
			result.Message = fmt.Sprintf("completion request failed: %v", err)
			return result, fmt.Errorf("completion request failed: %w", err)
		}
		result.TokensUsed += resp.TokensUsed
		result.Rounds = round + 1

		if len(resp.ToolCalls) == 0 {
			noCallStreak++
			if noCallStreak >= planRetryBound {
				err := errors.New("model produced no tool calls for three consecutive rounds")
				result.Outcome = OutcomeError
				result.Message = err.Error()
				return result, err
			}
			nudge = "Respond with tool calls. Call complete when the task is done, or terminate if it cannot be done."
			logger.Debug("acting round produced no tool calls", "round", round)
			continue
		}
		noCallStreak = 0

		var terminateCall, completeCall *ToolCall
		dispatchable := make([]ToolCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			call := ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments, RawArgs: tc.RawArgs}
			switch call.Name {
			case ToolTerminate:
				call := call
				terminateCall = &call
			case ToolComplete:
				call := call
				completeCall = &call
			default:
				dispatchable = append(dispatchable, call)
			}
		}

		// terminate aborts immediately; other same-round calls are ignored.
		if terminateCall != nil {
			explanation, _ := terminateCall.Arguments["explanation"].(string)
			state.AppendRound(Round{Text: resp.Text})
			c.snapshot(state, logger)
			logger.Info("model terminated task", "explanation", explanation)
			result.Outcome = OutcomeAborted
			result.Message = explanation
			result.Provenance = state.Provenance()
			return result, nil
		}

		// complete finishes the round first so same-round side effects
		// like submitProposedEntities are not lost.
		completed := c.dispatcher.Dispatch(ctx, state, dispatchable)
		state.AppendRound(Round{Text: resp.Text, Calls: completed})
		c.snapshot(state, logger)

		logger.Debug("round dispatched",
			"round", round,
			"calls", len(completed),
			"proposed", len(state.ProposedEntities))

		if completeCall != nil {
			result.Outcome = OutcomeCompleted
			result.InferredEntities = state.SubmittedEntities()
			result.Provenance = state.Provenance()
			logger.Info("task completed",
				"entities", len(result.InferredEntities),
				"rounds", result.Rounds,
				"tokens", result.TokensUsed)
			return result, nil
		}
	}

	err = fmt.Errorf("round budget of %d exhausted before the task finished", c.maxRounds)
	result.Outcome = OutcomeError
	result.Message = err.Error()
	return result, err
}

// plan runs the planning step: a completion with no tools declared, retried
// with corrective messages when the model returns tool calls or empty text.
func (c *Controller) plan(ctx context.Context, task *Task) (string, int, error) {
	messages := []llms.Message{
		{Role: "system", Content: "You are a research agent. Write a short step-by-step plan for the task below. Respond with plain text only; you cannot call tools during planning."},
		{Role: "user", Content: taskMessage(task)},
	}

	tokens := 0
	for attempt := 1; attempt <= planRetryBound; attempt++ {
		resp, err := c.provider.Generate(ctx, messages, nil)
		if err != nil {
			return "", tokens, fmt.Errorf("planning request failed: %w", err)
		}
		tokens += resp.TokensUsed

		if resp.Text != "" && len(resp.ToolCalls) == 0 {
			return resp.Text, tokens, nil
		}

		messages = append(messages, llms.Message{
			Role:    "user",
			Content: "That response is not a usable plan. Reply with a plain-text plan and nothing else.",
		})
	}

	return "", tokens, fmt.Errorf("planning failed after %d attempts: model kept returning tool calls or empty text", planRetryBound)
}

func (c *Controller) canceled(result *Result, state *State) *Result {
	result.Outcome = OutcomeCanceled
	result.Message = "task canceled by caller"
	result.Provenance = state.Provenance()
	return result
}

func (c *Controller) snapshot(state *State, logger *slog.Logger) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Save(state); err != nil {
		logger.Warn("failed to save state snapshot", "error", err)
	}
}
