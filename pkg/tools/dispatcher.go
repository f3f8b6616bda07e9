package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sift-dev/sift/pkg/agent"
	"github.com/sift-dev/sift/pkg/docindex"
	"github.com/sift-dev/sift/pkg/entity"
	"github.com/sift-dev/sift/pkg/infer"
	"github.com/sift-dev/sift/pkg/llms"
	"github.com/sift-dev/sift/pkg/render"
)

// LocalDispatcher executes one round's tool calls against the local
// collaborators. It is created per task because argument validation depends
// on the task's type constraints.
type LocalDispatcher struct {
	renderer    render.Renderer
	prober      *render.Prober
	inferrer    infer.Inferrer
	queryEngine *docindex.QueryEngine
	constraints map[string]entity.TypeConstraint
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewLocalDispatcher creates a dispatcher for one task.
func NewLocalDispatcher(
	renderer render.Renderer,
	prober *render.Prober,
	inferrer infer.Inferrer,
	queryEngine *docindex.QueryEngine,
	constraints []entity.TypeConstraint,
	callTimeout time.Duration,
	logger *slog.Logger,
) *LocalDispatcher {
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	byID := make(map[string]entity.TypeConstraint, len(constraints))
	for _, tc := range constraints {
		byID[tc.EntityTypeID] = tc
	}

	return &LocalDispatcher{
		renderer:    renderer,
		prober:      prober,
		inferrer:    inferrer,
		queryEngine: queryEngine,
		constraints: byID,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Definitions returns the fixed tool catalogue.
func (d *LocalDispatcher) Definitions() []llms.ToolDefinition {
	return Definitions()
}

// Dispatch executes all calls concurrently. Every result carries its
// originating call id; input errors and handler failures come back as
// IsError results, never as panics or dropped calls.
func (d *LocalDispatcher) Dispatch(ctx context.Context, state *agent.State, calls []agent.ToolCall) []agent.CompletedToolCall {
	results := make([]agent.CompletedToolCall, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call agent.ToolCall) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
			defer cancel()

			started := time.Now()
			output, err := d.execute(callCtx, state, call)

			completed := agent.CompletedToolCall{ToolCall: call, Output: output}
			if err != nil {
				completed.Output = err.Error()
				completed.IsError = true
			}
			results[i] = completed

			d.logger.Debug("tool call finished",
				"tool", call.Name,
				"id", call.ID,
				"error", completed.IsError,
				"took", time.Since(started).Round(time.Millisecond))
		}(i, call)
	}
	wg.Wait()

	return results
}

func (d *LocalDispatcher) execute(ctx context.Context, state *agent.State, call agent.ToolCall) (string, error) {
	switch call.Name {
	case agent.ToolGetPageContent:
		return d.handleGetPageContent(ctx, state, call.Arguments)
	case agent.ToolInferEntities:
		return d.handleInferEntities(ctx, state, call.Arguments)
	case agent.ToolQueryDocument:
		return d.handleQueryDocument(ctx, state, call.Arguments)
	case agent.ToolSubmitEntities:
		return d.handleSubmitEntities(state, call.Arguments)
	case agent.ToolUpdatePlan:
		return d.handleUpdatePlan(state, call.Arguments)
	default:
		return "", fmt.Errorf("unknown tool %q; available tools are listed in your tool declarations", call.Name)
	}
}
