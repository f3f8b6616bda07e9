package tools

import (
	"fmt"
	"strings"

	"github.com/sift-dev/sift/pkg/agent"
)

// handleSubmitEntities flags proposed entities as final output. Submission
// is all or nothing: any unknown id rejects the whole call.
func (d *LocalDispatcher) handleSubmitEntities(state *agent.State, args map[string]any) (string, error) {
	var req SubmitArgs
	if err := decodeArgs(args, &req); err != nil {
		return "", err
	}
	if len(req.EntityIDs) == 0 {
		return "", fmt.Errorf("entityIds is required")
	}

	if err := state.Submit(req.EntityIDs); err != nil {
		return "", fmt.Errorf("%w; nothing was submitted, use ids returned by inferEntitiesFromContent", err)
	}
	return fmt.Sprintf("Submitted %s.", strings.Join(req.EntityIDs, ", ")), nil
}

// handleUpdatePlan replaces the research plan.
func (d *LocalDispatcher) handleUpdatePlan(state *agent.State, args map[string]any) (string, error) {
	var req UpdatePlanArgs
	if err := decodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.Plan == "" {
		return "", fmt.Errorf("plan is required")
	}

	state.SetPlan(req.Plan)
	return "Plan updated.", nil
}
