package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sift-dev/sift/pkg/agent"
	"github.com/sift-dev/sift/pkg/entity"
	"github.com/sift-dev/sift/pkg/infer"
)

// handleInferEntities gathers source content, runs structured inference over
// it, and merges the proposals into task state. On an expected-count
// mismatch the proposals are kept and the mismatch is reported as an error,
// so the model can inspect what landed and retry with sharper guidance.
func (d *LocalDispatcher) handleInferEntities(ctx context.Context, state *agent.State, args map[string]any) (string, error) {
	var req InferEntitiesArgs
	if err := decodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.Prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	if req.ExpectedCount < 0 {
		return "", fmt.Errorf("expectedCount must be at least 1 when provided, got %d", req.ExpectedCount)
	}

	constraints, err := d.resolveConstraints(req.EntityTypeIDs)
	if err != nil {
		return "", err
	}

	var validAt time.Time
	if req.ValidAt != "" {
		validAt, err = time.Parse(time.RFC3339, req.ValidAt)
		if err != nil {
			return "", fmt.Errorf("validAt must be an RFC 3339 timestamp: %w", err)
		}
	}

	content, sourceURL, err := d.resolveContent(ctx, state, &req)
	if err != nil {
		return "", err
	}

	proposed, err := d.inferrer.Infer(ctx, &infer.Request{
		Content:     content,
		SourceURL:   sourceURL,
		Prompt:      req.Prompt,
		ValidAt:     validAt,
		Constraints: constraints,
	})
	if err != nil {
		return "", fmt.Errorf("inference failed: %w", err)
	}

	ids := state.MergeProposed(proposed)
	if sourceURL != "" {
		typesSeen := map[string]bool{}
		for _, e := range proposed {
			if !typesSeen[e.EntityTypeID] {
				typesSeen[e.EntityTypeID] = true
				state.RecordFileUsed(sourceURL, e.EntityTypeID)
			}
		}
	}

	summary := describeProposals(state, ids)
	if req.ExpectedCount > 0 && len(ids) != req.ExpectedCount {
		return "", fmt.Errorf(
			"expected %d entities but inferred %d (they are kept under ids %s); refine the content or prompt and infer again if needed",
			req.ExpectedCount, len(ids), strings.Join(ids, ", "))
	}
	return summary, nil
}

// resolveConstraints maps requested type ids to the task's constraints,
// rejecting any id outside the allowed set.
func (d *LocalDispatcher) resolveConstraints(typeIDs []string) ([]entity.TypeConstraint, error) {
	if len(typeIDs) == 0 {
		return nil, fmt.Errorf("entityTypeIds is required")
	}

	var unknown []string
	constraints := make([]entity.TypeConstraint, 0, len(typeIDs))
	for _, id := range typeIDs {
		tc, ok := d.constraints[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		constraints = append(constraints, tc)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		allowed := make([]string, 0, len(d.constraints))
		for id := range d.constraints {
			allowed = append(allowed, id)
		}
		sort.Strings(allowed)
		return nil, fmt.Errorf("unknown entity type ids %v; allowed ids are %v", unknown, allowed)
	}
	return constraints, nil
}

// resolveContent picks the source text: inline content wins, then a document
// query, then a page render.
func (d *LocalDispatcher) resolveContent(ctx context.Context, state *agent.State, req *InferEntitiesArgs) (string, string, error) {
	if req.Content != "" {
		sourceURL := req.URL
		if sourceURL == "" {
			sourceURL = req.FileURL
		}
		return req.Content, sourceURL, nil
	}

	if req.FileURL != "" {
		if !state.IsDocument(req.FileURL) {
			return "", "", fmt.Errorf(
				"%s has not been identified as a document; call getPageContent on it first so its content type can be checked",
				req.FileURL)
		}
		query := req.Query
		if query == "" {
			query = req.Prompt
		}
		hits, err := d.queryEngine.Query(ctx, req.FileURL, query)
		if err != nil {
			return "", "", fmt.Errorf("failed to query document: %w", err)
		}
		if len(hits) == 0 {
			return "", "", fmt.Errorf("no passages in %s matched the query; try a different query", req.FileURL)
		}
		state.RecordFileQueried(req.FileURL)

		parts := make([]string, 0, len(hits))
		for _, hit := range hits {
			parts = append(parts, hit.Passage.Text)
		}
		return strings.Join(parts, "\n\n"), req.FileURL, nil
	}

	if req.URL != "" {
		page, err := d.renderer.Render(ctx, req.URL)
		if err != nil {
			return "", "", fmt.Errorf("failed to load %s: %w", req.URL, err)
		}
		state.MarkVisited(req.URL)
		return page.Text, req.URL, nil
	}

	return "", "", fmt.Errorf("provide content, a url, or a fileUrl to infer entities from")
}

func describeProposals(state *agent.State, ids []string) string {
	if len(ids) == 0 {
		return "No entities were inferred from the content."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Inferred %d entities:\n", len(ids))
	for _, id := range ids {
		e, ok := state.Proposed(id)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)", id, e.EntityTypeID)
		if e.Summary != "" {
			fmt.Fprintf(&b, ": %s", e.Summary)
		}
		b.WriteString("\n")
	}
	b.WriteString("Use submitProposedEntities to flag the relevant ones as final output.")
	return b.String()
}
