package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/sift-dev/sift/pkg/agent"
	"github.com/sift-dev/sift/pkg/docindex"
)

// handleQueryDocument searches an indexed document for relevant passages.
// The fileUrl must already have been probed as a document; querying an
// unprobed URL is steered back to getPageContent.
func (d *LocalDispatcher) handleQueryDocument(ctx context.Context, state *agent.State, args map[string]any) (string, error) {
	var req QueryDocumentArgs
	if err := decodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.FileURL == "" || req.Description == "" {
		return "", fmt.Errorf("fileUrl and description are required")
	}

	if !state.IsDocument(req.FileURL) {
		return "", fmt.Errorf(
			"%s has not been identified as a document; call getPageContent on it first so its content type can be checked",
			req.FileURL)
	}

	query := req.Description
	if req.ExampleText != "" {
		query += "\n" + req.ExampleText
	}

	hits, err := d.queryEngine.Query(ctx, req.FileURL, query)
	if err != nil {
		return "", fmt.Errorf("failed to query document: %w", err)
	}

	state.RecordFileQueried(req.FileURL)
	state.MarkVisited(req.FileURL)

	if len(hits) == 0 {
		return "No passages matched the description.", nil
	}
	return formatHits(hits), nil
}

func formatHits(hits []docindex.Hit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant passages:\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(&b, "\n[passage %d, score %.3f]\n%s\n", i+1, hit.Score, hit.Passage.Text)
	}
	return b.String()
}
