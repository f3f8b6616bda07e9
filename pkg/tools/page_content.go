package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/sift-dev/sift/pkg/agent"
	"github.com/sift-dev/sift/pkg/render"
)

// handleGetPageContent probes the URL first: pages go through the headless
// renderer, anything document-shaped is recorded and steered to
// queryDocument instead of being rendered.
func (d *LocalDispatcher) handleGetPageContent(ctx context.Context, state *agent.State, args map[string]any) (string, error) {
	var req GetPageContentArgs
	if err := decodeArgs(args, &req); err != nil {
		return "", err
	}
	if req.URL == "" {
		return "", fmt.Errorf("url is required")
	}

	kind, contentType, err := d.prober.Probe(ctx, req.URL)
	if err != nil {
		return "", err
	}

	if kind == render.KindDocument {
		state.MarkDocument(req.URL)
		return "", fmt.Errorf(
			"%s serves a document (%s), not a web page; use queryDocument with fileUrl=%s to search its contents",
			req.URL, contentType, req.URL)
	}

	page, err := d.renderer.Render(ctx, req.URL)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", req.URL, err)
	}
	state.MarkVisited(req.URL)

	var b strings.Builder
	if page.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", page.Title)
	}
	if page.Byline != "" {
		fmt.Fprintf(&b, "Byline: %s\n", page.Byline)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(page.Text)
	return b.String(), nil
}
