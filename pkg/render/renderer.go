// Package render loads web pages through a headless browser and reduces
// them to readable text for the model.
package render

import "context"

// Page is the rendered, sanitized form of a web page.
type Page struct {
	URL      string
	Title    string
	Byline   string
	Text     string
	HTMLHash string
	RenderMS int
}

// Renderer loads a URL and returns its readable content.
type Renderer interface {
	Render(ctx context.Context, url string) (*Page, error)
}
