package render

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ContentKind classifies what lives at a URL, so the right loader is used:
// the headless browser for HTML, the document index for files.
type ContentKind int

const (
	KindHTML ContentKind = iota
	KindDocument
	KindUnknown
)

func (k ContentKind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

var documentTypes = []string{
	"application/pdf",
	"wordprocessingml",
	"spreadsheetml",
	"application/msword",
	"application/vnd.ms-excel",
	"text/csv",
}

// Prober checks what kind of content a URL serves.
type Prober struct {
	client *http.Client
}

// NewProber creates a prober with the given per-request timeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Prober{
		client: &http.Client{Timeout: timeout},
	}
}

// Probe determines the content kind of a URL. It tries HEAD first; servers
// that reject HEAD get a GET with the body discarded.
func (p *Prober) Probe(ctx context.Context, url string) (ContentKind, string, error) {
	contentType, err := p.request(ctx, http.MethodHead, url)
	if err != nil || contentType == "" {
		contentType, err = p.request(ctx, http.MethodGet, url)
		if err != nil {
			return KindUnknown, "", fmt.Errorf("failed to probe %s: %w", url, err)
		}
	}

	return ClassifyContentType(contentType), contentType, nil
}

func (p *Prober) request(ctx context.Context, method, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return resp.Header.Get("Content-Type"), nil
}

// ClassifyContentType maps a Content-Type header value to a ContentKind.
func ClassifyContentType(contentType string) ContentKind {
	ct := strings.ToLower(contentType)
	for _, docType := range documentTypes {
		if strings.Contains(ct, docType) {
			return KindDocument
		}
	}
	if strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml") {
		return KindHTML
	}
	if strings.Contains(ct, "text/plain") || strings.Contains(ct, "application/json") {
		return KindDocument
	}
	return KindHTML
}
