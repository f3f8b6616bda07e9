package render

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"github.com/sift-dev/sift/pkg/config"
)

// ChromedpRenderer renders pages in headless Chrome and extracts the
// article body with readability. JavaScript-heavy pages render fully before
// extraction.
type ChromedpRenderer struct {
	timeout   time.Duration
	maxChars  int
	userAgent string
}

// NewChromedpRenderer creates a renderer from config.
func NewChromedpRenderer(cfg *config.RenderConfig) *ChromedpRenderer {
	cfg.SetDefaults()
	return &ChromedpRenderer{
		timeout:   time.Duration(cfg.Timeout) * time.Second,
		maxChars:  cfg.MaxChars,
		userAgent: cfg.UserAgent,
	}
}

func (r *ChromedpRenderer) Render(ctx context.Context, pageURL string) (*Page, error) {
	if strings.TrimSpace(pageURL) == "" {
		return nil, errors.New("invalid url")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	started := time.Now()

	html, err := r.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", pageURL, err)
	}

	sum := sha1.Sum([]byte(html))

	page := &Page{
		URL:      pageURL,
		HTMLHash: hex.EncodeToString(sum[:]),
		RenderMS: int(time.Since(started) / time.Millisecond),
	}

	article, err := readability.FromReader(strings.NewReader(html), parseURL(pageURL))
	if err != nil {
		// Readability can fail on non-article pages; fall back to the raw
		// HTML so the model still gets something to work with.
		page.Text = truncate(html, r.maxChars)
		return page, nil
	}

	page.Title = strings.TrimSpace(article.Title)
	page.Byline = strings.TrimSpace(article.Byline)
	page.Text = truncate(strings.TrimSpace(article.TextContent), r.maxChars)

	return page, nil
}

func (r *ChromedpRenderer) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(r.userAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

func parseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}

var _ Renderer = (*ChromedpRenderer)(nil)
