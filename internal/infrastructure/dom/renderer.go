package dom

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/shopopti/backend/internal/domain/extraction"
)

const defaultRenderTimeout = 30 * time.Second

// RendererConfig controls the headless-browser page source.
type RendererConfig struct {
	// DefaultTimeout for one page render.
	DefaultTimeout time.Duration
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional).
	// If empty, chromedp launches a local browser.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root).
	NoSandbox bool
	// UserAgent overrides the browser default.
	UserAgent string
}

// Renderer fetches pages through a headless browser so that client-rendered
// product markup is present in the snapshot.
type Renderer struct {
	config      RendererConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewRenderer creates a chromedp-backed page source.
func NewRenderer(config RendererConfig, logger *zap.Logger) *Renderer {
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = defaultRenderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Renderer{config: config, logger: logger}
	r.initAllocator()
	return r
}

func (r *Renderer) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if r.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.config.UserAgent))
	}

	if r.config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.config.RemoteURL)
	} else {
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// FetchPage navigates to the URL, waits for the document body and snapshots
// the rendered markup.
func (r *Renderer) FetchPage(ctx context.Context, pageURL string) (*extraction.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.DefaultTimeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	start := time.Now()
	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("dom: render %s: timed out after %v", pageURL, r.config.DefaultTimeout)
		}
		return nil, fmt.Errorf("dom: render %s: %w", pageURL, err)
	}

	r.logger.Debug("page rendered",
		zap.String("url", pageURL),
		zap.Duration("duration", time.Since(start)))
	return ParsePage(pageURL, html)
}

// Close releases the browser allocator.
func (r *Renderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

var _ PageSource = (*Renderer)(nil)
