package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// Config holds browser launch settings
type Config struct {
	Headless  bool
	Timeout   time.Duration
	UserAgent string
}

// Renderer loads script-heavy pages in headless Chromium and returns the
// rendered DOM. The browser is started on first use.
type Renderer struct {
	cfg    Config
	logger *logging.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewRenderer creates a lazily started renderer
func NewRenderer(cfg Config, logger *logging.Logger) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Renderer{cfg: cfg, logger: logger}
}

func (r *Renderer) start() (playwright.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("browser: start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(r.cfg.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("browser: launch chromium: %w", err)
	}

	r.pw = pw
	r.browser = b
	r.logger.Info("headless browser started", "headless", r.cfg.Headless)
	return b, nil
}

// Render navigates to url, waits for waitSelector when given and returns
// the page HTML
func (r *Renderer) Render(ctx context.Context, url, waitSelector string) (string, error) {
	b, err := r.start()
	if err != nil {
		return "", err
	}

	opts := playwright.BrowserNewPageOptions{}
	if r.cfg.UserAgent != "" {
		opts.UserAgent = playwright.String(r.cfg.UserAgent)
	}
	page, err := b.NewPage(opts)
	if err != nil {
		return "", fmt.Errorf("browser: new page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	timeout := r.timeout(ctx)
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(timeout),
	}); err != nil {
		return "", fmt.Errorf("browser: goto %s: %w", url, err)
	}

	if waitSelector != "" {
		if _, err := page.WaitForSelector(waitSelector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(timeout),
		}); err != nil {
			r.logger.Warn("wait selector never appeared", "url", url, "selector", waitSelector, "err", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("browser: read content: %w", err)
	}
	return content, nil
}

// timeout returns the navigation budget in milliseconds, bounded by ctx
func (r *Renderer) timeout(ctx context.Context) float64 {
	d := r.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d < time.Second {
		d = time.Second
	}
	return float64(d.Milliseconds())
}

// Shutdown closes the browser; it matches shutdown.Stoppable
func (r *Renderer) Shutdown(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	var errs []error
	if err := r.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	r.browser, r.pw = nil, nil
	if len(errs) > 0 {
		return fmt.Errorf("browser: shutdown: %v", errs)
	}
	return nil
}
