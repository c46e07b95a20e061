package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"auction-crawler/config"
	"auction-crawler/utils"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"

// pageTimeout bounds any single browser action.
const pageTimeout = 60 * time.Second

// Session is one browser tab shared by every adapter of an invocation.
// It is not safe for concurrent use.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc

	elementWait time.Duration
	pageSettle  time.Duration
	throttle    *utils.Throttle
	logger      *utils.Logger
}

// Open starts (or attaches to) a browser, retrying a fixed number of times
// with a fixed delay. The caller must Close the returned session.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*Session, error) {
	retry := &utils.RetryConfig{
		MaxAttempts: cfg.BrowserRetries,
		BaseDelay:   cfg.BrowserRetryDelay,
		Fixed:       true,
		Logger:      logger,
	}

	var session *Session
	err := retry.Do("open-browser", func() error {
		s, err := launch(ctx, cfg, logger)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not acquire browser session: %w", err)
	}
	return session, nil
}

func launch(parent context.Context, cfg *config.Config, logger *utils.Logger) (*Session, error) {
	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)

	if cfg.ChromeRemoteURL != "" {
		logger.Info("[browser] Connecting to remote browser: %s", cfg.ChromeRemoteURL)
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(parent, cfg.ChromeRemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.WindowSize(1920, 1080),
			chromedp.UserAgent(userAgent),
		)
		chromeBin := findChromeBinary(cfg.ChromeBin)
		if chromeBin != "" {
			logger.Info("[browser] Using browser binary: %s", chromeBin)
			opts = append(opts, chromedp.ExecPath(chromeBin))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(parent, opts...)
	}

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	s := &Session{
		ctx:         tabCtx,
		cancels:     []context.CancelFunc{cancelTab, cancelAlloc},
		elementWait: cfg.ElementWait,
		pageSettle:  cfg.PageSettle,
		throttle:    utils.NewThrottle(time.Duration(cfg.RateLimitMs) * time.Millisecond),
		logger:      logger,
	}

	// An empty Run starts the browser and opens the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("chromedp start: %w", err)
	}
	return s, nil
}

// Close releases the tab and the browser. It is safe to call more than once.
func (s *Session) Close() {
	if s == nil {
		return
	}
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.logger.Debug("[browser] Session closed")
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.throttle.Wait()
	s.logger.Debug("[browser] Navigating to %s", url)
	if err := s.run(ctx, pageTimeout, chromedp.Navigate(url), chromedp.Sleep(s.pageSettle)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// HTML returns the rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, pageTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, pageTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Evaluate runs script in the page and decodes its result into res.
func (s *Session) Evaluate(ctx context.Context, script string, res any) error {
	return s.run(ctx, pageTimeout, chromedp.Evaluate(script, res))
}

// SendKeys waits for selector to become visible, focuses it and types text.
func (s *Session) SendKeys(ctx context.Context, selector, text string) error {
	err := s.run(ctx, s.elementWait+pageTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			waitCtx, cancel := context.WithTimeout(ctx, s.elementWait)
			defer cancel()
			return chromedp.WaitVisible(selector, chromedp.ByQuery).Do(waitCtx)
		}),
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

// PressEnter sends an Enter key press to the focused element.
func (s *Session) PressEnter(ctx context.Context) error {
	return s.run(ctx, pageTimeout, chromedp.KeyEvent(kb.Enter))
}

// Cookies returns the browser cookies by name.
func (s *Session) Cookies(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	err := s.run(ctx, pageTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out[c.Name] = c.Value
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	return out, nil
}

// Screenshot writes a full-page PNG to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, pageTimeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	return os.WriteFile(path, buf, 0o644)
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
