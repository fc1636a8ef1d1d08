package scraper

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"opinion-etl/config"
	"opinion-etl/models"
	"opinion-etl/utils"
)

// BrowserFetcher renders pages in a headless Chrome and returns the
// resulting DOM. One browser process is shared; each fetch opens a tab.
type BrowserFetcher struct {
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	retry   *utils.RetryConfig
	logger  *utils.Logger

	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// NewBrowserFetcher launches the browser. Call Close to stop it.
func NewBrowserFetcher(cfg *config.Config, logger *utils.Logger) (*BrowserFetcher, error) {
	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	return &BrowserFetcher{
		baseURL: cfg.SourceBaseURL,
		timeout: cfg.HTTPTimeout,
		limiter: newLimiter(cfg.RateLimitMs, cfg.MaxConcurrency),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		logger:      logger,
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}, nil
}

// Fetch navigates a fresh tab to path and returns the rendered HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, path string) (*Document, error) {
	target := ResolveURL(b.baseURL, path)
	var doc *Document

	err := b.retry.Do(ctx, "render "+path, func(ctx context.Context) error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		tabCtx, cancel := chromedp.NewContext(b.browserCtx)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
		defer cancelTimeout()

		var html, location string
		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(target),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
			chromedp.Location(&location),
		); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &models.FetchError{URL: target, Err: err}
		}

		finalPath := path
		if u, err := url.Parse(location); err == nil {
			finalPath = u.Path
		}
		doc = &Document{URL: location, Path: finalPath, Body: []byte(html)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.logger.Debug("[browser] rendered %s (%d bytes)", doc.URL, len(doc.Body))
	return doc, nil
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
