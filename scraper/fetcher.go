package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"opinion-etl/config"
	"opinion-etl/models"
	"opinion-etl/utils"
)

const (
	userAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodySize = 20 << 20
)

// Document is a fetched page. URL is the final location after redirects and
// Path its path component.
type Document struct {
	URL  string
	Path string
	Body []byte
}

// Fetcher retrieves raw documents from the source catalog. Paths are
// relative to the catalog origin.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*Document, error)
}

// HTTPFetcher fetches pages with a plain HTTP client, rate-limited and retried.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   *utils.RetryConfig
	maxBody int64
	logger  *utils.Logger
}

// NewHTTPFetcher creates an HTTPFetcher from configuration.
func NewHTTPFetcher(cfg *config.Config, logger *utils.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: cfg.SourceBaseURL,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: newLimiter(cfg.RateLimitMs, cfg.MaxConcurrency),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   500 * time.Millisecond,
			Logger:      logger,
			Retryable:   isTemporary,
		},
		maxBody: maxBodySize,
		logger:  logger,
	}
}

// Fetch GETs path and returns the body of a 200 response.
func (f *HTTPFetcher) Fetch(ctx context.Context, path string) (*Document, error) {
	target := ResolveURL(f.baseURL, path)
	var doc *Document

	err := f.retry.Do(ctx, "fetch "+path, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		d, err := f.get(ctx, target)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Debug("[fetcher] GET %s (%d bytes)", doc.URL, len(doc.Body))
	return doc, nil
}

func (f *HTTPFetcher) get(ctx context.Context, target string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &models.FetchError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &models.FetchError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &models.FetchError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &models.FetchError{URL: target, Err: fmt.Errorf("%w: over %d bytes", models.ErrBodyTooLarge, f.maxBody)}
	}

	final := resp.Request.URL
	return &Document{URL: final.String(), Path: final.Path, Body: body}, nil
}

// ResolveURL joins a catalog-relative path onto base. Absolute URLs pass through.
func ResolveURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}

func newLimiter(rateLimitMs, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	if rateLimitMs <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Every(time.Duration(rateLimitMs)*time.Millisecond), burst)
}

func isTemporary(err error) bool {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		return fe.Temporary()
	}
	return true
}
