package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/ppiankov/tenscan/internal/model"
)

// ErrDisallowed is returned when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// fetchSleepFunc is the backoff sleep between attempts, replaced in tests
var fetchSleepFunc = time.Sleep

// Error describes a failed fetch. Op is one of request, fetch, status, read, robots.
type Error struct {
	URL        string
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Op == "status" {
		return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed
func (e *Error) Retryable() bool {
	switch e.Op {
	case "fetch":
		return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	case "status":
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	}
	return false
}

// Fetcher performs polite HTTP GETs: robots.txt, per-domain limits, retries
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	limiter    *Limiter
	robots     *RobotsChecker
}

// NewFetcher creates a fetcher from the HTTP config. limiter and robots may be nil.
func NewFetcher(cfg model.HTTPConfig, limiter *Limiter, robots *RobotsChecker) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		maxRetries: retries,
		limiter:    limiter,
		robots:     robots,
	}
}

// Result is a fetched response body with metadata
type Result struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
}

// Reader returns the body decoded to UTF-8 using the declared or sniffed charset
func (r *Result) Reader() io.Reader {
	reader, err := charset.NewReader(bytes.NewReader(r.Body), r.ContentType)
	if err != nil {
		return bytes.NewReader(r.Body)
	}
	return reader
}

// Text returns the body decoded to UTF-8
func (r *Result) Text() string {
	b, err := io.ReadAll(r.Reader())
	if err != nil {
		return string(r.Body)
	}
	return string(b)
}

// Fetch checks robots.txt, waits for the domain limiter and retrieves rawURL with retries
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	var crawlDelay time.Duration
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, &Error{URL: rawURL, Op: "request", Err: err}
		}
		if !allowed {
			return nil, &Error{URL: rawURL, Op: "robots", Err: ErrDisallowed}
		}
		crawlDelay = delay
	}

	if f.limiter != nil {
		f.limiter.SetCrawlDelay(rawURL, crawlDelay)
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, &Error{URL: rawURL, Op: "fetch", Err: err}
		}
	}

	return f.FetchWithRetry(ctx, rawURL)
}

// FetchWithRetry retries transient failures (network errors, 429, 5xx) with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(backoff)
			backoff *= 2
			if err := ctx.Err(); err != nil {
				return nil, &Error{URL: rawURL, Op: "fetch", Err: err}
			}
		}

		result, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Op: "request", Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Op: "fetch", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{URL: rawURL, Op: "status", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &Error{URL: rawURL, Op: "read", Err: err}
	}

	return &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}
