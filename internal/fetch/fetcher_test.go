package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/tenscan/internal/model"
)

func testConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "tenscan-test/1.0",
		MaxBodyBytes: 1 << 20,
		MaxRetries:   3,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = origSleep })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "tenscan-test/1.0" {
			t.Errorf("Expected user agent to be sent, got %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), nil, nil)
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Text() != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected body: %s", result.Text())
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", result.StatusCode)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig(), nil, nil)
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.Text() != "<html>OK</html>" {
		t.Errorf("Unexpected body: %s", result.Text())
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig(), nil, nil)
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	var fe *Error
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("Expected *fetch.Error with status 404, got %#v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt for a permanent failure, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig(), nil, nil)
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()
	noSleep(t)

	fetcher := NewFetcher(testConfig(), nil, nil)
	if _, err := fetcher.FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxBodyBytes = 4
	result, err := NewFetcher(cfg, nil, nil).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(result.Body) != "0123" {
		t.Errorf("Expected body truncated to 4 bytes, got %q", result.Body)
	}
}

func TestFetch_DecodesCharset(t *testing.T) {
	// "Привет" in windows-1251
	body := []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	result, err := NewFetcher(testConfig(), nil, nil).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := result.Text(); got != "Привет" {
		t.Errorf("Expected decoded text, got %q", got)
	}
}

func TestFetch_RobotsDisallowed(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		pageHits.Add(1)
		_, _ = fmt.Fprint(w, "page")
	}))
	defer server.Close()

	fetcher := NewFetcher(testConfig(), NewLimiter(100, 10), NewRobotsChecker("tenscan-test/1.0", time.Second))

	_, err := fetcher.Fetch(context.Background(), server.URL+"/private/article")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("Expected ErrDisallowed, got %v", err)
	}
	if pageHits.Load() != 0 {
		t.Errorf("Expected disallowed page not to be requested")
	}

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/public/article"); err != nil {
		t.Errorf("Expected allowed page to be fetched, got %v", err)
	}
	if pageHits.Load() != 1 {
		t.Errorf("Expected 1 page hit, got %d", pageHits.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		desc      string
		err       error
		retryable bool
	}{
		{"503", &Error{Op: "status", StatusCode: 503}, true},
		{"500", &Error{Op: "status", StatusCode: 500}, true},
		{"429", &Error{Op: "status", StatusCode: 429}, true},
		{"404", &Error{Op: "status", StatusCode: 404}, false},
		{"403", &Error{Op: "status", StatusCode: 403}, false},
		{"connection refused", &Error{Op: "fetch", Err: errors.New("connection refused")}, true},
		{"cancelled", &Error{Op: "fetch", Err: context.Canceled}, false},
		{"bad request", &Error{Op: "request", Err: errors.New("invalid URL")}, false},
		{"read body", &Error{Op: "read", Err: errors.New("unexpected EOF")}, false},
		{"wrapped", fmt.Errorf("article: %w", &Error{Op: "status", StatusCode: 502}), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}
