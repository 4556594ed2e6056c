package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		robotsHits.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: tenscan\nDisallow: /drafts/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("tenscan/0.3 (+https://github.com/ppiankov/tenscan)", time.Second)

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/news/1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !allowed {
		t.Error("Expected /news/1 to be allowed for tenscan")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(context.Background(), server.URL+"/drafts/x")
	if allowed {
		t.Error("Expected /drafts/x to be disallowed")
	}

	if robotsHits.Load() != 1 {
		t.Errorf("Expected robots.txt to be fetched once, got %d", robotsHits.Load())
	}

	checker.Clear()
	_, _, _ = checker.CanFetch(context.Background(), server.URL+"/news/2")
	if robotsHits.Load() != 2 {
		t.Errorf("Expected robots.txt refetch after Clear, got %d", robotsHits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("tenscan", time.Second)
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("Expected allowed without robots.txt, got %v %v", allowed, err)
	}
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker("tenscan", time.Second)
	if _, _, err := checker.CanFetch(context.Background(), "/relative/path"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"tenscan/0.3 (+https://github.com/ppiankov/tenscan)": "tenscan",
		"Mozilla/5.0 (X11)": "Mozilla",
		"":                  "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}
