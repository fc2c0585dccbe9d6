package scraper

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestFetcher(timeout time.Duration, limiter Limiter) *Fetcher {
	return NewFetcher(timeout, limiter, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetch_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = io.WriteString(w, "<html>ok</html>")
	}))
	defer srv.Close()

	p, err := newTestFetcher(time.Second, nil).Fetch(context.Background(), srv.URL+"/dp/X#reviews")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if p.Body != "<html>ok</html>" {
		t.Errorf("body = %q", p.Body)
	}
	if strings.Contains(p.URL, "#") {
		t.Errorf("fragment not stripped: %q", p.URL)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") || !strings.Contains(gotAccept, "text/html") || gotLang == "" {
		t.Errorf("unexpected headers: ua=%q accept=%q lang=%q", gotUA, gotAccept, gotLang)
	}
}

func TestFetch_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestFetcher(time.Second, nil).Fetch(context.Background(), srv.URL)
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", fe.StatusCode, tt.status)
			}
			if fe.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", fe.Retryable(), tt.retryable)
			}
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestFetcher(50*time.Millisecond, nil).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !fe.Timeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !strings.Contains(fe.Error(), "timeout") {
		t.Errorf("error message should mention timeout: %q", fe.Error())
	}
}

type countingLimiter struct {
	keys []string
	err  error
}

func (l *countingLimiter) Acquire(ctx context.Context, key string) error {
	l.keys = append(l.keys, key)
	return l.err
}

func TestFetch_UsesLimiterPerHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	if _, err := newTestFetcher(time.Second, limiter).Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "127.0.0.1" {
		t.Fatalf("limiter keys = %v", limiter.keys)
	}

	limiter.err = errors.New("bucket empty")
	if _, err := newTestFetcher(time.Second, limiter).Fetch(context.Background(), srv.URL); !IsFetchError(err) {
		t.Fatalf("expected FetchError when limiter fails, got %v", err)
	}
}

func TestFetch_TruncatesLargePageAndLogs(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		wantLen  int
		wantWarn bool
	}{
		{"at limit", maxPageBytes, maxPageBytes, false},
		{"over limit", maxPageBytes + 100, maxPageBytes, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(bytes.Repeat([]byte("a"), tt.size))
			}))
			defer srv.Close()

			var logs bytes.Buffer
			f := NewFetcher(5*time.Second, nil, slog.New(slog.NewTextHandler(&logs, nil)))
			p, err := f.Fetch(context.Background(), srv.URL)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(p.Body) != tt.wantLen {
				t.Errorf("body length = %d, want %d", len(p.Body), tt.wantLen)
			}
			if got := strings.Contains(logs.String(), "corpo truncado"); got != tt.wantWarn {
				t.Errorf("truncation warning logged = %v, want %v (logs: %q)", got, tt.wantWarn, logs.String())
			}
		})
	}
}
