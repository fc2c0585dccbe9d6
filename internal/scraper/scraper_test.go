package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
)

type stubFetcher struct {
	body  string
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context, pageURL string) (*RawPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &RawPage{URL: pageURL, StatusCode: 200, Body: f.body}, nil
}

func TestRegistry_Scrape(t *testing.T) {
	fetcher := &stubFetcher{body: `<html><head><script type="application/ld+json">
		{"@type":"Product","name":"Widget","offers":{"price":"19999"}}
	</script></head><body></body></html>`}
	reg := NewRegistry(fetcher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := reg.Scrape(context.Background(), "https://www.amazon.in/dp/X")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if got.Name != "Widget" || !got.Price.Equal(decimal.NewFromInt(19999)) || got.Currency != "INR" {
		t.Fatalf("unexpected product: %+v", got)
	}
}

func TestRegistry_ScrapeRejectsUnsupportedBeforeFetching(t *testing.T) {
	fetcher := &stubFetcher{}
	reg := NewRegistry(fetcher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := reg.Scrape(context.Background(), "https://www.ebay.com/itm/1")
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetcher should not be called, got %d calls", fetcher.calls)
	}
	if reg.CanHandle("https://www.ebay.com/itm/1") || !reg.CanHandle("https://www.snapdeal.com/product/x/1") {
		t.Fatal("CanHandle disagrees with the platform table")
	}
}

func TestRegistry_ScrapePropagatesFetchError(t *testing.T) {
	fetchErr := &FetchError{URL: "https://www.flipkart.com/p", StatusCode: 503, Status: "Service Unavailable"}
	reg := NewRegistry(&stubFetcher{err: fetchErr}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := reg.Scrape(context.Background(), "https://www.flipkart.com/p")
	var fe *FetchError
	if !errors.As(err, &fe) || !fe.Retryable() {
		t.Fatalf("expected retryable FetchError, got %v", err)
	}
}
