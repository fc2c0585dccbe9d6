package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"rastreador-precos/internal/models"

	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

// fixedClock faz db.now avançar um segundo a cada chamada
func fixedClock(db *DB, start time.Time) {
	current := start
	db.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func scraped(name, price string) *models.ScrapedProduct {
	return &models.ScrapedProduct{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Currency:    "INR",
		ImageURL:    "https://img.example.in/a.jpg",
		IsAvailable: true,
	}
}

func TestGetOrCreateProductByURL_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	url := "https://www.amazon.in/dp/B0TEST"

	id1, created1, err := db.GetOrCreateProductByURL(ctx, url, models.PlatformAmazon)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !created1 {
		t.Fatalf("expected first call to create the product")
	}

	id2, created2, err := db.GetOrCreateProductByURL(ctx, url, models.PlatformAmazon)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if created2 {
		t.Fatalf("expected second call to report created=false")
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}

	p, err := db.GetProduct(ctx, id1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Name != models.PlaceholderName || !p.LatestPrice.IsZero() || !p.IsPlaceholder() {
		t.Fatalf("expected placeholder product, got %+v", p)
	}
	if p.Platform != models.PlatformAmazon {
		t.Fatalf("platform = %q", p.Platform)
	}
}

func TestAppendSnapshot_OrderedHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fixedClock(db, start)

	id, _, err := db.GetOrCreateProductByURL(ctx, "https://www.flipkart.com/p/1", models.PlatformFlipkart)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	prices := []string{"500", "480", "480", "510", "450"}
	for _, p := range prices {
		if _, err := db.AppendSnapshot(ctx, id, decimal.RequireFromString(p), "INR", true); err != nil {
			t.Fatalf("append snapshot: %v", err)
		}
	}

	history, err := db.QueryHistory(ctx, id, start)
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	if len(history) != len(prices) {
		t.Fatalf("expected %d snapshots, got %d", len(prices), len(history))
	}
	for i, s := range history {
		if !s.Price.Equal(decimal.RequireFromString(prices[i])) {
			t.Errorf("snapshot %d price = %s, want %s", i, s.Price, prices[i])
		}
		if i > 0 && s.SnapshotAt.Before(history[i-1].SnapshotAt) {
			t.Errorf("snapshot %d out of order", i)
		}
	}

	// a criação do produto consumiu o primeiro tick; snapshots começam em start+2s
	recent, err := db.QueryHistory(ctx, id, start.Add(5*time.Second))
	if err != nil {
		t.Fatalf("query recent history: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 snapshots since cutoff, got %d", len(recent))
	}

	latest, err := db.RecentSnapshots(ctx, id, 2)
	if err != nil {
		t.Fatalf("recent snapshots: %v", err)
	}
	if len(latest) != 2 || !latest[0].Price.Equal(decimal.NewFromInt(450)) || !latest[1].Price.Equal(decimal.NewFromInt(510)) {
		t.Fatalf("unexpected recent snapshots: %+v", latest)
	}
}

func TestUpsertProductData_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, _, err := db.GetOrCreateProductByURL(ctx, "https://www.myntra.com/x/1/buy", models.PlatformMyntra)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	in := scraped("Roadster Shirt", "799")
	if err := db.UpsertProductData(ctx, id, in); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	first, _ := db.GetProduct(ctx, id)
	if err := db.UpsertProductData(ctx, id, in); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	second, _ := db.GetProduct(ctx, id)

	if first.Name != second.Name || !first.LatestPrice.Equal(second.LatestPrice) ||
		first.ImageURL != second.ImageURL || first.IsAvailable != second.IsAvailable {
		t.Fatalf("upsert not idempotent: %+v vs %+v", first, second)
	}
	if second.Name != "Roadster Shirt" || !second.LatestPrice.Equal(decimal.NewFromInt(799)) {
		t.Fatalf("unexpected product: %+v", second)
	}

	if err := db.UpsertProductData(ctx, 9999, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing product, got %v", err)
	}
}

func TestSaveScrapeResult_WritesProductSnapshotAndLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, _, err := db.GetOrCreateProductByURL(ctx, "https://www.ajio.com/p/1", models.PlatformAjio)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := db.SaveScrapeResult(ctx, id, scraped("Sneakers", "2499")); err != nil {
		t.Fatalf("save scrape: %v", err)
	}

	p, _ := db.GetProduct(ctx, id)
	if !p.LatestPrice.Equal(decimal.NewFromInt(2499)) {
		t.Fatalf("latest price = %s", p.LatestPrice)
	}
	history, _ := db.QueryHistory(ctx, id, time.Time{})
	if len(history) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(history))
	}
	logs, _ := db.RecentScrapeLogs(ctx, 10)
	if len(logs) != 1 || logs[0].Status != models.ScrapeSuccess || logs[0].ProductID == nil || *logs[0].ProductID != id {
		t.Fatalf("unexpected scrape logs: %+v", logs)
	}
}

func TestRecordScrapeResult_WithoutProduct(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.RecordScrapeResult(ctx, nil, models.ScrapeFailed, "url inválida"); err != nil {
		t.Fatalf("record: %v", err)
	}
	logs, err := db.RecentScrapeLogs(ctx, 10)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].ProductID != nil || logs[0].ErrorMessage != "url inválida" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestTrackers_UniquePerUserAndScopedDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pid, _, _ := db.GetOrCreateProductByURL(ctx, "https://www.snapdeal.com/product/1", models.PlatformSnapdeal)
	target := decimal.NewNullDecimal(decimal.NewFromInt(1000))

	tr, err := db.CreateTracker(ctx, 42, pid, target)
	if err != nil {
		t.Fatalf("create tracker: %v", err)
	}
	if _, err := db.CreateTracker(ctx, 42, pid, target); !errors.Is(err, ErrDuplicateTracker) {
		t.Fatalf("expected ErrDuplicateTracker, got %v", err)
	}
	if _, err := db.CreateTracker(ctx, 7, pid, decimal.NullDecimal{}); err != nil {
		t.Fatalf("other user tracker: %v", err)
	}

	if err := db.DeleteTracker(ctx, tr.ID, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleting another user's tracker should be not found, got %v", err)
	}

	list, err := db.ListTrackersByUser(ctx, 42)
	if err != nil {
		t.Fatalf("list trackers: %v", err)
	}
	if len(list) != 1 || list[0].Product.ID != pid || !list[0].TargetPrice.Valid || !list[0].TargetPrice.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected trackers: %+v", list)
	}

	if err := db.DeleteTracker(ctx, tr.ID, 42); err != nil {
		t.Fatalf("delete tracker: %v", err)
	}
	if _, err := db.GetTrackerForUser(ctx, 42, pid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected tracker to be gone, got %v", err)
	}
}

func TestListTrackedProducts_DistinctAndActiveOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p1, _, _ := db.GetOrCreateProductByURL(ctx, "https://www.amazon.in/dp/1", models.PlatformAmazon)
	p2, _, _ := db.GetOrCreateProductByURL(ctx, "https://www.amazon.in/dp/2", models.PlatformAmazon)
	p3, _, _ := db.GetOrCreateProductByURL(ctx, "https://www.amazon.in/dp/3", models.PlatformAmazon)

	for _, user := range []int64{1, 2, 3} {
		if _, err := db.CreateTracker(ctx, user, p1, decimal.NullDecimal{}); err != nil {
			t.Fatalf("create tracker: %v", err)
		}
	}
	if _, err := db.CreateTracker(ctx, 1, p2, decimal.NullDecimal{}); err != nil {
		t.Fatalf("create tracker: %v", err)
	}
	paused, err := db.CreateTracker(ctx, 1, p3, decimal.NullDecimal{})
	if err != nil {
		t.Fatalf("create tracker: %v", err)
	}
	if err := db.SetTrackerActive(ctx, paused.ID, 1, false); err != nil {
		t.Fatalf("pause tracker: %v", err)
	}

	products, err := db.ListTrackedProducts(ctx)
	if err != nil {
		t.Fatalf("list tracked: %v", err)
	}
	if len(products) != 2 || products[0].ID != p1 || products[1].ID != p2 {
		t.Fatalf("expected products [%d %d], got %+v", p1, p2, products)
	}
}

func TestDeleteProduct_Cascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pid, _, _ := db.GetOrCreateProductByURL(ctx, "https://www.amazon.in/dp/CASCADE", models.PlatformAmazon)
	tr, _ := db.CreateTracker(ctx, 1, pid, decimal.NewNullDecimal(decimal.NewFromInt(10)))
	if _, err := db.SaveScrapeResult(ctx, pid, scraped("Thing", "9")); err != nil {
		t.Fatalf("save scrape: %v", err)
	}
	alert := &models.Alert{UserID: 1, TrackerID: tr.ID, OldPrice: decimal.NewFromInt(10), NewPrice: decimal.NewFromInt(9)}
	if err := db.CreateAlert(ctx, alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	if err := db.DeleteProduct(ctx, pid); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	history, _ := db.QueryHistory(ctx, pid, time.Time{})
	logs, _ := db.RecentScrapeLogs(ctx, 10)
	if len(history) != 0 || len(logs) != 0 {
		t.Fatalf("expected cascade, got %d snapshots and %d logs", len(history), len(logs))
	}
	if _, err := db.LastAlertForTracker(ctx, tr.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected alerts removed with tracker, got %v", err)
	}
}

func TestAlerts_LastAndStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixedClock(db, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	pid, _, _ := db.GetOrCreateProductByURL(ctx, "https://www.amazon.in/dp/ALERT", models.PlatformAmazon)
	tr, _ := db.CreateTracker(ctx, 5, pid, decimal.NewNullDecimal(decimal.NewFromInt(100)))

	if _, err := db.LastAlertForTracker(ctx, tr.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no alert yet, got %v", err)
	}

	for _, price := range []int64{95, 90} {
		a := &models.Alert{UserID: 5, TrackerID: tr.ID, OldPrice: decimal.NewFromInt(100), NewPrice: decimal.NewFromInt(price)}
		if err := db.CreateAlert(ctx, a); err != nil {
			t.Fatalf("create alert: %v", err)
		}
		if a.Status != models.AlertPending {
			t.Fatalf("new alert status = %q", a.Status)
		}
		if err := db.UpdateAlertStatus(ctx, a.ID, models.AlertSent); err != nil {
			t.Fatalf("update status: %v", err)
		}
	}

	last, err := db.LastAlertForTracker(ctx, tr.ID)
	if err != nil {
		t.Fatalf("last alert: %v", err)
	}
	if !last.NewPrice.Equal(decimal.NewFromInt(90)) || last.Status != models.AlertSent {
		t.Fatalf("unexpected last alert: %+v", last)
	}

	alerts, err := db.ListAlertsByUser(ctx, 5, 10)
	if err != nil || len(alerts) != 2 {
		t.Fatalf("list alerts: %v (%d)", err, len(alerts))
	}
}
