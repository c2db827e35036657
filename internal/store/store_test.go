package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eqlens/eqlens/internal/marketdata"
	"github.com/eqlens/eqlens/internal/quality"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func revenue(v float64) *float64 { return &v }

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fetched := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Ticker: "IBM",
		Period: "Q2 2026",
		Company: marketdata.Company{
			Ticker: "IBM",
			Profile: marketdata.Profile{
				Name:   "International Business Machines",
				Sector: "Technology",
			},
			Financials: marketdata.Financials{RevenueQuarterlyM: revenue(15500)},
		},
		Quality:   quality.Validation{Score: 90, Level: quality.LevelHigh, Text: "Verified"},
		FetchedAt: fetched,
	}

	if err := s.UpsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("UpsertSnapshot: %v", err)
	}

	got, err := s.GetSnapshot(ctx, "IBM")
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got.Company.Profile.Name != "International Business Machines" {
		t.Errorf("name = %q", got.Company.Profile.Name)
	}
	if got.Quality.Level != quality.LevelHigh || got.Quality.Score != 90 {
		t.Errorf("quality = %+v", got.Quality)
	}
	if *got.Company.Financials.RevenueQuarterlyM != 15500 {
		t.Errorf("revenue = %v", *got.Company.Financials.RevenueQuarterlyM)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Errorf("fetched_at = %v", got.FetchedAt)
	}
}

func TestSnapshotUpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := Snapshot{
		Ticker:    "CRM",
		Period:    "Q1 2026",
		Quality:   quality.Validation{Score: 50, Level: quality.LevelMedium},
		FetchedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.UpsertSnapshot(ctx, base); err != nil {
		t.Fatal(err)
	}

	base.Period = "Q2 2026"
	base.Quality = quality.Validation{Score: 85, Level: quality.LevelHigh}
	if err := s.UpsertSnapshot(ctx, base); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSnapshot(ctx, "CRM")
	if err != nil {
		t.Fatal(err)
	}
	if got.Period != "Q2 2026" || got.Quality.Score != 85 {
		t.Errorf("upsert did not replace: %+v", got)
	}

	snaps, err := s.ListSnapshots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Errorf("expected 1 snapshot, got %d", len(snaps))
	}
}

func TestSnapshotNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetSnapshot(context.Background(), "ZZZZ"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.LatestFetch(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.UTC)

	for ticker, at := range map[string]time.Time{"IBM": older, "CRM": newer} {
		snap := Snapshot{Ticker: ticker, Period: "Q2 2026", Quality: quality.Validation{Level: quality.LevelLow}, FetchedAt: at}
		if err := s.UpsertSnapshot(ctx, snap); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.LatestFetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(newer) {
		t.Errorf("latest fetch = %v, want %v", got, newer)
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := Analysis{
		ID:        uuid.NewString(),
		Kind:      KindCompany,
		Ticker:    "IBM",
		Period:    "Q2 2026",
		Model:     "gemini-2.0-flash",
		Content:   "older analysis",
		CreatedAt: time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC),
	}
	second := first
	second.ID = uuid.NewString()
	second.Content = "newer analysis"
	second.CreatedAt = first.CreatedAt.Add(time.Hour)

	for _, a := range []Analysis{first, second} {
		if err := s.InsertAnalysis(ctx, a); err != nil {
			t.Fatalf("InsertAnalysis: %v", err)
		}
	}

	got, err := s.GetAnalysis(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "older analysis" {
		t.Errorf("content = %q", got.Content)
	}

	latest, err := s.LatestAnalysis(ctx, "IBM", KindCompany)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Content != "newer analysis" {
		t.Errorf("latest = %q", latest.Content)
	}

	all, err := s.ListAnalyses(ctx, "IBM", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Errorf("ListAnalyses order wrong: %+v", all)
	}

	if _, err := s.GetAnalysis(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.LatestAnalysis(ctx, "IBM", KindSearch); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	s := newTestStore(t)

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatal(err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}
