// SPDX-License-Identifier: MIT

// Package jobs runs the periodic refresh cycle: fetch every catalog ticker
// from the upstream provider, score data quality, persist snapshots and
// export the result set.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eqlens/eqlens/internal/cache"
	"github.com/eqlens/eqlens/internal/fiscal"
	"github.com/eqlens/eqlens/internal/log"
	"github.com/eqlens/eqlens/internal/marketdata"
	"github.com/eqlens/eqlens/internal/markets"
	"github.com/eqlens/eqlens/internal/metrics"
	"github.com/eqlens/eqlens/internal/quality"
	"github.com/eqlens/eqlens/internal/store"
)

// ErrAlreadyRunning is returned when a refresh is requested while one is in
// flight.
var ErrAlreadyRunning = errors.New("refresh already running")

// Status summarizes the most recent refresh run.
type Status struct {
	LastRun   time.Time     `json:"last_run"`
	Duration  time.Duration `json:"duration"`
	Period    string        `json:"period"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	High      int           `json:"quality_high"`
	Medium    int           `json:"quality_medium"`
	Low       int           `json:"quality_low"`
	Error     string        `json:"error,omitempty"`
}

// Config holds refresh settings.
type Config struct {
	Concurrency int
	SnapshotTTL time.Duration
	ExportPath  string
}

// Refresher fetches all catalog tickers and persists their snapshots.
type Refresher struct {
	provider marketdata.Provider
	catalog  *markets.Catalog
	store    *store.Store
	cache    cache.Cache
	cfg      Config

	running atomic.Bool

	mu          sync.RWMutex
	status      Status
	lastSuccess time.Time
}

// NewRefresher wires a refresher. Concurrency defaults to 4.
func NewRefresher(provider marketdata.Provider, catalog *markets.Catalog, st *store.Store, c cache.Cache, cfg Config) *Refresher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = time.Hour
	}
	return &Refresher{
		provider: provider,
		catalog:  catalog,
		store:    st,
		cache:    c,
		cfg:      cfg,
	}
}

// Status returns a copy of the last run's summary.
func (r *Refresher) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// LastRefresh reports the last run that persisted at least one snapshot,
// plus the last error, for the readiness check. A run where every fetch
// failed does not count as a refresh.
func (r *Refresher) LastRefresh() (time.Time, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSuccess, r.status.Error
}

// Run executes one refresh cycle. Only one run may be in flight; concurrent
// calls get ErrAlreadyRunning.
func (r *Refresher) Run(ctx context.Context) (*Status, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	ctx = log.ContextWithJobID(ctx, uuid.NewString())
	logger := log.WithComponentFromContext(ctx, "jobs")
	period := fiscal.Current(time.Now().UTC())
	tickers := r.catalog.Tickers()
	start := time.Now()

	logger.Info().
		Str("event", "refresh.start").
		Str("period", period.Label()).
		Int("tickers", len(tickers)).
		Msg("starting refresh")

	var (
		mu       sync.Mutex
		failures []string
		st       = Status{Period: period.Label(), Total: len(tickers)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, ticker := range tickers {
		g.Go(func() error {
			snap, err := r.fetchOne(gctx, ticker, period)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				st.Failed++
				failures = append(failures, fmt.Sprintf("%s: %v", ticker, err))
				// context failures abort the whole run
				if gctx.Err() != nil {
					return err
				}
				return nil
			}
			st.Succeeded++
			switch snap.Quality.Level {
			case quality.LevelHigh:
				st.High++
			case quality.LevelMedium:
				st.Medium++
			default:
				st.Low++
			}
			return nil
		})
	}

	err := g.Wait()
	st.LastRun = time.Now().UTC()
	st.Duration = time.Since(start)

	if err == nil && len(failures) > 0 {
		st.Error = strings.Join(failures, "; ")
	}
	if err != nil {
		st.Error = err.Error()
	}

	outcome := "success"
	switch {
	case err != nil || st.Succeeded == 0:
		outcome = "failure"
	case st.Failed > 0:
		outcome = "partial"
	}

	metrics.IncRefresh(outcome)
	metrics.ObserveRefreshDuration(st.Duration.Seconds())
	metrics.RecordQualityCounts(st.High, st.Medium, st.Low)

	if err != nil {
		r.setStatus(st)
		return nil, fmt.Errorf("refresh aborted: %w", err)
	}

	metrics.RecordSnapshotCount(st.Succeeded)
	metrics.RecordLastRefresh(float64(st.LastRun.Unix()))

	if r.cfg.ExportPath != "" {
		if exportErr := r.export(ctx); exportErr != nil {
			metrics.IncExportError()
			logger.Error().
				Err(exportErr).
				Str("event", "refresh.export_failed").
				Str("path", r.cfg.ExportPath).
				Msg("snapshot export failed")
		}
	}

	logger.Info().
		Str("event", "refresh.done").
		Str("outcome", outcome).
		Int("succeeded", st.Succeeded).
		Int("failed", st.Failed).
		Dur("duration", st.Duration).
		Msg("refresh finished")

	r.setStatus(st)
	return &st, nil
}

func (r *Refresher) setStatus(st Status) {
	r.mu.Lock()
	r.status = st
	if st.Succeeded > 0 {
		r.lastSuccess = st.LastRun
	}
	r.mu.Unlock()
}

// fetchOne fetches, scores and persists a single ticker. Fetch failures are
// recorded as low-quality snapshots so the API still has something to serve.
func (r *Refresher) fetchOne(ctx context.Context, ticker string, period fiscal.Period) (*store.Snapshot, error) {
	logger := log.WithComponentFromContext(ctx, "jobs")

	company, err := r.provider.Company(ctx, ticker)
	if err != nil {
		outcome := "error"
		if errors.Is(err, marketdata.ErrNotFound) {
			outcome = "not_found"
		}
		metrics.IncUpstreamRequest(outcome)

		logger.Warn().
			Err(err).
			Str("event", "refresh.fetch_failed").
			Str("ticker", ticker).
			Bool("retryable", marketdata.IsRetryable(err)).
			Msg("upstream fetch failed")

		failed := store.Snapshot{
			Ticker:    ticker,
			Period:    period.Label(),
			Company:   marketdata.Company{Ticker: ticker},
			Quality:   quality.Failed(err),
			FetchedAt: time.Now().UTC(),
		}
		if upErr := r.store.UpsertSnapshot(ctx, failed); upErr != nil {
			return nil, fmt.Errorf("persist failed snapshot: %w", upErr)
		}
		return nil, err
	}
	metrics.IncUpstreamRequest("success")

	snap := store.Snapshot{
		Ticker:    ticker,
		Period:    period.Label(),
		Company:   *company,
		Quality:   quality.Score(company.Financials, period, period),
		FetchedAt: time.Now().UTC(),
	}
	if err := r.store.UpsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	r.cache.Set(cache.SnapshotKey(ticker), snap, r.cfg.SnapshotTTL)
	return &snap, nil
}

// RunPeriodic runs an initial refresh and then repeats on the interval until
// ctx is cancelled.
func (r *Refresher) RunPeriodic(ctx context.Context, interval time.Duration) {
	logger := log.WithComponent("jobs")

	if _, err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("event", "refresh.initial_failed").Msg("initial refresh failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				if errors.Is(err, ErrAlreadyRunning) {
					continue
				}
				logger.Error().Err(err).Str("event", "refresh.failed").Msg("scheduled refresh failed")
			}
		}
	}
}
