// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eqlens/eqlens/internal/cache"
	"github.com/eqlens/eqlens/internal/commentary"
	"github.com/eqlens/eqlens/internal/fiscal"
	"github.com/eqlens/eqlens/internal/jobs"
	"github.com/eqlens/eqlens/internal/log"
	"github.com/eqlens/eqlens/internal/markets"
	"github.com/eqlens/eqlens/internal/metrics"
	"github.com/eqlens/eqlens/internal/series"
	"github.com/eqlens/eqlens/internal/store"
)

type segmentResponse struct {
	Name      string            `json:"name"`
	Companies []markets.Company `json:"companies"`
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	segs := s.catalog.Segments()
	out := make([]segmentResponse, 0, len(segs))
	for _, name := range segs {
		companies, err := s.catalog.Companies(name)
		if err != nil {
			continue
		}
		out = append(out, segmentResponse{Name: name, Companies: companies})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	segment := r.URL.Query().Get("segment")
	if segment == "" {
		writeError(w, http.StatusBadRequest, "missing_segment", "segment query parameter is required")
		return
	}

	companies, err := s.catalog.PublicCompanies(segment)
	if err != nil {
		if errors.Is(err, markets.ErrUnknownSegment) {
			writeError(w, http.StatusNotFound, "unknown_segment", "no such market segment")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, segmentResponse{Name: segment, Companies: companies})
}

// snapshot fetches a company snapshot, preferring the cache.
func (s *Server) snapshot(r *http.Request, ticker string) (*store.Snapshot, error) {
	if raw, found := s.cache.Get(cache.SnapshotKey(ticker)); found {
		if snap, ok := raw.(store.Snapshot); ok {
			return &snap, nil
		}
		var snap store.Snapshot
		if err := cache.DecodeInto(raw, &snap); err == nil {
			return &snap, nil
		}
		s.cache.Delete(cache.SnapshotKey(ticker))
	}
	return s.store.GetSnapshot(r.Context(), ticker)
}

type companyResponse struct {
	store.Snapshot
	Segments     []string     `json:"segments,omitempty"`
	RevenueDelta series.Delta `json:"revenue_delta"`
	EPSDelta     series.Delta `json:"eps_delta"`
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	snap, err := s.snapshot(r, ticker)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown_ticker", "no snapshot for this ticker")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	period := fiscal.Current(time.Now().UTC())
	resp := companyResponse{
		Snapshot:     *snap,
		RevenueDelta: series.RevenueDelta(ticker, period),
		EPSDelta:     series.EPSDelta(ticker, period),
	}
	if _, segs, ok := s.catalog.Lookup(ticker); ok {
		resp.Segments = segs
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommentary(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	snap, err := s.snapshot(r, ticker)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown_ticker", "no snapshot for this ticker")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	name := snap.Company.Profile.Name
	if name == "" {
		name = ticker
	}
	period := fiscal.Current(time.Now().UTC())
	quotes := commentary.ForCompany(name, ticker, period, snap.Quality.Level)
	writeJSON(w, http.StatusOK, map[string]any{
		"ticker":  ticker,
		"period":  period.Label(),
		"quotes":  quotes,
		"quality": snap.Quality,
	})
}

func (s *Server) handleRevenueHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	snap, err := s.snapshot(r, ticker)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown_ticker", "no snapshot for this ticker")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	period := fiscal.Current(time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]any{
		"ticker":        ticker,
		"period":        period.Label(),
		"points":        series.RevenueHistory(ticker, snap.Company.Financials.RevenueQuarterlyM, period),
		"revenue_delta": series.RevenueDelta(ticker, period),
		"eps_delta":     series.EPSDelta(ticker, period),
		"synthesized":   true,
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	a, err := s.store.LatestAnalysis(r.Context(), ticker, store.KindCompany)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no_analysis", "no analysis for this ticker yet")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleAnalysisByID(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no_analysis", "no such analysis")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "llm_unconfigured", "no LLM API key configured")
		return
	}
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	snap, err := s.snapshot(r, ticker)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown_ticker", "no snapshot for this ticker")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	start := time.Now()
	a, err := s.analysis.AnalyzeCompany(r.Context(), *snap)
	if err != nil {
		metrics.IncAnalysis(store.KindCompany, "error")
		writeError(w, http.StatusBadGateway, "llm_failed", err.Error())
		return
	}
	metrics.IncAnalysis(store.KindCompany, "success")
	metrics.ObserveAnalysisDuration(store.KindCompany, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, a)
}

type perspectiveRequest struct {
	Segment string `json:"segment"`
}

func (s *Server) handlePostPerspective(w http.ResponseWriter, r *http.Request) {
	if s.analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "llm_unconfigured", "no LLM API key configured")
		return
	}
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	var req perspectiveRequest
	if r.Body != nil {
		// body is optional; the company's first segment is the default
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Segment == "" {
		_, segs, ok := s.catalog.Lookup(ticker)
		if !ok || len(segs) == 0 {
			writeError(w, http.StatusBadRequest, "missing_segment", "ticker is not in the catalog; pass a segment")
			return
		}
		req.Segment = segs[0]
	}

	snap, err := s.snapshot(r, ticker)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown_ticker", "no snapshot for this ticker")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	start := time.Now()
	a, err := s.analysis.Perspective(r.Context(), *snap, req.Segment)
	if err != nil {
		metrics.IncAnalysis(store.KindPerspective, "error")
		writeError(w, http.StatusBadGateway, "llm_failed", err.Error())
		return
	}
	metrics.IncAnalysis(store.KindPerspective, "success")
	metrics.ObserveAnalysisDuration(store.KindPerspective, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, a)
}

type searchRequest struct {
	Segment string `json:"segment"`
	Topic   string `json:"topic"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "llm_unconfigured", "no LLM API key configured")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "missing_topic", "topic is required")
		return
	}

	companies, err := s.catalog.PublicCompanies(req.Segment)
	if err != nil {
		if errors.Is(err, markets.ErrUnknownSegment) {
			writeError(w, http.StatusNotFound, "unknown_segment", "no such market segment")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	names := make([]string, 0, len(companies))
	for _, c := range companies {
		names = append(names, c.Name)
	}

	period := fiscal.Current(time.Now().UTC())
	start := time.Now()
	a, results, err := s.analysis.Search(r.Context(), req.Segment, req.Topic, period.Label(), names)
	if err != nil {
		metrics.IncAnalysis(store.KindSearch, "error")
		writeError(w, http.StatusBadGateway, "llm_failed", err.Error())
		return
	}
	metrics.IncAnalysis(store.KindSearch, "success")
	metrics.ObserveAnalysisDuration(store.KindSearch, time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id": a.ID,
		"segment":     req.Segment,
		"topic":       req.Topic,
		"period":      a.Period,
		"results":     results,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().Str("event", "refresh.manual").Str("client_ip", s.clientIP(r)).Msg("manual refresh requested")

	status, err := s.refresher.Run(r.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "refresh_running", "a refresh is already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "refresh_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"house_ticker":   s.houseTicker,
		"segments":       len(s.catalog.Segments()),
		"tickers":        len(s.catalog.Tickers()),
		"refresh":        s.refresher.Status(),
		"cache":          s.cache.Stats(),
	})
}
