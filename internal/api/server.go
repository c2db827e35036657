// SPDX-License-Identifier: MIT

// Package api exposes the HTTP surface of the daemon: market catalog,
// company snapshots, synthesized series, commentary, LLM analyses and
// operational endpoints.
package api

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eqlens/eqlens/internal/analysis"
	"github.com/eqlens/eqlens/internal/cache"
	"github.com/eqlens/eqlens/internal/health"
	"github.com/eqlens/eqlens/internal/jobs"
	"github.com/eqlens/eqlens/internal/markets"
	"github.com/eqlens/eqlens/internal/store"
)

// Options wires the server's dependencies.
type Options struct {
	Catalog   *markets.Catalog
	Store     *store.Store
	Cache     cache.Cache
	Refresher *jobs.Refresher
	// Analysis may be nil when no LLM is configured; analysis routes then
	// return 503.
	Analysis *analysis.Service
	Health   *health.Manager

	Version        string
	APIToken       string
	TrustedProxies string // comma-separated CIDRs
	RateLimitRPM   int
	HouseTicker    string
}

// Server is the HTTP API server.
type Server struct {
	catalog   *markets.Catalog
	store     *store.Store
	cache     cache.Cache
	refresher *jobs.Refresher
	analysis  *analysis.Service
	health    *health.Manager

	version        string
	apiToken       string
	houseTicker    string
	rateLimitRPM   int
	trustedProxies []*net.IPNet
	startTime      time.Time
}

// NewServer builds the server from its dependencies.
func NewServer(opts Options) *Server {
	rpm := opts.RateLimitRPM
	if rpm <= 0 {
		rpm = 120
	}
	return &Server{
		catalog:        opts.Catalog,
		store:          opts.Store,
		cache:          opts.Cache,
		refresher:      opts.Refresher,
		analysis:       opts.Analysis,
		health:         opts.Health,
		version:        opts.Version,
		apiToken:       opts.APIToken,
		houseTicker:    opts.HouseTicker,
		rateLimitRPM:   rpm,
		trustedProxies: parseTrustedProxies(opts.TrustedProxies),
		startTime:      time.Now(),
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLogger)

	// operational endpoints stay outside auth and rate limits
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			s.rateLimitRPM, time.Minute,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return s.clientIP(r), nil
			}),
		))

		r.Get("/markets", s.handleMarkets)
		r.Get("/companies", s.handleCompanies)
		r.Get("/companies/{ticker}", s.handleCompany)
		r.Get("/companies/{ticker}/commentary", s.handleCommentary)
		r.Get("/companies/{ticker}/revenue-history", s.handleRevenueHistory)
		r.Get("/companies/{ticker}/analysis", s.handleGetAnalysis)
		r.Get("/analyses/{id}", s.handleAnalysisByID)
		r.Get("/status", s.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Post("/companies/{ticker}/analysis", s.handlePostAnalysis)
			r.Post("/companies/{ticker}/perspective", s.handlePostPerspective)
			r.Post("/search", s.handleSearch)
			r.Post("/refresh", s.handleRefresh)
		})
	})

	return r
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}
