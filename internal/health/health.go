// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks with per-component
// status, suitable for Docker HEALTHCHECK and Kubernetes probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eqlens/eqlens/internal/log"
)

// Status is the overall or per-component health state.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is one component's verdict.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the readiness payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is a pluggable component check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates component checks.
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a manager reporting the given build version.
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a component check. Not safe for concurrent use;
// register everything before serving.
func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

func (m *Manager) run(ctx context.Context) (map[string]CheckResult, Status, bool) {
	checks := make(map[string]CheckResult, len(m.checkers))
	status := StatusHealthy
	ready := true

	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			status = StatusUnhealthy
			ready = false
		case StatusDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}
	}
	return checks, status, ready
}

// Health is the liveness probe. The process being able to answer is the
// signal; component state is only included when verbose.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if verbose && len(m.checkers) > 0 {
		checks, status, _ := m.run(ctx)
		resp.Checks = checks
		resp.Status = status
	}
	return resp
}

// Ready is the readiness probe. Any unhealthy component makes the daemon
// not ready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Checks, resp.Status, resp.Ready = m.run(ctx)
	return resp
}

// ServeHealth handles liveness requests. Always 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

// ServeReady handles readiness requests. 503 when not ready.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// PingChecker adapts anything with a Ping method (SQLite store, Redis).
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingChecker wraps a ping function as a component check.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// RefreshChecker reports on the age of the last successful refresh.
// A daemon that has never refreshed is unhealthy; one whose data is older
// than two refresh intervals is degraded.
type RefreshChecker struct {
	interval    time.Duration
	lastRefresh func() (time.Time, string)
}

// NewRefreshChecker creates the staleness check. lastRefresh returns the
// time of the last successful run and the last error message, if any.
func NewRefreshChecker(interval time.Duration, lastRefresh func() (time.Time, string)) *RefreshChecker {
	return &RefreshChecker{interval: interval, lastRefresh: lastRefresh}
}

func (c *RefreshChecker) Name() string { return "refresh" }

func (c *RefreshChecker) Check(_ context.Context) CheckResult {
	last, lastErr := c.lastRefresh()

	if last.IsZero() {
		msg := "no successful refresh yet"
		if lastErr != "" {
			return CheckResult{Status: StatusUnhealthy, Message: msg, Error: lastErr}
		}
		return CheckResult{Status: StatusUnhealthy, Message: msg}
	}

	if age := time.Since(last); age > 2*c.interval {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "snapshot data is stale",
			Error:   lastErr,
		}
	}

	return CheckResult{Status: StatusHealthy, Message: "recent refresh"}
}
