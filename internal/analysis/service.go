// SPDX-License-Identifier: MIT

package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eqlens/eqlens/internal/cache"
	"github.com/eqlens/eqlens/internal/store"
)

// Service runs LLM analyses, persists them and serves repeats from cache.
type Service struct {
	llm    LLMClient
	store  *store.Store
	cache  cache.Cache
	house  string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewService wires the analysis pipeline. houseTicker is the company whose
// perspective the perspective analyses are written for.
func NewService(llm LLMClient, st *store.Store, c cache.Cache, houseTicker string, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		llm:    llm,
		store:  st,
		cache:  c,
		house:  strings.ToUpper(houseTicker),
		ttl:    ttl,
		logger: logger,
	}
}

// HouseTicker returns the configured house company ticker.
func (s *Service) HouseTicker() string { return s.house }

// AnalyzeCompany produces a structured analysis of one company snapshot.
// Results are cached per ticker and period.
func (s *Service) AnalyzeCompany(ctx context.Context, snap store.Snapshot) (*store.Analysis, error) {
	key := cache.AnalysisKey(fmt.Sprintf("company:%s:%s", snap.Ticker, snap.Period))
	if hit := s.cached(key); hit != nil {
		return hit, nil
	}

	a, err := s.generate(ctx, store.Analysis{
		Kind:   store.KindCompany,
		Ticker: snap.Ticker,
		Period: snap.Period,
	}, companyPrompt(snap))
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, a, s.ttl)
	return a, nil
}

// Perspective produces house-perspective observations about a company within
// a market segment.
func (s *Service) Perspective(ctx context.Context, snap store.Snapshot, segment string) (*store.Analysis, error) {
	key := cache.AnalysisKey(fmt.Sprintf("perspective:%s:%s:%s", snap.Ticker, segment, snap.Period))
	if hit := s.cached(key); hit != nil {
		return hit, nil
	}

	a, err := s.generate(ctx, store.Analysis{
		Kind:   store.KindPerspective,
		Ticker: snap.Ticker,
		Period: snap.Period,
	}, perspectivePrompt(snap, s.house, segment))
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, a, s.ttl)
	return a, nil
}

// Search generates executive quotes about a topic across a segment's
// companies and parses them into structured results.
func (s *Service) Search(ctx context.Context, segment, topic, period string, companyNames []string) (*store.Analysis, []SearchResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, nil, fmt.Errorf("search topic is empty")
	}

	key := cache.AnalysisKey(fmt.Sprintf("search:%s:%s:%s", segment, strings.ToLower(topic), period))
	if hit := s.cached(key); hit != nil {
		return hit, ParseSearchResults(hit.Content), nil
	}

	a, err := s.generate(ctx, store.Analysis{
		Kind:   store.KindSearch,
		Topic:  topic,
		Period: period,
	}, searchPrompt(segment, topic, companyNames))
	if err != nil {
		return nil, nil, err
	}

	results := ParseSearchResults(a.Content)
	if len(results) == 0 {
		s.logger.Warn().
			Str("event", "analysis.search_unparseable").
			Str("topic", topic).
			Str("segment", segment).
			Msg("model response did not match the expected format")
	}

	s.cache.Set(key, a, s.ttl)
	return a, results, nil
}

func (s *Service) cached(key string) *store.Analysis {
	raw, found := s.cache.Get(key)
	if !found {
		return nil
	}
	// Memory hits return the stored struct, Redis hits a decoded map.
	if a, ok := raw.(*store.Analysis); ok {
		return a
	}
	var a store.Analysis
	if err := cache.DecodeInto(raw, &a); err != nil {
		s.logger.Warn().Err(err).Str("event", "analysis.cache_decode_failed").Str("key", key).Msg("dropping cached analysis")
		s.cache.Delete(key)
		return nil
	}
	return &a
}

func (s *Service) generate(ctx context.Context, a store.Analysis, prompt string) (*store.Analysis, error) {
	start := time.Now()
	content, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s analysis: %w", a.Kind, err)
	}

	a.ID = uuid.NewString()
	a.Model = s.llm.Model()
	a.Content = content
	a.CreatedAt = time.Now().UTC()

	if err := s.store.InsertAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("persist %s analysis: %w", a.Kind, err)
	}

	s.logger.Info().
		Str("event", "analysis.generated").
		Str("kind", a.Kind).
		Str("ticker", a.Ticker).
		Str("topic", a.Topic).
		Str("model", a.Model).
		Dur("duration", time.Since(start)).
		Msg("analysis generated")

	return &a, nil
}
