// SPDX-License-Identifier: MIT

// Package marketdata fetches company profiles and financial summaries from
// the upstream quote provider.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/eqlens/eqlens/internal/log"
)

const summaryMaxRunes = 300

// Provider abstracts the upstream so jobs and handlers can be tested with a
// stub implementation.
type Provider interface {
	Company(ctx context.Context, ticker string) (*Company, error)
}

// Options configures the upstream client.
type Options struct {
	Timeout    time.Duration
	APIKey     string
	RatePerSec float64
}

// Client talks to a quote-summary style provider API.
type Client struct {
	base    string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a client for the given base URL.
func New(base string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		apiKey:  opts.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// quoteSummary mirrors the provider's wire format. Numeric values arrive
// wrapped in {"raw": n, "fmt": "..."} objects.
type quoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName  string   `json:"longName"`
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryProfile struct {
				Sector              string `json:"sector"`
				Industry            string `json:"industry"`
				LongBusinessSummary string `json:"longBusinessSummary"`
				Website             string `json:"website"`
				FullTimeEmployees   *int   `json:"fullTimeEmployees"`
			} `json:"summaryProfile"`
			FinancialData struct {
				TotalRevenue  rawValue `json:"totalRevenue"`
				RevenueGrowth rawValue `json:"revenueGrowth"`
			} `json:"financialData"`
			DefaultKeyStatistics struct {
				TrailingEps rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

// Company fetches the profile and financial summary for a ticker.
func (c *Client) Company(ctx context.Context, ticker string) (*Company, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is empty")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		c.base,
		url.PathEscape(ticker),
		url.QueryEscape("price,summaryProfile,financialData,defaultKeyStatistics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			logger := log.WithComponentFromContext(ctx, "marketdata")
			logger.Warn().
				Err(cerr).
				Str("event", "upstream.body_close_error").
				Msg("failed to close response body")
		}
	}()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	case res.StatusCode != http.StatusOK:
		return nil, &StatusError{Code: res.StatusCode, Ticker: ticker}
	}

	var payload quoteSummary
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ticker, err)
	}
	if e := payload.QuoteSummary.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
		}
		return nil, fmt.Errorf("upstream error for %s: %s", ticker, e.Description)
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}

	r := payload.QuoteSummary.Result[0]

	name := r.Price.LongName
	if name == "" {
		name = ticker
	}

	fin := Financials{
		EPS:       r.DefaultKeyStatistics.TrailingEps.Raw,
		MarketCap: r.Price.MarketCap.Raw,
		Employees: r.SummaryProfile.FullTimeEmployees,
	}
	if rev := r.FinancialData.TotalRevenue.Raw; rev != nil {
		// Quarterly estimate in millions.
		q := *rev / 1e6 / 4
		fin.RevenueQuarterlyM = &q
	}
	if g := r.FinancialData.RevenueGrowth.Raw; g != nil {
		pct := *g * 100
		fin.RevenueGrowthPct = &pct
	}

	return &Company{
		Ticker: ticker,
		Profile: Profile{
			Name:     name,
			Sector:   orDefault(r.SummaryProfile.Sector, "Technology"),
			Industry: orDefault(r.SummaryProfile.Industry, "Software"),
			Summary:  truncateRunes(r.SummaryProfile.LongBusinessSummary, summaryMaxRunes),
			Website:  r.SummaryProfile.Website,
		},
		Financials: fin,
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
