// SPDX-License-Identifier: MIT

// Package quality scores the completeness and recency of fetched financials.
package quality

import (
	"fmt"

	"github.com/eqlens/eqlens/internal/fiscal"
	"github.com/eqlens/eqlens/internal/marketdata"
)

// Level buckets a numeric score for presentation.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Validation is the result of scoring one company's financials.
type Validation struct {
	Score  int      `json:"score"` // 0..100
	Level  Level    `json:"level"`
	Text   string   `json:"text"`
	Issues []string `json:"issues,omitempty"`
}

// Score rates financial data completeness and recency. Revenue and EPS weigh
// 30 each, market cap 20, recency up to 20.
func Score(fin marketdata.Financials, period, current fiscal.Period) Validation {
	score := 0
	var issues []string

	if fin.RevenueQuarterlyM != nil {
		score += 30
	} else {
		issues = append(issues, "Missing revenue data")
	}
	if fin.EPS != nil {
		score += 30
	} else {
		issues = append(issues, "Missing EPS data")
	}
	if fin.MarketCap != nil {
		score += 20
	} else {
		issues = append(issues, "Missing market cap")
	}

	switch {
	case period.Year == current.Year:
		score += 20
	case period.Year == current.Year-1:
		score += 10
	default:
		issues = append(issues, fmt.Sprintf("Data is from %d, potentially outdated", period.Year))
	}

	v := Validation{Score: score, Issues: issues}
	switch {
	case score >= 80:
		v.Level, v.Text = LevelHigh, "High Quality"
	case score >= 50:
		v.Level, v.Text = LevelMedium, "Medium Quality"
	default:
		v.Level, v.Text = LevelLow, "Limited Data"
	}
	return v
}

// Failed returns the validation used when the upstream fetch itself failed.
func Failed(err error) Validation {
	msg := "fetch failed"
	if err != nil {
		msg = err.Error()
		if len(msg) > 50 {
			msg = msg[:50]
		}
	}
	return Validation{
		Score:  0,
		Level:  LevelLow,
		Text:   "No Data",
		Issues: []string{"API Error: " + msg},
	}
}
