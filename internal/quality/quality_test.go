package quality

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eqlens/eqlens/internal/fiscal"
	"github.com/eqlens/eqlens/internal/marketdata"
)

func ptr[T any](v T) *T { return &v }

func fullFinancials() marketdata.Financials {
	return marketdata.Financials{
		RevenueQuarterlyM: ptr(15500.0),
		EPS:               ptr(9.62),
		MarketCap:         ptr(170e9),
	}
}

func TestScoreLevels(t *testing.T) {
	current := fiscal.Period{Quarter: "Q1", Year: 2026}

	tests := []struct {
		name   string
		fin    marketdata.Financials
		period fiscal.Period
		score  int
		level  Level
		text   string
	}{
		{
			name:   "complete and current",
			fin:    fullFinancials(),
			period: current,
			score:  100,
			level:  LevelHigh,
			text:   "High Quality",
		},
		{
			name:   "previous year data",
			fin:    fullFinancials(),
			period: fiscal.Period{Quarter: "Q4", Year: 2025},
			score:  90,
			level:  LevelHigh,
		},
		{
			name:   "missing revenue",
			fin:    marketdata.Financials{EPS: ptr(1.0), MarketCap: ptr(1e9)},
			period: current,
			score:  70,
			level:  LevelMedium,
			text:   "Medium Quality",
		},
		{
			name:   "only market cap, stale",
			fin:    marketdata.Financials{MarketCap: ptr(1e9)},
			period: fiscal.Period{Quarter: "Q2", Year: 2023},
			score:  20,
			level:  LevelLow,
			text:   "Limited Data",
		},
		{
			name:   "nothing at all",
			fin:    marketdata.Financials{},
			period: fiscal.Period{Quarter: "Q2", Year: 2020},
			score:  0,
			level:  LevelLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Score(tt.fin, tt.period, current)
			assert.Equal(t, tt.score, v.Score)
			assert.Equal(t, tt.level, v.Level)
			if tt.text != "" {
				assert.Equal(t, tt.text, v.Text)
			}
		})
	}
}

func TestScoreIssues(t *testing.T) {
	current := fiscal.Period{Quarter: "Q1", Year: 2026}
	v := Score(marketdata.Financials{}, fiscal.Period{Quarter: "Q1", Year: 2022}, current)

	assert.Contains(t, v.Issues, "Missing revenue data")
	assert.Contains(t, v.Issues, "Missing EPS data")
	assert.Contains(t, v.Issues, "Missing market cap")
	assert.Contains(t, v.Issues, "Data is from 2022, potentially outdated")
}

func TestFailedTruncatesLongErrors(t *testing.T) {
	v := Failed(errors.New(strings.Repeat("x", 200)))

	assert.Equal(t, 0, v.Score)
	assert.Equal(t, LevelLow, v.Level)
	assert.Equal(t, "No Data", v.Text)
	assert.Len(t, v.Issues, 1)
	assert.LessOrEqual(t, len(v.Issues[0]), len("API Error: ")+50)
}
