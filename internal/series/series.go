// SPDX-License-Identifier: MIT

// Package series synthesizes presentation data that the upstream provider
// does not supply: a short quarterly revenue history and consensus
// comparisons. All output is deterministic per (ticker, period) so repeated
// requests agree, and is flagged as synthesized in API responses.
package series

import (
	"hash/fnv"
	"math/rand"

	"github.com/eqlens/eqlens/internal/fiscal"
)

// Point is one quarter of the synthesized revenue history.
type Point struct {
	Period   string  `json:"period"` // "Q3 2026"
	RevenueM float64 `json:"revenue_m"`
	// Reported marks the one point backed by upstream data.
	Reported bool `json:"reported"`
}

// Direction of a consensus comparison.
type Direction string

const (
	DirectionBeat   Direction = "beat"
	DirectionMiss   Direction = "miss"
	DirectionInline Direction = "inline"
)

// Delta compares a reported figure against a synthesized consensus.
type Delta struct {
	Direction Direction `json:"direction"`
	// Amount is the absolute difference in the metric's own unit
	// (millions for revenue, dollars for EPS). Zero when inline.
	Amount float64 `json:"amount"`
	// Percent is the relative difference. Zero when inline.
	Percent float64 `json:"percent"`
	// Synthesized is always true; carried so clients cannot mistake this
	// for real consensus data.
	Synthesized bool `json:"synthesized"`
}

func seed(ticker string, period fiscal.Period, salt string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	_, _ = h.Write([]byte(period.Label()))
	_, _ = h.Write([]byte(salt))
	return int64(h.Sum64()) // #nosec G115 -- wraparound is fine for a seed
}

// RevenueHistory produces four labeled quarters ending at period. The most
// recent point carries the reported quarterly revenue when available;
// earlier points apply a small deterministic variance and decay, matching
// the presentation behavior of the original dashboard.
func RevenueHistory(ticker string, revenueM *float64, period fiscal.Period) []Point {
	rng := rand.New(rand.NewSource(seed(ticker, period, "history"))) // #nosec G404 -- presentation synthesis, not crypto

	base := 0.0
	reported := revenueM != nil
	if reported {
		base = *revenueM
	} else {
		base = float64(800 + rng.Intn(1200))
	}

	points := make([]Point, 4)
	p := period
	for i := 3; i >= 0; i-- {
		points[i] = Point{Period: p.Label()}
		p = p.Previous()
	}

	for i := range points {
		back := len(points) - 1 - i // quarters before the current one
		if back == 0 {
			points[i].RevenueM = base
			points[i].Reported = reported
			continue
		}
		variance := 0.95 + rng.Float64()*0.10
		points[i].RevenueM = base * variance * (1 - float64(back)*0.02)
	}
	return points
}

// RevenueDelta synthesizes a revenue-vs-consensus comparison in millions.
func RevenueDelta(ticker string, period fiscal.Period) Delta {
	rng := rand.New(rand.NewSource(seed(ticker, period, "revenue"))) // #nosec G404 -- presentation synthesis, not crypto
	return pick(rng, float64(25+rng.Intn(76)), 1.5+rng.Float64()*4.5)
}

// EPSDelta synthesizes an EPS-vs-consensus comparison in dollars.
func EPSDelta(ticker string, period fiscal.Period) Delta {
	rng := rand.New(rand.NewSource(seed(ticker, period, "eps"))) // #nosec G404 -- presentation synthesis, not crypto
	return pick(rng, 0.02+rng.Float64()*0.13, 3+rng.Float64()*9)
}

func pick(rng *rand.Rand, amount, percent float64) Delta {
	d := Delta{Synthesized: true}
	switch rng.Intn(3) {
	case 0:
		d.Direction = DirectionBeat
		d.Amount = amount
		d.Percent = percent
	case 1:
		d.Direction = DirectionMiss
		d.Amount = -amount
		d.Percent = -percent
	default:
		d.Direction = DirectionInline
	}
	return d
}
