// SPDX-License-Identifier: MIT

// Package fiscal resolves the most recently completed fiscal quarter.
package fiscal

import (
	"fmt"
	"time"
)

// Period identifies a completed fiscal quarter.
type Period struct {
	Quarter string    `json:"quarter"` // "Q1".."Q4"
	Year    int       `json:"year"`
	End     time.Time `json:"end"`
}

// Label returns the period in "Q3 2026" form.
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.Quarter, p.Year)
}

// Current returns the most recently completed calendar quarter that has
// certainly been reported. The ladder is deliberately conservative: a quarter
// only becomes current a full reporting cycle after its close (Q1 from July,
// Q2 from October, Q3 from December, otherwise the prior year's Q4).
func Current(now time.Time) Period {
	year := now.Year()
	switch {
	case now.Month() >= time.December:
		return Period{Quarter: "Q3", Year: year, End: quarterEnd(year, 3)}
	case now.Month() >= time.October:
		return Period{Quarter: "Q2", Year: year, End: quarterEnd(year, 2)}
	case now.Month() >= time.July:
		return Period{Quarter: "Q1", Year: year, End: quarterEnd(year, 1)}
	default:
		return Period{Quarter: "Q4", Year: year - 1, End: quarterEnd(year-1, 4)}
	}
}

// Previous returns the quarter immediately before p.
func (p Period) Previous() Period {
	switch p.Quarter {
	case "Q1":
		return Period{Quarter: "Q4", Year: p.Year - 1, End: quarterEnd(p.Year-1, 4)}
	case "Q2":
		return Period{Quarter: "Q1", Year: p.Year, End: quarterEnd(p.Year, 1)}
	case "Q3":
		return Period{Quarter: "Q2", Year: p.Year, End: quarterEnd(p.Year, 2)}
	default:
		return Period{Quarter: "Q3", Year: p.Year, End: quarterEnd(p.Year, 3)}
	}
}

func quarterEnd(year, q int) time.Time {
	switch q {
	case 1:
		return time.Date(year, time.March, 31, 0, 0, 0, 0, time.UTC)
	case 2:
		return time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC)
	case 3:
		return time.Date(year, time.September, 30, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
}
