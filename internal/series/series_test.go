package series

import (
	"reflect"
	"testing"

	"github.com/eqlens/eqlens/internal/fiscal"
)

var q3 = fiscal.Period{Quarter: "Q3", Year: 2026}

func TestRevenueHistoryShape(t *testing.T) {
	rev := 15500.0
	points := RevenueHistory("IBM", &rev, q3)

	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}

	wantLabels := []string{"Q4 2025", "Q1 2026", "Q2 2026", "Q3 2026"}
	for i, p := range points {
		if p.Period != wantLabels[i] {
			t.Errorf("point %d period = %q, want %q", i, p.Period, wantLabels[i])
		}
	}

	last := points[3]
	if !last.Reported {
		t.Error("most recent point should be marked reported")
	}
	if last.RevenueM != rev {
		t.Errorf("most recent revenue = %v, want %v", last.RevenueM, rev)
	}
	for i, p := range points[:3] {
		if p.Reported {
			t.Errorf("point %d should be synthesized", i)
		}
		if p.RevenueM <= 0 {
			t.Errorf("point %d revenue = %v", i, p.RevenueM)
		}
	}
}

func TestRevenueHistoryDeterministic(t *testing.T) {
	rev := 1234.0
	a := RevenueHistory("SNOW", &rev, q3)
	b := RevenueHistory("SNOW", &rev, q3)
	if !reflect.DeepEqual(a, b) {
		t.Error("same inputs must produce the same history")
	}

	c := RevenueHistory("DDOG", &rev, q3)
	if reflect.DeepEqual(a, c) {
		t.Error("different tickers should diverge")
	}
}

func TestRevenueHistoryWithoutUpstreamRevenue(t *testing.T) {
	points := RevenueHistory("IBM", nil, q3)
	if points[3].Reported {
		t.Error("no point should be reported without upstream revenue")
	}
	for i, p := range points {
		if p.RevenueM <= 0 {
			t.Errorf("point %d revenue = %v", i, p.RevenueM)
		}
	}
}

func TestDeltasDeterministicAndFlagged(t *testing.T) {
	a := RevenueDelta("IBM", q3)
	b := RevenueDelta("IBM", q3)
	if a != b {
		t.Error("revenue delta must be stable per ticker+period")
	}
	if !a.Synthesized {
		t.Error("delta must be flagged synthesized")
	}

	e := EPSDelta("IBM", q3)
	if !e.Synthesized {
		t.Error("EPS delta must be flagged synthesized")
	}

	switch a.Direction {
	case DirectionBeat:
		if a.Amount <= 0 || a.Percent <= 0 {
			t.Errorf("beat with non-positive delta: %+v", a)
		}
	case DirectionMiss:
		if a.Amount >= 0 || a.Percent >= 0 {
			t.Errorf("miss with non-negative delta: %+v", a)
		}
	case DirectionInline:
		if a.Amount != 0 || a.Percent != 0 {
			t.Errorf("inline with non-zero delta: %+v", a)
		}
	}
}
