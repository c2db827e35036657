package marketdata

import "time"

// Profile describes a company independent of any reporting period.
type Profile struct {
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
	Summary  string `json:"summary"`
	Website  string `json:"website,omitempty"`
}

// Financials carries the latest reported financial summary for a company.
// Pointer fields are nil when the upstream omits the value; the quality
// scorer turns that into issues rather than zeroes.
type Financials struct {
	// RevenueQuarterlyM is the quarterly revenue estimate in millions,
	// derived from trailing total revenue / 4.
	RevenueQuarterlyM *float64 `json:"revenue_quarterly_m,omitempty"`
	EPS               *float64 `json:"eps,omitempty"`
	MarketCap         *float64 `json:"market_cap,omitempty"`
	// RevenueGrowthPct is year-over-year revenue growth in percent.
	RevenueGrowthPct *float64 `json:"revenue_growth_pct,omitempty"`
	Employees        *int     `json:"employees,omitempty"`
}

// Company is a fetched profile plus financial summary.
type Company struct {
	Ticker     string     `json:"ticker"`
	Profile    Profile    `json:"profile"`
	Financials Financials `json:"financials"`
	FetchedAt  time.Time  `json:"fetched_at"`
}
