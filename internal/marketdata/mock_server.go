package marketdata

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

// Fixture describes one company served by the mock upstream.
type Fixture struct {
	Name          string
	Sector        string
	Industry      string
	Summary       string
	Website       string
	TotalRevenue  *float64 // annual, absolute
	TrailingEps   *float64
	MarketCap     *float64
	RevenueGrowth *float64 // fraction, e.g. 0.12
	Employees     *int
}

// NewMockServer returns an httptest server speaking the provider wire format.
// Unknown tickers yield the provider's "Not Found" error envelope.
func NewMockServer(fixtures map[string]Fixture) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/v10/finance/quoteSummary/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
		ticker := strings.TrimPrefix(r.URL.Path, prefix)

		w.Header().Set("Content-Type", "application/json")

		fx, ok := fixtures[ticker]
		if !ok {
			fmt.Fprint(w, `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
			return
		}

		var b strings.Builder
		b.WriteString(`{"quoteSummary":{"result":[{`)
		fmt.Fprintf(&b, `"price":{"longName":%q`, fx.Name)
		if fx.MarketCap != nil {
			fmt.Fprintf(&b, `,"marketCap":{"raw":%g}`, *fx.MarketCap)
		}
		b.WriteString(`},`)
		fmt.Fprintf(&b, `"summaryProfile":{"sector":%q,"industry":%q,"longBusinessSummary":%q,"website":%q`,
			fx.Sector, fx.Industry, fx.Summary, fx.Website)
		if fx.Employees != nil {
			fmt.Fprintf(&b, `,"fullTimeEmployees":%d`, *fx.Employees)
		}
		b.WriteString(`},"financialData":{`)
		wroteField := false
		if fx.TotalRevenue != nil {
			fmt.Fprintf(&b, `"totalRevenue":{"raw":%g}`, *fx.TotalRevenue)
			wroteField = true
		}
		if fx.RevenueGrowth != nil {
			if wroteField {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `"revenueGrowth":{"raw":%g}`, *fx.RevenueGrowth)
		}
		b.WriteString(`},"defaultKeyStatistics":{`)
		if fx.TrailingEps != nil {
			fmt.Fprintf(&b, `"trailingEps":{"raw":%g}`, *fx.TrailingEps)
		}
		b.WriteString(`}}],"error":null}}`)

		fmt.Fprint(w, b.String())
	}))
}

// Ptr is a small helper for building fixtures.
func Ptr[T any](v T) *T { return &v }
