// SPDX-License-Identifier: MIT

package analysis

import (
	"fmt"
	"strings"

	"github.com/eqlens/eqlens/internal/store"
)

// maxSearchCompanies caps how many segment companies a search prompt names.
const maxSearchCompanies = 4

func revenueContext(snap store.Snapshot) (revenue, growth string) {
	fin := snap.Company.Financials
	revenue = "revenue data limited"
	if fin.RevenueQuarterlyM != nil {
		revenue = fmt.Sprintf("$%.0fM quarterly revenue", *fin.RevenueQuarterlyM)
	}
	growth = "growth metrics limited"
	if fin.RevenueGrowthPct != nil {
		growth = fmt.Sprintf("%.1f%% growth", *fin.RevenueGrowthPct)
	}
	return revenue, growth
}

// companyPrompt asks for a structured institutional-grade company analysis,
// with the data-quality assessment folded in so the model can hedge.
func companyPrompt(snap store.Snapshot) string {
	dataContext := "Note: Financial data quality is " + strings.ToLower(snap.Quality.Text)
	if len(snap.Quality.Issues) > 0 {
		issues := snap.Quality.Issues
		if len(issues) > 2 {
			issues = issues[:2]
		}
		dataContext += fmt.Sprintf(" (Issues: %s)", strings.Join(issues, ", "))
	}

	return fmt.Sprintf(`Provide a comprehensive analysis of %s including:

1. **Strategic Business Themes** (4-5 key themes)
2. **Growth Catalysts** (3-4 main drivers)
3. **Key Challenges** (2-3 primary risks)
4. **Competitive Positioning**

%s

Format professionally for institutional investors.`, snap.Company.Profile.Name, dataContext)
}

// perspectivePrompt asks for strategic observations about a company from the
// point of view of the house company's CFO.
func perspectivePrompt(snap store.Snapshot, houseTicker, segment string) string {
	revenue, growth := revenueContext(snap)

	return fmt.Sprintf(`As an equity research analyst with deep software technology expertise, provide 4 strategic observations about %s (%s) specifically relevant to the %s CFO's perspective on the %s market.

Company Context:
- Market: %s
- Current Performance: %s, %s
- Sector: %s

For each observation, provide:
1. **Strategic Insight**: What this means for %s's competitive positioning
2. **Financial Impact**: Revenue, margin, or investment implications
3. **Competitive Intelligence**: How this affects %s's market strategy
4. **Actionable Recommendation**: Specific next steps for %s leadership

Format as detailed, analytical observations that would appear in a top-tier equity research report. Focus on:
- Market share dynamics
- Technology differentiation
- Customer acquisition patterns
- Partnership opportunities
- Competitive threats/advantages

Write with the depth and sophistication expected by institutional investors.`,
		snap.Company.Profile.Name, snap.Ticker, houseTicker, segment,
		segment, revenue, growth, snap.Company.Profile.Sector,
		houseTicker, houseTicker, houseTicker)
}

// searchPrompt asks for line-oriented executive quotes on a topic. The
// response format is parsed by ParseSearchResults.
func searchPrompt(segment, topic string, companyNames []string) string {
	if len(companyNames) > maxSearchCompanies {
		companyNames = companyNames[:maxSearchCompanies]
	}

	return fmt.Sprintf(`Create realistic executive quotes about "%s" from %s companies.

Companies: %s

Create 3-4 professional quotes that sound authentic. Focus on how %s impacts their business.

Format as:
COMPANY: [Company Name]
EXECUTIVE: [Name], [Title]
QUOTE: "[Professional quote about %s]"
SOURCE: Recent Earnings Discussion
RELEVANCE: [How this relates to %s]
CITATION: [Company Name] Investor Relations - Earnings Materials
---

Make quotes specific to %s and realistic for enterprise software companies.`,
		topic, segment, strings.Join(companyNames, ", "), topic, topic, topic, topic)
}
