package scoring

import (
	"fmt"
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// scoreBand maps a ratio boundary to a factor score. Bands are evaluated in
// order, first match wins; a ratio matching no band (including NaN, whose
// comparisons are all false) takes the fallback score.
type scoreBand struct {
	bound float64
	score int
}

// labelBand maps a score boundary to a category label, same ordering rules.
type labelBand struct {
	bound float64
	label string
}

// Factor threshold tables. Emergency fund, net worth, and income stability
// score against inclusive lower bounds; debt service scores against
// inclusive upper bounds.
var (
	emergencyFundBands = []scoreBand{{6, 4}, {3, 3}, {1, 2}}
	debtServiceBands   = []scoreBand{{0.20, 4}, {0.35, 3}, {0.50, 2}}
	netWorthBands      = []scoreBand{{5, 4}, {3, 3}, {1, 2}}
	surplusBands       = []scoreBand{{0.30, 4}, {0.20, 3}, {0.10, 2}}
)

// capacityBands maps the factor-score mean to a category label.
var capacityBands = []labelBand{
	{3.5, domain.CapacityHigh},
	{2.5, domain.CapacityMedium},
	{1.5, domain.CapacityLow},
}

// CapacityForLoss converts a metrics snapshot into the four-factor
// capacity-for-loss score. Ratios are computed without guards; zero
// denominators produce NaN or ±Inf, which fail every band comparison and
// land in the lowest bucket.
func CapacityForLoss(m domain.FinancialMetrics) domain.CapacityScore {
	emergencyRatio := m.LiquidAssets / m.MonthlyExpenses
	debtRatio := m.TotalLiabilities / (m.MonthlyIncome * 12)
	netWorthRatio := m.TotalAssets / math.Max(m.TotalLiabilities, 1)
	surplusRatio := (m.MonthlyIncome - m.MonthlyExpenses) / m.MonthlyIncome

	factors := []domain.CapacityFactor{
		{
			Name:   "Emergency Fund",
			Score:  matchFloor(emergencyRatio, emergencyFundBands),
			Detail: fmt.Sprintf("Liquid assets cover %.1f months of expenses", emergencyRatio),
		},
		{
			Name:   "Debt Service",
			Score:  matchCeiling(debtRatio, debtServiceBands),
			Detail: fmt.Sprintf("Liabilities are %.0f%% of annual income", debtRatio*100),
		},
		{
			Name:   "Net Worth",
			Score:  matchFloor(netWorthRatio, netWorthBands),
			Detail: fmt.Sprintf("Assets are %.1fx liabilities", netWorthRatio),
		},
		{
			Name:   "Income Stability",
			Score:  matchFloor(surplusRatio, surplusBands),
			Detail: fmt.Sprintf("Monthly surplus is %.0f%% of income", surplusRatio*100),
		},
	}

	var total int
	for _, f := range factors {
		total += f.Score
	}
	score := float64(total) / float64(len(factors))

	return domain.CapacityScore{
		Score:    score,
		Category: matchLabelFloor(score, capacityBands, domain.CapacityVeryLow),
		Factors:  factors,
	}
}

// matchFloor returns the score of the first band whose inclusive lower bound
// the ratio meets, else 1.
func matchFloor(ratio float64, bands []scoreBand) int {
	for _, b := range bands {
		if ratio >= b.bound {
			return b.score
		}
	}
	return 1
}

// matchCeiling returns the score of the first band whose inclusive upper
// bound the ratio stays under, else 1.
func matchCeiling(ratio float64, bands []scoreBand) int {
	for _, b := range bands {
		if ratio <= b.bound {
			return b.score
		}
	}
	return 1
}

// matchLabelFloor finds the first band whose inclusive lower bound the score
// meets.
func matchLabelFloor(score float64, bands []labelBand, fallback string) string {
	for _, b := range bands {
		if score >= b.bound {
			return b.label
		}
	}
	return fallback
}

// matchLabelCeiling finds the first band whose inclusive upper bound the
// score stays under.
func matchLabelCeiling(score float64, bands []labelBand, fallback string) string {
	for _, b := range bands {
		if score <= b.bound {
			return b.label
		}
	}
	return fallback
}
