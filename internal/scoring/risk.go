package scoring

import (
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Overall score weights. They sum to exactly 1.00.
const (
	weightKnowledge       = 0.20
	weightAttitude        = 0.25
	weightCapacity        = 0.20
	weightTimeframe       = 0.15
	weightCapacityForLoss = 0.20
)

// riskBands maps the overall score to a category by inclusive upper bound.
// A NaN overall score fails every comparison and falls through to Aggressive.
var riskBands = []labelBand{
	{1.5, domain.RiskVeryConservative},
	{2.0, domain.RiskConservative},
	{2.5, domain.RiskModerateConservative},
	{3.0, domain.RiskModerate},
	{3.5, domain.RiskModerateAggressive},
}

// allocationHints maps each risk category to its indicative asset split.
var allocationHints = map[string]string{
	domain.RiskVeryConservative:     "10% equities / 90% defensive",
	domain.RiskConservative:         "25% equities / 75% defensive",
	domain.RiskModerateConservative: "40% equities / 60% defensive",
	domain.RiskModerate:             "55% equities / 45% defensive",
	domain.RiskModerateAggressive:   "70% equities / 30% defensive",
	domain.RiskAggressive:           "85% equities / 15% defensive",
}

// Score combines questionnaire responses with the capacity-for-loss score
// into the final RiskScores result. Responses are keyed by question id; a
// missing key contributes 0 to its category mean, pulling the average down
// rather than being rejected.
func Score(responses map[string]int, metrics domain.FinancialMetrics) domain.RiskScores {
	knowledge := meanResponse(responses, domain.QuestionKnowledge1, domain.QuestionKnowledge2)
	attitude := meanResponse(responses, domain.QuestionAttitude1, domain.QuestionAttitude2)
	capacity := meanResponse(responses, domain.QuestionCapacity1, domain.QuestionCapacity2)
	timeframe := meanResponse(responses, domain.QuestionTimeframe1)

	capacityForLoss := CapacityForLoss(metrics)

	overall := weightKnowledge*knowledge +
		weightAttitude*attitude +
		weightCapacity*capacity +
		weightTimeframe*timeframe +
		weightCapacityForLoss*capacityForLoss.Score

	category := matchLabelCeiling(overall, riskBands, domain.RiskAggressive)

	return domain.RiskScores{
		Knowledge:       knowledge,
		Attitude:        attitude,
		Capacity:        capacity,
		Timeframe:       timeframe,
		CapacityForLoss: capacityForLoss,
		Overall:         overall,
		Category:        category,
		Allocation:      AllocationFor(category),
	}
}

// AllocationFor returns the indicative allocation hint for a risk category,
// or an empty string for an unknown label.
func AllocationFor(category string) string {
	return allocationHints[category]
}

// meanResponse averages the responses for the given question ids. Missing
// ids count as 0.
func meanResponse(responses map[string]int, ids ...string) float64 {
	var total int
	for _, id := range ids {
		total += responses[id]
	}
	return float64(total) / float64(len(ids))
}
