package rules

import (
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Reviewer aggregates evaluated flags into a single review score and a
// priority band for the adviser queue.
type Reviewer struct {
	bands []domain.ReviewBand
}

// NewReviewer creates a reviewer with the given priority bands. Empty bands
// fall back to the defaults.
func NewReviewer(bands []domain.ReviewBand) *Reviewer {
	if len(bands) == 0 {
		bands = domain.DefaultReviewBands()
	}
	return &Reviewer{bands: bands}
}

// Bands returns the configured priority bands.
func (r *Reviewer) Bands() []domain.ReviewBand {
	return r.bands
}

// Aggregate calculates the review score from evaluated flags.
//
// Algorithm:
// 1. Sum (value * severity) over raised flags
// 2. Record per-rule contributions for the audit trail
// 3. Map the total onto the priority bands in order, first match wins
//
// Unraised flags contribute nothing. A total below every band bound means
// no review is needed.
func (r *Reviewer) Aggregate(flags []domain.Flag) domain.ReviewResult {
	result := domain.ReviewResult{
		Priority:      domain.ReviewPriorityNone,
		Contributions: make([]domain.FlagContribution, 0, len(flags)),
	}

	var totalScore float64

	for _, flag := range flags {
		if !flag.Raised {
			continue
		}

		contribution := flag.Value * flag.Severity
		totalScore += contribution

		result.Contributions = append(result.Contributions, domain.FlagContribution{
			RuleID:       flag.RuleID,
			Value:        flag.Value,
			Severity:     flag.Severity,
			Contribution: contribution,
		})
	}

	result.Score = totalScore

	for _, band := range r.bands {
		if totalScore >= band.Bound {
			result.Priority = band.Priority
			break
		}
	}

	return result
}
