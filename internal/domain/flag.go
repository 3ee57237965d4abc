package domain

import "time"

// FlagRule defines a suitability review rule.
// The expression is a CEL program evaluated over a flat activation of the
// client's metrics, the computed scores, and activity counters. It may
// return a bool (flag on/off) or a number (graded intensity, 0 meaning not
// raised).
type FlagRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression to evaluate
	Expression string `json:"expression"`

	// Severity weight in review-score aggregation
	Severity float64 `json:"severity"`

	// Whether rule is active
	Enabled bool `json:"enabled"`

	// Audit timestamps
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Flag is the outcome of evaluating one rule against an assessment. Raised
// flags carry a positive value; evaluation errors surface as unraised flags
// with the error text in Detail.
type Flag struct {
	RuleID    string  `json:"ruleId"`
	Name      string  `json:"name"`
	Raised    bool    `json:"raised"`
	Detail    string  `json:"detail,omitempty"`
	Value     float64 `json:"value"`    // expression result, 1.0 for plain bool rules
	Severity  float64 `json:"severity"` // rule severity at evaluation time
	ProcessMs int64   `json:"processMs"`
}

// ReviewResult aggregates raised flags into a single review score and
// priority band for the adviser queue.
type ReviewResult struct {
	Score         float64            `json:"score"`
	Priority      string             `json:"priority"`
	Contributions []FlagContribution `json:"contributions,omitempty"`
}

// FlagContribution shows how a single rule contributed to the review score.
type FlagContribution struct {
	RuleID       string  `json:"ruleId"`
	Value        float64 `json:"value"`        // expression result
	Severity     float64 `json:"severity"`     // rule severity weight
	Contribution float64 `json:"contribution"` // value * severity
}

// Review priority labels, lowest to highest urgency.
const (
	ReviewPriorityNone   = "none"
	ReviewPriorityLow    = "low"
	ReviewPriorityMedium = "medium"
	ReviewPriorityHigh   = "high"
)

// ReviewBand maps a review-score lower bound to a priority. Bands are
// evaluated in order, first match wins.
type ReviewBand struct {
	Bound    float64 `json:"bound"`
	Priority string  `json:"priority"`
}

// Predefined rule IDs for built-in suitability rules.
const (
	FlagCapacityMismatch  = "flag-capacity-mismatch"
	FlagNegativeNetWorth  = "flag-negative-net-worth"
	FlagThinEmergencyFund = "flag-thin-emergency-fund"
	FlagSpendingDeficit   = "flag-spending-deficit"
	FlagLateHorizonRisk   = "flag-late-horizon-risk"
	FlagReassessmentChurn = "flag-reassessment-churn"
)
