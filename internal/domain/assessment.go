package domain

import (
	"time"
)

// Assessment is one completed risk-profiling run for a client: the submitted
// responses, the derived scores, and any suitability flags raised over them.
type Assessment struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	ClientID string `json:"clientId"`

	// Responses maps question id to the chosen option score. Captured once
	// per assessment and never mutated.
	Responses map[string]int `json:"responses"`

	Scores RiskScores `json:"scores"`

	// Suitability review output (empty in scoring mode)
	Flags  []Flag       `json:"flags,omitempty"`
	Review ReviewResult `json:"review"`

	// Processing metadata
	Metadata AssessmentMetadata `json:"metadata"`

	CreatedAt time.Time `json:"createdAt"`
}

// NeedsReview reports whether the assessment should land in an adviser's
// review queue.
func (a *Assessment) NeedsReview() bool {
	return a.Review.Priority != ReviewPriorityNone
}

// AssessmentRequest is the API request payload for running an assessment.
type AssessmentRequest struct {
	Responses map[string]int `json:"responses" validate:"required"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID        string `json:"traceId"`
	RecordsMs      int64  `json:"recordsMs"`
	ScoreMs        int64  `json:"scoreMs"`
	FlagsMs        int64  `json:"flagsMs"`
	TotalMs        int64  `json:"totalMs"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	EngineVersion  string `json:"engineVersion"`
}
