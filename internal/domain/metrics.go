package domain

// FinancialMetrics is the derived snapshot of a client's financial position.
// It is a pure value object: recomputed on demand from the RecordSet and
// never persisted independently of its source records.
//
// Values are deliberately unguarded. Zero denominators upstream produce
// NaN or ±Inf here and those propagate into downstream ratios unchanged.
type FinancialMetrics struct {
	MonthlyIncome     float64 `json:"monthlyIncome"`
	MonthlyExpenses   float64 `json:"monthlyExpenses"`
	TotalAssets       float64 `json:"totalAssets"`
	TotalLiabilities  float64 `json:"totalLiabilities"`
	LiquidAssets      float64 `json:"liquidAssets"`
	NetWorth          float64 `json:"netWorth"`
	AnnualDebtService float64 `json:"annualDebtService"`
	TotalAnnualIncome float64 `json:"totalAnnualIncome"`

	// Age is 0 when the client has no usable date of birth. Downstream
	// consumers treat 0 as "unknown".
	Age int `json:"age"`

	// YearsToRetirement is nil when no goal mentions retirement.
	YearsToRetirement *float64 `json:"yearsToRetirement"`
}

// CapacityFactor is one contributing factor of the capacity-for-loss score.
type CapacityFactor struct {
	Name   string `json:"name"`
	Score  int    `json:"score"` // 1-4
	Detail string `json:"detail"`
}

// CapacityScore is the capacity-for-loss result: the mean of the four factor
// scores and its category label.
type CapacityScore struct {
	Score    float64          `json:"score"` // 1.0-4.0
	Category string           `json:"category"`
	Factors  []CapacityFactor `json:"factors"`
}

// Capacity-for-loss category labels.
const (
	CapacityHigh    = "High"
	CapacityMedium  = "Medium"
	CapacityLow     = "Low"
	CapacityVeryLow = "Very Low"
)

// RiskScores is the final scoring result: four questionnaire sub-scores, the
// capacity-for-loss score, and the weighted overall score with its category
// and allocation hint.
type RiskScores struct {
	Knowledge       float64       `json:"knowledge"`
	Attitude        float64       `json:"attitude"`
	Capacity        float64       `json:"capacity"`
	Timeframe       float64       `json:"timeframe"`
	CapacityForLoss CapacityScore `json:"capacityForLoss"`
	Overall         float64       `json:"overall"`
	Category        string        `json:"category"`
	Allocation      string        `json:"allocation"`
}

// Risk category labels, ordered from lowest to highest risk tolerance.
const (
	RiskVeryConservative     = "Very Conservative"
	RiskConservative         = "Conservative"
	RiskModerateConservative = "Moderate Conservative"
	RiskModerate             = "Moderate"
	RiskModerateAggressive   = "Moderate Aggressive"
	RiskAggressive           = "Aggressive"
)

// Questionnaire category tags.
const (
	CategoryKnowledge = "knowledge"
	CategoryAttitude  = "attitude"
	CategoryCapacity  = "capacity"
	CategoryTimeframe = "timeframe"
)

// Fixed questionnaire identifiers.
const (
	QuestionKnowledge1 = "knowledge_1"
	QuestionKnowledge2 = "knowledge_2"
	QuestionAttitude1  = "attitude_1"
	QuestionAttitude2  = "attitude_2"
	QuestionCapacity1  = "capacity_1"
	QuestionCapacity2  = "capacity_2"
	QuestionTimeframe1 = "timeframe_1"
)

// AnswerOption is one selectable answer with its score.
type AnswerOption struct {
	Label string `json:"label"`
	Score int    `json:"score"` // 1-4, ascending risk tolerance
}

// Question is one entry of the fixed questionnaire catalog.
type Question struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	Text     string         `json:"text"`
	Options  []AnswerOption `json:"options"`
}
