package domain

import (
	"time"
)

// Client represents an advised individual whose financial records are held
// for risk profiling.
type Client struct {
	// Core identifiers
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`

	// Personal details
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`

	// ISO-8601 date (YYYY-MM-DD). Optional; age derivation falls back to
	// the 0 sentinel when absent.
	DateOfBirth string `json:"dateOfBirth,omitempty"`

	// Temporal
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClientRequest is the API request payload for creating or updating a client.
type ClientRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// ToClient converts a request to a Client domain object.
func (r *ClientRequest) ToClient(tenantID string) *Client {
	now := time.Now().UTC()
	return &Client{
		TenantID:    tenantID,
		Name:        r.Name,
		Email:       r.Email,
		DateOfBirth: r.DateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Recurrence labels for income and expenditure records. Amounts tagged
// "Annual" are divided by 12 during metrics derivation; any other label is
// treated as already monthly.
const (
	FrequencyMonthly = "Monthly"
	FrequencyAnnual  = "Annual"
)

// Asset type tags. Only the liquid set (Cash, Savings, Investments) counts
// toward liquid assets.
const (
	AssetCash        = "Cash"
	AssetSavings     = "Savings"
	AssetInvestments = "Investments"
	AssetProperty    = "Property"
	AssetPension     = "Pension"
	AssetOther       = "Other"
)

// Liability type tags. Loan and Mortgage records with a term and rate are
// amortized; everything else contributes its outstanding amount.
const (
	LiabilityLoan       = "Loan"
	LiabilityMortgage   = "Mortgage"
	LiabilityCreditCard = "Credit Card"
	LiabilityOther      = "Other"
)

// Income is a recurring income record.
type Income struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	Frequency string    `json:"frequency"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expenditure is a recurring outgoing record.
type Expenditure struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Label     string    `json:"label"`
	Amount    float64   `json:"amount"`
	Frequency string    `json:"frequency"`
	CreatedAt time.Time `json:"createdAt"`
}

// Asset is a holding with a current value.
type Asset struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId"`
	Type        string    `json:"type"`
	Value       float64   `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Liability is an outstanding debt. InterestRate (percent per annum) and
// TermYears are optional; both must be present for amortized debt service.
type Liability struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"clientId"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	InterestRate *float64  `json:"interestRate,omitempty"`
	TermYears    *float64  `json:"termYears,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Goal is a free-text financial goal with a target and horizon.
type Goal struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"clientId"`
	Goal         string    `json:"goal"`
	TargetAmount float64   `json:"targetAmount"`
	TimeHorizon  float64   `json:"timeHorizon"` // years
	CreatedAt    time.Time `json:"createdAt"`
}

// RecordSet bundles the five record collections for a single client. It is
// the raw input to metrics derivation.
type RecordSet struct {
	Incomes      []Income      `json:"incomes"`
	Expenditures []Expenditure `json:"expenditures"`
	Assets       []Asset       `json:"assets"`
	Liabilities  []Liability   `json:"liabilities"`
	Goals        []Goal        `json:"goals"`
}
