package rules

import "github.com/opensource-finance/kestrel/internal/domain"

// BuiltinRules returns the starter rule set. These are seeded into the
// database for the global tenant on first start and can be edited or
// disabled there like any other rule; after seeding, the database is the
// only source of truth.
func BuiltinRules() []*domain.FlagRule {
	return []*domain.FlagRule{
		{
			ID:          domain.FlagCapacityMismatch,
			TenantID:    domain.GlobalTenantID,
			Name:        "Attitude Exceeds Capacity",
			Description: "Client is willing to take more risk than their finances can absorb",
			Version:     "1.0.0",
			Expression:  "attitude_score >= 3.0 && capacity_for_loss <= 2.0",
			Severity:    3.0,
			Enabled:     true,
		},
		{
			ID:          domain.FlagNegativeNetWorth,
			TenantID:    domain.GlobalTenantID,
			Name:        "Negative Net Worth",
			Description: "Client liabilities exceed total assets",
			Version:     "1.0.0",
			Expression:  "net_worth < 0.0",
			Severity:    2.0,
			Enabled:     true,
		},
		{
			ID:          domain.FlagThinEmergencyFund,
			TenantID:    domain.GlobalTenantID,
			Name:        "Thin Emergency Fund",
			Description: "Liquid assets cover less than three months of expenses",
			Version:     "1.0.0",
			Expression:  "liquid_assets < monthly_expenses * 3.0",
			Severity:    1.5,
			Enabled:     true,
		},
		{
			ID:          domain.FlagSpendingDeficit,
			TenantID:    domain.GlobalTenantID,
			Name:        "Spending Deficit",
			Description: "Monthly expenses exceed monthly income",
			Version:     "1.0.0",
			Expression:  "monthly_expenses > monthly_income",
			Severity:    2.0,
			Enabled:     true,
		},
		{
			ID:          domain.FlagLateHorizonRisk,
			TenantID:    domain.GlobalTenantID,
			Name:        "Aggressive Near Retirement",
			Description: "High risk score with five or fewer years to the retirement goal",
			Version:     "1.0.0",
			Expression:  "has_retirement_goal && years_to_retirement <= 5.0 && overall_score > 3.0",
			Severity:    2.5,
			Enabled:     true,
		},
		{
			ID:          domain.FlagReassessmentChurn,
			TenantID:    domain.GlobalTenantID,
			Name:        "Reassessment Churn",
			Description: "Three or more assessments for this client in thirty days",
			Version:     "1.0.0",
			Expression:  "assessments_30d >= 3",
			Severity:    1.0,
			Enabled:     true,
		},
	}
}
