// Package scoring implements the deterministic risk-profile calculations:
// financial-metrics derivation, the capacity-for-loss score, and the overall
// weighted risk score. Everything here is a pure function over in-memory
// values with no I/O and no error paths; degenerate inputs produce
// degenerate-but-defined numbers (zero, NaN, ±Inf) that propagate unguarded.
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// liquidAssetTypes is the fixed allow-list of asset types counted as liquid.
// Anything outside this set is excluded regardless of how liquid it might
// actually be.
var liquidAssetTypes = map[string]bool{
	domain.AssetCash:        true,
	domain.AssetSavings:     true,
	domain.AssetInvestments: true,
}

// DeriveMetrics reduces a client's raw records into the FinancialMetrics
// snapshot consumed by scoring. Empty collections reduce to zeros.
func DeriveMetrics(records *domain.RecordSet, dateOfBirth string) domain.FinancialMetrics {
	return deriveMetricsAt(records, dateOfBirth, time.Now().UTC())
}

func deriveMetricsAt(records *domain.RecordSet, dateOfBirth string, now time.Time) domain.FinancialMetrics {
	if records == nil {
		records = &domain.RecordSet{}
	}

	var monthlyIncome float64
	for _, inc := range records.Incomes {
		monthlyIncome += monthlyAmount(inc.Amount, inc.Frequency)
	}

	var monthlyExpenses float64
	for _, exp := range records.Expenditures {
		monthlyExpenses += monthlyAmount(exp.Amount, exp.Frequency)
	}

	var totalAssets, liquidAssets float64
	for _, a := range records.Assets {
		totalAssets += a.Value
		if liquidAssetTypes[a.Type] {
			liquidAssets += a.Value
		}
	}

	var totalLiabilities float64
	for _, l := range records.Liabilities {
		totalLiabilities += l.Amount
	}

	return domain.FinancialMetrics{
		MonthlyIncome:     monthlyIncome,
		MonthlyExpenses:   monthlyExpenses,
		TotalAssets:       totalAssets,
		TotalLiabilities:  totalLiabilities,
		LiquidAssets:      liquidAssets,
		NetWorth:          totalAssets - totalLiabilities,
		AnnualDebtService: annualDebtService(records.Liabilities),
		TotalAnnualIncome: monthlyIncome * 12,
		Age:               ageAt(dateOfBirth, now),
		YearsToRetirement: retirementHorizon(records.Goals),
	}
}

// monthlyAmount normalizes a recorded amount to a monthly figure. Annual
// amounts are divided by 12; every other frequency label is treated as
// already monthly.
func monthlyAmount(amount float64, frequency string) float64 {
	if frequency == domain.FrequencyAnnual {
		return amount / 12
	}
	return amount
}

// annualDebtService sums each liability's yearly cost. Loan and Mortgage
// records that carry both a term and an interest rate are amortized; every
// other liability contributes its full outstanding amount.
func annualDebtService(liabilities []domain.Liability) float64 {
	var total float64
	for _, l := range liabilities {
		if (l.Type == domain.LiabilityLoan || l.Type == domain.LiabilityMortgage) &&
			l.TermYears != nil && l.InterestRate != nil {
			total += amortizedPayment(l.Amount, *l.InterestRate, *l.TermYears)
			continue
		}
		total += l.Amount
	}
	return total
}

// amortizedPayment is the standard fixed-payment amortization
// payment = amount * rate / (1 - (1+rate)^-term) on the annualized rate.
// A zero rate makes this 0/0 = NaN, which propagates.
func amortizedPayment(amount, interestRate, termYears float64) float64 {
	rate := interestRate / 100
	return amount * rate / (1 - math.Pow(1+rate, -termYears))
}

// ageAt derives a whole-year age from an ISO-8601 date of birth, decremented
// when the birthday has not yet been reached in the current year. A missing
// or unparseable date yields the 0 sentinel, treated downstream as unknown.
func ageAt(dateOfBirth string, now time.Time) int {
	if dateOfBirth == "" {
		return 0
	}
	dob, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil {
		dob, err = time.Parse(time.RFC3339, dateOfBirth)
		if err != nil {
			return 0
		}
	}

	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// retirementHorizon returns the time horizon of the first goal mentioning
// retirement, or nil when no goal does. Later matches are ignored.
func retirementHorizon(goals []domain.Goal) *float64 {
	for _, g := range goals {
		if strings.Contains(strings.ToLower(g.Goal), "retirement") {
			horizon := g.TimeHorizon
			return &horizon
		}
	}
	return nil
}
