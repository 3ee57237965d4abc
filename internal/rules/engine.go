// Package rules provides the CEL-Go based suitability rule engine.
package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine compiles flag rules to CEL programs and evaluates them against
// assessment results.
type Engine struct {
	mu             sync.RWMutex
	env            *cel.Env
	compiledRules  map[string]*CompiledRule
	activityGetter ActivityGetter
	maxWorkers     int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.FlagRule
	Program cel.Program
}

// ActivityGetter returns the number of events of one kind recorded for a
// client inside a trailing window.
type ActivityGetter func(ctx context.Context, tenantID, clientID, event string, window time.Duration) (int64, error)

// NewEngine creates a new rule evaluation engine.
func NewEngine(activityGetter ActivityGetter, maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment with the flat activation rules are written against:
	// derived financial metrics, computed risk scores, and client activity
	// counters.
	env, err := cel.NewEnv(
		cel.Variable("client", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("monthly_income", cel.DoubleType),
		cel.Variable("monthly_expenses", cel.DoubleType),
		cel.Variable("total_assets", cel.DoubleType),
		cel.Variable("total_liabilities", cel.DoubleType),
		cel.Variable("liquid_assets", cel.DoubleType),
		cel.Variable("net_worth", cel.DoubleType),
		cel.Variable("annual_debt_service", cel.DoubleType),
		cel.Variable("age", cel.IntType),
		cel.Variable("years_to_retirement", cel.DoubleType),
		cel.Variable("has_retirement_goal", cel.BoolType),
		cel.Variable("knowledge_score", cel.DoubleType),
		cel.Variable("attitude_score", cel.DoubleType),
		cel.Variable("capacity_score", cel.DoubleType),
		cel.Variable("timeframe_score", cel.DoubleType),
		cel.Variable("overall_score", cel.DoubleType),
		cel.Variable("capacity_for_loss", cel.DoubleType),
		cel.Variable("risk_category", cel.StringType),
		cel.Variable("capacity_category", cel.StringType),
		cel.Variable("assessments_24h", cel.IntType),
		cel.Variable("assessments_30d", cel.IntType),
		cel.Variable("record_changes_7d", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:            env,
		compiledRules:  make(map[string]*CompiledRule),
		activityGetter: activityGetter,
		maxWorkers:     maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(rule *domain.FlagRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(rule)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(rule *domain.FlagRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	e.compiledRules[rule.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(rules []*domain.FlagRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateInput carries one assessment's data into rule evaluation.
type EvaluateInput struct {
	TenantID       string
	ClientID       string
	AssessmentID   string
	Metrics        domain.FinancialMetrics
	Scores         domain.RiskScores
	AdditionalData map[string]any
}

// EvaluateAll evaluates all loaded rules in parallel. Every loaded rule
// produces a Flag; callers filter on Raised.
func (e *Engine) EvaluateAll(ctx context.Context, input *EvaluateInput) ([]domain.Flag, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	// Fetch activity counters if a getter is available. Lookup errors leave
	// the counter at zero rather than failing the assessment.
	var assess24h, assess30d, records7d int64
	if e.activityGetter != nil {
		if n, err := e.activityGetter(ctx, input.TenantID, input.ClientID, domain.ActivityAssessment, 24*time.Hour); err == nil {
			assess24h = n
		}
		if n, err := e.activityGetter(ctx, input.TenantID, input.ClientID, domain.ActivityAssessment, 30*24*time.Hour); err == nil {
			assess30d = n
		}
		if n, err := e.activityGetter(ctx, input.TenantID, input.ClientID, domain.ActivityRecordChange, 7*24*time.Hour); err == nil {
			records7d = n
		}
	}

	metrics := input.Metrics
	scores := input.Scores

	yearsToRetirement := 0.0
	hasRetirementGoal := metrics.YearsToRetirement != nil
	if hasRetirementGoal {
		yearsToRetirement = *metrics.YearsToRetirement
	}

	// Prepare CEL activation variables
	activation := map[string]any{
		"client": map[string]any{
			"id":  input.ClientID,
			"age": metrics.Age,
		},
		"monthly_income":      metrics.MonthlyIncome,
		"monthly_expenses":    metrics.MonthlyExpenses,
		"total_assets":        metrics.TotalAssets,
		"total_liabilities":   metrics.TotalLiabilities,
		"liquid_assets":       metrics.LiquidAssets,
		"net_worth":           metrics.NetWorth,
		"annual_debt_service": metrics.AnnualDebtService,
		"age":                 int64(metrics.Age),
		"years_to_retirement": yearsToRetirement,
		"has_retirement_goal": hasRetirementGoal,
		"knowledge_score":     scores.Knowledge,
		"attitude_score":      scores.Attitude,
		"capacity_score":      scores.Capacity,
		"timeframe_score":     scores.Timeframe,
		"overall_score":       scores.Overall,
		"capacity_for_loss":   scores.CapacityForLoss.Score,
		"risk_category":       scores.Category,
		"capacity_category":   scores.CapacityForLoss.Category,
		"assessments_24h":     assess24h,
		"assessments_30d":     assess30d,
		"record_changes_7d":   records7d,
	}

	// Merge additional data
	for k, v := range input.AdditionalData {
		activation[k] = v
	}

	// Parallel evaluation using worker pool pattern
	flags := make([]domain.Flag, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			flags[idx] = e.evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	return flags, nil
}

// evaluateRule evaluates a single rule and returns the resulting flag.
func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any) domain.Flag {
	start := time.Now()

	flag := domain.Flag{
		RuleID:   rule.Rule.ID,
		Name:     rule.Rule.Name,
		Severity: rule.Rule.Severity,
	}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		flag.Detail = fmt.Sprintf("evaluation error: %v", err)
		flag.ProcessMs = time.Since(start).Milliseconds()
		return flag
	}

	flag.Value = toScore(out)
	flag.Raised = flag.Value > 0
	if flag.Raised {
		flag.Detail = rule.Rule.Description
	}
	flag.ProcessMs = time.Since(start).Milliseconds()

	return flag
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(rules []*domain.FlagRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		compiled, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		newRules[rule.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.FlagRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.FlagRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Rule)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(rule *domain.FlagRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", rule.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{
		Rule:    rule,
		Program: program,
	}, nil
}
