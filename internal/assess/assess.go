// Package assess implements the assessment pipeline. It loads a client's
// financial records, derives metrics, scores the questionnaire responses,
// and in suitability mode evaluates flag rules and aggregates the review
// outcome into a single stored assessment.
package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/activity"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// recordSetTTL bounds how long a cached record set is served before the
// repository is consulted again.
const recordSetTTL = 5 * time.Minute

var tracer = otel.Tracer("kestrel-assess")

// Assessor runs the assessment pipeline. It is safe for concurrent use.
type Assessor struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine
	reviewer *rules.Reviewer
	tracker  *activity.Tracker
	mode     domain.AssessmentMode
}

// NewAssessor creates an assessor. The repository is required; cache, bus,
// engine, reviewer and tracker may be nil, in which case the corresponding
// pipeline stages are skipped.
func NewAssessor(
	repo domain.Repository,
	cache domain.Cache,
	bus domain.EventBus,
	engine *rules.Engine,
	reviewer *rules.Reviewer,
	tracker *activity.Tracker,
	mode domain.AssessmentMode,
) *Assessor {
	if mode == "" {
		mode = domain.ModeSuitability
	}
	return &Assessor{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   engine,
		reviewer: reviewer,
		tracker:  tracker,
		mode:     mode,
	}
}

// Mode returns the configured assessment mode.
func (a *Assessor) Mode() domain.AssessmentMode {
	return a.mode
}

// Input contains all data needed to run one assessment.
type Input struct {
	TenantID  string
	ClientID  string
	TraceID   string
	Responses map[string]int
	StartTime time.Time
}

// Run executes the pipeline and returns the completed assessment.
//
// Persistence, event publishing and activity tracking are best-effort: a
// failure there is logged and the assessment is still returned, because the
// caller is waiting on the result. A missing client or a rule evaluation
// failure aborts the run.
func (a *Assessor) Run(ctx context.Context, input *Input) (*domain.Assessment, error) {
	if input.TenantID == "" || input.ClientID == "" {
		return nil, fmt.Errorf("tenantID and clientID are required")
	}

	ctx, span := tracer.Start(ctx, "assess.run",
		trace.WithAttributes(
			attribute.String("tenant.id", input.TenantID),
			attribute.String("client.id", input.ClientID),
		),
	)
	defer span.End()

	start := input.StartTime
	if start.IsZero() {
		start = time.Now()
	}

	// 1. Load the client; assessments for unknown clients are rejected
	client, err := a.repo.GetClient(ctx, input.TenantID, input.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	// 2. Load financial records, cache first
	recordsStart := time.Now()
	records := a.loadRecords(ctx, input.TenantID, input.ClientID)
	recordsMs := time.Since(recordsStart).Milliseconds()

	// 3. Derive metrics and score the responses
	scoreStart := time.Now()
	metrics := scoring.DeriveMetrics(records, client.DateOfBirth)
	scores := scoring.Score(input.Responses, metrics)
	scoreMs := time.Since(scoreStart).Milliseconds()

	assessment := &domain.Assessment{
		ID:        uuid.New().String(),
		TenantID:  input.TenantID,
		ClientID:  input.ClientID,
		Responses: input.Responses,
		Scores:    scores,
		Review:    domain.ReviewResult{Priority: domain.ReviewPriorityNone},
		CreatedAt: time.Now().UTC(),
	}

	// 4. In suitability mode, evaluate flag rules and aggregate the review
	var flagsMs int64
	rulesEvaluated := 0
	if a.mode == domain.ModeSuitability && a.engine != nil {
		flagsStart := time.Now()
		flags, err := a.engine.EvaluateAll(ctx, &rules.EvaluateInput{
			TenantID:     input.TenantID,
			ClientID:     input.ClientID,
			AssessmentID: assessment.ID,
			Metrics:      metrics,
			Scores:       scores,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate flag rules: %w", err)
		}

		// The engine returns flags in map order; sort for stable output
		sort.Slice(flags, func(i, j int) bool {
			return flags[i].RuleID < flags[j].RuleID
		})
		assessment.Flags = flags
		rulesEvaluated = len(flags)

		if a.reviewer != nil {
			assessment.Review = a.reviewer.Aggregate(flags)
		}
		flagsMs = time.Since(flagsStart).Milliseconds()
	}

	assessment.Metadata = domain.AssessmentMetadata{
		TraceID:        input.TraceID,
		RecordsMs:      recordsMs,
		ScoreMs:        scoreMs,
		FlagsMs:        flagsMs,
		TotalMs:        time.Since(start).Milliseconds(),
		RulesEvaluated: rulesEvaluated,
		EngineVersion:  "kestrel-1.0",
	}

	span.SetAttributes(
		attribute.String("risk.category", scores.Category),
		attribute.String("review.priority", assessment.Review.Priority),
	)

	// 5. Persist, publish, track
	if err := a.repo.SaveAssessment(ctx, input.TenantID, assessment); err != nil {
		slog.Error("failed to save assessment",
			"error", err,
			"tenant_id", input.TenantID,
			"assessment_id", assessment.ID)
	}

	a.publish(ctx, assessment)

	// Tracked after rule evaluation so an assessment never counts itself
	if a.tracker != nil {
		if err := a.tracker.Track(ctx, input.TenantID, input.ClientID, domain.ActivityAssessment); err != nil {
			slog.Warn("failed to track assessment activity",
				"error", err,
				"tenant_id", input.TenantID)
		}
	}

	return assessment, nil
}

// loadRecords fetches the client's record set, cache first. Cache and
// repository failures degrade to an empty record set; scoring still runs,
// producing the zero-metrics profile.
func (a *Assessor) loadRecords(ctx context.Context, tenantID string, clientID string) *domain.RecordSet {
	if a.cache != nil {
		if records, err := a.cache.GetRecordSet(ctx, tenantID, clientID); err == nil && records != nil {
			return records
		}
	}

	records, err := a.repo.GetRecordSet(ctx, tenantID, clientID)
	if err != nil {
		slog.Warn("failed to load record set",
			"error", err,
			"tenant_id", tenantID,
			"client_id", clientID)
		return &domain.RecordSet{}
	}

	if a.cache != nil {
		if err := a.cache.SetRecordSet(ctx, tenantID, clientID, records, recordSetTTL); err != nil {
			slog.Warn("failed to cache record set",
				"error", err,
				"tenant_id", tenantID)
		}
	}

	return records
}

// publish emits the completed assessment, plus a review event when the
// assessment needs adviser attention.
func (a *Assessor) publish(ctx context.Context, assessment *domain.Assessment) {
	if a.bus == nil {
		return
	}

	payload, err := json.Marshal(assessment)
	if err != nil {
		slog.Error("failed to marshal assessment event", "error", err)
		return
	}

	if err := a.bus.Publish(ctx, assessment.TenantID, domain.TopicAssessmentCompleted, payload); err != nil {
		slog.Warn("failed to publish assessment completed event",
			"error", err,
			"tenant_id", assessment.TenantID)
	}

	if assessment.NeedsReview() {
		if err := a.bus.Publish(ctx, assessment.TenantID, domain.TopicReviewRaised, payload); err != nil {
			slog.Warn("failed to publish review raised event",
				"error", err,
				"tenant_id", assessment.TenantID)
		}
	}
}

// Reasons extracts human-readable reasons from an assessment's raised flags.
func Reasons(assessment *domain.Assessment) []string {
	var reasons []string
	for _, f := range assessment.Flags {
		if !f.Raised {
			continue
		}
		if f.Detail != "" {
			reasons = append(reasons, f.Detail)
		} else {
			reasons = append(reasons, f.Name)
		}
	}
	return reasons
}
