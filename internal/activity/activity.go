// Package activity tracks per-client activity counters for rule activations.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Windows are the trailing windows every tracked event is counted over.
var Windows = []time.Duration{
	time.Hour,
	24 * time.Hour,
	7 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

// Tracker records and counts client events such as assessments and record
// changes.
type Tracker struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewTracker creates a new activity tracker.
func NewTracker(repo domain.Repository, cache domain.Cache) *Tracker {
	return &Tracker{
		repo:  repo,
		cache: cache,
	}
}

// Track records one occurrence of an event across the standard windows.
func (t *Tracker) Track(ctx context.Context, tenantID, clientID, event string) error {
	if tenantID == "" || clientID == "" {
		return fmt.Errorf("tenantID and clientID are required")
	}
	if t.cache == nil {
		return nil
	}

	for _, window := range Windows {
		if _, err := t.cache.IncrementCounter(ctx, tenantID, counterKey(clientID, event, window), window); err != nil {
			return fmt.Errorf("failed to increment %s counter: %w", event, err)
		}
	}
	return nil
}

// Count returns the number of events recorded for a client inside the
// trailing window. This is the ActivityGetter function signature expected by
// the rule engine.
//
// Assessment counts come from the repository when one is available; the
// assessments table is authoritative and survives restarts. Other events
// only exist as cache counters.
func (t *Tracker) Count(ctx context.Context, tenantID, clientID, event string, window time.Duration) (int64, error) {
	if tenantID == "" || clientID == "" {
		return 0, fmt.Errorf("tenantID and clientID are required")
	}

	if event == domain.ActivityAssessment && t.repo != nil {
		return t.countFromRepo(ctx, tenantID, clientID, window)
	}

	if t.cache != nil {
		return t.cache.GetCounter(ctx, tenantID, counterKey(clientID, event, window))
	}

	return 0, fmt.Errorf("no data source available")
}

// countFromRepo counts persisted assessments in the window.
func (t *Tracker) countFromRepo(ctx context.Context, tenantID, clientID string, window time.Duration) (int64, error) {
	since := time.Now().Add(-window)

	assessments, err := t.repo.ListAssessmentsByClient(ctx, tenantID, clientID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	return int64(len(assessments)), nil
}

// Getter returns an ActivityGetter function for the rule engine.
func (t *Tracker) Getter() func(ctx context.Context, tenantID, clientID, event string, window time.Duration) (int64, error) {
	return t.Count
}

func counterKey(clientID, event string, window time.Duration) string {
	return fmt.Sprintf("activity:%s:%s:%dh", clientID, event, int64(window/time.Hour))
}
