package activity

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
)

func TestActivityTracker(t *testing.T) {
	// Create temp database
	tmpFile, err := os.CreateTemp("", "activity-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	// Create repository
	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	// Create cache
	lruCache := cache.NewLRUCache(100)
	defer lruCache.Close()

	tracker := NewTracker(repo, lruCache)

	ctx := context.Background()
	tenantID := "tenant-001"
	clientID := "client-001"

	t.Run("EmptyDatabase", func(t *testing.T) {
		count, err := tracker.Count(ctx, tenantID, clientID, domain.ActivityAssessment, 24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("expected count 0 for empty database, got %d", count)
		}
	})

	t.Run("AssessmentsCountedFromRepository", func(t *testing.T) {
		client := &domain.Client{ID: clientID, TenantID: tenantID, Name: "Jordan Reeves"}
		if err := repo.SaveClient(ctx, tenantID, client); err != nil {
			t.Fatalf("failed to save client: %v", err)
		}

		for i := 0; i < 3; i++ {
			assessment := &domain.Assessment{
				ID:        fmt.Sprintf("assessment-%d", i),
				TenantID:  tenantID,
				ClientID:  clientID,
				Responses: map[string]int{"knowledge_1": 3},
				CreatedAt: time.Now().UTC(),
			}
			if err := repo.SaveAssessment(ctx, tenantID, assessment); err != nil {
				t.Fatalf("failed to save assessment: %v", err)
			}
		}

		count, err := tracker.Count(ctx, tenantID, clientID, domain.ActivityAssessment, 30*24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 3 {
			t.Errorf("expected count 3, got %d", count)
		}

		// Unknown client sees nothing
		count, err = tracker.Count(ctx, tenantID, "client-unknown", domain.ActivityAssessment, 30*24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("expected count 0 for unknown client, got %d", count)
		}
	})

	t.Run("RecordChangesCountedFromCache", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := tracker.Track(ctx, tenantID, clientID, domain.ActivityRecordChange); err != nil {
				t.Fatalf("Track failed: %v", err)
			}
		}

		count, err := tracker.Count(ctx, tenantID, clientID, domain.ActivityRecordChange, 7*24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 2 {
			t.Errorf("expected count 2, got %d", count)
		}

		// Every standard window sees the same events
		count, _ = tracker.Count(ctx, tenantID, clientID, domain.ActivityRecordChange, time.Hour)
		if count != 2 {
			t.Errorf("expected count 2 in 1h window, got %d", count)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		count, err := tracker.Count(ctx, "other-tenant", clientID, domain.ActivityAssessment, 30*24*time.Hour)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 0 {
			t.Errorf("expected count 0 for different tenant, got %d", count)
		}

		count, _ = tracker.Count(ctx, "other-tenant", clientID, domain.ActivityRecordChange, 7*24*time.Hour)
		if count != 0 {
			t.Errorf("expected record count 0 for different tenant, got %d", count)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		_, err := tracker.Count(ctx, "", clientID, domain.ActivityAssessment, time.Hour)
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
		if err := tracker.Track(ctx, "", clientID, domain.ActivityAssessment); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("RequiresClientID", func(t *testing.T) {
		_, err := tracker.Count(ctx, tenantID, "", domain.ActivityAssessment, time.Hour)
		if err == nil {
			t.Error("expected error for empty clientID")
		}
	})

	t.Run("Getter", func(t *testing.T) {
		getter := tracker.Getter()
		if getter == nil {
			t.Fatal("Getter returned nil")
		}

		count, err := getter(ctx, tenantID, clientID, domain.ActivityAssessment, 30*24*time.Hour)
		if err != nil {
			t.Fatalf("getter failed: %v", err)
		}
		if count != 3 {
			t.Errorf("expected count 3, got %d", count)
		}
	})
}

func TestNoDataSource(t *testing.T) {
	tracker := &Tracker{} // No repo or cache

	ctx := context.Background()
	_, err := tracker.Count(ctx, "tenant", "client", domain.ActivityRecordChange, time.Hour)
	if err == nil {
		t.Error("expected error with no data source")
	}
}
