// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"context"
	"time"
)

// GlobalTenantID owns configuration shared by all tenants. Flag rules
// stored under it are loaded for every tenant.
const GlobalTenantID = "*"

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Client operations
	SaveClient(ctx context.Context, tenantID string, client *Client) error
	GetClient(ctx context.Context, tenantID string, clientID string) (*Client, error)
	ListClients(ctx context.Context, tenantID string) ([]*Client, error)
	DeleteClient(ctx context.Context, tenantID string, clientID string) error

	// Financial record operations
	SaveIncome(ctx context.Context, tenantID string, income *Income) error
	SaveExpenditure(ctx context.Context, tenantID string, exp *Expenditure) error
	SaveAsset(ctx context.Context, tenantID string, asset *Asset) error
	SaveLiability(ctx context.Context, tenantID string, liability *Liability) error
	SaveGoal(ctx context.Context, tenantID string, goal *Goal) error
	DeleteRecord(ctx context.Context, tenantID string, kind RecordKind, recordID string) error

	// GetRecordSet loads all five record collections for a client, each
	// ordered by creation time.
	GetRecordSet(ctx context.Context, tenantID string, clientID string) (*RecordSet, error)

	// Assessment results
	SaveAssessment(ctx context.Context, tenantID string, assessment *Assessment) error
	GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*Assessment, error)
	ListAssessmentsByClient(ctx context.Context, tenantID string, clientID string, since time.Time) ([]*Assessment, error)
	CountAssessments(ctx context.Context, tenantID string) (int64, error)

	// Flag rule operations
	SaveFlagRule(ctx context.Context, tenantID string, rule *FlagRule) error
	GetFlagRule(ctx context.Context, tenantID string, ruleID string) (*FlagRule, error)
	ListFlagRules(ctx context.Context, tenantID string) ([]*FlagRule, error)
	DeleteFlagRule(ctx context.Context, tenantID string, ruleID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RecordKind identifies one of the five financial record collections.
type RecordKind string

const (
	KindIncome      RecordKind = "income"
	KindExpenditure RecordKind = "expenditure"
	KindAsset       RecordKind = "asset"
	KindLiability   RecordKind = "liability"
	KindGoal        RecordKind = "goal"
)

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
