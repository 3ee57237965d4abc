// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveClient creates or updates a client with tenant isolation.
func (r *SQLRepository) SaveClient(ctx context.Context, tenantID string, client *domain.Client) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if client.ID == "" {
		return fmt.Errorf("%w: client ID is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	createdAt := client.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := client.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	query := `
		INSERT INTO clients (
			id, tenant_id, name, email, date_of_birth, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			date_of_birth = excluded.date_of_birth,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		client.ID, tenantID, client.Name, client.Email, client.DateOfBirth,
		createdAt, updatedAt,
	)
	return err
}

// GetClient retrieves a client by ID with tenant isolation.
func (r *SQLRepository) GetClient(ctx context.Context, tenantID string, clientID string) (*domain.Client, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, email, date_of_birth, created_at, updated_at
		FROM clients
		WHERE tenant_id = ? AND id = ?
	`

	var c domain.Client
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, clientID).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.DateOfBirth,
		&c.CreatedAt, &c.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ListClients retrieves all clients for a tenant, newest first.
func (r *SQLRepository) ListClients(ctx context.Context, tenantID string) ([]*domain.Client, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, email, date_of_birth, created_at, updated_at
		FROM clients
		WHERE tenant_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.Name, &c.Email, &c.DateOfBirth,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, &c)
	}

	return clients, rows.Err()
}

// DeleteClient removes a client and all their financial records.
// Stored assessments are kept for audit.
func (r *SQLRepository) DeleteClient(ctx context.Context, tenantID string, clientID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM clients WHERE tenant_id = ? AND id = ?`),
		tenantID, clientID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	for _, table := range []string{"incomes", "expenditures", "assets", "liabilities", "goals"} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = ? AND client_id = ?`, table)
		if _, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, clientID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	return nil
}

// SaveIncome stores an income record with tenant isolation.
func (r *SQLRepository) SaveIncome(ctx context.Context, tenantID string, income *domain.Income) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO incomes (
			id, tenant_id, client_id, label, amount, frequency, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		income.ID, tenantID, income.ClientID,
		income.Label, income.Amount, income.Frequency, income.CreatedAt,
	)
	return err
}

// SaveExpenditure stores an expenditure record with tenant isolation.
func (r *SQLRepository) SaveExpenditure(ctx context.Context, tenantID string, exp *domain.Expenditure) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO expenditures (
			id, tenant_id, client_id, label, amount, frequency, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		exp.ID, tenantID, exp.ClientID,
		exp.Label, exp.Amount, exp.Frequency, exp.CreatedAt,
	)
	return err
}

// SaveAsset stores an asset record with tenant isolation.
func (r *SQLRepository) SaveAsset(ctx context.Context, tenantID string, asset *domain.Asset) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO assets (
			id, tenant_id, client_id, type, value, description, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		asset.ID, tenantID, asset.ClientID,
		asset.Type, asset.Value, asset.Description, asset.CreatedAt,
	)
	return err
}

// SaveLiability stores a liability record with tenant isolation.
// InterestRate and TermYears may be nil and persist as NULL.
func (r *SQLRepository) SaveLiability(ctx context.Context, tenantID string, liability *domain.Liability) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO liabilities (
			id, tenant_id, client_id, type, amount, interest_rate, term_years, description, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		liability.ID, tenantID, liability.ClientID,
		liability.Type, liability.Amount,
		liability.InterestRate, liability.TermYears,
		liability.Description, liability.CreatedAt,
	)
	return err
}

// SaveGoal stores a goal record with tenant isolation.
func (r *SQLRepository) SaveGoal(ctx context.Context, tenantID string, goal *domain.Goal) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO goals (
			id, tenant_id, client_id, goal, target_amount, time_horizon, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		goal.ID, tenantID, goal.ClientID,
		goal.Goal, goal.TargetAmount, goal.TimeHorizon, goal.CreatedAt,
	)
	return err
}

// recordTables maps record kinds to their tables.
var recordTables = map[domain.RecordKind]string{
	domain.KindIncome:      "incomes",
	domain.KindExpenditure: "expenditures",
	domain.KindAsset:       "assets",
	domain.KindLiability:   "liabilities",
	domain.KindGoal:        "goals",
}

// DeleteRecord removes a single financial record with tenant isolation.
func (r *SQLRepository) DeleteRecord(ctx context.Context, tenantID string, kind domain.RecordKind, recordID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	table, ok := recordTables[kind]
	if !ok {
		return fmt.Errorf("%w: unknown record kind %q", ErrInvalidInput, kind)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = ? AND id = ?`, table)

	result, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, recordID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// GetRecordSet loads all five record collections for a client, each ordered
// by creation time.
func (r *SQLRepository) GetRecordSet(ctx context.Context, tenantID string, clientID string) (*domain.RecordSet, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	records := &domain.RecordSet{}
	var err error

	if records.Incomes, err = r.listIncomes(ctx, tenantID, clientID); err != nil {
		return nil, fmt.Errorf("failed to load incomes: %w", err)
	}
	if records.Expenditures, err = r.listExpenditures(ctx, tenantID, clientID); err != nil {
		return nil, fmt.Errorf("failed to load expenditures: %w", err)
	}
	if records.Assets, err = r.listAssets(ctx, tenantID, clientID); err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	if records.Liabilities, err = r.listLiabilities(ctx, tenantID, clientID); err != nil {
		return nil, fmt.Errorf("failed to load liabilities: %w", err)
	}
	if records.Goals, err = r.listGoals(ctx, tenantID, clientID); err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	return records, nil
}

func (r *SQLRepository) listIncomes(ctx context.Context, tenantID string, clientID string) ([]domain.Income, error) {
	query := `
		SELECT id, client_id, label, amount, frequency, created_at
		FROM incomes
		WHERE tenant_id = ? AND client_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incomes []domain.Income
	for rows.Next() {
		var in domain.Income
		if err := rows.Scan(&in.ID, &in.ClientID, &in.Label, &in.Amount, &in.Frequency, &in.CreatedAt); err != nil {
			return nil, err
		}
		incomes = append(incomes, in)
	}

	return incomes, rows.Err()
}

func (r *SQLRepository) listExpenditures(ctx context.Context, tenantID string, clientID string) ([]domain.Expenditure, error) {
	query := `
		SELECT id, client_id, label, amount, frequency, created_at
		FROM expenditures
		WHERE tenant_id = ? AND client_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exps []domain.Expenditure
	for rows.Next() {
		var e domain.Expenditure
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Label, &e.Amount, &e.Frequency, &e.CreatedAt); err != nil {
			return nil, err
		}
		exps = append(exps, e)
	}

	return exps, rows.Err()
}

func (r *SQLRepository) listAssets(ctx context.Context, tenantID string, clientID string) ([]domain.Asset, error) {
	query := `
		SELECT id, client_id, type, value, description, created_at
		FROM assets
		WHERE tenant_id = ? AND client_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Type, &a.Value, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}

	return assets, rows.Err()
}

func (r *SQLRepository) listLiabilities(ctx context.Context, tenantID string, clientID string) ([]domain.Liability, error) {
	query := `
		SELECT id, client_id, type, amount, interest_rate, term_years, description, created_at
		FROM liabilities
		WHERE tenant_id = ? AND client_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var liabilities []domain.Liability
	for rows.Next() {
		var l domain.Liability
		var rate, term sql.NullFloat64
		if err := rows.Scan(&l.ID, &l.ClientID, &l.Type, &l.Amount, &rate, &term, &l.Description, &l.CreatedAt); err != nil {
			return nil, err
		}
		if rate.Valid {
			l.InterestRate = &rate.Float64
		}
		if term.Valid {
			l.TermYears = &term.Float64
		}
		liabilities = append(liabilities, l)
	}

	return liabilities, rows.Err()
}

func (r *SQLRepository) listGoals(ctx context.Context, tenantID string, clientID string) ([]domain.Goal, error) {
	query := `
		SELECT id, client_id, goal, target_amount, time_horizon, created_at
		FROM goals
		WHERE tenant_id = ? AND client_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		var g domain.Goal
		if err := rows.Scan(&g.ID, &g.ClientID, &g.Goal, &g.TargetAmount, &g.TimeHorizon, &g.CreatedAt); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}

	return goals, rows.Err()
}

// SaveAssessment stores an assessment result with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, assessment *domain.Assessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	responses, _ := json.Marshal(assessment.Responses)
	scores, _ := json.Marshal(assessment.Scores)
	flags, _ := json.Marshal(assessment.Flags)
	review, _ := json.Marshal(assessment.Review)
	metadata, _ := json.Marshal(assessment.Metadata)

	query := `
		INSERT INTO assessments (
			id, tenant_id, client_id, responses, scores, flags, review, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		assessment.ID, tenantID, assessment.ClientID,
		string(responses), string(scores), string(flags), string(review), string(metadata),
		assessment.CreatedAt,
	)
	return err
}

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, client_id, responses, scores, flags, review, metadata, created_at
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`

	var a domain.Assessment
	var responses, scores, flags, review, metadata string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, assessmentID).Scan(
		&a.ID, &a.TenantID, &a.ClientID,
		&responses, &scores, &flags, &review, &metadata,
		&a.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(responses), &a.Responses)
	json.Unmarshal([]byte(scores), &a.Scores)
	json.Unmarshal([]byte(flags), &a.Flags)
	json.Unmarshal([]byte(review), &a.Review)
	json.Unmarshal([]byte(metadata), &a.Metadata)

	return &a, nil
}

// ListAssessmentsByClient retrieves a client's assessments since the given
// time, newest first.
func (r *SQLRepository) ListAssessmentsByClient(ctx context.Context, tenantID string, clientID string, since time.Time) ([]*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, client_id, responses, scores, flags, review, metadata, created_at
		FROM assessments
		WHERE tenant_id = ? AND client_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, clientID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*domain.Assessment
	for rows.Next() {
		var a domain.Assessment
		var responses, scores, flags, review, metadata string

		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.ClientID,
			&responses, &scores, &flags, &review, &metadata,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(responses), &a.Responses)
		json.Unmarshal([]byte(scores), &a.Scores)
		json.Unmarshal([]byte(flags), &a.Flags)
		json.Unmarshal([]byte(review), &a.Review)
		json.Unmarshal([]byte(metadata), &a.Metadata)

		assessments = append(assessments, &a)
	}

	return assessments, rows.Err()
}

// CountAssessments returns the total number of assessments for a tenant.
func (r *SQLRepository) CountAssessments(ctx context.Context, tenantID string) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var count int64
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT COUNT(*) FROM assessments WHERE tenant_id = ?`),
		tenantID,
	).Scan(&count)
	return count, err
}

// SaveFlagRule stores a flag rule with tenant isolation. Saving the same
// id and version updates in place; a new version inserts a fresh row.
func (r *SQLRepository) SaveFlagRule(ctx context.Context, tenantID string, rule *domain.FlagRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO flag_rules (
			id, tenant_id, name, description, version, expression, severity, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			severity = excluded.severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, rule.Severity, enabled,
		now, now,
	)
	return err
}

// GetFlagRule retrieves the latest enabled version of a flag rule with
// tenant isolation.
func (r *SQLRepository) GetFlagRule(ctx context.Context, tenantID string, ruleID string) (*domain.FlagRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, severity, enabled
		FROM flag_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var rule domain.FlagRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &rule.Severity, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1

	return &rule, nil
}

// ListFlagRules retrieves all active flag rules for a tenant. A rule may
// carry several versions; only the latest enabled one is returned.
func (r *SQLRepository) ListFlagRules(ctx context.Context, tenantID string) ([]*domain.FlagRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT r.id, r.tenant_id, r.name, r.description, r.version, r.expression, r.severity, r.enabled
		FROM flag_rules r
		WHERE r.tenant_id = ? AND r.enabled = 1
		  AND r.version = (
			SELECT MAX(version) FROM flag_rules
			WHERE id = r.id AND tenant_id = r.tenant_id AND enabled = 1
		  )
		ORDER BY r.name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.FlagRule
	for rows.Next() {
		var rule domain.FlagRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
			&rule.Version, &rule.Expression, &rule.Severity, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// DeleteFlagRule soft-deletes all versions of a flag rule by setting
// enabled = 0.
func (r *SQLRepository) DeleteFlagRule(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE flag_rules
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
