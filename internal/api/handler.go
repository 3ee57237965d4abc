package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/activity"
	"github.com/opensource-finance/kestrel/internal/assess"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine
	assessor *assess.Assessor
	tracker  *activity.Tracker
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, c domain.Cache, bus domain.EventBus, engine *rules.Engine, assessor *assess.Assessor, tracker *activity.Tracker, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    c,
		bus:      bus,
		engine:   engine,
		assessor: assessor,
		tracker:  tracker,
		version:  version,
	}
}

// AssessmentResponse is the response for POST /clients/{id}/assessments.
type AssessmentResponse struct {
	AssessmentID string              `json:"assessmentId"`
	ClientID     string              `json:"clientId"`
	Scores       domain.RiskScores   `json:"scores"`
	Review       domain.ReviewResult `json:"review"`
	Reasons      []string            `json:"reasons,omitempty"`
	Metadata     struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// RunAssessment handles POST /clients/{id}/assessments requests.
func (h *Handler) RunAssessment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	// Parse request
	var req domain.AssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Responses == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "responses is required",
		})
		return
	}

	assessment, err := h.assessor.Run(ctx, &assess.Input{
		TenantID:  tenantID,
		ClientID:  clientID,
		TraceID:   GetTraceID(ctx),
		Responses: req.Responses,
		StartTime: start,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "client not found",
			})
			return
		}
		slog.Error("assessment failed", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "assessment failed",
		})
		return
	}

	resp := AssessmentResponse{
		AssessmentID: assessment.ID,
		ClientID:     assessment.ClientID,
		Scores:       assessment.Scores,
		Review:       assessment.Review,
		Reasons:      assess.Reasons(assessment),
	}
	resp.Metadata.TraceID = assessment.Metadata.TraceID
	resp.Metadata.TotalMs = assessment.Metadata.TotalMs
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// GetAssessment retrieves a stored assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	assessmentID := chi.URLParam(r, "id")

	if assessmentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	assessment, err := h.repo.GetAssessment(ctx, tenantID, assessmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "assessment not found",
			})
			return
		}
		slog.Error("failed to get assessment", "id", assessmentID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get assessment",
		})
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

// ListClientAssessments returns a client's assessments, newest first.
// The window defaults to the last 90 days; override with ?days=N.
func (h *Handler) ListClientAssessments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if !h.requireClient(ctx, w, tenantID, clientID) {
		return
	}

	days := 90
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "days must be a positive integer",
			})
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	assessments, err := h.repo.ListAssessmentsByClient(ctx, tenantID, clientID, since)
	if err != nil {
		slog.Error("failed to list assessments", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list assessments",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": assessments,
		"count":       len(assessments),
	})
}

// GetQuestionnaire returns the fixed question catalog.
func (h *Handler) GetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	questions := scoring.Questionnaire()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
		"count":     len(questions),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check event bus health
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// Stats reports engine and store counters. Tenant scoping is optional here:
// with an X-Tenant-ID header the response includes that tenant's stored
// assessment count.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"version":     h.version,
		"rulesLoaded": h.engine.RulesCount(),
	}
	if h.assessor != nil {
		stats["mode"] = string(h.assessor.Mode())
	}

	if tenantID := r.Header.Get(TenantIDHeader); tenantID != "" && h.repo != nil {
		count, err := h.repo.CountAssessments(r.Context(), tenantID)
		if err != nil {
			slog.Error("failed to count assessments", "tenant_id", tenantID, "error", err)
		} else {
			stats["assessments"] = count
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ============================================================================
// CLIENT HANDLERS
// ============================================================================

// CreateClient creates a new client under the request tenant.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}

	client := req.ToClient(tenantID)
	client.ID = uuid.New().String()

	if err := h.repo.SaveClient(ctx, tenantID, client); err != nil {
		slog.Error("failed to save client", "id", client.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save client",
		})
		return
	}

	slog.Info("client created", "id", client.ID, "tenant_id", tenantID)
	writeJSON(w, http.StatusCreated, client)
}

// GetClient retrieves a client by ID.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if clientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "client id is required",
		})
		return
	}

	client, err := h.repo.GetClient(ctx, tenantID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "client not found",
			})
			return
		}
		slog.Error("failed to get client", "id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get client",
		})
		return
	}

	writeJSON(w, http.StatusOK, client)
}

// ListClients returns all clients for the request tenant, newest first.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	clients, err := h.repo.ListClients(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list clients", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list clients",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clients": clients,
		"count":   len(clients),
	})
}

// UpdateClient replaces a client's personal details.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	var req domain.ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}

	client, err := h.repo.GetClient(ctx, tenantID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "client not found",
			})
			return
		}
		slog.Error("failed to get client", "id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get client",
		})
		return
	}

	client.Name = req.Name
	client.Email = req.Email
	client.DateOfBirth = req.DateOfBirth
	client.UpdatedAt = time.Now().UTC()

	if err := h.repo.SaveClient(ctx, tenantID, client); err != nil {
		slog.Error("failed to update client", "id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to update client",
		})
		return
	}

	slog.Info("client updated", "id", clientID)
	writeJSON(w, http.StatusOK, client)
}

// DeleteClient removes a client and their financial records. Stored
// assessments are kept for audit.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if clientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "client id is required",
		})
		return
	}

	if err := h.repo.DeleteClient(ctx, tenantID, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "client not found",
			})
			return
		}
		slog.Error("failed to delete client", "id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete client",
		})
		return
	}

	// Drop the cached record set along with the rows
	if h.cache != nil {
		if err := h.cache.Delete(ctx, tenantID, cache.RecordSetKey(clientID)); err != nil {
			slog.Warn("failed to invalidate record cache", "client_id", clientID, "error", err)
		}
	}

	slog.Info("client deleted", "id", clientID, "tenant_id", tenantID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "client deleted",
	})
}

// ============================================================================
// FINANCIAL RECORD HANDLERS
// ============================================================================

// IncomeRequest is the request body for adding an income record.
type IncomeRequest struct {
	Label     string  `json:"label"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency,omitempty"`
}

// ExpenditureRequest is the request body for adding an expenditure record.
type ExpenditureRequest struct {
	Label     string  `json:"label"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency,omitempty"`
}

// AssetRequest is the request body for adding an asset record.
type AssetRequest struct {
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty"`
}

// LiabilityRequest is the request body for adding a liability record.
type LiabilityRequest struct {
	Type         string   `json:"type"`
	Amount       float64  `json:"amount"`
	InterestRate *float64 `json:"interestRate,omitempty"`
	TermYears    *float64 `json:"termYears,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// GoalRequest is the request body for adding a goal record.
type GoalRequest struct {
	Goal         string  `json:"goal"`
	TargetAmount float64 `json:"targetAmount"`
	TimeHorizon  float64 `json:"timeHorizon"`
}

// AddIncome handles POST /clients/{id}/incomes.
func (h *Handler) AddIncome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if !h.requireClient(ctx, w, tenantID, clientID) {
		return
	}

	var req IncomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "label is required",
		})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must be positive",
		})
		return
	}
	if req.Frequency == "" {
		req.Frequency = domain.FrequencyMonthly
	}

	income := &domain.Income{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Label:     req.Label,
		Amount:    req.Amount,
		Frequency: req.Frequency,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.repo.SaveIncome(ctx, tenantID, income); err != nil {
		slog.Error("failed to save income", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save income",
		})
		return
	}

	h.recordChanged(ctx, tenantID, clientID, domain.KindIncome, income.ID)
	writeJSON(w, http.StatusCreated, income)
}

// AddExpenditure handles POST /clients/{id}/expenditures.
func (h *Handler) AddExpenditure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if !h.requireClient(ctx, w, tenantID, clientID) {
		return
	}

	var req ExpenditureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "label is required",
		})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must be positive",
		})
		return
	}
	if req.Frequency == "" {
		req.Frequency = domain.FrequencyMonthly
	}

	exp := &domain.Expenditure{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Label:     req.Label,
		Amount:    req.Amount,
		Frequency: req.Frequency,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.repo.SaveExpenditure(ctx, tenantID, exp); err != nil {
		slog.Error("failed to save expenditure", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save expenditure",
		})
		return
	}

	h.recordChanged(ctx, tenantID, clientID, domain.KindExpenditure, exp.ID)
	writeJSON(w, http.StatusCreated, exp)
}

// AddAsset handles POST /clients/{id}/assets.
func (h *Handler) AddAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if !h.requireClient(ctx, w, tenantID, clientID) {
		return
	}

	var req AssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type is required",
		})
		return
	}
	if req.Value <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "value must be positive",
		})
		return
	}

	asset := &domain.Asset{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		Type:        req.Type,
		Value:       req.Value,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.repo.SaveAsset(ctx, tenantID, asset); err != nil {
		slog.Error("failed to save asset", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save asset",
		})
		return
	}

	h.recordChanged(ctx, tenantID, clientID, domain.KindAsset, asset.ID)
	writeJSON(w, http.StatusCreated, asset)
}

// AddLiability handles POST /clients/{id}/liabilities.
func (h *Handler) AddLiability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if !h.requireClient(ctx, w, tenantID, clientID) {
		return
	}

	var req LiabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type is required",
		})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must be positive",
		})
		return
	}

	liability := &domain.Liability{
		ID:           uuid.New().String(),
		ClientID:     clientID,
		Type:         req.Type,
		Amount:       req.Amount,
		InterestRate: req.InterestRate,
		TermYears:    req.TermYears,
		Description:  req.Description,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.repo.SaveLiability(ctx, tenantID, liability); err != nil {
		slog.Error("failed to save liability", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save liability",
		})
		return
	}

	h.recordChanged(ctx, tenantID, clientID, domain.KindLiability, liability.ID)
	writeJSON(w, http.StatusCreated, liability)
}

// AddGoal handles POST /clients/{id}/goals.
func (h *Handler) AddGoal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if !h.requireClient(ctx, w, tenantID, clientID) {
		return
	}

	var req GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Goal == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "goal is required",
		})
		return
	}

	goal := &domain.Goal{
		ID:           uuid.New().String(),
		ClientID:     clientID,
		Goal:         req.Goal,
		TargetAmount: req.TargetAmount,
		TimeHorizon:  req.TimeHorizon,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.repo.SaveGoal(ctx, tenantID, goal); err != nil {
		slog.Error("failed to save goal", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save goal",
		})
		return
	}

	h.recordChanged(ctx, tenantID, clientID, domain.KindGoal, goal.ID)
	writeJSON(w, http.StatusCreated, goal)
}

// ListIncomes handles GET /clients/{id}/incomes.
func (h *Handler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, domain.KindIncome)
}

// ListExpenditures handles GET /clients/{id}/expenditures.
func (h *Handler) ListExpenditures(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, domain.KindExpenditure)
}

// ListAssets handles GET /clients/{id}/assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, domain.KindAsset)
}

// ListLiabilities handles GET /clients/{id}/liabilities.
func (h *Handler) ListLiabilities(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, domain.KindLiability)
}

// ListGoals handles GET /clients/{id}/goals.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	h.listRecords(w, r, domain.KindGoal)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request, kind domain.RecordKind) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	if !h.requireClient(ctx, w, tenantID, clientID) {
		return
	}

	records, err := h.repo.GetRecordSet(ctx, tenantID, clientID)
	if err != nil {
		slog.Error("failed to load records", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load records",
		})
		return
	}

	switch kind {
	case domain.KindIncome:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"incomes": records.Incomes,
			"count":   len(records.Incomes),
		})
	case domain.KindExpenditure:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"expenditures": records.Expenditures,
			"count":        len(records.Expenditures),
		})
	case domain.KindAsset:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"assets": records.Assets,
			"count":  len(records.Assets),
		})
	case domain.KindLiability:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"liabilities": records.Liabilities,
			"count":       len(records.Liabilities),
		})
	case domain.KindGoal:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"goals": records.Goals,
			"count": len(records.Goals),
		})
	}
}

// DeleteIncome handles DELETE /clients/{id}/incomes/{recordId}.
func (h *Handler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, domain.KindIncome)
}

// DeleteExpenditure handles DELETE /clients/{id}/expenditures/{recordId}.
func (h *Handler) DeleteExpenditure(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, domain.KindExpenditure)
}

// DeleteAsset handles DELETE /clients/{id}/assets/{recordId}.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, domain.KindAsset)
}

// DeleteLiability handles DELETE /clients/{id}/liabilities/{recordId}.
func (h *Handler) DeleteLiability(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, domain.KindLiability)
}

// DeleteGoal handles DELETE /clients/{id}/goals/{recordId}.
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, domain.KindGoal)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request, kind domain.RecordKind) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")
	recordID := chi.URLParam(r, "recordId")

	if recordID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "record id is required",
		})
		return
	}

	if err := h.repo.DeleteRecord(ctx, tenantID, kind, recordID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "record not found",
			})
			return
		}
		slog.Error("failed to delete record", "kind", string(kind), "id", recordID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete record",
		})
		return
	}

	h.recordChanged(ctx, tenantID, clientID, kind, recordID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "record deleted",
	})
}

// GetMetrics returns the derived financial snapshot for a client. Metrics
// are always computed fresh from the stored records, never cached.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	clientID := chi.URLParam(r, "id")

	client, err := h.repo.GetClient(ctx, tenantID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "client not found",
			})
			return
		}
		slog.Error("failed to get client", "id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get client",
		})
		return
	}

	records, err := h.repo.GetRecordSet(ctx, tenantID, clientID)
	if err != nil {
		slog.Error("failed to load records", "client_id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load records",
		})
		return
	}

	metrics := scoring.DeriveMetrics(records, client.DateOfBirth)
	writeJSON(w, http.StatusOK, metrics)
}

// requireClient checks that the client exists and writes the error response
// when it does not.
func (h *Handler) requireClient(ctx context.Context, w http.ResponseWriter, tenantID, clientID string) bool {
	if _, err := h.repo.GetClient(ctx, tenantID, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "client not found",
			})
			return false
		}
		slog.Error("failed to get client", "id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get client",
		})
		return false
	}
	return true
}

// recordChanged runs the side effects of a record mutation: the cached
// record set is invalidated, a records.changed event is published, and the
// change is counted toward the client's activity windows. All best-effort.
func (h *Handler) recordChanged(ctx context.Context, tenantID, clientID string, kind domain.RecordKind, recordID string) {
	if h.cache != nil {
		if err := h.cache.Delete(ctx, tenantID, cache.RecordSetKey(clientID)); err != nil {
			slog.Warn("failed to invalidate record cache", "client_id", clientID, "error", err)
		}
	}

	if h.bus != nil {
		event := domain.RecordsChangedEvent{
			ClientID: clientID,
			Kind:     kind,
			RecordID: recordID,
		}
		payload, err := json.Marshal(event)
		if err == nil {
			if err := h.bus.Publish(ctx, tenantID, domain.TopicRecordsChanged, payload); err != nil {
				slog.Warn("failed to publish records.changed", "client_id", clientID, "error", err)
			}
		}
	}

	if h.tracker != nil {
		if err := h.tracker.Track(ctx, tenantID, clientID, domain.ActivityRecordChange); err != nil {
			slog.Warn("failed to track record change", "client_id", clientID, "error", err)
		}
	}
}

// ============================================================================
// FLAG RULE HANDLERS
// ============================================================================

// FlagRuleRequest is the request body for creating a flag rule.
type FlagRuleRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Expression  string  `json:"expression"`
	Severity    float64 `json:"severity"`
	Enabled     bool    `json:"enabled"`
}

// ListFlagRules returns all loaded flag rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via
// POST /flag-rules/reload.
func (h *Handler) ListFlagRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetFlagRule retrieves a flag rule by ID from the loaded engine rules.
func (h *Handler) GetFlagRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateFlagRule creates a new flag rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /flag-rules/reload to apply on other nodes.
func (h *Handler) CreateFlagRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FlagRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	// Create rule (global tenant)
	rule := &domain.FlagRule{
		ID:          req.ID,
		TenantID:    domain.GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Severity:    req.Severity,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by attempting to load
	if err := h.engine.LoadRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	// Persist to repository (global tenant ID)
	if err := h.repo.SaveFlagRule(ctx, domain.GlobalTenantID, rule); err != nil {
		slog.Error("failed to save flag rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	slog.Info("flag rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /flag-rules/reload to apply changes.",
	})
}

// DeleteFlagRule disables a flag rule and auto-reloads the engine.
func (h *Handler) DeleteFlagRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if err := h.repo.DeleteFlagRule(ctx, domain.GlobalTenantID, ruleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}
		slog.Error("failed to delete flag rule", "id", ruleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete rule",
		})
		return
	}

	// Auto-reload the engine after delete
	dbRules, err := h.repo.ListFlagRules(ctx, domain.GlobalTenantID)
	if err != nil {
		slog.Error("failed to reload rules after delete", "error", err)
	} else if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules after delete", "error", err)
	} else {
		slog.Info("rules auto-reloaded after delete", "count", len(dbRules))
	}

	slog.Info("flag rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Rule deleted and engine reloaded.",
	})
}

// ReloadFlagRules reloads all flag rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadFlagRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Load rules from database (global rules)
	dbRules, err := h.repo.ListFlagRules(ctx, domain.GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	// Reload into engine
	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}
