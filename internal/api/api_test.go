package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/opensource-finance/kestrel/internal/activity"
	"github.com/opensource-finance/kestrel/internal/assess"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/rules"
)

// createTestServer wires a server against a temp SQLite repository with the
// builtin rules seeded, mirroring production startup.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	lru := cache.NewLRUCache(100)
	tracker := activity.NewTracker(repo, lru)

	engine, err := rules.NewEngine(tracker.Getter(), 4)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	// Seed the builtin rules into the database and the engine, the same
	// way main does at startup
	ctx := context.Background()
	builtin := rules.BuiltinRules()
	for _, rule := range builtin {
		if err := repo.SaveFlagRule(ctx, domain.GlobalTenantID, rule); err != nil {
			t.Fatalf("failed to seed rule %s: %v", rule.ID, err)
		}
	}
	if err := engine.LoadRules(builtin); err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	reviewer := rules.NewReviewer(nil)
	assessor := assess.NewAssessor(repo, lru, nil, engine, reviewer, tracker, domain.ModeSuitability)

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	return NewServer(cfg, repo, lru, nil, engine, assessor, tracker, "test-v1")
}

// doRequest sends a JSON request with the default test tenant header.
func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-001")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response: %v: %s", err, rr.Body.String())
	}
}

// createTestClient creates a client through the API and returns its ID.
func createTestClient(t *testing.T, server *Server, name, dob string) string {
	t.Helper()

	rr := doRequest(t, server, http.MethodPost, "/api/v1/clients", domain.ClientRequest{
		Name:        name,
		DateOfBirth: dob,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var client domain.Client
	decodeBody(t, rr, &client)
	return client.ID
}

func TestClientEndpoints(t *testing.T) {
	server := createTestServer(t)

	var clientID string

	t.Run("CreateClient", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients", domain.ClientRequest{
			Name:        "Priya Shah",
			Email:       "priya@example.com",
			DateOfBirth: "1985-06-15",
		})

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var client domain.Client
		decodeBody(t, rr, &client)

		if client.ID == "" {
			t.Error("expected client id in response")
		}
		if client.TenantID != "tenant-001" {
			t.Errorf("expected tenant tenant-001, got %s", client.TenantID)
		}
		if client.Name != "Priya Shah" {
			t.Errorf("expected name Priya Shah, got %s", client.Name)
		}
		clientID = client.ID
	})

	t.Run("CreateClientMissingName", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients", domain.ClientRequest{
			Email: "anon@example.com",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("CreateClientInvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("GetClient", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients/"+clientID, nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var client domain.Client
		decodeBody(t, rr, &client)
		if client.Name != "Priya Shah" {
			t.Errorf("expected name Priya Shah, got %s", client.Name)
		}
		if client.DateOfBirth != "1985-06-15" {
			t.Errorf("expected dateOfBirth 1985-06-15, got %s", client.DateOfBirth)
		}
	})

	t.Run("GetClientNotFound", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients/no-such-client", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("ListClients", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Clients []*domain.Client `json:"clients"`
			Count   int              `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 client, got %d", resp.Count)
		}
	})

	t.Run("UpdateClient", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPut, "/api/v1/clients/"+clientID, domain.ClientRequest{
			Name:        "Priya Shah-Patel",
			Email:       "priya@example.com",
			DateOfBirth: "1985-06-15",
		})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var client domain.Client
		decodeBody(t, rr, &client)
		if client.Name != "Priya Shah-Patel" {
			t.Errorf("expected updated name, got %s", client.Name)
		}
	})

	t.Run("UpdateClientNotFound", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPut, "/api/v1/clients/no-such-client", domain.ClientRequest{
			Name: "Nobody",
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/"+clientID, nil)
		req.Header.Set("X-Tenant-ID", "other-tenant")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 for other tenant, got %d", rr.Code)
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
		// No X-Tenant-ID header

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("DeleteClient", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodDelete, "/api/v1/clients/"+clientID, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		rr = doRequest(t, server, http.MethodGet, "/api/v1/clients/"+clientID, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 after delete, got %d", rr.Code)
		}
	})
}

func TestRecordEndpoints(t *testing.T) {
	server := createTestServer(t)
	clientID := createTestClient(t, server, "Priya Shah", "1985-06-15")

	var incomeID string

	t.Run("AddIncome", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/incomes", IncomeRequest{
			Label:  "Salary",
			Amount: 5000,
		})

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var income domain.Income
		decodeBody(t, rr, &income)
		if income.ID == "" {
			t.Error("expected income id in response")
		}
		if income.Frequency != domain.FrequencyMonthly {
			t.Errorf("expected default frequency Monthly, got %s", income.Frequency)
		}
		incomeID = income.ID
	})

	t.Run("AddIncomeNegativeAmount", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/incomes", IncomeRequest{
			Label:  "Salary",
			Amount: -100,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("AddIncomeUnknownClient", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/no-such-client/incomes", IncomeRequest{
			Label:  "Salary",
			Amount: 5000,
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("AddExpenditure", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/expenditures", ExpenditureRequest{
			Label:     "Living costs",
			Amount:    36000,
			Frequency: domain.FrequencyAnnual,
		})

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var exp domain.Expenditure
		decodeBody(t, rr, &exp)
		if exp.Frequency != domain.FrequencyAnnual {
			t.Errorf("expected frequency Annual, got %s", exp.Frequency)
		}
	})

	t.Run("AddAsset", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/assets", AssetRequest{
			Type:  domain.AssetSavings,
			Value: 18000,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("AddAssetMissingType", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/assets", AssetRequest{
			Value: 1000,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("AddLiability", func(t *testing.T) {
		rate := 4.0
		term := 25.0
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/liabilities", LiabilityRequest{
			Type:         domain.LiabilityMortgage,
			Amount:       200000,
			InterestRate: &rate,
			TermYears:    &term,
		})

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		var liability domain.Liability
		decodeBody(t, rr, &liability)
		if liability.InterestRate == nil || *liability.InterestRate != 4.0 {
			t.Error("expected interestRate to round-trip")
		}
		if liability.TermYears == nil || *liability.TermYears != 25.0 {
			t.Error("expected termYears to round-trip")
		}
	})

	t.Run("AddGoal", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/goals", GoalRequest{
			Goal:         "Retirement at 60",
			TargetAmount: 500000,
			TimeHorizon:  22,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("AddGoalMissingText", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/goals", GoalRequest{
			TargetAmount: 1000,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ListIncomes", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients/"+clientID+"/incomes", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Incomes []domain.Income `json:"incomes"`
			Count   int             `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 income, got %d", resp.Count)
		}
	})

	t.Run("ListLiabilities", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients/"+clientID+"/liabilities", nil)

		var resp struct {
			Liabilities []domain.Liability `json:"liabilities"`
			Count       int                `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 liability, got %d", resp.Count)
		}
	})

	t.Run("GetMetrics", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients/"+clientID+"/metrics", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var metrics domain.FinancialMetrics
		decodeBody(t, rr, &metrics)

		if metrics.MonthlyIncome != 5000 {
			t.Errorf("expected monthly income 5000, got %v", metrics.MonthlyIncome)
		}
		if metrics.MonthlyExpenses != 3000 {
			t.Errorf("expected monthly expenses 3000, got %v", metrics.MonthlyExpenses)
		}
		if metrics.LiquidAssets != 18000 {
			t.Errorf("expected liquid assets 18000, got %v", metrics.LiquidAssets)
		}
		if metrics.TotalLiabilities != 200000 {
			t.Errorf("expected total liabilities 200000, got %v", metrics.TotalLiabilities)
		}
		if metrics.Age == 0 {
			t.Error("expected derived age from date of birth")
		}
		if metrics.YearsToRetirement == nil || *metrics.YearsToRetirement != 22 {
			t.Error("expected yearsToRetirement 22 from the retirement goal")
		}
	})

	t.Run("GetMetricsUnknownClient", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients/no-such-client/metrics", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("DeleteIncome", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodDelete, "/api/v1/clients/"+clientID+"/incomes/"+incomeID, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		// Deleting again reports not found
		rr = doRequest(t, server, http.MethodDelete, "/api/v1/clients/"+clientID+"/incomes/"+incomeID, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 on second delete, got %d", rr.Code)
		}

		rr = doRequest(t, server, http.MethodGet, "/api/v1/clients/"+clientID+"/incomes", nil)
		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 0 {
			t.Errorf("expected 0 incomes after delete, got %d", resp.Count)
		}
	})
}

func TestAssessmentEndpoints(t *testing.T) {
	server := createTestServer(t)
	clientID := createTestClient(t, server, "Avery Cole", "1985-06-15")

	// Healthy fixture: comfortable surplus, six months of expenses liquid
	seed := []struct {
		path string
		body interface{}
	}{
		{"/incomes", IncomeRequest{Label: "Salary", Amount: 5000}},
		{"/expenditures", ExpenditureRequest{Label: "Living costs", Amount: 3000}},
		{"/assets", AssetRequest{Type: domain.AssetSavings, Value: 18000}},
	}
	for _, s := range seed {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+s.path, s.body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("failed to seed %s: %d %s", s.path, rr.Code, rr.Body.String())
		}
	}

	topResponses := map[string]int{
		domain.QuestionKnowledge1: 4,
		domain.QuestionKnowledge2: 4,
		domain.QuestionAttitude1:  4,
		domain.QuestionAttitude2:  4,
		domain.QuestionCapacity1:  4,
		domain.QuestionCapacity2:  4,
		domain.QuestionTimeframe1: 4,
	}

	var assessmentID string

	t.Run("RunAssessment", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/assessments", domain.AssessmentRequest{
			Responses: topResponses,
		})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp AssessmentResponse
		decodeBody(t, rr, &resp)

		if resp.AssessmentID == "" {
			t.Error("expected assessmentId in response")
		}
		if resp.ClientID != clientID {
			t.Errorf("expected clientId %s, got %s", clientID, resp.ClientID)
		}
		if resp.Scores.Overall != 4.0 {
			t.Errorf("expected overall 4.0, got %v", resp.Scores.Overall)
		}
		if resp.Scores.Category != domain.RiskAggressive {
			t.Errorf("expected category Aggressive, got %s", resp.Scores.Category)
		}
		if resp.Scores.CapacityForLoss.Category != domain.CapacityHigh {
			t.Errorf("expected capacity High, got %s", resp.Scores.CapacityForLoss.Category)
		}
		if resp.Review.Priority != domain.ReviewPriorityNone {
			t.Errorf("expected priority none, got %s", resp.Review.Priority)
		}
		if len(resp.Reasons) != 0 {
			t.Errorf("expected no reasons for a clean profile, got %v", resp.Reasons)
		}
		if resp.Metadata.Version != "test-v1" {
			t.Errorf("expected version test-v1, got %s", resp.Metadata.Version)
		}
		if resp.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
		assessmentID = resp.AssessmentID
	})

	t.Run("GetAssessment", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/assessments/"+assessmentID, nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var assessment domain.Assessment
		decodeBody(t, rr, &assessment)
		if assessment.ID != assessmentID {
			t.Errorf("expected assessment %s, got %s", assessmentID, assessment.ID)
		}
		if assessment.Metadata.RulesEvaluated != 6 {
			t.Errorf("expected 6 rules evaluated, got %d", assessment.Metadata.RulesEvaluated)
		}
		if len(assessment.Flags) != 6 {
			t.Errorf("expected 6 stored flags, got %d", len(assessment.Flags))
		}
	})

	t.Run("GetAssessmentNotFound", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/assessments/no-such-assessment", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("ListClientAssessments", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients/"+clientID+"/assessments", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Assessments []*domain.Assessment `json:"assessments"`
			Count       int                  `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 1 {
			t.Errorf("expected 1 assessment, got %d", resp.Count)
		}
	})

	t.Run("ListAssessmentsBadDays", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/clients/"+clientID+"/assessments?days=zero", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("RunAssessmentUnknownClient", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/no-such-client/assessments", domain.AssessmentRequest{
			Responses: topResponses,
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("RunAssessmentInvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/"+clientID+"/assessments", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("RunAssessmentMissingResponses", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/assessments", map[string]interface{}{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/clients/"+clientID+"/assessments", domain.AssessmentRequest{
			Responses: topResponses,
		})

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestQuestionnaireEndpoint(t *testing.T) {
	server := createTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/v1/questionnaire", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Questions []domain.Question `json:"questions"`
		Count     int               `json:"count"`
	}
	decodeBody(t, rr, &resp)

	if resp.Count != 7 {
		t.Errorf("expected 7 questions, got %d", resp.Count)
	}
	for _, q := range resp.Questions {
		if len(q.Options) != 4 {
			t.Errorf("question %s: expected 4 options, got %d", q.ID, len(q.Options))
		}
	}
}

func TestFlagRuleEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("ListBuiltinRules", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/flag-rules", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Rules []*domain.FlagRule `json:"rules"`
			Count int                `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 6 {
			t.Errorf("expected 6 builtin rules, got %d", resp.Count)
		}
	})

	t.Run("GetRule", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/flag-rules/"+domain.FlagNegativeNetWorth, nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var rule domain.FlagRule
		decodeBody(t, rr, &rule)
		if rule.Severity != 2.0 {
			t.Errorf("expected severity 2.0, got %v", rule.Severity)
		}
	})

	t.Run("GetRuleNotFound", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodGet, "/api/v1/flag-rules/no-such-rule", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("CreateRule", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/flag-rules", FlagRuleRequest{
			ID:         "flag-heavy-debt-service",
			Name:       "Heavy Debt Service",
			Expression: "annual_debt_service > monthly_income * 6.0",
			Severity:   2.0,
			Enabled:    true,
		})

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		// The rule is loaded immediately on this node
		rr = doRequest(t, server, http.MethodGet, "/api/v1/flag-rules", nil)
		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 7 {
			t.Errorf("expected 7 rules after create, got %d", resp.Count)
		}
	})

	t.Run("CreateRuleInvalidExpression", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/flag-rules", FlagRuleRequest{
			ID:         "flag-broken",
			Name:       "Broken",
			Expression: "this is !!! not cel",
			Enabled:    true,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("CreateRuleMissingFields", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/flag-rules", FlagRuleRequest{
			Name: "No ID or expression",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ReloadRules", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodPost, "/api/v1/flag-rules/reload", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 7 {
			t.Errorf("expected 7 rules reloaded, got %d", resp.Count)
		}
	})

	t.Run("DeleteRule", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodDelete, "/api/v1/flag-rules/flag-heavy-debt-service", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		// The engine was reloaded without the deleted rule
		rr = doRequest(t, server, http.MethodGet, "/api/v1/flag-rules", nil)
		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, rr, &resp)
		if resp.Count != 6 {
			t.Errorf("expected 6 rules after delete, got %d", resp.Count)
		}
	})

	t.Run("DeleteRuleNotFound", func(t *testing.T) {
		rr := doRequest(t, server, http.MethodDelete, "/api/v1/flag-rules/no-such-rule", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]interface{}
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["version"] != "test-v1" {
			t.Errorf("expected version test-v1, got %v", resp["version"])
		}
		if resp["rulesLoaded"] != float64(6) {
			t.Errorf("expected 6 rules loaded, got %v", resp["rulesLoaded"])
		}
		if _, ok := resp["assessments"]; ok {
			t.Error("expected no assessment count without a tenant header")
		}
	})

	t.Run("StatsWithTenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		var resp map[string]interface{}
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if _, ok := resp["assessments"]; !ok {
			t.Error("expected assessment count with a tenant header")
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddlewareExtractsID", func(t *testing.T) {
		var capturedTenantID string

		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedTenantID = GetTenantID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "my-tenant-123")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedTenantID != "my-tenant-123" {
			t.Errorf("expected tenant ID 'my-tenant-123', got '%s'", capturedTenantID)
		}
	})

	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})

	t.Run("RateLimitRejectsBurst", func(t *testing.T) {
		handler := RateLimitMiddleware(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		withTenant := func() *http.Request {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := context.WithValue(req.Context(), TenantIDKey, "tenant-a")
			return req.WithContext(ctx)
		}

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, withTenant())
		if rr.Code != http.StatusOK {
			t.Fatalf("expected first request to pass, got %d", rr.Code)
		}

		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, withTenant())
		if rr.Code != http.StatusTooManyRequests {
			t.Errorf("expected status 429, got %d", rr.Code)
		}
	})

	t.Run("RateLimitIsPerTenant", func(t *testing.T) {
		handler := RateLimitMiddleware(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		request := func(tenantID string) int {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			ctx := context.WithValue(req.Context(), TenantIDKey, tenantID)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req.WithContext(ctx))
			return rr.Code
		}

		if code := request("tenant-a"); code != http.StatusOK {
			t.Fatalf("expected tenant-a to pass, got %d", code)
		}
		if code := request("tenant-a"); code != http.StatusTooManyRequests {
			t.Errorf("expected tenant-a to be limited, got %d", code)
		}
		// A different tenant has its own bucket
		if code := request("tenant-b"); code != http.StatusOK {
			t.Errorf("expected tenant-b to pass, got %d", code)
		}
	})

	t.Run("RateLimitDisabledWhenZero", func(t *testing.T) {
		handler := RateLimitMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 20; i++ {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("expected all requests to pass, got %d on request %d", rr.Code, i)
			}
		}
	})
}
