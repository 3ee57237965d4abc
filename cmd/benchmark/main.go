// Benchmark tool for load-testing Kestrel's assessment pipeline.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -clients 200
//
// This tool:
//   1. Generates synthetic clients with randomized financial records
//   2. Seeds them through the Kestrel HTTP API and runs one risk
//      assessment per client
//   3. Reports latency, throughput, and the distribution of risk
//      categories, review priorities and review reasons
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ClientRequest is the Kestrel API payload for creating a client
type ClientRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// RecordRequest is the payload for income and expenditure records
type RecordRequest struct {
	Label     string  `json:"label"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
}

// AssetRequest is the payload for asset records
type AssetRequest struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// LiabilityRequest is the payload for liability records
type LiabilityRequest struct {
	Type         string   `json:"type"`
	Amount       float64  `json:"amount"`
	InterestRate *float64 `json:"interestRate,omitempty"`
	TermYears    *float64 `json:"termYears,omitempty"`
}

// AssessmentResult is the subset of the assessment response the benchmark
// cares about
type AssessmentResult struct {
	AssessmentID string `json:"assessmentId"`
	Scores       struct {
		Overall  float64 `json:"overall"`
		Category string  `json:"category"`
	} `json:"scores"`
	Review struct {
		Score    float64 `json:"score"`
		Priority string  `json:"priority"`
	} `json:"review"`
	Reasons []string `json:"reasons"`
}

// Question mirrors one questionnaire entry
type Question struct {
	ID      string `json:"id"`
	Options []struct {
		Score int `json:"score"`
	} `json:"options"`
}

// Profile is one synthetic client with records and questionnaire answers
type Profile struct {
	Client      ClientRequest
	Income      float64 // monthly
	Expenses    float64 // monthly
	Savings     float64
	Investments float64
	Mortgage    *LiabilityRequest
	CreditCard  float64
	Responses   map[string]int
}

// Metrics tracks benchmark results
type Metrics struct {
	TotalClients     int64
	TotalAssessments int64
	TotalErrors      int64
	NeedsReview      int64
	AssessTimeMs     int64

	mu         sync.Mutex
	byCategory map[string]int
	byPriority map[string]int
	byReason   map[string]int
}

func (m *Metrics) record(result *AssessmentResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCategory[result.Scores.Category]++
	m.byPriority[result.Review.Priority]++
	for _, reason := range result.Reasons {
		m.byReason[reason]++
	}
}

func main() {
	// Parse flags
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	clients := flag.Int("clients", 200, "Number of synthetic clients to assess")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	seed := flag.Int64("seed", 42, "Random seed for profile generation")
	verbose := flag.Bool("verbose", false, "Print each assessment result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║         KESTREL BENCHMARK - Assessment Pipeline Load          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nKestrel URL: %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Clients:     %d\n", *clients)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Seed:        %d\n", *seed)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  cd kestrel && go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	// Fetch the questionnaire so generated responses track the live catalog
	questions, err := fetchQuestionnaire(*baseURL, *tenantID)
	if err != nil {
		fmt.Printf("ERROR: Failed to fetch questionnaire: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Questionnaire loaded (%d questions)\n", len(questions))

	// Generate synthetic profiles
	rng := rand.New(rand.NewSource(*seed))
	profiles := generateProfiles(rng, *clients, questions)
	fmt.Printf("✓ Generated %d synthetic profiles\n", len(profiles))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(profiles, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func fetchQuestionnaire(baseURL, tenantID string) ([]Question, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/questionnaire", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var envelope struct {
		Questions []Question `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.Questions, nil
}

func generateProfiles(rng *rand.Rand, n int, questions []Question) []Profile {
	profiles := make([]Profile, 0, n)

	for i := 0; i < n; i++ {
		age := 25 + rng.Intn(46) // 25-70
		dob := time.Now().AddDate(-age, 0, -rng.Intn(364)).Format("2006-01-02")

		income := 2500 + rng.Float64()*10000
		expenses := income * (0.5 + rng.Float64()*0.7) // 50%-120% of income
		savings := expenses * rng.Float64() * 9        // 0-9 months of cover

		p := Profile{
			Client: ClientRequest{
				Name:        fmt.Sprintf("Synthetic Client %04d", i+1),
				Email:       fmt.Sprintf("client%04d@benchmark.test", i+1),
				DateOfBirth: dob,
			},
			Income:    income,
			Expenses:  expenses,
			Savings:   savings,
			Responses: make(map[string]int, len(questions)),
		}

		if rng.Float64() < 0.5 {
			p.Investments = rng.Float64() * 150000
		}
		if rng.Float64() < 0.4 {
			rate := 3 + rng.Float64()*3
			term := float64(10 + rng.Intn(21))
			p.Mortgage = &LiabilityRequest{
				Type:         "Mortgage",
				Amount:       80000 + rng.Float64()*400000,
				InterestRate: &rate,
				TermYears:    &term,
			}
		}
		if rng.Float64() < 0.3 {
			p.CreditCard = rng.Float64() * 15000
		}

		for _, q := range questions {
			if len(q.Options) == 0 {
				continue
			}
			p.Responses[q.ID] = q.Options[rng.Intn(len(q.Options))].Score
		}

		profiles = append(profiles, p)
	}

	return profiles
}

func runBenchmark(profiles []Profile, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{
		byCategory: make(map[string]int),
		byPriority: make(map[string]int),
		byReason:   make(map[string]int),
	}

	// Create work channel
	work := make(chan Profile, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for profile := range work {
				clientID, err := seedClient(client, baseURL, tenantID, profile)
				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: seed %s -> %v\n", profile.Client.Name, err)
					}
					continue
				}
				atomic.AddInt64(&metrics.TotalClients, 1)

				start := time.Now()
				result, err := runAssessment(client, baseURL, tenantID, clientID, profile.Responses)
				elapsed := time.Since(start).Milliseconds()

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: assess %s -> %v\n", profile.Client.Name, err)
					}
					continue
				}

				atomic.AddInt64(&metrics.TotalAssessments, 1)
				atomic.AddInt64(&metrics.AssessTimeMs, elapsed)
				if result.Review.Priority != "" && result.Review.Priority != "none" {
					atomic.AddInt64(&metrics.NeedsReview, 1)
				}
				metrics.record(result)

				if verbose {
					fmt.Printf("✓ %-22s | Overall: %.2f | %-22s | Review: %-6s | Flags: %d | %4dms\n",
						profile.Client.Name,
						result.Scores.Overall,
						result.Scores.Category,
						result.Review.Priority,
						len(result.Reasons),
						elapsed,
					)
				}
			}
		}()
	}

	// Send work
	for _, profile := range profiles {
		work <- profile
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

// seedClient creates the client plus its financial records and returns the
// new client's ID.
func seedClient(client *http.Client, baseURL, tenantID string, profile Profile) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := postJSON(client, baseURL+"/api/v1/clients", tenantID, profile.Client, &created); err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create client: empty id")
	}

	base := baseURL + "/api/v1/clients/" + created.ID

	if err := postJSON(client, base+"/incomes", tenantID, RecordRequest{
		Label: "Salary", Amount: profile.Income, Frequency: "Monthly",
	}, nil); err != nil {
		return "", fmt.Errorf("add income: %w", err)
	}
	if err := postJSON(client, base+"/expenditures", tenantID, RecordRequest{
		Label: "Living costs", Amount: profile.Expenses, Frequency: "Monthly",
	}, nil); err != nil {
		return "", fmt.Errorf("add expenditure: %w", err)
	}
	if profile.Savings > 0 {
		if err := postJSON(client, base+"/assets", tenantID, AssetRequest{
			Type: "Savings", Value: profile.Savings,
		}, nil); err != nil {
			return "", fmt.Errorf("add savings: %w", err)
		}
	}
	if profile.Investments > 0 {
		if err := postJSON(client, base+"/assets", tenantID, AssetRequest{
			Type: "Investments", Value: profile.Investments,
		}, nil); err != nil {
			return "", fmt.Errorf("add investments: %w", err)
		}
	}
	if profile.Mortgage != nil {
		if err := postJSON(client, base+"/liabilities", tenantID, profile.Mortgage, nil); err != nil {
			return "", fmt.Errorf("add mortgage: %w", err)
		}
	}
	if profile.CreditCard > 0 {
		if err := postJSON(client, base+"/liabilities", tenantID, LiabilityRequest{
			Type: "Credit Card", Amount: profile.CreditCard,
		}, nil); err != nil {
			return "", fmt.Errorf("add credit card: %w", err)
		}
	}

	return created.ID, nil
}

func runAssessment(client *http.Client, baseURL, tenantID, clientID string, responses map[string]int) (*AssessmentResult, error) {
	var result AssessmentResult
	url := baseURL + "/api/v1/clients/" + clientID + "/assessments"
	if err := postJSON(client, url, tenantID, map[string]any{"responses": responses}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func postJSON(client *http.Client, url, tenantID string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 PIPELINE STATISTICS\n")
	fmt.Printf("   Clients Seeded:   %d\n", m.TotalClients)
	fmt.Printf("   Assessments Run:  %d\n", m.TotalAssessments)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 RISK CATEGORY DISTRIBUTION\n")
	categoryOrder := []string{
		"Very Conservative",
		"Conservative",
		"Moderate Conservative",
		"Moderate",
		"Moderate Aggressive",
		"Aggressive",
	}
	printDistribution(categoryOrder, m.byCategory, m.TotalAssessments)

	fmt.Printf("\n🚩 REVIEW PRIORITY DISTRIBUTION\n")
	priorityOrder := []string{"none", "low", "medium", "high"}
	printDistribution(priorityOrder, m.byPriority, m.TotalAssessments)
	if m.TotalAssessments > 0 {
		reviewRate := float64(m.NeedsReview) / float64(m.TotalAssessments) * 100
		fmt.Printf("   Needs Review:      %d / %d (%.2f%%)\n", m.NeedsReview, m.TotalAssessments, reviewRate)
	}

	fmt.Printf("\n🔍 TOP REVIEW REASONS\n")
	printTopReasons(m.byReason, 10)

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalAssessments > 0 {
		avgMs := float64(m.AssessTimeMs) / float64(m.TotalAssessments)
		aps := float64(m.TotalAssessments) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms (assessment call only)\n", avgMs)
		fmt.Printf("   Throughput:       %.2f assessments/sec (including seeding)\n", aps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if m.TotalAssessments > 0 {
		reviewRate := float64(m.NeedsReview) / float64(m.TotalAssessments)
		switch {
		case reviewRate >= 0.75:
			fmt.Println("   ⚠️  Most assessments land in the review queue - rules may be too strict")
		case reviewRate >= 0.25:
			fmt.Println("   ✅ Healthy mix - a meaningful share of assessments is flagged for review")
		default:
			fmt.Println("   ✅ Quiet queue - only a small share of assessments needs review")
		}
	}
	if m.TotalErrors > 0 {
		fmt.Printf("   ⚠️  %d requests failed - check the Kestrel logs\n", m.TotalErrors)
	}

	fmt.Println()
}

func printDistribution(order []string, counts map[string]int, total int64) {
	for _, key := range order {
		count := counts[key]
		pct := float64(0)
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		bar := strings.Repeat("#", int(pct/2))
		fmt.Printf("   %-22s %6d  (%5.1f%%)  %s\n", key, count, pct, bar)
	}
	// Anything outside the known labels (never expected, but shown if present)
	for key, count := range counts {
		known := false
		for _, k := range order {
			if k == key {
				known = true
				break
			}
		}
		if !known {
			fmt.Printf("   %-22s %6d\n", key, count)
		}
	}
}

func printTopReasons(reasons map[string]int, limit int) {
	if len(reasons) == 0 {
		fmt.Println("   (no review reasons raised)")
		return
	}

	type reasonCount struct {
		reason string
		count  int
	}
	sorted := make([]reasonCount, 0, len(reasons))
	for reason, count := range reasons {
		sorted = append(sorted, reasonCount{reason, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].reason < sorted[j].reason
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	for _, rc := range sorted {
		fmt.Printf("   %6d  %s\n", rc.count, rc.reason)
	}
}
