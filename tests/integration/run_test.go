//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Agrosight engine.
//
// These tests exercise the complete pipeline over HTTP:
//
//	Rule catalog → Condition → Hits → Render + Classify → Write → Summary
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The server must be running and freshly seeded:
//
//	go run cmd/seed/main.go -db ./agrosight.db
//	go run cmd/agrosight/main.go
//
// Expected seed rules: R-EMERGENCE-LOW, R-SOIL-DRY, R-PEST-PRESSURE,
// R-FERTILIZATION-DUE active and R-INACTIVE-DEMO inactive.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

func baseURL() string {
	if url := os.Getenv("AGROSIGHT_TEST_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

var client = &http.Client{Timeout: 30 * time.Second}

type runSummary struct {
	Success                  bool   `json:"success"`
	RunID                    string `json:"runId"`
	RulesEvaluated           int    `json:"rulesEvaluated"`
	TotalGenerated           int    `json:"totalGenerated"`
	AlertsGenerated          int    `json:"alertsGenerated"`
	RecommendationsGenerated int    `json:"recommendationsGenerated"`
	Written                  int    `json:"written"`
	DuplicatesSkipped        int    `json:"duplicatesSkipped"`
}

type recommendation struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	ProducerID  string `json:"producerId"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	DisplayType string `json:"displayType"`
	RuleCode    string `json:"ruleCode"`
	Status      string `json:"status"`
}

func triggerRun(t *testing.T) runSummary {
	t.Helper()

	resp, err := client.Post(baseURL()+"/runs", "application/json", nil)
	if err != nil {
		t.Fatalf("failed to trigger run: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from POST /runs, got %d", resp.StatusCode)
	}

	var summary runSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode run summary: %v", err)
	}
	return summary
}

func listRecommendations(t *testing.T, status string) []recommendation {
	t.Helper()

	url := baseURL() + "/recommendations"
	if status != "" {
		url += "?status=" + status
	}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("failed to list recommendations: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Recommendations []recommendation `json:"recommendations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode recommendations: %v", err)
	}
	return body.Recommendations
}

func TestHealthy(t *testing.T) {
	resp, err := client.Get(baseURL() + "/health")
	if err != nil {
		t.Fatalf("server not reachable at %s: %v", baseURL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", resp.StatusCode)
	}
}

func TestFullGenerationRun(t *testing.T) {
	summary := triggerRun(t)

	if !summary.Success {
		t.Fatal("expected success true")
	}
	if summary.RulesEvaluated != 4 {
		t.Errorf("expected 4 active rules evaluated, got %d", summary.RulesEvaluated)
	}
	if summary.TotalGenerated == 0 {
		t.Fatal("expected generated items from the seed dataset")
	}
	// R-SOIL-DRY is critical, so at least one alert
	if summary.AlertsGenerated == 0 {
		t.Error("expected at least one alert")
	}
	if summary.RecommendationsGenerated == 0 {
		t.Error("expected at least one recommendation")
	}
}

func TestRerunIsIdempotent(t *testing.T) {
	first := triggerRun(t)
	second := triggerRun(t)

	if second.Written != 0 {
		t.Errorf("expected 0 written on immediate re-run, got %d", second.Written)
	}
	if second.DuplicatesSkipped != first.TotalGenerated {
		t.Errorf("expected %d duplicates skipped, got %d", first.TotalGenerated, second.DuplicatesSkipped)
	}
	// Generation itself is unaffected by the duplicate suppression
	if second.TotalGenerated != first.TotalGenerated {
		t.Errorf("expected %d generated on re-run, got %d", first.TotalGenerated, second.TotalGenerated)
	}
}

func TestGeneratedContent(t *testing.T) {
	triggerRun(t)

	recs := listRecommendations(t, "pending")
	if len(recs) == 0 {
		t.Fatal("expected pending recommendations")
	}

	byRule := make(map[string]recommendation)
	for _, rec := range recs {
		byRule[rec.RuleCode] = rec
	}

	t.Run("CriticalBecomesAlert", func(t *testing.T) {
		rec, ok := byRule["R-SOIL-DRY"]
		if !ok {
			t.Fatal("expected a record for R-SOIL-DRY")
		}
		if rec.Category != "alert" {
			t.Errorf("expected category alert, got %s", rec.Category)
		}
		if rec.Priority != "urgent" {
			t.Errorf("expected priority urgent, got %s", rec.Priority)
		}
		if want := "🚨 ALERTE [R-SOIL-DRY] Sol trop sec"; rec.Title != want {
			t.Errorf("expected title %q, got %q", want, rec.Title)
		}
	})

	t.Run("RoutineBecomesRecommendation", func(t *testing.T) {
		rec, ok := byRule["R-EMERGENCE-LOW"]
		if !ok {
			t.Fatal("expected a record for R-EMERGENCE-LOW")
		}
		if rec.Category != "recommendation" {
			t.Errorf("expected category recommendation, got %s", rec.Category)
		}
		if rec.Priority != "high" {
			t.Errorf("expected priority high, got %s", rec.Priority)
		}
		if want := "💡 RECOMMANDATION [R-EMERGENCE-LOW] Taux de levée faible"; rec.Title != want {
			t.Errorf("expected title %q, got %q", want, rec.Title)
		}
	})

	t.Run("PlaceholdersRendered", func(t *testing.T) {
		rec := byRule["R-EMERGENCE-LOW"]
		if bytes.Contains([]byte(rec.Message), []byte("{")) {
			t.Errorf("unreplaced placeholder in message: %q", rec.Message)
		}
	})

	t.Run("InactiveRuleNeverRuns", func(t *testing.T) {
		if _, ok := byRule["R-INACTIVE-DEMO"]; ok {
			t.Error("inactive rule produced output")
		}
	})
}

func TestStatusTransitionAndRegeneration(t *testing.T) {
	triggerRun(t)

	recs := listRecommendations(t, "pending")
	if len(recs) == 0 {
		t.Fatal("expected pending recommendations")
	}
	target := recs[0]

	// Transition to done
	body, _ := json.Marshal(map[string]string{"status": "done"})
	resp, err := client.Post(
		fmt.Sprintf("%s/recommendations/%s/status", baseURL(), target.ID),
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		t.Fatalf("failed to update status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from status update, got %d", resp.StatusCode)
	}

	// The condition still matches, so the next run recreates the pair
	summary := triggerRun(t)
	if summary.Written != 1 {
		t.Errorf("expected exactly 1 written after resolving one record, got %d", summary.Written)
	}
}

func TestLatestRun(t *testing.T) {
	want := triggerRun(t)

	resp, err := client.Get(baseURL() + "/runs/latest")
	if err != nil {
		t.Fatalf("failed to get latest run: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /runs/latest, got %d", resp.StatusCode)
	}

	var got runSummary
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode latest run: %v", err)
	}
	if got.RunID != want.RunID {
		t.Errorf("expected latest run %s, got %s", want.RunID, got.RunID)
	}
}
