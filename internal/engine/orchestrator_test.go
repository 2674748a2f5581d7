package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/agrosight/agrosight/internal/domain"
)

// evaluatorFunc adapts a function to the ConditionEvaluator port.
type evaluatorFunc func(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
	return f(ctx, rule)
}

// memRepo is an in-memory Repository covering what the orchestrator and
// writer touch. It enforces the same pending-uniqueness the real store does.
type memRepo struct {
	domain.Repository

	mu      sync.Mutex
	rules   []*domain.Rule
	recs    []*domain.Recommendation
	listErr error

	// failProducer makes inserts for that producer fail, to exercise
	// partial write failures.
	failProducer string
}

func (m *memRepo) ListActiveRules(ctx context.Context) ([]*domain.Rule, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rules, nil
}

func (m *memRepo) InsertRecommendation(ctx context.Context, rec *domain.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ProducerID == m.failProducer {
		return errors.New("simulated write failure")
	}
	for _, existing := range m.recs {
		if existing.RuleCode == rec.RuleCode && existing.ProducerID == rec.ProducerID && existing.Status == domain.StatusPending {
			return domain.ErrDuplicateRecommendation
		}
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memRepo) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func testSystem() domain.SystemContext {
	return domain.SystemContext{Service: "agrosight-test", RunBy: "scheduler"}
}

func newTestOrchestrator(repo *memRepo, eval domain.ConditionEvaluator) *Orchestrator {
	return NewOrchestrator(testSystem(), repo, nil, nil, eval, domain.EngineConfig{MaxWorkers: 4})
}

func emergenceRule() *domain.Rule {
	return &domain.Rule{
		Code:            "R-EMERGENCE-LOW",
		Name:            "Taux de levée faible",
		Condition:       "unused",
		MessageTemplate: "Levée faible: {crop_name} chez {producer_name}",
		Severity:        domain.SeverityHigh,
		ActionType:      domain.ActionAlert,
		IsActive:        true,
	}
}

func TestRunGeneratesAlert(t *testing.T) {
	repo := &memRepo{rules: []*domain.Rule{emergenceRule()}}
	eval := evaluatorFunc(func(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
		return []domain.Hit{{ProducerID: "P1", CropName: "Maize"}}, nil
	})

	summary, err := newTestOrchestrator(repo, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.RulesEvaluated != 1 {
		t.Errorf("expected 1 rule evaluated, got %d", summary.RulesEvaluated)
	}
	if summary.TotalGenerated != 1 || summary.AlertsGenerated != 1 {
		t.Errorf("expected 1 alert generated, got %+v", summary)
	}
	if summary.Written != 1 {
		t.Errorf("expected 1 written, got %d", summary.Written)
	}
	if len(summary.Rules) != 1 || summary.Rules[0].Code != "R-EMERGENCE-LOW" {
		t.Fatalf("per-rule breakdown missing: %+v", summary.Rules)
	}
	if summary.Rules[0].Hits != 1 || summary.Rules[0].Generated != 1 {
		t.Errorf("rule report counts wrong: %+v", summary.Rules[0])
	}

	rec := repo.recs[0]
	if rec.Category != domain.CategoryAlert || rec.Priority != domain.PriorityHigh {
		t.Errorf("classification wrong: %+v", rec)
	}
	if rec.Status != domain.StatusPending {
		t.Errorf("expected pending record, got %q", rec.Status)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	repo := &memRepo{rules: []*domain.Rule{emergenceRule()}}
	eval := evaluatorFunc(func(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
		return []domain.Hit{{ProducerID: "P1", CropName: "Maize"}}, nil
	})
	orch := newTestOrchestrator(repo, eval)

	first, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if first.Written != 1 {
		t.Errorf("first run: expected 1 written, got %d", first.Written)
	}
	// The re-run still reports the would-generate item but persists nothing.
	if second.TotalGenerated != 1 {
		t.Errorf("second run: expected 1 generated, got %d", second.TotalGenerated)
	}
	if second.Written != 0 || second.DuplicatesSkipped != 1 {
		t.Errorf("second run: expected duplicate suppression, got written=%d duplicates=%d", second.Written, second.DuplicatesSkipped)
	}
	if repo.pendingCount() != 1 {
		t.Errorf("expected 1 persisted record after two runs, got %d", repo.pendingCount())
	}
}

func TestRunIsolatesFailingRule(t *testing.T) {
	broken := &domain.Rule{Code: "R-BROKEN", Name: "Broken", Severity: domain.SeverityMedium, ActionType: domain.ActionRecommendation}
	repo := &memRepo{rules: []*domain.Rule{broken, emergenceRule()}}
	eval := evaluatorFunc(func(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
		if rule.Code == "R-BROKEN" {
			return nil, fmt.Errorf("malformed condition")
		}
		return []domain.Hit{{ProducerID: "P1"}}, nil
	})

	summary, err := newTestOrchestrator(repo, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.RulesEvaluated != 2 {
		t.Errorf("expected rules_evaluated=2 despite failure, got %d", summary.RulesEvaluated)
	}
	if summary.TotalGenerated != 1 || summary.Written != 1 {
		t.Errorf("healthy rule's items missing: %+v", summary)
	}

	var brokenReport *domain.RuleReport
	for i := range summary.Rules {
		if summary.Rules[i].Code == "R-BROKEN" {
			brokenReport = &summary.Rules[i]
		}
	}
	if brokenReport == nil || !brokenReport.Skipped || brokenReport.Error == "" {
		t.Errorf("expected skipped report for broken rule, got %+v", brokenReport)
	}
}

func TestRunZeroHitRule(t *testing.T) {
	quiet := &domain.Rule{Code: "R-QUIET", Name: "Quiet", Severity: domain.SeverityInfo, ActionType: domain.ActionNotification}
	repo := &memRepo{rules: []*domain.Rule{quiet}}
	eval := evaluatorFunc(func(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
		return nil, nil
	})

	summary, err := newTestOrchestrator(repo, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("zero hits must not fail the run: %v", err)
	}

	if summary.TotalGenerated != 0 || summary.AlertsGenerated != 0 || summary.RecommendationsGenerated != 0 {
		t.Errorf("zero-hit rule must contribute nothing: %+v", summary)
	}
	if summary.Rules[0].Skipped {
		t.Error("zero hits must not mark the rule skipped")
	}
}

func TestRunCatalogUnavailable(t *testing.T) {
	repo := &memRepo{listErr: errors.New("connection refused")}
	eval := evaluatorFunc(func(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
		t.Fatal("no rule must be evaluated without a catalog")
		return nil, nil
	})

	summary, err := newTestOrchestrator(repo, eval).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when catalog load fails")
	}
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
	if summary != nil {
		t.Error("expected no summary on catalog failure")
	}
}

func TestRunDropsHitWithoutProducer(t *testing.T) {
	repo := &memRepo{rules: []*domain.Rule{emergenceRule()}}
	eval := evaluatorFunc(func(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
		return []domain.Hit{{ProducerID: ""}, {ProducerID: "P2"}}, nil
	})

	summary, err := newTestOrchestrator(repo, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Rules[0].Hits != 2 || summary.Rules[0].Generated != 1 {
		t.Errorf("expected 2 hits, 1 generated: %+v", summary.Rules[0])
	}
}

func TestRunCancellationStopsNewEvaluations(t *testing.T) {
	var rules []*domain.Rule
	for i := 0; i < 20; i++ {
		r := emergenceRule()
		r.Code = fmt.Sprintf("R-%03d", i)
		rules = append(rules, r)
	}
	repo := &memRepo{rules: rules}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eval := evaluatorFunc(func(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
		return []domain.Hit{{ProducerID: "P1"}}, nil
	})

	summary, err := newTestOrchestrator(repo, eval).Run(ctx)
	if err != nil {
		t.Fatalf("cancellation must not fail the run outright: %v", err)
	}

	// Every rule that was never dispatched shows up skipped; the summary
	// still covers the full catalog.
	if summary.RulesEvaluated != len(rules) {
		t.Errorf("expected full catalog in summary, got %d", summary.RulesEvaluated)
	}
	skipped := 0
	for _, r := range summary.Rules {
		if r.Skipped {
			skipped++
		}
	}
	if skipped != len(rules) {
		t.Errorf("expected all rules skipped under pre-cancelled context, got %d", skipped)
	}
}
