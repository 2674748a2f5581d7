package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agrosight/agrosight/internal/domain"
)

// Orchestrator drives one generation run: load catalog, evaluate every
// active rule, render and classify the hits, write the results and report
// a summary. Runs are stateless batch jobs; all cross-run coordination
// lives in the storage layer's uniqueness constraint, so overlapping runs
// are safe by construction.
type Orchestrator struct {
	sys       domain.SystemContext
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	evaluator domain.ConditionEvaluator
	writer    *Writer

	maxWorkers  int
	ruleTimeout time.Duration
	catalogTTL  time.Duration
}

// NewOrchestrator creates a run orchestrator. cache and bus may be nil.
func NewOrchestrator(sys domain.SystemContext, repo domain.Repository, cache domain.Cache, bus domain.EventBus, evaluator domain.ConditionEvaluator, cfg domain.EngineConfig) *Orchestrator {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	ruleTimeout := cfg.RuleTimeout
	if ruleTimeout <= 0 {
		ruleTimeout = 15 * time.Second
	}

	return &Orchestrator{
		sys:         sys,
		repo:        repo,
		cache:       cache,
		bus:         bus,
		evaluator:   evaluator,
		writer:      NewWriter(repo, cache, sys),
		maxWorkers:  maxWorkers,
		ruleTimeout: ruleTimeout,
		catalogTTL:  time.Minute,
	}
}

// ruleOutcome is the result of evaluating one rule.
type ruleOutcome struct {
	report domain.RuleReport
	items  []domain.GeneratedItem
}

// Run executes one full generation pass and returns its summary.
//
// Only a catalog load failure is fatal. A failing rule is skipped and the
// siblings proceed; a failing write drops that item only. Cancelling ctx
// stops issuing new rule evaluations but lets in-flight writes complete so
// the summary never undercounts persisted items.
func (o *Orchestrator) Run(ctx context.Context) (*domain.RunSummary, error) {
	start := time.Now()
	runID := uuid.New().String()

	rules, err := o.loadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	slog.Info("run started",
		"run_id", runID,
		"service", o.sys.Service,
		"rules_count", len(rules),
	)

	outcomes := make([]ruleOutcome, len(rules))
	sem := make(chan struct{}, o.maxWorkers)
	var wg sync.WaitGroup

	for i, rule := range rules {
		// Stop issuing new evaluations once the caller cancels.
		if ctx.Err() != nil {
			outcomes[i] = skippedOutcome(rule, ctx.Err())
			continue
		}

		wg.Add(1)
		go func(idx int, r *domain.Rule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[idx] = o.evaluateRule(ctx, r)
		}(i, rule)
	}

	wg.Wait()

	summary := &domain.RunSummary{
		RunID:          runID,
		RulesEvaluated: len(rules),
		Timestamp:      time.Now().UTC(),
		Rules:          make([]domain.RuleReport, 0, len(rules)),
	}

	var items []domain.GeneratedItem
	for _, outcome := range outcomes {
		summary.Rules = append(summary.Rules, outcome.report)
		items = append(items, outcome.items...)
	}

	summary.TotalGenerated = len(items)
	for _, item := range items {
		if item.Category == domain.CategoryAlert {
			summary.AlertsGenerated++
		} else {
			summary.RecommendationsGenerated++
		}
	}

	// In-flight writes run to completion even under cancellation.
	written, stats, writeErr := o.writer.WriteAll(context.WithoutCancel(ctx), items)
	if writeErr != nil {
		slog.Warn("run completed with write failures",
			"run_id", runID,
			"failed", stats.Failed,
		)
	}
	summary.Written = stats.Written
	summary.DuplicatesSkipped = stats.Duplicates

	o.publishResults(ctx, written, summary)

	summary.DurationMs = time.Since(start).Milliseconds()

	slog.Info("run completed",
		"run_id", runID,
		"rules_evaluated", summary.RulesEvaluated,
		"total_generated", summary.TotalGenerated,
		"alerts_generated", summary.AlertsGenerated,
		"recommendations_generated", summary.RecommendationsGenerated,
		"written", summary.Written,
		"duplicates_skipped", summary.DuplicatesSkipped,
		"duration_ms", summary.DurationMs,
	)

	return summary, nil
}

// loadCatalog reads the active rule catalog, cache-aside when a cache is
// configured.
func (o *Orchestrator) loadCatalog(ctx context.Context) ([]*domain.Rule, error) {
	if o.cache != nil {
		if cached, err := o.cache.GetCatalog(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	rules, err := o.repo.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		_ = o.cache.SetCatalog(ctx, rules, o.catalogTTL)
	}

	return rules, nil
}

// evaluateRule evaluates one rule under the per-rule timeout and turns its
// hits into classified items. Failures are recorded on the report, never
// propagated to sibling rules.
func (o *Orchestrator) evaluateRule(ctx context.Context, rule *domain.Rule) ruleOutcome {
	evalCtx, cancel := context.WithTimeout(ctx, o.ruleTimeout)
	defer cancel()

	hits, err := o.evaluator.Evaluate(evalCtx, rule)
	if err != nil {
		evalErr := &domain.RuleEvaluationError{RuleCode: rule.Code, Cause: err}
		slog.Error("rule evaluation failed",
			"rule_code", rule.Code,
			"error", err,
		)
		return skippedOutcome(rule, evalErr)
	}

	outcome := ruleOutcome{
		report: domain.RuleReport{
			Code:       rule.Code,
			Name:       rule.Name,
			Severity:   rule.Severity,
			ActionType: rule.ActionType,
			Hits:       len(hits),
		},
	}

	for _, hit := range hits {
		if hit.ProducerID == "" {
			slog.Warn("hit without producer_id dropped", "rule_code", rule.Code)
			continue
		}
		outcome.items = append(outcome.items, BuildItem(rule, hit))
	}
	outcome.report.Generated = len(outcome.items)

	return outcome
}

func skippedOutcome(rule *domain.Rule, err error) ruleOutcome {
	return ruleOutcome{
		report: domain.RuleReport{
			Code:       rule.Code,
			Name:       rule.Name,
			Severity:   rule.Severity,
			ActionType: rule.ActionType,
			Skipped:    true,
			Error:      err.Error(),
		},
	}
}

// publishResults emits created records and the run summary on the event
// bus for downstream consumers (notification dispatch, dashboards).
func (o *Orchestrator) publishResults(ctx context.Context, written []*domain.Recommendation, summary *domain.RunSummary) {
	if o.bus == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	for _, rec := range written {
		payload, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		topic := domain.TopicRecommendationCreated
		if rec.Category == domain.CategoryAlert {
			topic = domain.TopicAlertCreated
		}
		if err := o.bus.Publish(ctx, topic, payload); err != nil {
			slog.Warn("failed to publish recommendation event",
				"rule_code", rec.RuleCode,
				"topic", topic,
				"error", err,
			)
		}
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := o.bus.Publish(ctx, domain.TopicRunCompleted, payload); err != nil {
		slog.Warn("failed to publish run summary", "run_id", summary.RunID, "error", err)
	}
}
