package engine

import (
	"context"

	"github.com/agrosight/agrosight/internal/domain"
)

// SQLEvaluator is the production condition executor: it passes a rule's
// condition straight to the data store's query engine and maps the result
// rows to hits. It interprets nothing itself.
type SQLEvaluator struct {
	repo domain.Repository
}

// NewSQLEvaluator creates a pass-through evaluator backed by the repository.
func NewSQLEvaluator(repo domain.Repository) *SQLEvaluator {
	return &SQLEvaluator{repo: repo}
}

// Evaluate runs the rule's condition against the dataset.
// Zero rows is a successful evaluation with zero hits.
func (e *SQLEvaluator) Evaluate(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
	return e.repo.EvaluateCondition(ctx, rule.Condition)
}
