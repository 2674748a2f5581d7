package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/agrosight/agrosight/internal/dataset"
	"github.com/agrosight/agrosight/internal/domain"
)

// RowSource provides the dataset rows a CEL condition is evaluated over.
type RowSource interface {
	Rows(ctx context.Context) ([]dataset.Row, error)
}

// CELEvaluator evaluates rule conditions written as CEL boolean expressions
// against an in-memory dataset snapshot, one row at a time. It is the
// condition executor for the standalone profile and the test substrate.
type CELEvaluator struct {
	mu       sync.RWMutex
	env      *cel.Env
	source   RowSource
	programs map[string]compiledCondition
}

type compiledCondition struct {
	condition string
	program   cel.Program
}

// NewCELEvaluator creates a CEL-based condition evaluator.
func NewCELEvaluator(source RowSource) (*CELEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("producer_id", cel.StringType),
		cel.Variable("producer_name", cel.StringType),
		cel.Variable("crop_name", cel.StringType),
		cel.Variable("plot_name", cel.StringType),
		cel.Variable("metric", cel.StringType),
		cel.Variable("value", cel.DoubleType),
		cel.Variable("age_days", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &CELEvaluator{
		env:      env,
		source:   source,
		programs: make(map[string]compiledCondition),
	}, nil
}

// Evaluate compiles the rule's condition (cached per rule code) and runs it
// against every snapshot row, returning one hit per matching row.
func (e *CELEvaluator) Evaluate(ctx context.Context, rule *domain.Rule) ([]domain.Hit, error) {
	program, err := e.programFor(rule)
	if err != nil {
		return nil, err
	}

	rows, err := e.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset snapshot: %w", err)
	}

	var hits []domain.Hit
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, _, err := program.Eval(map[string]any{
			"producer_id":   row.ProducerID,
			"producer_name": row.ProducerName,
			"crop_name":     row.CropName,
			"plot_name":     row.PlotName,
			"metric":        row.Metric,
			"value":         row.Value,
			"age_days":      row.AgeDays,
		})
		if err != nil {
			return nil, fmt.Errorf("condition evaluation error: %w", err)
		}

		if matched, ok := out.(types.Bool); ok && bool(matched) {
			hits = append(hits, domain.Hit{
				ProducerID:   row.ProducerID,
				ProducerName: row.ProducerName,
				CropName:     row.CropName,
				PlotName:     row.PlotName,
				Fields: map[string]string{
					"metric": row.Metric,
					"value":  strconv.FormatFloat(row.Value, 'f', -1, 64),
				},
			})
		}
	}

	return hits, nil
}

// programFor returns the compiled program for a rule, recompiling when the
// stored condition text changed.
func (e *CELEvaluator) programFor(rule *domain.Rule) (cel.Program, error) {
	e.mu.RLock()
	cached, ok := e.programs[rule.Code]
	e.mu.RUnlock()
	if ok && cached.condition == rule.Condition {
		return cached.program, nil
	}

	ast, issues := e.env.Compile(rule.Condition)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile condition for rule %s: %w", rule.Code, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: condition must return bool, got %s", rule.Code, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.Code, err)
	}

	e.mu.Lock()
	e.programs[rule.Code] = compiledCondition{condition: rule.Condition, program: program}
	e.mu.Unlock()

	return program, nil
}
