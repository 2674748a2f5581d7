package domain

import (
	"errors"
	"fmt"
)

// ErrCatalogUnavailable means the rule catalog could not be read. It is the
// only failure that aborts an entire run: without rules there is nothing
// meaningful to report.
var ErrCatalogUnavailable = errors.New("rule catalog unavailable")

// ErrDuplicateRecommendation means a pending recommendation already exists
// for the same (rule_code, producer_id) pair. It is a normal outcome of an
// idempotent re-run, not a fault.
var ErrDuplicateRecommendation = errors.New("duplicate pending recommendation")

// RuleEvaluationError marks a single rule's condition as having failed to
// evaluate. The rule is skipped; sibling rules proceed.
type RuleEvaluationError struct {
	RuleCode string
	Cause    error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule %s evaluation failed: %v", e.RuleCode, e.Cause)
}

func (e *RuleEvaluationError) Unwrap() error { return e.Cause }

// WriteError marks a single generated item as having failed to persist.
// The item is dropped from the written count; remaining writes proceed.
type WriteError struct {
	RuleCode   string
	ProducerID string
	Cause      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed for rule %s producer %s: %v", e.RuleCode, e.ProducerID, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }
