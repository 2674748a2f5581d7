// Package domain defines the core types and interfaces for Agrosight.
package domain

import (
	"context"
	"time"
)

// Severity expresses how serious a rule's finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityInfo     Severity = "info"
)

// ActionType expresses how a rule author wants a finding surfaced.
type ActionType string

const (
	ActionAlert          ActionType = "alert"
	ActionNotification   ActionType = "notification"
	ActionWarning        ActionType = "warning"
	ActionRecommendation ActionType = "recommendation"
)

// Rule is a declarative monitoring condition defined once and reused across runs.
// Code is immutable after creation: it is part of the idempotency key for
// generated recommendations.
type Rule struct {
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Condition       string     `json:"condition"`
	MessageTemplate string     `json:"messageTemplate"`
	Severity        Severity   `json:"severity"`
	ActionType      ActionType `json:"actionType"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt,omitempty"`
}

// Hit is one match produced by evaluating a rule's condition.
// Hits are ephemeral: they exist only long enough to be rendered and
// classified into a GeneratedItem.
type Hit struct {
	ProducerID   string `json:"producerId"`
	ProducerName string `json:"producerName,omitempty"`
	CropName     string `json:"cropName,omitempty"`
	PlotName     string `json:"plotName,omitempty"`

	// Fields carries rule-specific context columns (thresholds, measured
	// values) keyed by their condition column name.
	Fields map[string]string `json:"fields,omitempty"`
}

// ConditionEvaluator evaluates a rule's condition against the current farm
// dataset. It is the engine's port onto the data store's query capability:
// the engine never interprets conditions itself.
//
// A condition matching nothing is a successful evaluation with zero hits.
// Implementations must honor ctx cancellation and deadlines.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, rule *Rule) ([]Hit, error)
}
