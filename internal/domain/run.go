package domain

import (
	"time"
)

// RunSummary describes one invocation of the run orchestrator.
type RunSummary struct {
	RunID                    string       `json:"runId"`
	RulesEvaluated           int          `json:"rulesEvaluated"`
	TotalGenerated           int          `json:"totalGenerated"`
	AlertsGenerated          int          `json:"alertsGenerated"`
	RecommendationsGenerated int          `json:"recommendationsGenerated"`
	Written                  int          `json:"written"`
	DuplicatesSkipped        int          `json:"duplicatesSkipped"`
	Timestamp                time.Time    `json:"timestamp"`
	DurationMs               int64        `json:"durationMs"`
	Rules                    []RuleReport `json:"rules"`
}

// RuleReport is the per-rule breakdown inside a RunSummary.
type RuleReport struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Severity   Severity   `json:"severity"`
	ActionType ActionType `json:"actionType"`
	Hits       int        `json:"hits"`
	Generated  int        `json:"generated"`
	Skipped    bool       `json:"skipped,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// SystemContext identifies the elevated service principal a run executes
// under. The engine receives no end-user identity; every run is attributed
// to this context explicitly rather than to ambient global state.
type SystemContext struct {
	Service string `json:"service"`
	RunBy   string `json:"runBy"`
}
