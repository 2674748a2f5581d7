package domain

import (
	"time"
)

// Category is the display category downstream UIs use to split urgent
// findings from routine advice.
type Category string

const (
	CategoryAlert          Category = "alert"
	CategoryRecommendation Category = "recommendation"
)

// Priority is the urgency level attached to a generated item.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status is the lifecycle state of a persisted recommendation.
// The engine only ever creates pending records; done and dismissed
// transitions belong to the downstream UI.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusDismissed Status = "dismissed"
)

// GeneratedItem is the rendered, classified output of one (rule, hit) pair.
// It is the unit handed to the recommendation writer and is never persisted
// as-is.
type GeneratedItem struct {
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	ProducerID  string   `json:"producerId"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	DisplayType string   `json:"displayType"`
	RuleCode    string   `json:"ruleCode"`
	Status      Status   `json:"status"`
}

// Recommendation is a persisted alert or recommendation record.
type Recommendation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ProducerID  string    `json:"producerId"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	DisplayType string    `json:"displayType"`
	RuleCode    string    `json:"ruleCode"`
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidTransition reports whether a status change is one the downstream UI
// is allowed to make.
func ValidTransition(from, to Status) bool {
	return from == StatusPending && (to == StatusDone || to == StatusDismissed)
}
