// Package engine implements the rule evaluation and recommendation
// generation pipeline: condition execution, message rendering,
// classification, idempotent persistence and run orchestration.
package engine

import (
	"fmt"

	"github.com/agrosight/agrosight/internal/domain"
)

// Title prefixes derived from the display category. Prefix and category
// must never disagree; TitlePrefix is the single source for both.
const (
	PrefixAlert          = "🚨 ALERTE"
	PrefixRecommendation = "💡 RECOMMANDATION"
)

// Classify maps a rule's declared severity and action type onto the two
// independent fields downstream systems expect: a display category and a
// priority level.
//
// A rule surfaces as an alert when the author marks it urgent through
// either signal: action type "alert" or severity "critical".
func Classify(rule *domain.Rule) (domain.Category, domain.Priority) {
	category := domain.CategoryRecommendation
	if rule.ActionType == domain.ActionAlert || rule.Severity == domain.SeverityCritical {
		category = domain.CategoryAlert
	}
	return category, PriorityFor(rule.Severity)
}

// PriorityFor maps a severity onto a priority level. Total over all inputs:
// unrecognized severities fall back to medium rather than misclassifying
// silently.
func PriorityFor(severity domain.Severity) domain.Priority {
	switch severity {
	case domain.SeverityCritical:
		return domain.PriorityUrgent
	case domain.SeverityHigh:
		return domain.PriorityHigh
	case domain.SeverityMedium:
		return domain.PriorityMedium
	case domain.SeverityInfo:
		return domain.PriorityLow
	default:
		return domain.PriorityMedium
	}
}

// TitlePrefix returns the title prefix for a display category.
func TitlePrefix(category domain.Category) string {
	if category == domain.CategoryAlert {
		return PrefixAlert
	}
	return PrefixRecommendation
}

// DisplayType maps an action type onto the filtering bucket the dashboard
// uses. Independent of category and priority; total over all inputs.
func DisplayType(actionType domain.ActionType) string {
	switch actionType {
	case domain.ActionAlert:
		return "alerte"
	case domain.ActionWarning:
		return "avertissement"
	case domain.ActionNotification:
		return "information"
	case domain.ActionRecommendation:
		return "fertilisation"
	default:
		return "fertilisation"
	}
}

// BuildItem turns one (rule, hit) pair into a rendered, classified item
// ready for the writer. Items are always created pending.
func BuildItem(rule *domain.Rule, hit domain.Hit) domain.GeneratedItem {
	category, priority := Classify(rule)

	return domain.GeneratedItem{
		Title:       fmt.Sprintf("%s [%s] %s", TitlePrefix(category), rule.Code, rule.Name),
		Message:     Render(rule.MessageTemplate, hit),
		ProducerID:  hit.ProducerID,
		Category:    category,
		Priority:    priority,
		DisplayType: DisplayType(rule.ActionType),
		RuleCode:    rule.Code,
		Status:      domain.StatusPending,
	}
}
