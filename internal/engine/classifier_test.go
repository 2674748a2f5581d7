package engine

import (
	"strings"
	"testing"

	"github.com/agrosight/agrosight/internal/domain"
)

func TestPriorityMapping(t *testing.T) {
	cases := []struct {
		severity domain.Severity
		want     domain.Priority
	}{
		{domain.SeverityCritical, domain.PriorityUrgent},
		{domain.SeverityHigh, domain.PriorityHigh},
		{domain.SeverityMedium, domain.PriorityMedium},
		{domain.SeverityInfo, domain.PriorityLow},
		{domain.Severity("unknown"), domain.PriorityMedium},
		{domain.Severity(""), domain.PriorityMedium},
	}

	for _, tc := range cases {
		if got := PriorityFor(tc.severity); got != tc.want {
			t.Errorf("PriorityFor(%q) = %q, want %q", tc.severity, got, tc.want)
		}
	}
}

func TestClassifyCategory(t *testing.T) {
	t.Run("AlertActionType", func(t *testing.T) {
		rule := &domain.Rule{Severity: domain.SeverityHigh, ActionType: domain.ActionAlert}
		category, priority := Classify(rule)
		if category != domain.CategoryAlert {
			t.Errorf("expected alert, got %q", category)
		}
		if priority != domain.PriorityHigh {
			t.Errorf("expected high priority, got %q", priority)
		}
	})

	t.Run("CriticalSeverityForcesAlert", func(t *testing.T) {
		// Mismatched signals: the author said "recommendation" but also
		// "critical". Critical wins for the category.
		rule := &domain.Rule{Severity: domain.SeverityCritical, ActionType: domain.ActionRecommendation}
		category, priority := Classify(rule)
		if category != domain.CategoryAlert {
			t.Errorf("expected alert for critical severity, got %q", category)
		}
		if priority != domain.PriorityUrgent {
			t.Errorf("expected urgent priority, got %q", priority)
		}
	})

	t.Run("RoutineRecommendation", func(t *testing.T) {
		rule := &domain.Rule{Severity: domain.SeverityInfo, ActionType: domain.ActionNotification}
		category, priority := Classify(rule)
		if category != domain.CategoryRecommendation {
			t.Errorf("expected recommendation, got %q", category)
		}
		if priority != domain.PriorityLow {
			t.Errorf("expected low priority, got %q", priority)
		}
	})
}

func TestTitlePrefixNeverDisagreesWithCategory(t *testing.T) {
	severities := []domain.Severity{
		domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium,
		domain.SeverityInfo, domain.Severity("bogus"),
	}
	actionTypes := []domain.ActionType{
		domain.ActionAlert, domain.ActionNotification, domain.ActionWarning,
		domain.ActionRecommendation, domain.ActionType("bogus"),
	}

	for _, sev := range severities {
		for _, at := range actionTypes {
			rule := &domain.Rule{Code: "R-X", Name: "X", Severity: sev, ActionType: at}
			category, _ := Classify(rule)
			item := BuildItem(rule, domain.Hit{ProducerID: "P1"})

			wantAlert := category == domain.CategoryAlert
			gotAlert := strings.HasPrefix(item.Title, PrefixAlert)
			if wantAlert != gotAlert {
				t.Errorf("severity=%q action=%q: category %q but title %q", sev, at, category, item.Title)
			}
			if item.Category != category {
				t.Errorf("severity=%q action=%q: BuildItem category %q != Classify %q", sev, at, item.Category, category)
			}
		}
	}
}

func TestDisplayType(t *testing.T) {
	cases := []struct {
		actionType domain.ActionType
		want       string
	}{
		{domain.ActionAlert, "alerte"},
		{domain.ActionWarning, "avertissement"},
		{domain.ActionNotification, "information"},
		{domain.ActionRecommendation, "fertilisation"},
		{domain.ActionType("unknown"), "fertilisation"},
	}

	for _, tc := range cases {
		if got := DisplayType(tc.actionType); got != tc.want {
			t.Errorf("DisplayType(%q) = %q, want %q", tc.actionType, got, tc.want)
		}
	}
}

func TestBuildItem(t *testing.T) {
	rule := &domain.Rule{
		Code:            "R-EMERGENCE-LOW",
		Name:            "Taux de levée faible",
		MessageTemplate: "Levée faible pour {crop_name} chez {producer_name}",
		Severity:        domain.SeverityHigh,
		ActionType:      domain.ActionAlert,
	}
	hit := domain.Hit{ProducerID: "P1", ProducerName: "Moussa Diallo", CropName: "Maize"}

	item := BuildItem(rule, hit)

	if !strings.HasPrefix(item.Title, PrefixAlert) {
		t.Errorf("expected alert title prefix, got %q", item.Title)
	}
	if !strings.Contains(item.Title, "R-EMERGENCE-LOW") {
		t.Errorf("expected rule code in title, got %q", item.Title)
	}
	if !strings.Contains(item.Message, "Maize") {
		t.Errorf("expected crop name in message, got %q", item.Message)
	}
	if item.Priority != domain.PriorityHigh {
		t.Errorf("expected high priority, got %q", item.Priority)
	}
	if item.Status != domain.StatusPending {
		t.Errorf("expected pending status, got %q", item.Status)
	}
	if item.RuleCode != rule.Code || item.ProducerID != "P1" {
		t.Errorf("traceability fields wrong: %+v", item)
	}
}
