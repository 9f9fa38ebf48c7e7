package fileimpact

import (
	"strings"

	"github.com/foreman-sh/foreman/internal/models"
)

// keywordRule maps a title/description keyword to a glob it implies, at
// the ai_estimate confidence tier — stronger than a bare category
// template but weaker than a user-declared or validated impact.
type keywordRule struct {
	keyword    string
	glob       string
	operation  models.ImpactOperation
	confidence float64
}

var keywordRules = []keywordRule{
	{"api", "internal/api/**", models.OpUpdate, 0.5},
	{"route", "internal/api/**", models.OpUpdate, 0.45},
	{"endpoint", "internal/api/**", models.OpUpdate, 0.45},
	{"migration", "migrations/**", models.OpCreate, 0.55},
	{"schema", "internal/store/schema.sql", models.OpUpdate, 0.5},
	{"config", "internal/config/**", models.OpUpdate, 0.45},
	{"cli", "internal/cmd/**", models.OpUpdate, 0.45},
	{"command", "internal/cmd/**", models.OpUpdate, 0.4},
	{"chat", "internal/chat/**", models.OpUpdate, 0.45},
	{"telegram", "internal/telegram/**", models.OpUpdate, 0.5},
	{"planner", "internal/planner/**", models.OpUpdate, 0.5},
	{"scheduling", "internal/planner/**", models.OpUpdate, 0.45},
	{"retry", "internal/failure/**", models.OpUpdate, 0.45},
	{"backoff", "internal/failure/**", models.OpUpdate, 0.5},
	{"grouping", "internal/grouping/**", models.OpUpdate, 0.5},
	{"cluster", "internal/grouping/**", models.OpUpdate, 0.4},
	{"logging", "internal/logger/**", models.OpUpdate, 0.45},
	{"log", "internal/logger/**", models.OpUpdate, 0.3},
}

// predictFromKeywords scans a task's title and description for known
// keywords and returns the implied predictions. Each keyword matches at
// most once per task.
func predictFromKeywords(taskID, title, description string) []models.FileImpact {
	text := strings.ToLower(title + " " + description)
	var predictions []models.FileImpact
	for _, rule := range keywordRules {
		if strings.Contains(text, rule.keyword) {
			predictions = append(predictions, models.FileImpact{
				TaskID:     taskID,
				Path:       rule.glob,
				Operation:  rule.operation,
				Confidence: rule.confidence,
				Source:     models.SourceAIEstimate,
			})
		}
	}
	return predictions
}
