// Package fileimpact predicts which files a task will touch, merging
// predictions from category templates, keyword heuristics and the
// learned accuracy of past patterns (§4.2).
package fileimpact

import "github.com/foreman-sh/foreman/internal/models"

// templatePrediction is a category-scoped default prediction before it is
// bound to a task id.
type templatePrediction struct {
	glob       string
	operation  models.ImpactOperation
	confidence float64
}

// categoryTemplates holds the baseline glob predictions for each task
// category; these are the lowest-confidence source (pattern_match) and
// always fire, giving the merge step something to combine with stronger
// sources.
var categoryTemplates = map[models.Category][]templatePrediction{
	models.CategoryFeature: {
		{"internal/**/*.go", models.OpCreate, 0.3},
		{"internal/**/*_test.go", models.OpCreate, 0.25},
	},
	models.CategoryBug: {
		{"internal/**/*.go", models.OpUpdate, 0.35},
		{"internal/**/*_test.go", models.OpUpdate, 0.2},
	},
	models.CategoryDocumentation: {
		{"**/*.md", models.OpUpdate, 0.4},
		{"docs/**", models.OpUpdate, 0.3},
	},
	models.CategoryTest: {
		{"**/*_test.go", models.OpCreate, 0.45},
	},
	models.CategoryInfra: {
		{"**/*.yml", models.OpUpdate, 0.3},
		{"**/*.yaml", models.OpUpdate, 0.3},
		{"Dockerfile", models.OpUpdate, 0.25},
	},
	models.CategoryRefactor: {
		{"internal/**/*.go", models.OpUpdate, 0.35},
	},
	models.CategoryTask: {
		{"internal/**/*.go", models.OpUpdate, 0.2},
	},
}

// predictFromTemplates returns the baseline pattern_match predictions for
// a task's category.
func predictFromTemplates(taskID string, category models.Category) []models.FileImpact {
	templates := categoryTemplates[category]
	predictions := make([]models.FileImpact, 0, len(templates))
	for _, tmpl := range templates {
		predictions = append(predictions, models.FileImpact{
			TaskID:     taskID,
			Path:       tmpl.glob,
			Operation:  tmpl.operation,
			Confidence: tmpl.confidence,
			Source:     models.SourcePatternMatch,
		})
	}
	return predictions
}
