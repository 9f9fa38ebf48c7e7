package fileimpact

import "github.com/foreman-sh/foreman/internal/models"

// Analyser predicts the file impacts of a task by combining category
// templates, keyword heuristics, any user-declared impacts, and the
// learned accuracy of past patterns, then merging the results (§4.2).
type Analyser struct {
	learning *LearningStore
}

// NewAnalyser wires an analyser to its learning store; learning may be
// nil, in which case predictions fall back to their source confidence
// unadjusted.
func NewAnalyser(learning *LearningStore) *Analyser {
	return &Analyser{learning: learning}
}

// Predict returns the final, merged set of file impact predictions for a
// task. userDeclared are impacts the task's author stated explicitly
// (source=user_declared) and always take precedence on conflicts.
func (a *Analyser) Predict(taskID string, category models.Category, title, description string, userDeclared []models.FileImpact) []models.FileImpact {
	var all []models.FileImpact
	all = append(all, userDeclared...)
	all = append(all, predictFromTemplates(taskID, category)...)
	all = append(all, predictFromKeywords(taskID, title, description)...)

	if a.learning != nil {
		all = a.learning.adjustConfidence(all, category)
	}

	return Merge(all)
}
