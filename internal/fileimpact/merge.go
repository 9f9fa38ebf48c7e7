package fileimpact

import "github.com/foreman-sh/foreman/internal/models"

// multiSourceBonus is added to the winning confidence when two or more
// independent sources agree on the same (path, operation) key (§4.2 step
// 2 merge rule).
const multiSourceBonus = 0.1

// Merge combines predictions for the same task from multiple sources
// into one prediction per (path, operation) key: the highest-confidence
// source wins, ties break by source priority, and agreement across
// sources earns a confidence bonus.
func Merge(predictions []models.FileImpact) []models.FileImpact {
	byKey := make(map[string]models.FileImpact)
	agreementCount := make(map[string]int)

	for _, p := range predictions {
		key := p.Key()
		agreementCount[key]++

		current, exists := byKey[key]
		if !exists {
			byKey[key] = p
			continue
		}
		if p.Confidence > current.Confidence ||
			(p.Confidence == current.Confidence && p.Source.HigherPriorityThan(current.Source)) {
			byKey[key] = p
		}
	}

	merged := make([]models.FileImpact, 0, len(byKey))
	for key, p := range byKey {
		if agreementCount[key] >= 2 {
			p.Confidence = models.ClampConfidence(p.Confidence + multiSourceBonus)
		}
		merged = append(merged, p)
	}
	return merged
}
