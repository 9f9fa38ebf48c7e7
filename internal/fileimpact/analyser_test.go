package fileimpact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foreman-sh/foreman/internal/fileimpact"
	"github.com/foreman-sh/foreman/internal/models"
)

func TestPredictMergesKeywordAndTemplatePredictions(t *testing.T) {
	a := fileimpact.NewAnalyser(nil)
	impacts := a.Predict("t1", models.CategoryFeature, "add retry backoff", "implement retry", nil)

	var sawFailurePkg bool
	for _, imp := range impacts {
		if imp.Path == "internal/failure/**" {
			sawFailurePkg = true
			assert.Equal(t, models.SourceAIEstimate, imp.Source)
		}
	}
	assert.True(t, sawFailurePkg, "expected a keyword-driven prediction for internal/failure/**")
}

func TestPredictUserDeclaredWinsOverTemplate(t *testing.T) {
	a := fileimpact.NewAnalyser(nil)
	declared := []models.FileImpact{
		{TaskID: "t1", Path: "internal/**/*.go", Operation: models.OpCreate, Confidence: 0.9, Source: models.SourceUserDeclared},
	}
	impacts := a.Predict("t1", models.CategoryFeature, "add a feature", "", declared)

	require.NotEmpty(t, impacts)
	for _, imp := range impacts {
		if imp.Key() == declared[0].Key() {
			assert.Equal(t, models.SourceUserDeclared, imp.Source)
			assert.GreaterOrEqual(t, imp.Confidence, 0.9)
		}
	}
}

func TestMergeAppliesAgreementBonus(t *testing.T) {
	predictions := []models.FileImpact{
		{TaskID: "t1", Path: "main.go", Operation: models.OpUpdate, Confidence: 0.4, Source: models.SourcePatternMatch},
		{TaskID: "t1", Path: "main.go", Operation: models.OpUpdate, Confidence: 0.5, Source: models.SourceAIEstimate},
	}
	merged := fileimpact.Merge(predictions)
	require.Len(t, merged, 1)
	assert.InDelta(t, 0.6, merged[0].Confidence, 0.001)
	assert.Equal(t, models.SourceAIEstimate, merged[0].Source)
}

func TestMergeSingleSourceNoBonus(t *testing.T) {
	predictions := []models.FileImpact{
		{TaskID: "t1", Path: "main.go", Operation: models.OpUpdate, Confidence: 0.4, Source: models.SourcePatternMatch},
	}
	merged := fileimpact.Merge(predictions)
	require.Len(t, merged, 1)
	assert.InDelta(t, 0.4, merged[0].Confidence, 0.001)
}
