package failure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foreman-sh/foreman/internal/failure"
	"github.com/foreman-sh/foreman/internal/models"
)

func TestControllerRetriesTransientBelowThreshold(t *testing.T) {
	c := failure.NewController(3)
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")

	d := c.Decide(task, failure.Classification{Class: models.ClassTransient, Category: models.CategoryNetwork}, nil)
	assert.Equal(t, failure.DecisionRetry, d.Kind)
	assert.Greater(t, d.Delay, int64(0))
}

func TestControllerSkipsPermanentBelowEscalationThresholds(t *testing.T) {
	c := failure.NewController(3)
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")

	d := c.Decide(task, failure.Classification{Class: models.ClassPermanent, Category: models.CategoryFilesystem}, nil)
	assert.Equal(t, failure.DecisionSkip, d.Kind)
}

func TestControllerEscalatesPermanentOnThirdIdenticalFailure(t *testing.T) {
	c := failure.NewController(10)
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")
	task.ConsecutiveFailures = 2

	recent := []models.FailureRecord{
		{Message: "TypeError: x is not a function"},
		{Message: "TypeError: x is not a function"},
		{Message: "TypeError: x is not a function"},
	}
	d := c.Decide(task, failure.Classification{Class: models.ClassPermanent, Category: models.CategoryCompilation}, recent)
	assert.Equal(t, failure.DecisionEscalate, d.Kind)
	assert.Equal(t, models.ReasonNoProgress, d.Reason)
}

func TestControllerEscalatesAtMaxConsecutiveFailures(t *testing.T) {
	c := failure.NewController(3)
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")
	task.ConsecutiveFailures = 2

	d := c.Decide(task, failure.Classification{Class: models.ClassTransient, Category: models.CategoryNetwork}, nil)
	assert.Equal(t, failure.DecisionEscalate, d.Kind)
	assert.Equal(t, models.ReasonMaxRetriesExceeded, d.Reason)
}

func TestControllerGivesUnknownOnlyOneGraceRetry(t *testing.T) {
	c := failure.NewController(5)
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")
	task.LastErrorClass = string(models.ClassUnknown)

	d := c.Decide(task, failure.Classification{Class: models.ClassUnknown, Category: models.CategoryGeneral}, nil)
	assert.Equal(t, failure.DecisionEscalate, d.Kind)
	assert.Equal(t, models.ReasonRepeatedFailure, d.Reason)
}

func TestControllerEscalatesOnNoProgress(t *testing.T) {
	c := failure.NewController(10)
	task := models.NewTask("t1", "T-1", "title", "desc", models.CategoryTask, models.EffortSmall, "")

	recent := []models.FailureRecord{
		{Message: "same error"},
		{Message: "same error"},
		{Message: "same error"},
	}
	d := c.Decide(task, failure.Classification{Class: models.ClassTransient, Category: models.CategoryNetwork}, recent)
	assert.Equal(t, failure.DecisionEscalate, d.Kind)
	assert.Equal(t, models.ReasonNoProgress, d.Reason)
}

func TestDelayGrowsExponentiallyAndCaps(t *testing.T) {
	d1 := failure.Delay(1)
	d5 := failure.Delay(5)
	assert.Less(t, d1, d5)
	assert.LessOrEqual(t, d5.Seconds(), 33.0)
}
