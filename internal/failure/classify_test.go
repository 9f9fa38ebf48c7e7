package failure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foreman-sh/foreman/internal/failure"
	"github.com/foreman-sh/foreman/internal/models"
)

func TestClassifyTransientNetworkError(t *testing.T) {
	c := failure.Classify("dial tcp: connection refused", 1)
	assert.Equal(t, models.ClassTransient, c.Class)
	assert.Equal(t, models.CategoryNetwork, c.Category)
}

func TestClassifyPermanentPermissionError(t *testing.T) {
	c := failure.Classify("open /etc/shadow: permission denied", 1)
	assert.Equal(t, models.ClassPermanent, c.Class)
	assert.Equal(t, models.CategoryFilesystem, c.Category)
}

func TestClassifyUnknownFallsBackToGraceRetry(t *testing.T) {
	c := failure.Classify("something bizarre happened", 1)
	assert.Equal(t, models.ClassUnknown, c.Class)
	assert.Equal(t, models.CategoryGeneral, c.Category)
}

func TestClassifyExitCode124IsTimeout(t *testing.T) {
	c := failure.Classify("", 124)
	assert.Equal(t, models.ClassTransient, c.Class)
	assert.Equal(t, models.CategoryTimeout, c.Category)
}
