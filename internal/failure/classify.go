// Package failure classifies task failures for retry purposes, computes
// backoff delays, and tracks consecutive-failure state to decide between
// retry, skip and escalation (§4.5).
package failure

import (
	"regexp"

	"github.com/foreman-sh/foreman/internal/models"
)

// Classification is the outcome of classifying one failure: Class drives
// retryability, Category is an independent analytics tag (adapted from
// the teacher's regex ErrorPattern library, internal/executor/patterns.go,
// generalized from three agent-routing buckets to the three-class
// transient/permanent/unknown retry taxonomy).
type Classification struct {
	Class      models.ErrorClass
	Category   models.ErrorCategory
	Suggestion string
}

type pattern struct {
	re         *regexp.Regexp
	class      models.ErrorClass
	category   models.ErrorCategory
	suggestion string
}

// knownPatterns is checked in order; the first match wins. Patterns are
// grouped by class the way the teacher groups them by agent-fixability.
var knownPatterns = []pattern{
	// Transient: worth retrying as-is, or after a backoff.
	{regexp.MustCompile(`(?i)connection reset|connection refused|EOF|i/o timeout`), models.ClassTransient, models.CategoryNetwork, "Network error, retry after backoff."},
	{regexp.MustCompile(`(?i)context deadline exceeded|timed out`), models.ClassTransient, models.CategoryTimeout, "Operation timed out, retry with backoff."},
	{regexp.MustCompile(`(?i)database is locked|SQLITE_BUSY`), models.ClassTransient, models.CategoryDatabase, "Database contention, retry after backoff."},
	{regexp.MustCompile(`(?i)too many open files|resource temporarily unavailable`), models.ClassTransient, models.CategoryProcess, "Resource exhaustion, retry after backoff."},

	// Permanent: retrying will not help without a code or config change.
	{regexp.MustCompile(`(?i)permission denied`), models.ClassPermanent, models.CategoryFilesystem, "Permission issue; requires manual intervention."},
	{regexp.MustCompile(`(?i)no space left on device`), models.ClassPermanent, models.CategoryFilesystem, "Disk full; requires manual intervention."},
	{regexp.MustCompile(`(?i)command not found`), models.ClassPermanent, models.CategoryProcess, "Missing tool; requires environment fix."},
	{regexp.MustCompile(`(?i)undefined: |cannot find symbol|syntax error|unexpected token`), models.ClassPermanent, models.CategoryCompilation, "Build error in produced code."},
	{regexp.MustCompile(`(?i)out of memory|cannot allocate memory`), models.ClassPermanent, models.CategoryMemory, "Memory exhaustion; requires manual intervention."},
	{regexp.MustCompile(`(?i)FAIL:|assertion failed|expected .* got`), models.ClassPermanent, models.CategoryTestFailure, "Test assertion failed; requires a code fix."},
}

// Classify inspects an error message (and the process exit code, if
// known) and returns its retry classification. An unmatched message
// classifies as unknown, general — the controller gives unknown errors
// exactly one grace retry (§4.5).
func Classify(message string, exitCode int) Classification {
	for _, p := range knownPatterns {
		if p.re.MatchString(message) {
			return Classification{Class: p.class, Category: p.category, Suggestion: p.suggestion}
		}
	}
	if exitCode == 124 { // conventional timeout exit code
		return Classification{Class: models.ClassTransient, Category: models.CategoryTimeout, Suggestion: "Process timed out, retry with backoff."}
	}
	return Classification{Class: models.ClassUnknown, Category: models.CategoryGeneral, Suggestion: "Unrecognized error; will be retried once before escalation."}
}
