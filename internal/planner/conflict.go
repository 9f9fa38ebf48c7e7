package planner

import "github.com/foreman-sh/foreman/internal/models"

// Conflicts reports whether two tasks' predicted file impacts collide:
// any path where at least one side writes is a conflict; two reads of
// the same path are not (§4.4 wave-splitting rule).
func Conflicts(a, b []models.FileImpact) bool {
	writesA := writePaths(a)
	writesB := writePaths(b)
	touchedA := touchedPaths(a)
	touchedB := touchedPaths(b)

	for path := range writesA {
		if _, ok := touchedB[path]; ok {
			return true
		}
	}
	for path := range writesB {
		if _, ok := touchedA[path]; ok {
			return true
		}
	}
	return false
}

func writePaths(impacts []models.FileImpact) map[string]struct{} {
	writes := make(map[string]struct{})
	for _, fi := range impacts {
		if fi.Operation.IsWrite() {
			writes[fi.Path] = struct{}{}
		}
	}
	return writes
}

func touchedPaths(impacts []models.FileImpact) map[string]struct{} {
	touched := make(map[string]struct{}, len(impacts))
	for _, fi := range impacts {
		touched[fi.Path] = struct{}{}
	}
	return touched
}
