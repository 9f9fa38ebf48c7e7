// Package grouping clusters related tasks into grouping suggestions by
// combining file-impact overlap, dependency adjacency, semantic
// similarity of free text, category match and declared component tags
// (§4.3).
package grouping

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
)

// minTokenLength excludes short, low-signal tokens ("a", "to", "is") from
// the semantic similarity set.
const minTokenLength = 3

// tokenize splits text into lowercase word-boundary tokens using a
// Unicode-aware segmenter, keeping only tokens longer than
// minTokenLength characters.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	seg := words.FromString(text)
	for seg.Next() {
		tok := strings.ToLower(strings.TrimSpace(seg.Value()))
		if len([]rune(tok)) <= minTokenLength {
			continue
		}
		if !containsLetter(tok) {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

func containsLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// jaccardSimilarity returns |A∩B| / |A∪B| for two token sets in [0,1];
// two empty sets are defined as dissimilar (0), not a division by zero.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// normalizePath canonicalises a file-impact path for overlap comparison by
// stripping glob stars and a trailing slash, so "internal/grouping/*" and
// "internal/grouping/" agree with a bare "internal/grouping" (§4.3 file
// overlap).
func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	path = strings.ReplaceAll(path, "*", "")
	return strings.TrimSuffix(path, "/")
}

// fileOverlapScore is the file-overlap dimension of the pairwise score:
// |normalised(A) ∩ normalised(B)| / max(|A|,|B|), not the classic Jaccard
// union denominator — a task that touches every file the other touches,
// plus more, still counts as full overlap from the smaller task's side
// (§4.3).
func fileOverlapScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, p := range a {
		setA[normalizePath(p)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, p := range b {
		setB[normalizePath(p)] = struct{}{}
	}
	intersection := 0
	for p := range setA {
		if _, ok := setB[p]; ok {
			intersection++
		}
	}
	denom := len(setA)
	if len(setB) > denom {
		denom = len(setB)
	}
	return float64(intersection) / float64(denom)
}

// semanticSimilarity scores two tasks' combined title+description text
// by Jaccard token overlap — the "semantic" dimension of §4.3's weighted
// score (approximated without a language model, per the no-LLM-in-the-
// hot-path design decision).
func semanticSimilarity(titleA, descA, titleB, descB string) float64 {
	a := tokenize(titleA + " " + descA)
	b := tokenize(titleB + " " + descB)
	return jaccardSimilarity(a, b)
}
