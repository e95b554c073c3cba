// Package similarity scores how close two party names are, used to match names
// reported by the tax service against locally known records.
package similarity

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold minimal score (percent) accepted by BestMatch callers by default.
const DefaultThreshold = 70.0

// EditDistance number of single rune insertions, deletions and substitutions
// turning a into b. Case sensitive.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity case insensitive score in [0, 100], rounded to two decimal places.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	d := EditDistance(a, b)

	score := 100 * float64(maxLen-d) / float64(maxLen)
	return math.Round(score*100) / 100
}

type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Match struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
}

// BestMatch highest scoring candidate at or above threshold. On ties the
// earliest candidate wins.
func BestMatch(target string, candidates []Candidate, threshold float64) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, c := range candidates {
		score := Similarity(target, c.Name)
		if score < threshold {
			continue
		}
		if !found || score > best.Score {
			best = Match{Candidate: c, Score: score}
			found = true
		}
	}
	return best, found
}
