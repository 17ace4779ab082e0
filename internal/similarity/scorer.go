package similarity

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Scorer computes a normalized dissimilarity score between two strings.
// 0.0 means identical, 1.0 means unrelated. Implementations must be pure
// and must return a value in [0,1] for any input, including empty strings.
type Scorer interface {
	Score(candidate, reference string) float64
	Name() string
}

// New returns the scorer registered under the given algorithm name, or the
// default Wagner-Fischer scorer if the name is unknown.
func New(algorithm string) Scorer {
	switch strings.ToLower(algorithm) {
	case "jaro-winkler", "jarowinkler":
		return JaroWinkler{}
	case "levenshtein":
		return Levenshtein{}
	default:
		return WagnerFischer{}
	}
}

// exact applies the shared short-circuit rules. The second return value is
// false when the fuzzy algorithm still needs to run.
func exact(candidate, reference string) (float64, bool) {
	if candidate == reference {
		return 0.0, true // covers empty vs empty
	}
	if candidate == "" || reference == "" {
		return 1.0, true // no fuzzy structure to compare against
	}
	return 0, false
}

// WagnerFischer scores by normalized edit distance with substitution cost 2,
// case-folded before comparison.
type WagnerFischer struct{}

func (WagnerFischer) Name() string { return "wagner-fischer" }

func (WagnerFischer) Score(candidate, reference string) float64 {
	if s, done := exact(candidate, reference); done {
		return s
	}
	a, b := strings.ToLower(candidate), strings.ToLower(reference)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	// Substitution cost 2 makes the worst case 2*maxLen, so halve it to
	// keep the score inside [0,1].
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	score := float64(dist) / float64(2*maxLen)
	return clamp(score)
}

// JaroWinkler scores as one minus Jaro-Winkler similarity.
type JaroWinkler struct{}

func (JaroWinkler) Name() string { return "jaro-winkler" }

func (JaroWinkler) Score(candidate, reference string) float64 {
	if s, done := exact(candidate, reference); done {
		return s
	}
	a, b := strings.ToLower(candidate), strings.ToLower(reference)
	sim := strutil.Similarity(a, b, metrics.NewJaroWinkler())
	return clamp(1.0 - sim)
}

// Levenshtein scores by plain Levenshtein distance normalized by the longer
// string's rune count.
type Levenshtein struct{}

func (Levenshtein) Name() string { return "levenshtein" }

func (Levenshtein) Score(candidate, reference string) float64 {
	if s, done := exact(candidate, reference); done {
		return s
	}
	a, b := strings.ToLower(candidate), strings.ToLower(reference)
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	dist := levenshtein.ComputeDistance(a, b)
	return clamp(float64(dist) / float64(maxLen))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
