package matching

import (
	"strings"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
)

const (
	// DefaultThreshold is the minimum confidence for a hit to be committed.
	DefaultThreshold = 0.5

	titleWeight  = 0.7
	artistWeight = 0.3
)

// Score computes the confidence that a candidate is the same song as the original identity.
//
// Returns 0 when the original artist or title is empty.
func Score(origArtist, origTitle, candArtist, candTitle string) float64 {
	if strings.TrimSpace(origArtist) == "" || strings.TrimSpace(origTitle) == "" {
		return 0
	}

	title := Similarity(origTitle, candTitle)
	artist := Similarity(origArtist, candArtist)
	return clamp(titleWeight*title + artistWeight*artist)
}

// Similarity is the case-insensitive Levenshtein ratio of two strings in [0,1].
func Similarity(a, b string) float64 {
	fold := cases.Fold()
	a = fold.String(strings.TrimSpace(a))
	b = fold.String(strings.TrimSpace(b))

	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	sim, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return clamp(float64(sim))
}

// Accept reports whether a confidence clears the threshold. The boundary is inclusive.
func Accept(confidence, threshold float64) bool {
	return confidence >= threshold
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
