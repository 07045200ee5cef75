package dedupe

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// containmentFloor is the minimum score for a name whose tokens appear, in
// order, inside the other name ("Sagrada Familia" in "Basílica de la Sagrada
// Família"). It must not fall below the default name threshold.
const containmentFloor = 0.8

// NormalizeName prepares a place name for comparison:
//  1. Decompose and strip combining marks (í → i)
//  2. Lowercase
//  3. Replace "&" with "and"
//  4. Turn punctuation and symbols into spaces
//  5. Collapse whitespace
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err == nil {
		name = stripped
	}

	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "&", " and ")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '\'' || r == '’':
			// "Joe's" → "joes"
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NameSimilarity returns a symmetric 0-1 similarity for two place names.
// The score is the best of three views of the normalized names:
// Levenshtein ratio, Levenshtein ratio after sorting tokens, and in-order
// token containment. Two blank names are identical. A name that normalizes
// to nothing, such as "!!!", scores 0 against anything but a blank name.
func NameSimilarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	switch {
	case na == "" && nb == "":
		if strings.TrimSpace(a) == "" && strings.TrimSpace(b) == "" {
			return 1
		}
		return 0
	case na == "" || nb == "":
		return 0
	case na == nb:
		return 1
	}

	score := levenshteinRatio(na, nb)
	score = math.Max(score, levenshteinRatio(sortTokens(na), sortTokens(nb)))
	score = math.Max(score, containmentScore(na, nb))

	return clamp(score, 0, 1)
}

func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	return levenshtein.Similarity(a, b, nil)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// containmentScore scores a name that appears on token boundaries inside the
// other. Longer overlap relative to the longer name scores higher.
func containmentScore(a, b string) float64 {
	short, long := a, b
	if utf8.RuneCountInString(short) > utf8.RuneCountInString(long) {
		short, long = long, short
	}
	if !strings.Contains(" "+long+" ", " "+short+" ") {
		return 0
	}
	ratio := float64(utf8.RuneCountInString(short)) / float64(utf8.RuneCountInString(long))
	return containmentFloor + (1-containmentFloor)*ratio
}
