package matching

import (
	"math"
	"sort"
	"strings"
)

// Similarity returns the Jaro-Winkler similarity of a and b scaled to
// [0, 100], taking the maximum of the direct score and the score computed
// on token-sorted variants so whole-word reordering doesn't depress the
// score (spec §4.B). Inputs are expected to already be normalized (§4.A);
// Similarity itself does no normalization.
func Similarity(a, b string) float64 {
	direct := jaroWinkler(a, b)
	sorted := jaroWinkler(sortTokens(a), sortTokens(b))
	if sorted > direct {
		return sorted
	}
	return direct
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// jaroWinkler computes the Jaro-Winkler distance of two already-uppercase
// strings, scaled to [0, 100]. Grounded on the hand-rolled implementation
// in other_examples/himacharan128-Payment-Reconciliation-Engine, which is
// itself the standard textbook algorithm with a 0.1 prefix scaling factor
// and a 4-character max common-prefix window.
func jaroWinkler(a, b string) float64 {
	if a == b {
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)
	lenA := len(ra)
	lenB := len(rb)

	matchWindow := int(math.Max(float64(lenA), float64(lenB))/2.0) - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	aMatched := make([]bool, lenA)
	bMatched := make([]bool, lenB)

	matches := 0
	for i := 0; i < lenA; i++ {
		start := i - matchWindow
		if start < 0 {
			start = 0
		}
		end := i + matchWindow + 1
		if end > lenB {
			end = lenB
		}
		for j := start; j < end; j++ {
			if bMatched[j] || ra[i] != rb[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := 0; i < lenA; i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	jaro := (m/float64(lenA) + m/float64(lenB) + (m-float64(transpositions)/2)/m) / 3.0

	maxPrefix := 4
	if lenA < maxPrefix {
		maxPrefix = lenA
	}
	if lenB < maxPrefix {
		maxPrefix = lenB
	}
	prefixLen := 0
	for i := 0; i < maxPrefix; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefixLen++
	}

	winkler := jaro + (0.1 * float64(prefixLen) * (1.0 - jaro))
	return math.Round(winkler*100*100) / 100
}
