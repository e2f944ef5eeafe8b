package activity

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Resolve maps user text ("blacksmithing", "Master Alchemy", "odd_jobs") to an
// activity type in acts. Exact matches on the type id or any level name win;
// otherwise the single closest name within a small edit distance is accepted.
func Resolve(input string, acts []*Activity) (Type, error) {
	in := normalizeName(input)
	if in == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownActivity)
	}

	best := Type("")
	bestDist := -1
	tie := false
	for _, a := range acts {
		for _, cand := range candidateNames(a) {
			if cand == in {
				return a.Type, nil
			}
			d := levenshtein.ComputeDistance(in, cand)
			if d > distanceLimit(len(cand)) {
				continue
			}
			switch {
			case bestDist < 0 || d < bestDist:
				best, bestDist, tie = a.Type, d, false
			case d == bestDist && best != a.Type:
				tie = true
			}
		}
	}
	if bestDist < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownActivity, input)
	}
	if tie {
		return "", fmt.Errorf("%w: %q is ambiguous", ErrUnknownActivity, input)
	}
	return best, nil
}

func candidateNames(a *Activity) []string {
	out := []string{normalizeName(string(a.Type))}
	for _, l := range a.Levels {
		out = append(out, normalizeName(l.Name))
	}
	return out
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func distanceLimit(n int) int {
	switch {
	case n <= 4:
		return 0
	case n <= 8:
		return 1
	default:
		return 2
	}
}
