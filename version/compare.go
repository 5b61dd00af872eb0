package version

import (
	"cmp"
	"strings"
)

// CompareTriple orders a and b by major, minor and build. A field where
// either side is Any does not decide the order and is skipped.
func CompareTriple(a, b Version) int {
	if c := compareField(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareField(a.Minor, b.Minor); c != 0 {
		return c
	}
	return compareField(a.Build, b.Build)
}

// CompareRelease orders a and b by suffix (ordinal, case-insensitive), then by
// special number, then by CompareTriple. Wildcards are skipped as in CompareTriple.
func CompareRelease(a, b Version) int {
	if c := strings.Compare(strings.ToLower(a.Suffix), strings.ToLower(b.Suffix)); c != 0 {
		return c
	}
	if c := compareField(a.Special, b.Special); c != 0 {
		return c
	}
	return CompareTriple(a, b)
}

// Max returns the greatest of vs by CompareRelease. The first of equal
// elements wins. It reports false when vs is empty.
func Max(vs []Version) (Version, bool) {
	var best Version
	for i, v := range vs {
		if i == 0 || CompareRelease(v, best) > 0 {
			best = v
		}
	}
	return best, len(vs) > 0
}

func compareField(a, b uint32) int {
	if a == Any || b == Any {
		return 0
	}
	return cmp.Compare(a, b)
}
