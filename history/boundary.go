// Package history mines sectioned git history streams: it builds changelogs,
// harvests issue keys, and answers questions about release tags.
//
// The miners consume a line iterator (see package logstream) and stop reading
// as soon as they reach the previous release, either by a tag decoration
// (Boundary) or by a known commit hash (StopCommit).
package history

import (
	"strings"

	"github.com/Arbin-com/github-upload/version"
)

const tagMarker = "tag: "

// Policy selects which tags end a scan.
type Policy int

const (
	// PolicyExactSuffix stops at a tag with the reference's suffix. The
	// special number must match unless the reference's is a wildcard, and
	// when the reference is a normal version the tag's build must be 0.
	PolicyExactSuffix Policy = iota

	// PolicyStableOrPatch stops at any patch or stable release strictly
	// older than the reference by CompareTriple.
	PolicyStableOrPatch
)

func (p Policy) String() string {
	switch p {
	case PolicyExactSuffix:
		return "exact-suffix"
	case PolicyStableOrPatch:
		return "stable-or-patch"
	default:
		return "unknown"
	}
}

// Boundary decides from a Branch section line whether the scan has reached
// an earlier release.
type Boundary struct {
	Reference version.Version
	Policy    Policy

	// IgnorePathPrefix accepts tags with any path prefix.
	IgnorePathPrefix bool
}

// Match reports whether line, a ref decoration such as
// " (HEAD -> main, tag: 1.2.0-release, origin/main)", carries a qualifying tag.
// A line tagging the reference itself, whatever its path prefix and products,
// never matches.
func (b Boundary) Match(line string) bool {
	ref := b.Reference.Format(false, false)

	var tags []version.Version
	for _, block := range strings.Split(line, ",") {
		if !strings.Contains(block, tagMarker) {
			continue
		}
		v, ok := version.Parse(decorationToken(block))
		if !ok {
			continue
		}
		if strings.EqualFold(v.Format(false, false), ref) {
			return false
		}
		tags = append(tags, v)
	}

	for _, v := range tags {
		if b.qualifies(v) {
			return true
		}
	}
	return false
}

func (b Boundary) qualifies(v version.Version) bool {
	ref := b.Reference
	if !b.IgnorePathPrefix && !v.SamePathPrefix(ref.PathPrefix) {
		return false
	}

	switch b.Policy {
	case PolicyStableOrPatch:
		return (v.IsPatch() || v.IsStable()) && version.CompareTriple(v, ref) < 0
	default:
		if !v.SameSuffix(ref.Suffix) {
			return false
		}
		if ref.Special != version.Any && v.Special != ref.Special {
			return false
		}
		if ref.IsNormal() && v.Build != 0 {
			return false
		}
		return true
	}
}

// decorationToken returns the text after the last space of block, without a
// trailing ')'.
func decorationToken(block string) string {
	i := strings.LastIndexByte(block, ' ')
	if i < 0 || i+1 >= len(block) {
		return ""
	}
	token := strings.TrimSuffix(block[i+1:], ")")
	return strings.TrimSpace(token)
}

// StopCommit ends a scan at a known commit. The zero value never stops.
type StopCommit string

// Match reports whether line, an abbreviated hash from a Commit section,
// is a prefix of the stop commit.
func (s StopCommit) Match(line string) bool {
	line = strings.TrimSpace(line)
	if s == "" || line == "" {
		return false
	}
	return strings.HasPrefix(string(s), line)
}
