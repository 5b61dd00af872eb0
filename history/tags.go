package history

import (
	"fmt"

	"github.com/zyedidia/glob"

	"github.com/Arbin-com/github-upload/version"
)

// ParseTags parses tag names, skipping those that are not versions.
func ParseTags(names []string) []version.Version {
	out := make([]version.Version, 0, len(names))
	for _, name := range names {
		if v, ok := version.Parse(name); ok {
			out = append(out, v)
		}
	}
	return out
}

// PreviousVersion returns the highest tag with the reference's suffix that
// sorts strictly below ref by CompareRelease.
func PreviousVersion(tags []version.Version, ref version.Version) (version.Version, bool) {
	var best version.Version
	found := false
	for _, v := range tags {
		if version.CompareRelease(v, ref) >= 0 || !v.SameSuffix(ref.Suffix) {
			continue
		}
		if !found || version.CompareRelease(v, best) > 0 {
			best, found = v, true
		}
	}
	return best, found
}

// PreviousStableOrPatch returns the previous patch release of ref, or when
// there is none, the previous stable release.
func PreviousStableOrPatch(tags []version.Version, ref version.Version) (version.Version, bool) {
	if v, ok := PreviousVersion(tags, ref.WithSuffix(version.PatchSuffix)); ok {
		return v, true
	}
	return PreviousVersion(tags, ref.WithSuffix(version.StableSuffix))
}

// TagPattern returns the glob selecting candidate tags for ref. Without a
// path prefix and with a concrete major, any prefix is allowed.
func TagPattern(ref version.Version) string {
	pattern := ref.String()
	if !ref.HasPathPrefix() && ref.Major != version.Any {
		pattern = "*" + pattern
	}
	return pattern
}

// LatestMatching returns the highest tag, by CompareRelease, among names
// matching TagPattern(ref). Candidates must agree with ref on whether a
// suffix is present, and on the special number unless ref's is a wildcard.
func LatestMatching(names []string, ref version.Version) (version.Version, bool, error) {
	pattern := TagPattern(ref)
	g, err := glob.Compile(pattern)
	if err != nil {
		return version.Version{}, false, fmt.Errorf("compile tag pattern %q: %w", pattern, err)
	}

	var best version.Version
	found := false
	for _, name := range names {
		if !g.MatchString(name) {
			continue
		}
		v, ok := version.Parse(name)
		if !ok {
			continue
		}
		if v.HasSuffix() != ref.HasSuffix() {
			continue
		}
		if ref.Special != version.Any && v.Special != ref.Special {
			continue
		}
		if !found || version.CompareRelease(v, best) > 0 {
			best, found = v, true
		}
	}
	return best, found, nil
}

// OlderTags returns the tags that share ref's special number, suffix and,
// unless ignorePrefix, path prefix, and are strictly older by CompareTriple.
func OlderTags(tags []version.Version, ref version.Version, ignorePrefix bool) []version.Version {
	var out []version.Version
	for _, v := range tags {
		if v.Special != ref.Special || !v.SameSuffix(ref.Suffix) {
			continue
		}
		if !ignorePrefix && !v.SamePathPrefix(ref.PathPrefix) {
			continue
		}
		if version.CompareTriple(v, ref) >= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}
