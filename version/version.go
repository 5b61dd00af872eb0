// Package version implements the release version grammar used by tags and branches.
//
// A version has the shape
//
//	[prefix "/"] [products "."] major "." minor "." build [sep suffix] ["." special]
//
// where major, minor, build and special are decimal literals or "*" (wildcard),
// sep is '-' or '+', prefix is a path such as "release" and products is a
// product name beginning with a letter. Examples: "1.2.3", "1.2.3-release.4",
// "release/mitstest.1.2.3-a.1", "*.2.*-a.*".
package version

import (
	"math"
	"strconv"
	"strings"
)

const (
	// Any is the wildcard value for Major, Minor, Build and Special.
	// It matches any concrete value and is skipped by ordering comparisons.
	Any uint32 = math.MaxUint32

	// PatchSuffix is the suffix carried by patch releases.
	PatchSuffix = "patch"

	// StableSuffix is the suffix carried by stable releases.
	StableSuffix = "release"

	// DefaultSuffixSeparator is used when a Version has no explicit separator.
	DefaultSuffixSeparator byte = '-'

	separator     = '.'
	pathSeparator = '/'
	anyText       = "*"
)

// Version is a parsed release version. It is a value type: copy it freely and
// use the With* methods to derive modified copies.
type Version struct {
	// PathPrefix is the text before the last '/' preceding the first '.', e.g. "release".
	PathPrefix string

	// Products is an optional product name, e.g. "mitstest" in "mitstest.1.2.3".
	Products string

	Major uint32
	Minor uint32
	Build uint32

	// Suffix is the text after SuffixSeparator, e.g. "release" in "1.2.3-release".
	Suffix string

	// SuffixSeparator is '-' or '+'. The zero value renders as '-'.
	SuffixSeparator byte

	// Special is the trailing number after the suffix, e.g. 4 in "1.2.3-release.4".
	// Zero means absent.
	Special uint32
}

// New returns a version with the given numbers and no prefix, products or suffix.
func New(major, minor, build uint32) Version {
	return Version{
		Major:           major,
		Minor:           minor,
		Build:           build,
		SuffixSeparator: DefaultSuffixSeparator,
	}
}

// HasSuffix reports whether the version carries a suffix.
func (v Version) HasSuffix() bool { return v.Suffix != "" }

// HasPathPrefix reports whether the version carries a path prefix.
func (v Version) HasPathPrefix() bool { return v.PathPrefix != "" }

// HasProducts reports whether the version carries a products segment.
func (v Version) HasProducts() bool { return v.Products != "" }

// IsPatch reports whether the suffix is "patch" (case-insensitive).
func (v Version) IsPatch() bool { return v.SameSuffix(PatchSuffix) }

// IsStable reports whether the suffix is "release" (case-insensitive).
func (v Version) IsStable() bool { return v.SameSuffix(StableSuffix) }

// IsNormal reports whether the version has neither suffix nor special number.
func (v Version) IsNormal() bool { return !v.HasSuffix() && v.Special == 0 }

// HasWildcard reports whether any numeric field is Any.
func (v Version) HasWildcard() bool {
	return v.Major == Any || v.Minor == Any || v.Build == Any || v.Special == Any
}

// SameSuffix compares the suffix with s, ignoring case.
func (v Version) SameSuffix(s string) bool { return strings.EqualFold(v.Suffix, s) }

// SamePathPrefix compares the path prefix with p, ignoring case.
func (v Version) SamePathPrefix(p string) bool { return strings.EqualFold(v.PathPrefix, p) }

// SameProducts compares the products segment with p, ignoring case.
func (v Version) SameProducts(p string) bool { return strings.EqualFold(v.Products, p) }

// WithSuffix returns a copy of v with the suffix replaced.
func (v Version) WithSuffix(suffix string) Version {
	v.Suffix = suffix
	return v
}

// WithPathPrefix returns a copy of v with the path prefix replaced.
func (v Version) WithPathPrefix(prefix string) Version {
	v.PathPrefix = prefix
	return v
}

// WithSpecial returns a copy of v with the special number replaced.
func (v Version) WithSpecial(special uint32) Version {
	v.Special = special
	return v
}

// Equal reports whether v and o denote the same version. Text fields are
// compared case-insensitively; numbers exactly, so a wildcard only equals a
// wildcard. The suffix separator does not take part.
func (v Version) Equal(o Version) bool {
	return v.SamePathPrefix(o.PathPrefix) &&
		v.SameSuffix(o.Suffix) &&
		v.SameProducts(o.Products) &&
		v.Major == o.Major &&
		v.Minor == o.Minor &&
		v.Build == o.Build &&
		v.Special == o.Special
}

// Key returns a canonical case-folded form of v. Two versions are Equal
// exactly when their keys are equal, so Key works as a map key or hash input.
func (v Version) Key() string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(v.PathPrefix))
	sb.WriteByte(0)
	sb.WriteString(strings.ToLower(v.Products))
	sb.WriteByte(0)
	for _, n := range [...]uint32{v.Major, v.Minor, v.Build, v.Special} {
		sb.WriteString(strconv.FormatUint(uint64(n), 10))
		sb.WriteByte(0)
	}
	sb.WriteString(strings.ToLower(v.Suffix))
	return sb.String()
}

// Matches reports whether v satisfies pattern: every concrete numeric field of
// pattern must equal the field of v, wildcards match anything, and the suffix
// must be equal.
func (v Version) Matches(pattern Version) bool {
	if pattern.Major != Any && pattern.Major != v.Major {
		return false
	}
	if pattern.Minor != Any && pattern.Minor != v.Minor {
		return false
	}
	if pattern.Build != Any && pattern.Build != v.Build {
		return false
	}
	if !pattern.SameSuffix(v.Suffix) {
		return false
	}
	return pattern.Special == Any || pattern.Special == v.Special
}

// String renders v including path prefix and products.
func (v Version) String() string {
	return v.Format(true, true)
}

// Format renders v, the inverse of Parse. Wildcards render as "*" and the
// special segment is written only when non-zero.
func (v Version) Format(includePrefix, includeProducts bool) string {
	var sb strings.Builder
	if includePrefix && v.HasPathPrefix() {
		sb.WriteString(v.PathPrefix)
		sb.WriteByte(pathSeparator)
	}
	if includeProducts && v.HasProducts() {
		sb.WriteString(v.Products)
		sb.WriteByte(separator)
	}
	writeNumber(&sb, v.Major)
	sb.WriteByte(separator)
	writeNumber(&sb, v.Minor)
	sb.WriteByte(separator)
	writeNumber(&sb, v.Build)
	if v.HasSuffix() {
		sb.WriteByte(v.separator())
		sb.WriteString(v.Suffix)
	}
	if v.Special != 0 {
		sb.WriteByte(separator)
		writeNumber(&sb, v.Special)
	}
	return sb.String()
}

func (v Version) separator() byte {
	if v.SuffixSeparator == 0 {
		return DefaultSuffixSeparator
	}
	return v.SuffixSeparator
}

func writeNumber(sb *strings.Builder, n uint32) {
	if n == Any {
		sb.WriteString(anyText)
		return
	}
	sb.WriteString(strconv.FormatUint(uint64(n), 10))
}
