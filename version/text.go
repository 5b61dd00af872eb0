package version

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// ErrWildcard is returned when a concrete version is required but a field is Any.
var ErrWildcard = errors.New("version contains a wildcard")

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseStrict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Set implements flag.Value.
func (v *Version) Set(s string) error {
	return v.UnmarshalText([]byte(s))
}

// Semver converts v to a semantic version. The suffix becomes the prerelease
// and the special number the build metadata. Path prefix and products are dropped.
func (v Version) Semver() (*semver.Version, error) {
	if v.HasWildcard() {
		return nil, fmt.Errorf("%w: %s", ErrWildcard, v)
	}
	var metadata string
	if v.Special != 0 {
		metadata = strconv.FormatUint(uint64(v.Special), 10)
	}
	sv := semver.New(uint64(v.Major), uint64(v.Minor), uint64(v.Build), v.Suffix, metadata)
	return sv, nil
}

// FromSemver builds a version from a semantic version. The prerelease becomes
// the suffix; numeric build metadata becomes the special number.
func FromSemver(sv *semver.Version) (Version, error) {
	if sv.Major() > uint64(Any-1) || sv.Minor() > uint64(Any-1) || sv.Patch() > uint64(Any-1) {
		return Version{}, fmt.Errorf("%w: %s out of range", ErrInvalidVersion, sv)
	}
	v := New(uint32(sv.Major()), uint32(sv.Minor()), uint32(sv.Patch()))
	v.Suffix = sv.Prerelease()
	if md := sv.Metadata(); md != "" {
		special, ok := parseDigits(md)
		if !ok || special == Any {
			return Version{}, fmt.Errorf("%w: metadata %q is not a number", ErrInvalidVersion, md)
		}
		v.Special = special
	}
	return v, nil
}
