package history

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Arbin-com/github-upload/version"
)

func TestBoundary_Match(t *testing.T) {
	tests := []struct {
		name     string
		boundary Boundary
		line     string
		want     bool
	}{
		{
			name:     "previous release tag",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true},
			line:     " (tag: 1.2.0-release)",
			want:     true,
		},
		{
			name:     "no tag",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true},
			line:     " (HEAD -> main, origin/main)",
		},
		{
			name:     "reference itself never stops",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true},
			line:     " (tag: 1.3.0-release, tag: 1.2.0-release)",
		},
		{
			name:     "reference with path prefix never stops",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true},
			line:     " (tag: 1.2.0-release, tag: release/1.3.0-release)",
		},
		{
			name:     "reference text inside a longer tag",
			boundary: Boundary{Reference: version.MustParse("1.2.0"), Policy: PolicyStableOrPatch, IgnorePathPrefix: true},
			line:     " (tag: 11.2.0, tag: 1.1.0-release)",
			want:     true,
		},
		{
			name:     "suffix mismatch",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true},
			line:     " (tag: 1.2.0-patch)",
		},
		{
			name:     "special mismatch",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true},
			line:     " (tag: 1.2.0-release.2)",
		},
		{
			name:     "special wildcard accepts any",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release.*"), IgnorePathPrefix: true},
			line:     " (tag: 1.2.0-release.2)",
			want:     true,
		},
		{
			name:     "unparsable tag skipped",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true},
			line:     " (tag: nightly, tag: 1.1.0-release, origin/dev)",
			want:     true,
		},
		{
			name:     "non tag block ignored",
			boundary: Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true},
			line:     " (origin/1.2.0-release)",
		},
		{
			name:     "normal reference needs build zero",
			boundary: Boundary{Reference: version.MustParse("2.0.0"), IgnorePathPrefix: true},
			line:     " (tag: 1.9.3)",
		},
		{
			name:     "normal reference at build zero",
			boundary: Boundary{Reference: version.MustParse("2.0.0"), IgnorePathPrefix: true},
			line:     " (tag: 1.9.0)",
			want:     true,
		},
		{
			name:     "path prefix compared",
			boundary: Boundary{Reference: version.MustParse("release/1.3.0-release")},
			line:     " (tag: hotfix/1.2.0-release)",
		},
		{
			name:     "path prefix equal",
			boundary: Boundary{Reference: version.MustParse("release/1.3.0-release")},
			line:     " (tag: release/1.2.0-release)",
			want:     true,
		},
		{
			name:     "stable or patch older patch",
			boundary: Boundary{Reference: version.MustParse("2.0.0-beta"), Policy: PolicyStableOrPatch, IgnorePathPrefix: true},
			line:     " (tag: 1.9.1-patch)",
			want:     true,
		},
		{
			name:     "stable or patch newer release",
			boundary: Boundary{Reference: version.MustParse("2.0.0-beta"), Policy: PolicyStableOrPatch, IgnorePathPrefix: true},
			line:     " (tag: 2.1.0-release)",
		},
		{
			name:     "stable or patch other suffix",
			boundary: Boundary{Reference: version.MustParse("2.0.0-beta"), Policy: PolicyStableOrPatch, IgnorePathPrefix: true},
			line:     " (tag: 1.0.0-alpha)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.boundary.Match(tt.line))
		})
	}
}

func TestStopCommit_Match(t *testing.T) {
	stop := StopCommit("abc123def456")

	assert.True(t, stop.Match("abc123d"))
	assert.True(t, stop.Match("abc123def456\n"))
	assert.False(t, stop.Match("abd"))
	assert.False(t, stop.Match(""))
	assert.False(t, StopCommit("").Match("abc"))
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "exact-suffix", PolicyExactSuffix.String())
	assert.Equal(t, "stable-or-patch", PolicyStableOrPatch.String())
	assert.Equal(t, "unknown", Policy(7).String())
}
