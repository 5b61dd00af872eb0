package history

import (
	"iter"
	"regexp"
	"slices"
	"strings"

	"github.com/Arbin-com/github-upload/version"
)

// DefaultIgnorePattern matches x.y.0 releases, which are left out of
// PrevScan.Previous.
const DefaultIgnorePattern = `.*\..*\.0.*`

// DefaultPreviousCount is the number of previous versions collected by ScanPrevious.
const DefaultPreviousCount = 10

// PrevScanOptions selects the tags ScanPrevious considers.
type PrevScanOptions struct {
	// Suffix and Special must equal the tag's.
	Suffix  string
	Special uint32

	// PathPrefix must equal the tag's when MatchPathPrefix is set.
	PathPrefix      string
	MatchPathPrefix bool

	// Ignore excludes matching tag names from Previous. They still count
	// for the highest version. Nil ignores nothing.
	Ignore *regexp.Regexp

	// Count stops the scan once this many previous versions are collected.
	// Defaults to DefaultPreviousCount.
	Count int
}

// PrevScan is the result of ScanPrevious.
type PrevScan struct {
	// Version is the highest selected tag and Commit the commit carrying it.
	Version version.Version
	Commit  string
	Found   bool

	// Previous lists the selected tags, newest first.
	Previous []version.Version
}

// ScanPrevious reads "<hash> <decoration>" lines, as produced by
// git log --tags --pretty="%h %d", newest first.
func ScanPrevious(lines iter.Seq2[string, error], opts PrevScanOptions) (*PrevScan, error) {
	if opts.Count <= 0 {
		opts.Count = DefaultPreviousCount
	}

	res := &PrevScan{}
	for line, err := range lines {
		if err != nil {
			return nil, err
		}
		res.scanLine(line, opts)
		if len(res.Previous) >= opts.Count {
			break
		}
	}

	slices.SortStableFunc(res.Previous, func(a, b version.Version) int {
		return version.CompareTriple(b, a)
	})
	return res, nil
}

func (res *PrevScan) scanLine(line string, opts PrevScanOptions) {
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return
	}
	commit, rest := line[:sp], line[sp+1:]

	for name := range decorationTags(rest) {
		v, ok := version.Parse(name)
		if !ok {
			continue
		}
		if v.Special != opts.Special || !v.SameSuffix(opts.Suffix) {
			continue
		}
		if opts.MatchPathPrefix && !v.SamePathPrefix(opts.PathPrefix) {
			continue
		}

		if opts.Ignore == nil || !opts.Ignore.MatchString(name) {
			res.Previous = append(res.Previous, v)
		}
		if !res.Found || version.CompareTriple(v, res.Version) > 0 {
			res.Version, res.Commit, res.Found = v, commit, true
		}
	}
}

// decorationTags yields the tag names of a ref decoration. A name runs from
// "tag: " to the first of "*() ,".
func decorationTags(s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			i := strings.Index(s, tagMarker)
			if i < 0 {
				return
			}
			s = s[i+len(tagMarker):]
			end := strings.IndexAny(s, "*() ,")
			if end < 0 {
				end = len(s)
			}
			name := s[:end]
			s = s[end:]
			if name != "" && !yield(name) {
				return
			}
		}
	}
}
