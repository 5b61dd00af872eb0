// Package release locates versioned release description files. Files live
// in a <major>/<minor>/<version>.md tree; each may embed code data in a
// fenced ```c block.
package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Arbin-com/github-upload/version"
)

// Ext is the extension of release files.
const Ext = ".md"

// ErrNotFound is returned when no release file matches.
var ErrNotFound = errors.New("release file not found")

// CodeData is the JSON payload of the code block of a release file.
type CodeData struct {
	CommitID string `json:"CommitID"`
}

// Match is a located release file.
type Match struct {
	// Version is the file name without extension.
	Version string
	// Path is the slash-separated path of the file within the searched FS.
	Path     string
	CodeData CodeData
	// Tag is set when the reference was not a version and named the file
	// directly.
	Tag string
}

var codeBlock = regexp.MustCompile("(?s)```c(.*)```")

// Find resolves ref against fsys. A version reference, possibly with
// wildcards, walks the major and minor directories from the highest number
// down and returns the best matching file of the first minor directory that
// has one. Any other reference names <ref>.md at the root.
func Find(fsys fs.FS, ref string) (*Match, error) {
	pattern, ok := version.Parse(ref)
	if !ok {
		p := strings.TrimSpace(ref) + Ext
		if !fs.ValidPath(p) {
			return nil, fmt.Errorf("invalid release reference %q", ref)
		}
		m, err := load(fsys, p)
		if err != nil {
			return nil, err
		}
		m.Tag = strings.TrimSpace(ref)
		return m, nil
	}

	majors, err := numberDirs(fsys, ".", pattern.Major)
	if err != nil {
		return nil, err
	}
	for _, major := range majors {
		dir := strconv.FormatUint(uint64(major), 10)
		minors, err := numberDirs(fsys, dir, pattern.Minor)
		if err != nil {
			return nil, err
		}
		for _, minor := range minors {
			sub := path.Join(dir, strconv.FormatUint(uint64(minor), 10))
			p, err := bestFile(fsys, sub, pattern)
			if err != nil {
				return nil, err
			}
			if p != "" {
				return load(fsys, p)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// numberDirs lists the numeric subdirectories of dir selected by n, highest
// first. Any selects all of them.
func numberDirs(fsys fs.FS, dir string, n uint32) ([]uint32, error) {
	if n != version.Any {
		info, err := fs.Stat(fsys, path.Join(dir, strconv.FormatUint(uint64(n), 10)))
		if err != nil || !info.IsDir() {
			return nil, nil
		}
		return []uint32{n}, nil
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []uint32
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, err := strconv.ParseUint(e.Name(), 10, 32); err == nil {
			out = append(out, uint32(v))
		}
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out, nil
}

// bestFile returns the file of dir whose name parses to the highest version
// matching pattern, or "".
func bestFile(fsys fs.FS, dir string, pattern version.Version) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	var (
		best  version.Version
		found string
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		v, ok := version.Parse(stem)
		if !ok || !v.Matches(pattern) {
			continue
		}
		if found == "" || version.CompareRelease(v, best) >= 0 {
			best, found = v, path.Join(dir, e.Name())
		}
	}
	return found, nil
}

func load(fsys fs.FS, p string) (*Match, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	code, err := ParseCodeData(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	name := path.Base(p)
	return &Match{
		Version:  strings.TrimSuffix(name, path.Ext(name)),
		Path:     p,
		CodeData: code,
	}, nil
}

// ParseCodeData decodes the JSON between the first ```c fence and the last
// closing fence. A file without a code block yields empty data.
func ParseCodeData(text string) (CodeData, error) {
	var data CodeData
	m := codeBlock.FindStringSubmatch(text)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return data, fmt.Errorf("invalid code data: %w", err)
	}
	return data, nil
}

// FormatTag renders the release tag of a version with a "{0}" template such
// as "prefix.{0}". An empty template is the version itself.
func FormatTag(template, v string) string {
	if template == "" {
		return v
	}
	return strings.ReplaceAll(template, "{0}", v)
}
