package history

import (
	"cmp"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/Arbin-com/github-upload/logstream"
	"github.com/Arbin-com/github-upload/matcher"
)

// IssueKeys are the issue numbers found for one project prefix, ascending
// and unique.
type IssueKeys struct {
	Prefix  string   `json:"name"`
	Numbers []uint32 `json:"numbers"`
}

// Keys returns the keys in "PREFIX-N" form.
func (k IssueKeys) Keys() []string {
	out := make([]string, len(k.Numbers))
	for i, n := range k.Numbers {
		out[i] = k.Prefix + "-" + strconv.FormatUint(uint64(n), 10)
	}
	return out
}

// IssueKeyOptions configures MineIssueKeys.
type IssueKeyOptions struct {
	// Prefixes are project keys such as "QA". They are matched upper case,
	// followed by '-'.
	Prefixes []string

	Boundary   *Boundary
	StopCommit StopCommit
	Logger     *slog.Logger
}

// NewKeyMatcher compiles project prefixes into an automaton finding "PREFIX-".
func NewKeyMatcher(prefixes []string) *matcher.Automaton {
	b := matcher.NewBuilder()
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.Add(strings.ToUpper(p) + "-")
	}
	return b.Build()
}

// MineIssueKeys harvests issue keys from the first non-empty line of every
// commit message in a sectioned history stream. The result is sorted by prefix.
func MineIssueKeys(lines iter.Seq2[string, error], opts IssueKeyOptions) ([]IssueKeys, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	keys := NewKeyMatcher(opts.Prefixes)
	found := make(map[string]map[uint32]struct{})
	firstLine := true

	var h logstream.Handlers
	h[logstream.Commit].Line = func(line string) bool {
		if opts.StopCommit.Match(line) {
			logger.Debug("reached stop commit", "commit", line)
			return false
		}
		return true
	}
	h[logstream.Branch].Line = func(line string) bool {
		if opts.Boundary != nil && opts.Boundary.Match(line) {
			logger.Debug("reached previous release", "decoration", line)
			return false
		}
		return true
	}
	h[logstream.Message] = logstream.Handler{
		Enter: func() bool {
			firstLine = true
			return true
		},
		Line: func(line string) bool {
			if !firstLine {
				return true
			}
			text := strings.TrimSpace(line)
			if text == "" {
				return true
			}
			firstLine = false
			keys.Search(text, func(text string, start, length int) {
				prefix, number, ok := issueKeyAt(text, start, length)
				if !ok {
					return
				}
				numbers, exists := found[prefix]
				if !exists {
					numbers = make(map[uint32]struct{})
					found[prefix] = numbers
				}
				numbers[number] = struct{}{}
			})
			return true
		},
	}

	if err := logstream.New(h).Run(lines); err != nil {
		return nil, err
	}

	out := make([]IssueKeys, 0, len(found))
	for prefix, numbers := range found {
		k := IssueKeys{Prefix: prefix, Numbers: make([]uint32, 0, len(numbers))}
		for n := range numbers {
			k.Numbers = append(k.Numbers, n)
		}
		slices.Sort(k.Numbers)
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b IssueKeys) int { return cmp.Compare(a.Prefix, b.Prefix) })
	return out, nil
}

// issueKeyAt reads the number following the "PREFIX-" match at start.
func issueKeyAt(text string, start, length int) (string, uint32, bool) {
	begin := start + length
	end := begin
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == begin {
		return "", 0, false
	}
	n, err := strconv.ParseUint(text[begin:end], 10, 32)
	if err != nil {
		return "", 0, false
	}
	return text[start : begin-1], uint32(n), true
}

// IssueRange is a run of consecutive issue numbers of one prefix.
type IssueRange struct {
	Prefix string
	Number uint32
	Count  int
}

// FromKey returns the first key of the run.
func (r IssueRange) FromKey() string { return fmt.Sprintf("%s-%d", r.Prefix, r.Number) }

// ToKey returns the last key of the run.
func (r IssueRange) ToKey() string {
	return fmt.Sprintf("%s-%d", r.Prefix, r.Number+uint32(r.Count)-1)
}

// IssueRanges collapses sorted issue numbers into consecutive runs.
func IssueRanges(keys []IssueKeys) []IssueRange {
	var out []IssueRange
	for _, k := range keys {
		var cur IssueRange
		for _, n := range k.Numbers {
			switch {
			case cur.Count == 0:
				cur = IssueRange{Prefix: k.Prefix, Number: n, Count: 1}
			case cur.Number+uint32(cur.Count) == n:
				cur.Count++
			default:
				out = append(out, cur)
				cur = IssueRange{Prefix: k.Prefix, Number: n, Count: 1}
			}
		}
		if cur.Count > 0 {
			out = append(out, cur)
		}
	}
	return out
}

// IssueKeyStrings flattens keys into "PREFIX-N" strings.
func IssueKeyStrings(keys []IssueKeys) []string {
	var out []string
	for _, k := range keys {
		out = append(out, k.Keys()...)
	}
	return out
}
