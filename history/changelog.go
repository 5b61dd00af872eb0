package history

import (
	"iter"
	"log/slog"
	"regexp"
	"strings"

	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"

	"github.com/Arbin-com/github-upload/dedup"
	"github.com/Arbin-com/github-upload/logstream"
)

// Canonical changelog group names.
const (
	GroupBugFix      = "Bug fix"
	GroupNewFeatures = "New features"
	GroupStyle       = "Style"
)

// DefaultMarkdownHead is written before every group name by Markdown.
const DefaultMarkdownHead = "### "

const (
	typeMarker     = "--"
	revertedPrefix = "Reverted commit "
)

var reporterPattern = regexp.MustCompile(`(?i)(\(.*?)[,\s]*Reporter:.*(\))`)

// GroupName maps a message type such as "fix" or "newfeature" to its
// canonical group. Unknown types are returned as given.
func GroupName(messageType string) string {
	switch strings.ToLower(messageType) {
	case "newfeature", "newfeatures", "feat", "feature":
		return GroupNewFeatures
	case "fix", "bug", "hotfix":
		return GroupBugFix
	case "ui", "style":
		return GroupStyle
	default:
		return messageType
	}
}

// ChangelogOptions configures MineChangelog.
type ChangelogOptions struct {
	// Boundary stops the scan at the previous release tag. Nil scans to
	// the end of the stream.
	Boundary *Boundary

	// StopCommit stops the scan at a known commit.
	StopCommit StopCommit

	// DedupCapacity is the number of recent items remembered to drop
	// duplicates. Defaults to dedup.DefaultCapacity.
	DedupCapacity int

	// Conventional additionally classifies the first line of each message
	// as a conventional commit header ("feat: ...", "fix(ui): ...").
	Conventional bool

	Logger *slog.Logger
}

// Group is a named list of changelog items.
type Group struct {
	Name  string
	Items []string
}

// Changelog holds the groups collected from a history scan in first seen order.
type Changelog struct {
	groups []*Group
	byName map[string]*Group
}

func newChangelog() *Changelog {
	return &Changelog{byName: make(map[string]*Group)}
}

// group returns the group called name, creating it. Names are case-insensitive.
func (c *Changelog) group(name string) *Group {
	key := strings.ToLower(name)
	if g, ok := c.byName[key]; ok {
		return g
	}
	g := &Group{Name: name}
	c.byName[key] = g
	c.groups = append(c.groups, g)
	return g
}

// Groups returns the non-empty groups in output order: bug fixes, new
// features and style first, then the rest in first seen order.
func (c *Changelog) Groups() []Group {
	var out []Group
	seen := make(map[*Group]bool)
	add := func(g *Group) {
		if g == nil || seen[g] || len(g.Items) == 0 {
			return
		}
		seen[g] = true
		out = append(out, Group{Name: g.Name, Items: append([]string(nil), g.Items...)})
	}

	for _, name := range []string{GroupBugFix, GroupNewFeatures, GroupStyle} {
		add(c.byName[strings.ToLower(name)])
	}
	for _, g := range c.groups {
		add(g)
	}
	return out
}

// Len returns the total number of items.
func (c *Changelog) Len() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.Items)
	}
	return n
}

// Markdown renders the changelog, each group introduced by head and its
// name, followed by "1. " list items. Empty changelogs render as "".
func (c *Changelog) Markdown(head string) string {
	var sb strings.Builder
	for _, g := range c.Groups() {
		sb.WriteString(head)
		sb.WriteString(g.Name)
		sb.WriteByte('\n')
		for _, item := range g.Items {
			sb.WriteString("1. ")
			sb.WriteString(item)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

type changelogMiner struct {
	opts    ChangelogOptions
	log     *Changelog
	seen    *dedup.Window[string]
	current *Group
	cc      conventionalcommits.Machine

	// firstLine is true until the first non-empty line of a message.
	firstLine bool
}

// MineChangelog collects changelog items from a sectioned history stream.
//
// Within a message, a line "--<type>" opens the group for that type; the
// following lines up to the end of the message become items of the group.
// Lines before any marker are ignored. Items are trimmed, lose any
// U+FFFD replacement characters and "Reporter:" annotations, and are dropped
// when empty, when they describe a revert, or when recently seen.
func MineChangelog(lines iter.Seq2[string, error], opts ChangelogOptions) (*Changelog, error) {
	if opts.DedupCapacity <= 0 {
		opts.DedupCapacity = dedup.DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	seen, err := dedup.New[string](opts.DedupCapacity)
	if err != nil {
		return nil, err
	}

	m := &changelogMiner{opts: opts, log: newChangelog(), seen: seen}
	if opts.Conventional {
		m.cc = parser.NewMachine(parser.WithTypes(conventionalcommits.TypesConventional))
	}

	var h logstream.Handlers
	h[logstream.Commit].Line = func(line string) bool {
		if opts.StopCommit.Match(line) {
			opts.Logger.Debug("reached stop commit", "commit", line)
			return false
		}
		return true
	}
	h[logstream.Branch].Line = func(line string) bool {
		if opts.Boundary != nil && opts.Boundary.Match(line) {
			opts.Logger.Debug("reached previous release", "decoration", line)
			return false
		}
		return true
	}
	h[logstream.Message] = logstream.Handler{
		Enter: func() bool {
			m.firstLine = true
			return true
		},
		Line: m.message,
	}
	h[logstream.End].Enter = func() bool {
		m.current = nil
		return true
	}

	if err := logstream.New(h).Run(lines); err != nil {
		return nil, err
	}
	return m.log, nil
}

func (m *changelogMiner) message(line string) bool {
	text := strings.TrimSpace(line)

	if m.firstLine && text != "" {
		m.firstLine = false
		if m.cc != nil && m.conventional(text) {
			return true
		}
	}

	if strings.HasPrefix(text, typeMarker) && len(text) > len(typeMarker) {
		m.current = m.log.group(GroupName(text[len(typeMarker):]))
		return true
	}

	if m.current == nil {
		return true
	}
	m.add(m.current, text)
	return true
}

// conventional handles a conventional commit header. It reports false when
// text is not one.
func (m *changelogMiner) conventional(text string) bool {
	msg, err := m.cc.Parse([]byte(text))
	if err != nil || msg == nil || !msg.Ok() {
		return false
	}
	cc, ok := msg.(*conventionalcommits.ConventionalCommit)
	if !ok {
		return false
	}
	m.add(m.log.group(GroupName(cc.Type)), cc.Description)
	return true
}

func (m *changelogMiner) add(g *Group, text string) {
	content := strings.TrimSpace(strings.ReplaceAll(text, "\uFFFD", ""))
	if content == "" || strings.HasPrefix(content, revertedPrefix) {
		return
	}
	content = reporterPattern.ReplaceAllString(content, "${1}${2}")
	if !m.seen.Add(content) {
		return
	}
	g.Items = append(g.Items, content)
}
