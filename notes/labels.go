// Package notes groups issue release notes by label and renders them as
// markdown.
package notes

import (
	"fmt"
	"strings"
)

// Label is one release-note section and the issue labels that select it.
type Label struct {
	Title   string   `yaml:"title"`
	Aliases []string `yaml:"aliases"`
}

// Indices of the default table.
const (
	NewFeatures = iota
	Fix
	UI
)

// LabelTable maps issue labels to sections. Section order is table order.
type LabelTable struct {
	labels []Label
	index  map[string]int
}

// NewLabelTable builds a table. Aliases are matched case-insensitively and
// must be unique.
func NewLabelTable(labels ...Label) (*LabelTable, error) {
	t := &LabelTable{labels: labels, index: make(map[string]int)}
	for i, l := range labels {
		if strings.TrimSpace(l.Title) == "" {
			return nil, fmt.Errorf("label %d has no title", i)
		}
		for _, alias := range l.Aliases {
			key := strings.ToLower(strings.TrimSpace(alias))
			if key == "" {
				continue
			}
			if prev, ok := t.index[key]; ok && prev != i {
				return nil, fmt.Errorf("alias %q used by %q and %q", key, labels[prev].Title, l.Title)
			}
			t.index[key] = i
		}
	}
	return t, nil
}

// DefaultLabels returns the standard sections: new features, bug fixes and UI
// improvements.
func DefaultLabels() *LabelTable {
	t, err := NewLabelTable(
		Label{Title: "New Features", Aliases: []string{"newfeatures", "newfeature", "new feature", "new features"}},
		Label{Title: "Bug fixes", Aliases: []string{"bug", "fix", "bug fixes"}},
		Label{Title: "UI Improvements", Aliases: []string{"ui", "style"}},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the section of an issue label.
func (t *LabelTable) Lookup(label string) (int, bool) {
	i, ok := t.index[strings.ToLower(strings.TrimSpace(label))]
	return i, ok
}

// Len is the number of sections.
func (t *LabelTable) Len() int { return len(t.labels) }

// Title returns the heading of section i.
func (t *LabelTable) Title(i int) string { return t.labels[i].Title }
