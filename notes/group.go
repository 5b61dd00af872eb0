package notes

import (
	"slices"
	"strings"

	"github.com/Arbin-com/github-upload/jira"
)

// GroupByLabel sorts issues into the sections of table. The first label of
// an issue the table knows decides its section; issues without a release
// note or a known label are dropped. Each group is ordered by key.
func GroupByLabel(table *LabelTable, issues []jira.Issue) [][]jira.Issue {
	groups := make([][]jira.Issue, table.Len())
	for _, issue := range issues {
		if strings.TrimSpace(issue.ReleaseNote) == "" {
			continue
		}
		for _, label := range issue.Labels {
			if i, ok := table.Lookup(label); ok {
				groups[i] = append(groups[i], issue)
				break
			}
		}
	}
	for _, g := range groups {
		slices.SortStableFunc(g, func(a, b jira.Issue) int { return jira.CompareKeys(a.Key, b.Key) })
	}
	return groups
}

// Software is the grouped notes of one product.
type Software struct {
	Name   string
	Groups [][]jira.Issue
}

// NewSoftware groups issues for the product name.
func NewSoftware(name string, table *LabelTable, issues []jira.Issue) Software {
	if name == "" {
		name = "Software"
	}
	return Software{Name: name, Groups: GroupByLabel(table, issues)}
}
