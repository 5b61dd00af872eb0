package notes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arbin-com/github-upload/jira"
)

func TestDefaultLabels_Lookup(t *testing.T) {
	table := DefaultLabels()
	tests := []struct {
		label string
		want  int
		ok    bool
	}{
		{"NewFeature", NewFeatures, true},
		{"new features", NewFeatures, true},
		{"Bug", Fix, true},
		{"bug fixes", Fix, true},
		{" style ", UI, true},
		{"UI", UI, true},
		{"hotfix", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := table.Lookup(tt.label)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "Bug fixes", table.Title(Fix))
}

func TestNewLabelTable_Errors(t *testing.T) {
	_, err := NewLabelTable(Label{Title: ""})
	assert.Error(t, err)

	_, err = NewLabelTable(
		Label{Title: "A", Aliases: []string{"x"}},
		Label{Title: "B", Aliases: []string{" X "}},
	)
	assert.ErrorContains(t, err, `alias "x" used by "A" and "B"`)
}

func TestGroupByLabel(t *testing.T) {
	issues := []jira.Issue{
		{Key: "QA-10", Labels: []string{"Fix"}, ReleaseNote: "ten"},
		{Key: "QA-2", Labels: []string{"other", "bug"}, ReleaseNote: "two"},
		{Key: "QA-3", Labels: []string{"ui", "fix"}, ReleaseNote: "three"},
		{Key: "QA-4", Labels: []string{"fix"}, ReleaseNote: "  "},
		{Key: "QA-5", Labels: []string{"unknown"}, ReleaseNote: "five"},
		{Key: "AB-1", Labels: []string{"newfeature"}, ReleaseNote: "one"},
	}

	groups := GroupByLabel(DefaultLabels(), issues)
	require.Len(t, groups, 3)

	keys := func(g []jira.Issue) []string {
		var out []string
		for _, i := range g {
			out = append(out, i.Key)
		}
		return out
	}
	assert.Equal(t, []string{"AB-1"}, keys(groups[NewFeatures]))
	assert.Equal(t, []string{"QA-2", "QA-10"}, keys(groups[Fix]))
	assert.Equal(t, []string{"QA-3"}, keys(groups[UI]))
}

func TestMarkdown(t *testing.T) {
	table := DefaultLabels()
	daq := NewSoftware("DAQ", table, []jira.Issue{
		{Key: "QA-2", Labels: []string{"fix"}, ReleaseNote: "fixed crash"},
		{Key: "QA-1", Labels: []string{"fix"}, ReleaseNote: "fixed\nleak"},
	})
	ui := NewSoftware("", table, []jira.Issue{
		{Key: "WQ-7", Labels: []string{"fix"}, ReleaseNote: "fixed button"},
		{Key: "WQ-8", Labels: []string{"style"}, ReleaseNote: "new colors"},
	})

	want := "## Bug fixes\n\n" +
		"### DAQ\n\n" +
		"1. fixed<br>leak(QA-1)\n" +
		"2. fixed crash(QA-2)\n\n" +
		"### Software\n\n" +
		"1. fixed button(WQ-7)\n\n" +
		"## UI Improvements\n\n" +
		"### Software\n\n" +
		"1. new colors(WQ-8)\n\n"

	if diff := cmp.Diff(want, Markdown(table, daq, ui)); diff != "" {
		t.Errorf("Markdown() mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Markdown(table))
}

func TestTable(t *testing.T) {
	got := Table(
		[]string{"Key", "Note", "N"},
		[][]string{
			{"QA-1", "a|b", "7"},
			{"QA-22", "plain"},
		},
		[]Align{AlignLeft, AlignCenter, AlignRight},
	)

	want := "| Key   | Note  |   N |\n" +
		"| ----- | :---: | --: |\n" +
		"| QA-1  | a\\|b  |   7 |\n" +
		"| QA-22 | plain |     |\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Table() mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_WideAndEmpty(t *testing.T) {
	assert.Empty(t, Table(nil, [][]string{{"x"}}, nil))

	got := Table([]string{"名前"}, [][]string{{"ab"}}, nil)
	assert.Equal(t, "| 名前 |\n| ---- |\n| ab   |\n", got)
}
