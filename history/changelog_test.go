package history

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arbin-com/github-upload/logstream"
	"github.com/Arbin-com/github-upload/version"
)

func releaseBoundary() *Boundary {
	return &Boundary{Reference: version.MustParse("1.3.0-release"), IgnorePathPrefix: true}
}

func TestMineChangelog(t *testing.T) {
	lines := logstream.Records(
		logstream.Record{
			Hash:       "c1",
			Decoration: " (HEAD -> main, origin/main)",
			Message:    "Add widgets\n--newfeature\nWidget support (QA-1, Reporter: Bob)\n--fix\nCrash on start\n",
		},
		logstream.Record{
			Hash:    "c2",
			Message: "--bug\nCrash on start\nReverted commit 1234abc\nBad\uFFFD char\n  \n--ui\nNew colors\n--Docs\nUpdate readme",
		},
		logstream.Record{
			Hash:    "c3",
			Message: "--docs\nUpdate install guide\nno marker needed inside a group",
		},
		logstream.Record{
			Hash:       "c4",
			Decoration: " (tag: 1.2.0-release)",
			Message:    "--fix\nshould not appear",
		},
	)

	log, err := MineChangelog(lines, ChangelogOptions{Boundary: releaseBoundary()})
	require.NoError(t, err)

	assert.Equal(t, []Group{
		{Name: GroupBugFix, Items: []string{"Crash on start", "Bad char"}},
		{Name: GroupNewFeatures, Items: []string{"Widget support (QA-1)"}},
		{Name: GroupStyle, Items: []string{"New colors"}},
		{Name: "Docs", Items: []string{"Update readme", "Update install guide", "no marker needed inside a group"}},
	}, log.Groups())
	assert.Equal(t, 7, log.Len())

	want := "### Bug fix\n1. Crash on start\n1. Bad char\n" +
		"### New features\n1. Widget support (QA-1)\n" +
		"### Style\n1. New colors\n" +
		"### Docs\n1. Update readme\n1. Update install guide\n1. no marker needed inside a group\n"
	assert.Equal(t, want, log.Markdown(DefaultMarkdownHead))
}

func TestMineChangelog_EndClosesGroup(t *testing.T) {
	lines := logstream.Records(
		logstream.Record{Hash: "c1", Message: "--fix\nfirst"},
		logstream.Record{Hash: "c2", Message: "orphan line"},
	)

	log, err := MineChangelog(lines, ChangelogOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Group{{Name: GroupBugFix, Items: []string{"first"}}}, log.Groups())
}

func TestMineChangelog_StopCommit(t *testing.T) {
	lines := logstream.Records(
		logstream.Record{Hash: "c1a", Message: "--fix\nkept"},
		logstream.Record{Hash: "c2f", Message: "--fix\ndropped"},
		logstream.Record{Hash: "c3b", Message: "--fix\ndropped too"},
	)

	log, err := MineChangelog(lines, ChangelogOptions{StopCommit: "c2ffff00"})
	require.NoError(t, err)
	assert.Equal(t, "## Bug fix\n1. kept\n", log.Markdown("## "))
}

func TestMineChangelog_DedupWindow(t *testing.T) {
	msg := "--fix\nA\nB\nA"

	log, err := MineChangelog(logstream.Records(logstream.Record{Message: msg}), ChangelogOptions{DedupCapacity: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "A"}, log.Groups()[0].Items)

	log, err = MineChangelog(logstream.Records(logstream.Record{Message: msg}), ChangelogOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, log.Groups()[0].Items)
}

func TestMineChangelog_Conventional(t *testing.T) {
	lines := logstream.Records(
		logstream.Record{Hash: "c1", Message: "feat(ui): dark mode\n\nlong body text"},
		logstream.Record{Hash: "c2", Message: "fix: null deref"},
		logstream.Record{Hash: "c3", Message: "plain subject\n--style\nspacing"},
	)

	log, err := MineChangelog(lines, ChangelogOptions{Conventional: true})
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{Name: GroupBugFix, Items: []string{"null deref"}},
		{Name: GroupNewFeatures, Items: []string{"dark mode"}},
		{Name: GroupStyle, Items: []string{"spacing"}},
	}, log.Groups())
}

func TestMineChangelog_Empty(t *testing.T) {
	log, err := MineChangelog(logstream.Slice(nil), ChangelogOptions{})
	require.NoError(t, err)
	assert.Empty(t, log.Groups())
	assert.Equal(t, "", log.Markdown(DefaultMarkdownHead))
}

func TestMineChangelog_SourceError(t *testing.T) {
	boom := errors.New("git died")
	var lines iter.Seq2[string, error] = func(yield func(string, error) bool) {
		yield("", boom)
	}

	_, err := MineChangelog(lines, ChangelogOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestGroupName(t *testing.T) {
	tests := map[string]string{
		"newfeature":  GroupNewFeatures,
		"NewFeatures": GroupNewFeatures,
		"fix":         GroupBugFix,
		"HOTFIX":      GroupBugFix,
		"bug":         GroupBugFix,
		"ui":          GroupStyle,
		"style":       GroupStyle,
		"perf":        "perf",
	}
	for in, want := range tests {
		assert.Equal(t, want, GroupName(in), in)
	}
}
