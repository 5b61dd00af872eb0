package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arbin-com/github-upload/history"
	"github.com/Arbin-com/github-upload/logstream"
	"github.com/Arbin-com/github-upload/version"
)

func TestLogLines(t *testing.T) {
	tr := setupTestRepo(t)
	c1 := tr.commit(t, "--fix\nbroken thing\n")
	c2 := tr.commit(t, "--newfeature\nadd export")
	tr.tag(t, "1.0.0-release", c1)
	tr.remoteBranch(t, "origin", "main", c2)

	got := collect(t, tr.repo.LogLines(tr.ctx, LogFilter{}))
	assert.Equal(t, []string{
		logstream.CommitSentinel, c2.String()[:7],
		logstream.BranchSentinel, " (HEAD -> main, origin/main)",
		logstream.MessageSentinel, "--newfeature", "add export",
		logstream.EndSentinel,
		logstream.CommitSentinel, c1.String()[:7],
		logstream.BranchSentinel, " (tag: 1.0.0-release)",
		logstream.MessageSentinel, "--fix", "broken thing",
		logstream.EndSentinel,
	}, got)
}

func TestLogLines_MaxCountAndFrom(t *testing.T) {
	tr := setupTestRepo(t)
	c1 := tr.commit(t, "one")
	tr.commit(t, "two")

	got := collect(t, tr.repo.LogLines(tr.ctx, LogFilter{MaxCount: 1}))
	assert.Len(t, got, 7)
	assert.Equal(t, "two", got[5])

	got = collect(t, tr.repo.LogLines(tr.ctx, LogFilter{From: c1.String()}))
	assert.Equal(t, c1.String()[:7], got[1])
	assert.Equal(t, "", got[3])
}

func TestLogLines_EarlyStop(t *testing.T) {
	tr := setupTestRepo(t)
	for range 5 {
		tr.commit(t, "msg")
	}

	count := 0
	for _, err := range tr.repo.LogLines(tr.ctx, LogFilter{}) {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestLogLines_Errors(t *testing.T) {
	tr := setupTestRepo(t)
	tr.commit(t, "one")

	var got error
	for _, err := range tr.repo.LogLines(tr.ctx, LogFilter{From: "nope"}) {
		got = err
	}
	assert.ErrorIs(t, got, ErrResolveFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got = nil
	for _, err := range tr.repo.LogLines(ctx, LogFilter{}) {
		got = err
	}
	assert.ErrorIs(t, got, context.Canceled)
}

func TestTagLogLines(t *testing.T) {
	tr, hashes := branchedRepo(t)
	tr.tag(t, "1.0.0-release", hashes["c1"])

	got := collect(t, tr.repo.TagLogLines(tr.ctx, 0))
	assert.Equal(t, []string{
		shortHash(hashes["c3"]) + "  (tag: 1.1.0-release, release-1.1)",
		shortHash(hashes["c2"]) + " ",
		shortHash(hashes["c1"]) + "  (tag: 1.0.0-release)",
	}, got)

	scan, err := history.ScanPrevious(tr.repo.TagLogLines(tr.ctx, 0), history.PrevScanOptions{Suffix: "release"})
	require.NoError(t, err)
	assert.Equal(t, "1.1.0-release", scan.Version.String())
	assert.Equal(t, shortHash(hashes["c3"]), scan.Commit)

	got = collect(t, tr.repo.TagLogLines(tr.ctx, 1))
	assert.Len(t, got, 1)
}

func TestResolveStopCommit_Repo(t *testing.T) {
	tr, hashes := branchedRepo(t)
	tr.remoteBranch(t, "origin", "main", hashes["c4"])
	tr.remoteHEAD(t, "origin", "main")

	ref := version.MustParse("1.2.0-release")
	stop, err := history.ResolveStopCommit(tr.ctx, Inspector{Repo: tr.repo}, ref, false)
	require.NoError(t, err)
	assert.Equal(t, history.StopCommit(hashes["c2"].String()), stop)
}

func TestChangelogFromRepo(t *testing.T) {
	tr := setupTestRepo(t)
	base := tr.commit(t, "--fix\nold fix")
	tr.commit(t, "--fix\nnew fix\n--ui\nnew button")

	cl, err := history.MineChangelog(tr.repo.LogLines(tr.ctx, LogFilter{}), history.ChangelogOptions{
		StopCommit: history.StopCommit(base.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, "### Bug fix\n1. new fix\n### Style\n1. new button\n", cl.Markdown(history.DefaultMarkdownHead))
}

func TestInspector_MissingRefs(t *testing.T) {
	tr := setupTestRepo(t)
	tr.commit(t, "one")
	insp := Inspector{Repo: tr.repo}

	branch, err := insp.DefaultBranch(tr.ctx)
	require.NoError(t, err)
	assert.Empty(t, branch)

	branch, err = insp.BranchContaining(tr.ctx, "9.9.9-release")
	require.NoError(t, err)
	assert.Empty(t, branch)

	base, err := insp.MergeBase(tr.ctx, "main", "gone")
	require.NoError(t, err)
	assert.Empty(t, base)
}
