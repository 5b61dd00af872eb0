package git

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// testRepo is an in-memory repository with deterministic commit times.
type testRepo struct {
	repo  *Repo
	fs    billy.Filesystem
	ctx   context.Context
	clock time.Time
}

// setupTestRepo initializes an empty in-memory repository whose HEAD points
// at refs/heads/main.
func setupTestRepo(t *testing.T) *testRepo {
	t.Helper()

	ctx := context.Background()
	memFS := memfs.New()

	repo, err := Init(ctx, &Options{FS: memFS})
	require.NoError(t, err, "failed to initialize test repository")

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))
	require.NoError(t, repo.repo.Storer.SetReference(head))

	return &testRepo{
		repo:  repo,
		fs:    memFS,
		ctx:   ctx,
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// commit creates an empty commit on the checked out branch.
func (tr *testRepo) commit(t *testing.T, msg string) plumbing.Hash {
	t.Helper()

	tr.clock = tr.clock.Add(time.Minute)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: tr.clock}

	hash, err := tr.repo.worktree.Commit(msg, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	require.NoError(t, err, "failed to commit %q", msg)
	return hash
}

// checkout switches to branch, creating it at from when from is not zero.
func (tr *testRepo) checkout(t *testing.T, branch string, from plumbing.Hash) {
	t.Helper()

	opts := &git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)}
	if !from.IsZero() {
		opts.Create = true
		opts.Hash = from
	}
	require.NoError(t, tr.repo.worktree.Checkout(opts), "failed to checkout %s", branch)
}

// tag creates a lightweight tag.
func (tr *testRepo) tag(t *testing.T, name string, target plumbing.Hash) {
	t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), target)
	require.NoError(t, tr.repo.repo.Storer.SetReference(ref))
}

// remoteBranch creates refs/remotes/<remote>/<branch>.
func (tr *testRepo) remoteBranch(t *testing.T, remote, branch string, target plumbing.Hash) {
	t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName(remote, branch), target)
	require.NoError(t, tr.repo.repo.Storer.SetReference(ref))
}

// remoteHEAD points refs/remotes/<remote>/HEAD at <remote>/<branch>.
func (tr *testRepo) remoteHEAD(t *testing.T, remote, branch string) {
	t.Helper()

	ref := plumbing.NewSymbolicReference(
		plumbing.NewRemoteHEADReferenceName(remote),
		plumbing.NewRemoteReferenceName(remote, branch),
	)
	require.NoError(t, tr.repo.repo.Storer.SetReference(ref))
}

// collect drains a line stream.
func collect(t *testing.T, lines iter.Seq2[string, error]) []string {
	t.Helper()

	var out []string
	for line, err := range lines {
		require.NoError(t, err)
		out = append(out, line)
	}
	return out
}
