package git

import (
	"context"

	"github.com/Arbin-com/github-upload/history"
)

var _ history.Inspector = Inspector{}

// Inspector answers history.ResolveStopCommit queries from a Repo. Missing
// branches, tags and revisions are reported as empty results, not errors.
type Inspector struct {
	Repo *Repo
}

// TagNames returns every tag name.
func (i Inspector) TagNames(ctx context.Context) ([]string, error) {
	return i.Repo.Tags(ctx)
}

// DefaultBranch returns the remote default branch or "".
func (i Inspector) DefaultBranch(ctx context.Context) (string, error) {
	return orEmpty(i.Repo.DefaultBranch(ctx))
}

// BranchContaining returns the first branch containing the tag or "".
func (i Inspector) BranchContaining(ctx context.Context, tag string) (string, error) {
	return orEmpty(i.Repo.BranchContaining(ctx, "refs/tags/"+tag))
}

// MergeBase returns the merge base of a and b or "".
func (i Inspector) MergeBase(ctx context.Context, a, b string) (string, error) {
	return orEmpty(i.Repo.MergeBase(ctx, a, b))
}

func orEmpty(s string, err error) (string, error) {
	if err != nil && isMissing(err) {
		return "", nil
	}
	return s, err
}
