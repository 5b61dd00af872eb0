package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Arbin-com/github-upload/version"
)

// Inspector answers the repository questions needed to find where the
// previous release branched off. Methods return "" with a nil error when
// the answer does not exist.
type Inspector interface {
	// TagNames lists all tag names.
	TagNames(ctx context.Context) ([]string, error)

	// DefaultBranch returns the remote's default branch, e.g. "main".
	DefaultBranch(ctx context.Context) (string, error)

	// BranchContaining returns a branch containing the tag.
	BranchContaining(ctx context.Context, tag string) (string, error)

	// MergeBase returns the best common ancestor of two revisions.
	MergeBase(ctx context.Context, a, b string) (string, error)
}

// ResolveStopCommit finds the commit where the branch of the release before
// ref left the default branch. Scanning history down to that commit covers
// exactly the changes of ref.
//
// With stableOrPatch the previous release is the previous patch, else the
// previous stable release. Otherwise only stable references are resolved,
// against the previous release with the same suffix.
//
// An empty result means no stop commit applies.
func ResolveStopCommit(ctx context.Context, insp Inspector, ref version.Version, stableOrPatch bool) (StopCommit, error) {
	logger := slog.Default()

	defaultBranch, err := insp.DefaultBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve default branch: %w", err)
	}
	if defaultBranch == "" {
		logger.Debug("no default branch, scanning without stop commit")
		return "", nil
	}

	if !stableOrPatch && !ref.IsStable() {
		return "", nil
	}

	names, err := insp.TagNames(ctx)
	if err != nil {
		return "", fmt.Errorf("list tags: %w", err)
	}
	tags := ParseTags(names)

	var prev version.Version
	var ok bool
	if stableOrPatch {
		prev, ok = PreviousStableOrPatch(tags, ref)
	} else {
		prev, ok = PreviousVersion(tags, ref)
	}
	if !ok {
		logger.Debug("no previous release", "reference", ref.String())
		return "", nil
	}

	branch, err := insp.BranchContaining(ctx, prev.String())
	if err != nil {
		return "", fmt.Errorf("find branch containing %s: %w", prev, err)
	}
	if branch == "" {
		logger.Debug("previous release is on no branch", "previous", prev.String())
		return "", nil
	}

	base, err := insp.MergeBase(ctx, defaultBranch, branch)
	if err != nil {
		return "", fmt.Errorf("merge base of %s and %s: %w", defaultBranch, branch, err)
	}
	logger.Debug("resolved stop commit",
		"previous", prev.String(),
		"branch", branch,
		"default_branch", defaultBranch,
		"commit", base,
	)
	return StopCommit(base), nil
}
