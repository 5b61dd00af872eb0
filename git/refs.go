package git

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// commit resolves rev to its commit object.
func (r *Repo) commit(rev string) (*object.Commit, error) {
	if rev == "" {
		return nil, WrapError(ErrInvalidRef, "revision cannot be empty")
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, WrapErrorf(ErrResolveFailed, "failed to resolve %q", rev)
	}

	c, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, WrapErrorf(ErrResolveFailed, "%q is not a commit", rev)
	}
	return c, nil
}

// peel follows annotated tags down to the tagged commit.
func (r *Repo) peel(hash plumbing.Hash) (*object.Commit, error) {
	if tag, err := r.repo.TagObject(hash); err == nil {
		return tag.Commit()
	}
	return r.repo.CommitObject(hash)
}

// CurrentBranch returns the short name of the checked out branch.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", WrapError(err, "failed to get HEAD reference")
	}

	if !head.Name().IsBranch() {
		return "", WrapError(ErrResolveFailed, "HEAD is detached")
	}
	return head.Name().Short(), nil
}

// DefaultBranch returns the branch the remote HEAD points at, without the
// remote name. Returns ErrBranchMissing when refs/remotes/<remote>/HEAD is
// not set.
func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	remote := r.options.Remote
	name := plumbing.NewRemoteHEADReferenceName(remote)

	ref, err := r.repo.Storer.Reference(name)
	if err != nil {
		return "", WrapErrorf(ErrBranchMissing, "no default branch for remote %q", remote)
	}
	if ref.Type() != plumbing.SymbolicReference {
		return "", WrapErrorf(ErrInvalidRef, "%s is not symbolic", name)
	}

	return strings.TrimPrefix(ref.Target().Short(), remote+"/"), nil
}

// BranchContaining returns the first local branch, in name order, whose head
// has rev as an ancestor. Returns ErrBranchMissing when no branch contains it.
func (r *Repo) BranchContaining(ctx context.Context, rev string) (string, error) {
	target, err := r.commit(rev)
	if err != nil {
		return "", err
	}

	branches, err := r.repo.Branches()
	if err != nil {
		return "", WrapError(err, "failed to list branches")
	}

	var names []string
	heads := make(map[string]plumbing.Hash)
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		heads[ref.Name().Short()] = ref.Hash()
		return nil
	})
	if err != nil {
		return "", WrapError(err, "failed to iterate branches")
	}
	slices.Sort(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		head, err := r.repo.CommitObject(heads[name])
		if err != nil {
			continue
		}
		if ok, err := target.IsAncestor(head); err == nil && ok {
			return name, nil
		}
	}
	return "", WrapErrorf(ErrBranchMissing, "no branch contains %q", rev)
}

// MergeBase returns the full hash of the best common ancestor of a and b.
// Returns ErrResolveFailed when they share no history.
func (r *Repo) MergeBase(ctx context.Context, a, b string) (string, error) {
	ca, err := r.commit(a)
	if err != nil {
		return "", err
	}
	cb, err := r.commit(b)
	if err != nil {
		return "", err
	}

	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", WrapError(err, "failed to compute merge base")
	}
	if len(bases) == 0 {
		return "", WrapErrorf(ErrResolveFailed, "%q and %q have no common ancestor", a, b)
	}
	return bases[0].Hash.String(), nil
}

// isMissing reports whether err means the queried thing does not exist.
func isMissing(err error) bool {
	return errors.Is(err, ErrBranchMissing) ||
		errors.Is(err, ErrResolveFailed) ||
		errors.Is(err, ErrTagMissing)
}
