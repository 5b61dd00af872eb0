package git

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// push sends refspecs to remote, mapping go-git results to sentinels.
func (r *Repo) push(ctx context.Context, remote string, specs []config.RefSpec, force bool) error {
	if remote == "" {
		remote = r.options.Remote
	}
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return WrapErrorf(ErrInvalidRef, "refspec %q", spec)
		}
	}

	method, err := r.authFor(remote)
	if err != nil {
		return err
	}

	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   specs,
		Force:      force,
		Auth:       method,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, git.ErrRemoteNotFound):
		return WrapErrorf(ErrResolveFailed, "remote %q not found", remote)
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return ErrAlreadyUpToDate
	default:
		return WrapError(err, "failed to push to remote")
	}
}

// PushTag pushes a local tag to remote. With force a remote tag of the same
// name is overwritten.
func (r *Repo) PushTag(ctx context.Context, remote, name string, force bool) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "tag name cannot be empty")
	}
	ref := plumbing.NewTagReferenceName(name)
	if _, err := r.repo.Reference(ref, false); err != nil {
		return WrapErrorf(ErrTagMissing, "tag %q", name)
	}

	spec := config.RefSpec(ref.String() + ":" + ref.String())
	return r.push(ctx, remote, []config.RefSpec{spec}, force)
}

// DeleteRemoteTags removes the named tags from remote in a single push.
// Deleting nothing is a no-op.
func (r *Repo) DeleteRemoteTags(ctx context.Context, remote string, names []string) error {
	specs := make([]config.RefSpec, 0, len(names))
	for _, name := range names {
		if name == "" {
			return WrapError(ErrInvalidRef, "tag name cannot be empty")
		}
		specs = append(specs, config.RefSpec(":"+plumbing.NewTagReferenceName(name).String()))
	}
	if len(specs) == 0 {
		return nil
	}
	if remote == "" {
		remote = r.options.Remote
	}

	r.logger.Info("deleting remote tags", "remote", remote, "count", len(specs))
	err := r.push(ctx, remote, specs, false)
	if errors.Is(err, ErrAlreadyUpToDate) {
		return nil
	}
	return err
}
