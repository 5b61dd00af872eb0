package git

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/zyedidia/glob"
)

// TagFilter is a predicate function for filtering tags.
// Filters are applied progressively - if any filter returns false, the tag is excluded.
type TagFilter func(name string, ref *plumbing.Reference) bool

// Signature identifies the tagger of an annotated tag.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) object() *object.Signature {
	when := s.When
	if when.IsZero() {
		when = time.Now()
	}
	return &object.Signature{Name: s.Name, Email: s.Email, When: when}
}

// CreateTag creates a tag at target. A non-empty message creates an annotated
// tag signed by who, otherwise a lightweight tag is created. With force an
// existing tag of the same name is replaced.
func (r *Repo) CreateTag(ctx context.Context, name, target, message string, who Signature, force bool) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "tag name cannot be empty")
	}
	if target == "" {
		return WrapError(ErrInvalidRef, "target revision cannot be empty")
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(target))
	if err != nil {
		return WrapErrorf(ErrResolveFailed, "failed to resolve %q", target)
	}

	refName := plumbing.NewTagReferenceName(name)
	if _, err := r.repo.Reference(refName, false); err == nil {
		if !force {
			return WrapErrorf(ErrTagExists, "tag %q", name)
		}
		if err := r.repo.DeleteTag(name); err != nil {
			return WrapError(err, "failed to replace tag")
		}
	}

	if message != "" {
		_, err = r.repo.CreateTag(name, *hash, &git.CreateTagOptions{
			Tagger:  who.object(),
			Message: message,
		})
		return WrapError(err, "failed to create annotated tag")
	}

	err = r.repo.Storer.SetReference(plumbing.NewHashReference(refName, *hash))
	return WrapError(err, "failed to create lightweight tag")
}

// DeleteTag deletes the specified tag from the repository.
// Returns ErrTagMissing if the tag does not exist.
func (r *Repo) DeleteTag(ctx context.Context, name string) error {
	if name == "" {
		return WrapError(ErrInvalidRef, "tag name cannot be empty")
	}

	err := r.repo.DeleteTag(name)
	if errors.Is(err, git.ErrTagNotFound) {
		return WrapErrorf(ErrTagMissing, "tag %q", name)
	}
	return WrapError(err, "failed to delete tag")
}

// Tags returns the tag names that pass all the provided filters, sorted.
func (r *Repo) Tags(ctx context.Context, filters ...TagFilter) ([]string, error) {
	refs, err := r.repo.Tags()
	if err != nil {
		return nil, WrapError(err, "failed to get tags")
	}

	var tags []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := ref.Name().Short()
		if shouldIncludeTag(name, ref, filters) {
			tags = append(tags, name)
		}
		return nil
	})
	if err != nil {
		return nil, WrapError(err, "failed to iterate tags")
	}

	slices.Sort(tags)
	return tags, nil
}

// TagsContaining returns the sorted tags whose commit has rev as an ancestor
// (or is rev itself).
func (r *Repo) TagsContaining(ctx context.Context, rev string) ([]string, error) {
	base, err := r.commit(rev)
	if err != nil {
		return nil, err
	}

	return r.Tags(ctx, func(name string, ref *plumbing.Reference) bool {
		c, err := r.peel(ref.Hash())
		if err != nil {
			r.logger.Debug("skipping tag", "tag", name, "error", err)
			return false
		}
		ok, err := base.IsAncestor(c)
		return err == nil && ok
	})
}

// shouldIncludeTag checks if a tag passes all filters
func shouldIncludeTag(name string, ref *plumbing.Reference, filters []TagFilter) bool {
	for _, filter := range filters {
		if filter != nil && !filter(name, ref) {
			return false
		}
	}
	return true
}

// TagGlobFilter returns a filter that matches the whole tag name against a
// glob pattern ("*" and "?" wildcards, "[...]" classes). An empty pattern
// matches everything; an invalid one matches nothing.
func TagGlobFilter(pattern string) TagFilter {
	if pattern == "" {
		return nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return func(string, *plumbing.Reference) bool { return false }
	}
	return func(name string, _ *plumbing.Reference) bool {
		return g.MatchString(name)
	}
}

// TagPrefixFilter returns a filter that matches tags with the given prefix.
func TagPrefixFilter(prefix string) TagFilter {
	return func(name string, _ *plumbing.Reference) bool {
		return strings.HasPrefix(name, prefix)
	}
}
