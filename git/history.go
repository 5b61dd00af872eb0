package git

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/Arbin-com/github-upload/logstream"
)

// ShortHashLength is the abbreviated hash length used in log lines.
const ShortHashLength = 7

// LogFilter selects the commits of a log stream.
type LogFilter struct {
	// From is the starting revision. Defaults to HEAD.
	From string

	// MaxCount limits the number of commits; 0 means unlimited.
	MaxCount int

	// AllRefs walks every reference instead of From.
	AllRefs bool

	// TagsOnly walks the commits reachable from tags.
	TagsOnly bool
}

// LogLines streams history in the sectioned shape of
// `git log --pretty=<logstream.PrettyFormat>`: per commit the commit sentinel,
// the short hash, the branch sentinel, the git-style decoration, the message
// sentinel, the message lines and the end sentinel. Commits are read lazily;
// stopping the iteration stops the walk.
func (r *Repo) LogLines(ctx context.Context, f LogFilter) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for c, decoration := range r.walk(ctx, f, yield) {
			rec := logstream.Record{
				Hash:       shortHash(c.Hash),
				Decoration: decoration,
				Message:    strings.TrimRight(c.Message, "\n"),
			}
			for line := range logstream.Records(rec) {
				if !yield(line, nil) {
					return
				}
			}
		}
	}
}

// TagLogLines streams `git log --tags --pretty="%h %d"` lines: the short
// hash, a space and the decoration of each commit reachable from a tag.
func (r *Repo) TagLogLines(ctx context.Context, maxCount int) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f := LogFilter{MaxCount: maxCount, TagsOnly: true}
		for c, decoration := range r.walk(ctx, f, yield) {
			if !yield(shortHash(c.Hash)+" "+decoration, nil) {
				return
			}
		}
	}
}

// walk iterates commits with their decoration. Errors are reported through
// fail, the consumer's yield, which ends the walk.
func (r *Repo) walk(ctx context.Context, f LogFilter, fail func(string, error) bool) iter.Seq2[*object.Commit, string] {
	return func(yield func(*object.Commit, string) bool) {
		decorations, err := r.decorations()
		if err != nil {
			fail("", err)
			return
		}

		commits, err := r.commits(f)
		if err != nil {
			fail("", err)
			return
		}
		defer commits.Close()

		for count := 0; f.MaxCount <= 0 || count < f.MaxCount; count++ {
			if err := ctx.Err(); err != nil {
				fail("", err)
				return
			}

			c, err := commits.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				fail("", WrapError(err, "failed to get next commit"))
				return
			}

			if !yield(c, decorate(decorations[c.Hash])) {
				return
			}
		}
	}
}

// commits opens the commit iterator selected by f.
//
//nolint:ireturn // go-git exposes commit iteration as object.CommitIter
func (r *Repo) commits(f LogFilter) (object.CommitIter, error) {
	opts := &git.LogOptions{Order: git.LogOrderCommitterTime, All: f.AllRefs}

	if f.TagsOnly {
		tips, err := r.tagCommits()
		if err != nil {
			return nil, err
		}
		return newTipIter(tips), nil
	}

	if f.From != "" && !f.AllRefs {
		c, err := r.commit(f.From)
		if err != nil {
			return nil, err
		}
		opts.From = c.Hash
	}

	it, err := r.repo.Log(opts)
	if err != nil {
		return nil, WrapError(err, "failed to create commit iterator")
	}
	return it, nil
}

// tipIter walks the history of several tips newest first, each commit once.
type tipIter struct {
	heap *binaryheap.Heap
	seen map[plumbing.Hash]bool
}

func newTipIter(tips []*object.Commit) *tipIter {
	it := &tipIter{
		heap: binaryheap.NewWith(func(a, b interface{}) int {
			return b.(*object.Commit).Committer.When.Compare(a.(*object.Commit).Committer.When)
		}),
		seen: make(map[plumbing.Hash]bool),
	}
	for _, c := range tips {
		it.push(c)
	}
	return it
}

func (it *tipIter) push(c *object.Commit) {
	if it.seen[c.Hash] {
		return
	}
	it.seen[c.Hash] = true
	it.heap.Push(c)
}

func (it *tipIter) Next() (*object.Commit, error) {
	v, ok := it.heap.Pop()
	if !ok {
		return nil, io.EOF
	}
	c := v.(*object.Commit)
	err := c.Parents().ForEach(func(p *object.Commit) error {
		it.push(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (it *tipIter) ForEach(fn func(*object.Commit) error) error {
	for {
		c, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			if errors.Is(err, storer.ErrStop) {
				return nil
			}
			return err
		}
	}
}

func (it *tipIter) Close() {}

// tagCommits returns the distinct commits pointed at by tags.
func (r *Repo) tagCommits() ([]*object.Commit, error) {
	refs, err := r.repo.Tags()
	if err != nil {
		return nil, WrapError(err, "failed to get tags")
	}

	seen := make(map[plumbing.Hash]bool)
	var tips []*object.Commit
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		c, err := r.peel(ref.Hash())
		if err != nil || seen[c.Hash] {
			return nil
		}
		seen[c.Hash] = true
		tips = append(tips, c)
		return nil
	})
	if err != nil {
		return nil, WrapError(err, "failed to iterate tags")
	}

	return tips, nil
}

// decorations maps commits to the ref names git prints for them: HEAD first,
// then tags, then branches.
func (r *Repo) decorations() (map[plumbing.Hash][]string, error) {
	out := make(map[plumbing.Hash][]string)

	var headBranch plumbing.ReferenceName
	if head, err := r.repo.Storer.Reference(plumbing.HEAD); err == nil {
		if head.Type() == plumbing.SymbolicReference {
			headBranch = head.Target()
		}
		if resolved, err := r.repo.Head(); err == nil {
			name := "HEAD"
			if headBranch != "" {
				name = "HEAD -> " + headBranch.Short()
			}
			out[resolved.Hash()] = append(out[resolved.Hash()], name)
		}
	}

	refs, err := r.repo.References()
	if err != nil {
		return nil, WrapError(err, "failed to get references")
	}

	var tags, branches []*plumbing.Reference
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		switch name := ref.Name(); {
		case name.IsTag():
			tags = append(tags, ref)
		case name == headBranch:
		case name.IsBranch(), name.IsRemote():
			branches = append(branches, ref)
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, WrapError(err, "failed to iterate references")
	}

	byName := func(a, b *plumbing.Reference) int { return strings.Compare(a.Name().Short(), b.Name().Short()) }
	slices.SortFunc(tags, byName)
	slices.SortFunc(branches, byName)

	for _, ref := range tags {
		c, err := r.peel(ref.Hash())
		if err != nil {
			continue
		}
		out[c.Hash] = append(out[c.Hash], "tag: "+ref.Name().Short())
	}
	for _, ref := range branches {
		out[ref.Hash()] = append(out[ref.Hash()], ref.Name().Short())
	}
	return out, nil
}

// decorate renders names the way %d does: " (a, b)", or "" when empty.
func decorate(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return " (" + strings.Join(names, ", ") + ")"
}

func shortHash(h plumbing.Hash) string {
	return h.String()[:ShortHashLength]
}
