package git

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Arbin-com/github-upload/executor"
	"github.com/Arbin-com/github-upload/history"
	"github.com/Arbin-com/github-upload/logstream"
)

const (
	cliAttempts   = 3
	cliRetryDelay = 500 * time.Millisecond
)

// transientMarkers are stderr fragments of git failures that may succeed on
// a second attempt: lock files left by a concurrent git process and flaky
// remote connections.
var transientMarkers = []string{
	".lock': File exists",
	"Could not resolve host",
	"Connection reset",
	"Connection timed out",
	"The remote end hung up unexpectedly",
	"early EOF",
}

var _ history.Inspector = (*CLI)(nil)

// CLI reads history and manages tags through the git binary. It streams the
// same lines as Repo.LogLines and Repo.TagLogLines and is the fallback for
// repositories go-git cannot open (partial clones, worktrees with alternates).
type CLI struct {
	git    *executor.WrappedExecutor
	remote string
}

// NewCLI returns a CLI running git in dir. remote defaults to
// DefaultRemoteName.
func NewCLI(dir, remote string, logger *slog.Logger) *CLI {
	if remote == "" {
		remote = DefaultRemoteName
	}
	return &CLI{
		git: executor.NewWrappedExecutor("git",
			executor.WithWorkingDir(dir),
			executor.WithLogger(logger),
			executor.WithEnv(map[string]string{
				"GIT_TERMINAL_PROMPT": "0",
				"LC_ALL":              "C",
			}),
		),
		remote: remote,
	}
}

// Log streams `git log` in the sectioned shape.
func (c *CLI) Log(ctx context.Context, f LogFilter) iter.Seq2[string, error] {
	args := []string{"log", "--pretty=" + logstream.PrettyFormat}
	args = append(args, logArgs(f)...)
	return c.git.Command(args...).Lines(ctx)
}

// TagLog streams `git log --tags --pretty="%h %d"`.
func (c *CLI) TagLog(ctx context.Context, maxCount int) iter.Seq2[string, error] {
	args := []string{"log", "--tags", "--pretty=%h %d"}
	args = append(args, logArgs(LogFilter{MaxCount: maxCount})...)
	return c.git.Command(args...).Lines(ctx)
}

// Tags lists tag names matching the glob pattern, sorted.
func (c *CLI) Tags(ctx context.Context, pattern string) ([]string, error) {
	args := []string{"tag", "-l"}
	if pattern != "" {
		args = append(args, pattern)
	}
	return c.list(ctx, args...)
}

// TagNames returns every tag name.
func (c *CLI) TagNames(ctx context.Context) ([]string, error) {
	return c.Tags(ctx, "")
}

// TagsContaining returns the sorted tags whose commit has rev as an ancestor.
func (c *CLI) TagsContaining(ctx context.Context, rev string) ([]string, error) {
	if rev == "" {
		return nil, WrapError(ErrInvalidRef, "revision cannot be empty")
	}
	return c.list(ctx, "tag", "--contains", rev)
}

// DefaultBranch returns the branch refs/remotes/<remote>/HEAD points at, or
// "" when it is not set.
func (c *CLI) DefaultBranch(ctx context.Context) (string, error) {
	ref := "refs/remotes/" + c.remote + "/HEAD"
	if hash, err := c.revParse(ctx, ref); err != nil || hash == "" {
		return "", err
	}

	res, err := c.run(ctx, "symbolic-ref", "--quiet", "--short", ref)
	if err != nil {
		if missing(res) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimPrefix(strings.TrimSpace(res.Stdout), c.remote+"/"), nil
}

// BranchContaining returns the first local branch, in name order, containing
// the tag, or "".
func (c *CLI) BranchContaining(ctx context.Context, tag string) (string, error) {
	hash, err := c.revParse(ctx, "refs/tags/"+tag)
	if err != nil || hash == "" {
		return "", err
	}

	branches, err := c.list(ctx, "branch", "--contains", hash, "--format=%(refname:short)")
	if err != nil || len(branches) == 0 {
		return "", err
	}
	return branches[0], nil
}

// MergeBase returns the full hash of the merge base of a and b, or "" when
// either does not exist or they share no history.
func (c *CLI) MergeBase(ctx context.Context, a, b string) (string, error) {
	ha, err := c.revParse(ctx, a)
	if err != nil || ha == "" {
		return "", err
	}
	hb, err := c.revParse(ctx, b)
	if err != nil || hb == "" {
		return "", err
	}

	res, err := c.run(ctx, "merge-base", ha, hb)
	if err != nil {
		if missing(res) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// DeleteRemoteTags removes the named tags from remote in a single push.
// Credentials come from the git configuration of the repository.
func (c *CLI) DeleteRemoteTags(ctx context.Context, remote string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if remote == "" {
		remote = c.remote
	}

	args := []string{"push", remote}
	for _, name := range names {
		if name == "" {
			return WrapError(ErrInvalidRef, "tag name cannot be empty")
		}
		args = append(args, ":refs/tags/"+name)
	}

	if _, err := c.run(ctx, args...); err != nil {
		return WrapErrorf(err, "failed to delete %d tags from %q", len(names), remote)
	}
	return nil
}

// run executes git to completion, retrying transient failures.
func (c *CLI) run(ctx context.Context, args ...string) (*executor.Result, error) {
	return c.git.Execute(ctx, args,
		executor.WithRetry(cliAttempts-1, cliRetryDelay),
		executor.WithRetryCondition(transient),
	)
}

// list runs git and returns its non-empty output lines, sorted.
func (c *CLI) list(ctx context.Context, args ...string) ([]string, error) {
	res, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	slices.Sort(out)
	return out, nil
}

// revParse resolves rev to a commit hash, "" when it does not exist.
func (c *CLI) revParse(ctx context.Context, rev string) (string, error) {
	res, err := c.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		if missing(res) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// missing reports the exit status git uses for "no such thing" answers.
func missing(res *executor.Result) bool {
	return res != nil && res.ExitCode == 1
}

func transient(err error) bool {
	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func logArgs(f LogFilter) []string {
	var args []string
	if f.MaxCount > 0 {
		args = append(args, "-n", strconv.Itoa(f.MaxCount))
	}
	switch {
	case f.AllRefs:
		args = append(args, "--all")
	case f.TagsOnly:
		args = append(args, "--tags")
	case f.From != "":
		args = append(args, f.From)
	}
	return args
}
