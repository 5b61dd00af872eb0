package git

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/Arbin-com/github-upload/git/internal/auth"
	"github.com/Arbin-com/github-upload/git/internal/fsbridge"
)

const (
	// DefaultStorerCacheSize is the default LRU object cache size in MiB.
	DefaultStorerCacheSize = 64

	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."

	// DefaultRemoteName is the default remote name used for operations.
	DefaultRemoteName = "origin"
)

// AuthProvider resolves the transport authentication for a remote URL.
// A nil method means no authentication.
type AuthProvider interface {
	Method(remoteURL string) (transport.AuthMethod, error)
}

// TokenAuth returns an HTTPS provider that sends token as the password.
func TokenAuth(token string, hosts ...string) AuthProvider {
	return auth.NewHTTPSTokenProvider(token).WithAllowedHosts(hosts...)
}

// Options configures repository discovery and creation.
type Options struct {
	// FS is the REQUIRED filesystem root (osfs on disk, memfs in tests).
	FS billy.Filesystem

	// Workdir is the path within FS for the worktree root.
	// Defaults to ".".
	Workdir string

	// Bare indicates a repository without worktree.
	Bare bool

	// StorerCacheSize sets the LRU object cache size in MiB.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int

	// Auth is used for push operations. If nil, no authentication is sent.
	Auth AuthProvider

	// Remote is the remote used for default branch lookup and tag pruning.
	// Defaults to DefaultRemoteName.
	Remote string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return WrapError(ErrInvalidRef, "FS is required")
	}
	if o.StorerCacheSize < 0 {
		return WrapError(ErrInvalidRef, "StorerCacheSize cannot be negative")
	}
	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}
	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
	if o.Remote == "" {
		o.Remote = DefaultRemoteName
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Repo is an opened repository.
type Repo struct {
	repo     *git.Repository
	worktree *git.Worktree
	options  Options
	logger   *slog.Logger
}

// storage builds the object storage and worktree filesystem for opts.
func storage(opts *Options) (*filesystem.Storage, billy.Filesystem, error) {
	scopedFS, err := opts.FS.Chroot(opts.Workdir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to chroot to workdir %q: %w", opts.Workdir, err)
	}

	if opts.Bare {
		return fsbridge.NewStorage(scopedFS, opts.StorerCacheSize), nil, nil
	}

	dotGitFS, err := scopedFS.Chroot(".git")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access .git directory: %w", err)
	}
	return fsbridge.NewStorage(dotGitFS, opts.StorerCacheSize), scopedFS, nil
}

func newRepo(repo *git.Repository, opts *Options) (*Repo, error) {
	r := &Repo{
		repo:    repo,
		options: *opts,
		logger:  opts.Logger,
	}
	if !opts.Bare {
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, WrapError(err, "failed to get worktree")
		}
		r.worktree = worktree
	}
	return r, nil
}

// Init creates a new repository at the configured location.
func Init(ctx context.Context, opts *Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}
	opts.applyDefaults()

	st, worktreeFS, err := storage(opts)
	if err != nil {
		return nil, err
	}

	repo, err := git.Init(st, worktreeFS)
	if err != nil {
		return nil, WrapError(err, "failed to initialize repository")
	}
	return newRepo(repo, opts)
}

// Open opens an existing repository at the configured location.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}
	opts.applyDefaults()

	st, worktreeFS, err := storage(opts)
	if err != nil {
		return nil, err
	}

	repo, err := git.Open(st, worktreeFS)
	if err != nil {
		return nil, WrapError(err, "failed to open repository")
	}

	opts.Logger.Debug("opened repository", "workdir", opts.Workdir, "bare", opts.Bare)
	return newRepo(repo, opts)
}

// OpenDir opens the repository rooted at dir on the OS filesystem.
func OpenDir(ctx context.Context, dir string, provider AuthProvider, logger *slog.Logger) (*Repo, error) {
	return Open(ctx, &Options{
		FS:     osfs.New(dir),
		Auth:   provider,
		Logger: logger,
	})
}

// Remote returns the configured remote name.
func (r *Repo) Remote() string {
	return r.options.Remote
}

// authFor resolves authentication for the first URL of remote.
//
//nolint:ireturn // go-git requires the transport.AuthMethod interface
func (r *Repo) authFor(remote string) (transport.AuthMethod, error) {
	if r.options.Auth == nil {
		return nil, nil
	}

	rem, err := r.repo.Remote(remote)
	if err != nil {
		return nil, WrapErrorf(ErrResolveFailed, "remote %q not found", remote)
	}
	urls := rem.Config().URLs
	if len(urls) == 0 {
		return nil, WrapErrorf(ErrInvalidRef, "remote %q has no URL", remote)
	}

	method, err := r.options.Auth.Method(urls[0])
	if err != nil {
		return nil, WrapError(ErrAuthRequired, err.Error())
	}
	return method, nil
}
