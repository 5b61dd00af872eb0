// Package git provides a go-git facade for the repository queries used when
// mining release history.
//
// Repositories are opened over a billy filesystem, so the same code runs
// against a checkout on disk and an in-memory repository in tests:
//
//	repo, err := git.Open(ctx, &git.Options{FS: osfs.New("/path/to/repo")})
//
// # History streams
//
// LogLines produces the sectioned line stream consumed by logstream.Parser,
// with the decoration rendered the way `git log %d` does:
//
//	#_cm_
//	1a2b3c4
//	#_bh_
//	 (HEAD -> main, tag: 1.2.0-release, origin/main)
//	#_ms_
//	--fix
//	crash on empty config
//	#_end_
//
// TagLogLines produces the "<hash> <decoration>" lines of
// `git log --tags --pretty="%h %d"`. CLI streams the same shapes from the git
// binary for repositories go-git cannot read.
//
// # Stop commits
//
// Inspector adapts a Repo to history.Inspector: default branch from
// refs/remotes/<remote>/HEAD, the first branch containing a tag and merge
// bases. Missing refs are reported as empty strings.
//
// # Error handling
//
// Errors wrap the sentinels in errors.go and can be checked with errors.Is:
//
//	if errors.Is(err, git.ErrBranchMissing) {
//	    // no default branch configured
//	}
package git
