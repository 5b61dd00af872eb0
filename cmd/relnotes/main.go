// Command relnotes mines git history for changelogs and Jira issue keys,
// renders release notes and manages the GitHub releases built from them.
//
// Usage:
//
//	relnotes <command> [flags]
//
// Every flag can also be set through the environment: -max-count reads
// RELNOTES_MAX_COUNT. Run "relnotes <command> -h" for the flags of a command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/namsral/flag"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// runFunc executes a command once its flags are parsed.
type runFunc func(ctx context.Context, a *app) error

// command registers its flags on fs and returns the function running it.
type command struct {
	name    string
	summary string
	setup   func(fs *flag.FlagSet) runFunc
}

var commands = []command{
	{"changelog", "render the grouped changelog since the previous release", changelogCommand},
	{"issue-keys", "list the Jira issue keys referenced since the previous release", issueKeysCommand},
	{"release-notes", "fetch the release notes of the referenced Jira issues", releaseNotesCommand},
	{"prev-version", "find the newest tag of a release line and its predecessors", prevVersionCommand},
	{"find-version", "find the highest tag matching a version pattern", findVersionCommand},
	{"old-tags", "list tags containing a commit that are older than a version", oldTagsCommand},
	{"prune-tags", "delete old release tags from the remote", pruneTagsCommand},
	{"match-release", "download the assets of the release described by a release file", matchReleaseCommand},
	{"publish", "create or refresh a GitHub prerelease and upload its assets", publishCommand},
	{"jira-fields", "print raw fields of a Jira issue", jiraFieldsCommand},
	{"projects", "list the Jira project keys", projectsCommand},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}

	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		usage(stdout)
		return exitOK
	}

	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(stderr, "relnotes: unknown command %q\n\n", name)
		usage(stderr)
		return exitUsage
	}

	fs := flag.NewFlagSetWithEnvPrefix(name, "RELNOTES", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var g globalFlags
	g.register(fs)
	exec := cmd.setup(fs)

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	a, err := newApp(g, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "relnotes: %v\n", err)
		return exitError
	}

	if err := exec(ctx, a); err != nil {
		a.logger.Error(name+" failed", "error", err)
		return exitError
	}
	return exitOK
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: relnotes <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.summary)
	}
}
