package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/namsral/flag"

	"github.com/Arbin-com/github-upload/config"
	"github.com/Arbin-com/github-upload/git"
	"github.com/Arbin-com/github-upload/github"
	"github.com/Arbin-com/github-upload/history"
	"github.com/Arbin-com/github-upload/jira"
)

// globalFlags are accepted by every command.
type globalFlags struct {
	configFile string
	envFile    string
	repo       string
	verbose    bool
	json       bool
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configFile, "config-file", "", "configuration file (default ./relnotes.yaml or the XDG config dir)")
	fs.StringVar(&g.envFile, "env-file", "", "dotenv file to read (default .env when present)")
	fs.StringVar(&g.repo, "repo", "", "repository directory (default from configuration)")
	fs.BoolVar(&g.verbose, "verbose", false, "log debug messages")
	fs.BoolVar(&g.json, "json", false, "print JSON instead of text")
}

// app carries the state shared by commands. The repository and the clients
// are created on first use.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	json   bool

	stdin  io.Reader
	stdout io.Writer

	repo *git.Repo
}

func newApp(g globalFlags, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	opts := config.LoadOptions{Path: g.configFile}
	if g.envFile != "" {
		opts.EnvFiles = []string{g.envFile}
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, err
	}
	if g.repo != "" {
		cfg.Repo.Path = g.repo
	}

	level := cfg.Level()
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if cfg.Source != "" {
		logger.Debug("loaded configuration", "file", cfg.Source)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		json:   g.json,
		stdin:  stdin,
		stdout: stdout,
	}, nil
}

// gitRepo opens the configured repository with GitHub token authentication
// for pushes.
func (a *app) gitRepo(ctx context.Context) (*git.Repo, error) {
	if a.repo != nil {
		return a.repo, nil
	}

	var provider git.AuthProvider
	if a.cfg.GitHub.Token != "" {
		host := a.cfg.GitHub.Host
		if host == "" {
			host = github.DefaultHost
		}
		provider = git.TokenAuth(a.cfg.GitHub.Token, host)
	}

	repo, err := git.Open(ctx, &git.Options{
		FS:     osfs.New(a.cfg.Repo.Path),
		Auth:   provider,
		Remote: a.cfg.Repo.Remote,
		Logger: a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", a.cfg.Repo.Path, err)
	}
	a.repo = repo
	return repo, nil
}

func (a *app) cli() *git.CLI {
	return git.NewCLI(a.cfg.Repo.Path, a.cfg.Repo.Remote, a.logger)
}

// inspector answers stop-commit queries, through the git binary when
// configured.
func (a *app) inspector(ctx context.Context) (history.Inspector, error) {
	if a.cfg.Repo.UseCLI {
		return a.cli(), nil
	}
	repo, err := a.gitRepo(ctx)
	if err != nil {
		return nil, err
	}
	return git.Inspector{Repo: repo}, nil
}

// tagStore lists and deletes release tags. Both *git.Repo and *git.CLI
// implement it.
type tagStore interface {
	TagsContaining(ctx context.Context, rev string) ([]string, error)
	DeleteRemoteTags(ctx context.Context, remote string, names []string) error
}

func (a *app) tags(ctx context.Context) (tagStore, error) {
	if a.cfg.Repo.UseCLI {
		return a.cli(), nil
	}
	repo, err := a.gitRepo(ctx)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// logLines streams the sectioned history, through the git binary when
// configured.
func (a *app) logLines(ctx context.Context, f git.LogFilter) (iter.Seq2[string, error], error) {
	if f.MaxCount == 0 {
		f.MaxCount = a.cfg.History.MaxCount
	}
	if a.cfg.Repo.UseCLI {
		return a.cli().Log(ctx, f), nil
	}
	repo, err := a.gitRepo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.LogLines(ctx, f), nil
}

// tagLogLines streams "<hash> <decoration>" lines of tagged history.
func (a *app) tagLogLines(ctx context.Context, maxCount int) (iter.Seq2[string, error], error) {
	if maxCount <= 0 {
		maxCount = a.cfg.History.TagScanCount
	}
	if a.cfg.Repo.UseCLI {
		return a.cli().TagLog(ctx, maxCount), nil
	}
	repo, err := a.gitRepo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.TagLogLines(ctx, maxCount), nil
}

// tagNames lists tags matching the glob pattern, all tags when empty.
func (a *app) tagNames(ctx context.Context, pattern string) ([]string, error) {
	if a.cfg.Repo.UseCLI {
		return a.cli().Tags(ctx, pattern)
	}
	repo, err := a.gitRepo(ctx)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return repo.Tags(ctx)
	}
	return repo.Tags(ctx, git.TagGlobFilter(pattern))
}

func (a *app) jiraClient() (*jira.Client, error) {
	if err := a.cfg.RequireJira(); err != nil {
		return nil, err
	}
	return jira.New(a.cfg.Jira.URL, a.cfg.Jira.User, a.cfg.Jira.Token, a.cfg.JiraOptions(a.logger)...)
}

func (a *app) githubClient() (*github.Client, error) {
	if err := a.cfg.RequireGitHub(); err != nil {
		return nil, err
	}
	opts := []github.Option{github.WithLogger(a.logger)}
	if a.cfg.GitHub.Host != "" {
		opts = append(opts, github.WithHost(a.cfg.GitHub.Host))
	}
	return github.New(a.cfg.GitHub.Repository, a.cfg.GitHub.Token, opts...)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (a *app) println(lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(a.stdout, line); err != nil {
			return err
		}
	}
	return nil
}

// splitList splits comma, semicolon or space separated values.
func splitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' || r == ' ' })
}
