// Package config loads the relnotes configuration: a YAML file found by
// flag, in the working directory or in the XDG config directories, values
// from .env files and RELNOTES_* environment overrides.
//
// # Basic Usage
//
//	cfg, err := config.Load(config.LoadOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.RequireJira(); err != nil {
//	    log.Fatal(err)
//	}
//
// A file looks like:
//
//	repo:
//	  path: .
//	jira:
//	  url: https://acme.atlassian.net
//	  user: bot@acme.com
//	  projects: [QA, WQ]
//	github:
//	  repository: acme/daq
//	  tag_format: "daq.{0}"
//	notes:
//	  software: DAQ
package config

import (
	"log/slog"
	"time"

	"github.com/Arbin-com/github-upload/dedup"
	"github.com/Arbin-com/github-upload/jira"
	"github.com/Arbin-com/github-upload/notes"
)

// Config is the complete configuration.
type Config struct {
	Repo     RepoConfig    `yaml:"repo"`
	Jira     JiraConfig    `yaml:"jira"`
	GitHub   GitHubConfig  `yaml:"github"`
	Notes    NotesConfig   `yaml:"notes"`
	History  HistoryConfig `yaml:"history"`
	LogLevel string        `yaml:"log_level"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-"`
}

// RepoConfig selects the git repository.
type RepoConfig struct {
	Path   string `yaml:"path"`
	Remote string `yaml:"remote"`
	// UseCLI reads history through the git binary instead of go-git.
	UseCLI bool `yaml:"use_cli"`
}

// JiraConfig configures the issue tracker client.
type JiraConfig struct {
	URL         string        `yaml:"url"`
	User        string        `yaml:"user"`
	Token       string        `yaml:"token"`
	Projects    []string      `yaml:"projects"`
	NoteField   string        `yaml:"note_field"`
	Parallelism int           `yaml:"parallelism"`
	BatchSize   int           `yaml:"batch_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// GitHubConfig configures the release client.
type GitHubConfig struct {
	Repository string `yaml:"repository"`
	Token      string `yaml:"token"`
	Host       string `yaml:"host"`
	// TagFormat renders release tags, "{0}" standing for the version.
	TagFormat string `yaml:"tag_format"`
}

// NotesConfig configures release-note rendering.
type NotesConfig struct {
	Software string        `yaml:"software"`
	Labels   []notes.Label `yaml:"labels"`
}

// HistoryConfig tunes history mining.
type HistoryConfig struct {
	DedupCapacity int  `yaml:"dedup_capacity"`
	Conventional  bool `yaml:"conventional"`
	MaxCount      int  `yaml:"max_count"`
	TagScanCount  int  `yaml:"tag_scan_count"`
}

const (
	DefaultRemote        = "origin"
	DefaultDedupCapacity = dedup.DefaultCapacity
	DefaultTagScanCount  = 200
	DefaultTagFormat     = "{0}"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Repo.Path == "" {
		c.Repo.Path = "."
	}
	if c.Repo.Remote == "" {
		c.Repo.Remote = DefaultRemote
	}
	if c.Jira.NoteField == "" {
		c.Jira.NoteField = jira.ReleaseNoteField
	}
	if c.Jira.Parallelism == 0 {
		c.Jira.Parallelism = jira.DefaultParallelism
	}
	if c.Jira.BatchSize == 0 {
		c.Jira.BatchSize = jira.DefaultBatchSize
	}
	if c.Jira.MaxAttempts == 0 {
		c.Jira.MaxAttempts = jira.DefaultMaxAttempts
	}
	if c.Jira.RetryDelay == 0 {
		c.Jira.RetryDelay = jira.DefaultRetryDelay
	}
	if c.GitHub.TagFormat == "" {
		c.GitHub.TagFormat = DefaultTagFormat
	}
	if c.Notes.Software == "" {
		c.Notes.Software = "Software"
	}
	if c.History.DedupCapacity == 0 {
		c.History.DedupCapacity = DefaultDedupCapacity
	}
	if c.History.TagScanCount == 0 {
		c.History.TagScanCount = DefaultTagScanCount
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Level returns the configured log level, info when unparsable.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LabelTable builds the release-note sections, the default table when none
// are configured.
func (c *Config) LabelTable() (*notes.LabelTable, error) {
	if len(c.Notes.Labels) == 0 {
		return notes.DefaultLabels(), nil
	}
	return notes.NewLabelTable(c.Notes.Labels...)
}

// JiraOptions returns the client options of the configuration.
func (c *Config) JiraOptions(logger *slog.Logger) []jira.Option {
	return []jira.Option{
		jira.WithLogger(logger),
		jira.WithParallelism(c.Jira.Parallelism),
		jira.WithBatchSize(c.Jira.BatchSize),
		jira.WithRetry(c.Jira.MaxAttempts, c.Jira.RetryDelay),
		jira.WithReleaseNoteField(c.Jira.NoteField),
	}
}
