package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Arbin-com/github-upload/errors"
)

// Validate checks the values that are set. Whether a section is required
// depends on the command; see RequireJira and RequireGitHub.
func (c *Config) Validate() error {
	var problems []string

	if c.Jira.URL != "" {
		if u, err := url.Parse(c.Jira.URL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("jira.url %q is not an absolute URL", c.Jira.URL))
		}
	}
	if c.Jira.Parallelism < 0 {
		problems = append(problems, "jira.parallelism must not be negative")
	}
	if c.Jira.BatchSize < 0 {
		problems = append(problems, "jira.batch_size must not be negative")
	}
	if c.Jira.MaxAttempts < 0 {
		problems = append(problems, "jira.max_attempts must not be negative")
	}
	if c.Jira.RetryDelay < 0 {
		problems = append(problems, "jira.retry_delay must not be negative")
	}
	if r := c.GitHub.Repository; r != "" {
		owner, repo, ok := strings.Cut(r, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			problems = append(problems, fmt.Sprintf("github.repository %q is not owner/repo", r))
		}
	}
	if c.History.DedupCapacity < 0 {
		problems = append(problems, "history.dedup_capacity must not be negative")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		problems = append(problems, fmt.Sprintf("log_level %q is unknown", c.LogLevel))
	}
	if _, err := c.LabelTable(); err != nil {
		problems = append(problems, "notes.labels: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(errors.CodeInvalidConfig,
			fmt.Sprintf("configuration validation failed: %s", strings.Join(problems, "; ")))
	}
	return nil
}

// RequireJira checks that the issue tracker is configured.
func (c *Config) RequireJira() error {
	return require("jira", map[string]string{
		"url":   c.Jira.URL,
		"user":  c.Jira.User,
		"token": c.Jira.Token,
	})
}

// RequireGitHub checks that the release repository is configured. The token
// may come from the gh credentials instead.
func (c *Config) RequireGitHub() error {
	return require("github", map[string]string{"repository": c.GitHub.Repository})
}

func require(section string, fields map[string]string) error {
	var missing []string
	for _, name := range []string{"url", "user", "token", "repository"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, section+"."+name)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.CodeInvalidConfig, "missing configuration: "+strings.Join(missing, ", "))
	}
	return nil
}
