package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Arbin-com/github-upload/errors"
)

const (
	// FileName is looked up in the working directory.
	FileName = "relnotes.yaml"

	// XDGPath is looked up below the XDG config directories.
	XDGPath = "relnotes/config.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "RELNOTES_"
)

// LoadOptions controls Load.
type LoadOptions struct {
	// Path is an explicit configuration file; it must exist.
	Path string

	// EnvFiles are .env files to read. When empty, ".env" is read if present.
	EnvFiles []string

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// SkipValidation disables Validate.
	SkipValidation bool
}

// Load finds, reads and validates the configuration. Precedence, lowest
// first: defaults, file, .env files, process environment.
func Load(opts LoadOptions) (*Config, error) {
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	cfg := &Config{}
	path, err := findFile(opts.Path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "failed to open %s", path)
		}
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "failed to parse %s", path)
		}
		cfg.Source = path
	}

	dotenv, err := readEnvFiles(opts.EnvFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := opts.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if !opts.SkipValidation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse decodes YAML data and applies defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decode(bytes.NewReader(data), cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to parse configuration")
	}
	cfg.applyDefaults()
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// findFile resolves the configuration file: the explicit path, then
// ./relnotes.yaml, then the XDG config directories. "" means none.
func findFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrapf(err, errors.CodeInvalidConfig, "configuration file %s", explicit)
		}
		return explicit, nil
	}
	if info, err := os.Stat(FileName); err == nil && !info.IsDir() {
		return FileName, nil
	}
	if p, err := xdg.SearchConfigFile(XDGPath); err == nil {
		return p, nil
	}
	return "", nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil, nil
		}
		files = []string{".env"}
	}
	env, err := godotenv.Read(files...)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "env file not found")
		}
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to read env files")
	}
	return env, nil
}

// applyEnv overrides cfg from RELNOTES_* variables. Tokens also fall back to
// the conventional JIRA_API_TOKEN, GH_TOKEN and GITHUB_TOKEN.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, errors.CodeInvalidConfig, "%s must be a number", key)
		}
		*dst = n
		return nil
	}

	str(&cfg.Repo.Path, EnvPrefix+"REPO_PATH")
	str(&cfg.Repo.Remote, EnvPrefix+"REPO_REMOTE")
	str(&cfg.Jira.URL, EnvPrefix+"JIRA_URL")
	str(&cfg.Jira.User, EnvPrefix+"JIRA_USER")
	str(&cfg.Jira.Token, EnvPrefix+"JIRA_TOKEN")
	if cfg.Jira.Token == "" {
		str(&cfg.Jira.Token, "JIRA_API_TOKEN")
	}
	str(&cfg.GitHub.Token, EnvPrefix+"GITHUB_TOKEN")
	if cfg.GitHub.Token == "" {
		str(&cfg.GitHub.Token, "GH_TOKEN", "GITHUB_TOKEN")
	}
	str(&cfg.GitHub.Repository, EnvPrefix+"GITHUB_REPOSITORY")
	str(&cfg.GitHub.Host, EnvPrefix+"GITHUB_HOST")
	str(&cfg.LogLevel, EnvPrefix+"LOG_LEVEL")

	if v, ok := lookup(EnvPrefix + "JIRA_PROJECTS"); ok && v != "" {
		cfg.Jira.Projects = splitList(v)
	}
	return num(&cfg.Jira.Parallelism, EnvPrefix+"JIRA_PARALLELISM")
}

func splitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' || r == ' ' })
}
