package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/namsral/flag"

	"github.com/Arbin-com/github-upload/git"
	"github.com/Arbin-com/github-upload/github"
	"github.com/Arbin-com/github-upload/release"
)

func matchReleaseCommand(fs *flag.FlagSet) runFunc {
	ref := fs.String("ref", "", "version pattern or release file name")
	dir := fs.String("dir", ".", "root of the <major>/<minor>/<version>.md release files")
	store := fs.String("store", "download", "directory receiving the release assets")
	tagFormat := fs.String("tag-format", "", "release tag template, {0} standing for the version (default from configuration)")

	return func(ctx context.Context, a *app) error {
		if *ref == "" {
			return errNoReference
		}
		m, err := release.Find(os.DirFS(*dir), *ref)
		if err != nil {
			return err
		}

		tag := m.Tag
		if tag == "" {
			format := *tagFormat
			if format == "" {
				format = a.cfg.GitHub.TagFormat
			}
			tag = release.FormatTag(format, m.Version)
		}
		a.logger.Info("matched release file", "path", m.Path, "tag", tag, "commit", m.CodeData.CommitID)

		client, err := a.githubClient()
		if err != nil {
			return err
		}
		rel, err := client.ReleaseByTag(ctx, tag)
		if err != nil {
			return err
		}
		files, err := client.DownloadAssets(ctx, rel, osfs.New(*store), ".")
		if err != nil {
			return err
		}

		if a.json {
			return a.writeJSON(struct {
				Version  string   `json:"version"`
				Tag      string   `json:"tag"`
				CommitID string   `json:"commitId,omitempty"`
				Files    []string `json:"files"`
			}{m.Version, tag, m.CodeData.CommitID, files})
		}
		return a.println(append([]string{m.Version, tag, m.CodeData.CommitID}, files...)...)
	}
}

// tagPusher creates the release tag at HEAD and force-pushes it.
type tagPusher struct {
	repo   *git.Repo
	remote string
	who    git.Signature
}

func (t tagPusher) PublishTag(ctx context.Context, name, message string) error {
	if err := t.repo.CreateTag(ctx, name, "HEAD", message, t.who, true); err != nil {
		return err
	}
	err := t.repo.PushTag(ctx, t.remote, name, true)
	if errors.Is(err, git.ErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func publishCommand(fs *flag.FlagSet) runFunc {
	var opts github.PublishOptions
	fs.StringVar(&opts.Tag, "tag", "", "release name")
	fs.StringVar(&opts.Suffix, "suffix", "", "suffix appended to the git tag as -<suffix>")
	fs.StringVar(&opts.Message, "message", "", "release body line and tag message")
	fs.StringVar(&opts.AssetDir, "asset-dir", ".", "directory holding the assets")
	fs.BoolVar(&opts.Hotfix, "hotfix", false, "delete every existing asset before uploading")
	assets := fs.String("assets", "", "asset files relative to -asset-dir, comma separated")
	noTag := fs.Bool("no-tag", false, "do not create the git tag of a new release")
	taggerName := fs.String("tagger-name", "relnotes", "name of the tag author")
	taggerEmail := fs.String("tagger-email", "relnotes@localhost", "email of the tag author")

	return func(ctx context.Context, a *app) error {
		client, err := a.githubClient()
		if err != nil {
			return err
		}

		opts.Assets = splitList(*assets)
		opts.FS = osfs.New(opts.AssetDir)
		opts.AssetDir = "."
		if !*noTag {
			repo, err := a.gitRepo(ctx)
			if err != nil {
				return err
			}
			opts.Tags = tagPusher{
				repo:   repo,
				remote: a.cfg.Repo.Remote,
				who:    git.Signature{Name: *taggerName, Email: *taggerEmail, When: time.Now()},
			}
		}

		res, err := client.Publish(ctx, opts)
		if err != nil {
			return err
		}
		a.logger.Info("published release", "tag", res.Release.TagName, "created", res.Created,
			"deleted", len(res.Deleted), "uploaded", len(res.Uploaded))

		if a.json {
			return a.writeJSON(res)
		}
		return a.println(res.Release.HTMLURL)
	}
}

func jiraFieldsCommand(fs *flag.FlagSet) runFunc {
	key := fs.String("key", "", "issue key, e.g. QA-12")
	fields := fs.String("fields", "description,labels", "fields to read, comma separated")

	return func(ctx context.Context, a *app) error {
		client, err := a.jiraClient()
		if err != nil {
			return err
		}
		issue, err := client.IssueFields(ctx, *key, splitList(*fields))
		if err != nil {
			return err
		}
		return a.writeJSON(issue)
	}
}

func projectsCommand(fs *flag.FlagSet) runFunc {
	return func(ctx context.Context, a *app) error {
		client, err := a.jiraClient()
		if err != nil {
			return err
		}
		keys, err := client.ProjectKeys(ctx)
		if err != nil {
			return err
		}
		if a.json {
			return a.writeJSON(keys)
		}
		return a.println(keys...)
	}
}
