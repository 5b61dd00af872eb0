package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	cerrors "github.com/Arbin-com/github-upload/errors"
)

const (
	releaseEmoji = "🚀"
	hotfixEmoji  = "🐛"

	// generatedBodyPrefix marks bodies written by a previous pipeline that
	// are replaced on publish.
	generatedBodyPrefix = "name by "
)

// TagPublisher creates and force-pushes the git tag of a new release.
type TagPublisher interface {
	PublishTag(ctx context.Context, name, message string) error
}

// PublishOptions describes one publish run.
type PublishOptions struct {
	// Tag is the release name; the git tag is Tag or Tag-Suffix.
	Tag    string
	Suffix string

	// Message is appended to a generated release body and used as the tag
	// message.
	Message string

	// Assets are file names relative to AssetDir of FS.
	Assets   []string
	AssetDir string
	FS       billy.Filesystem

	// Hotfix deletes every existing asset instead of only replaced ones.
	Hotfix bool

	// Tags creates the git tag when the release does not exist yet. Optional.
	Tags TagPublisher

	// Now stamps generated bodies. Defaults to time.Now.
	Now func() time.Time
}

// Validate checks the options.
func (o PublishOptions) Validate() error {
	if strings.TrimSpace(o.Tag) == "" {
		return cerrors.New(cerrors.CodeInvalidInput, "publish tag is required")
	}
	if len(o.Assets) > 0 && o.FS == nil {
		return cerrors.New(cerrors.CodeInvalidInput, "asset filesystem is required")
	}
	return nil
}

// TagName is the git tag of the release.
func (o PublishOptions) TagName() string {
	if o.Suffix == "" {
		return o.Tag
	}
	return o.Tag + "-" + o.Suffix
}

// PublishResult reports what Publish changed.
type PublishResult struct {
	Release  *Release
	Created  bool
	Deleted  []string
	Uploaded []Asset
}

// assetName is the name a local file is uploaded under: the first space is
// replaced by a dot.
func assetName(file string) string {
	return strings.Replace(strings.TrimSpace(file), " ", ".", 1)
}

// Publish finds or creates the prerelease of opts.TagName(), removes the
// assets about to be replaced (every asset in hotfix mode), refreshes the
// body and uploads opts.Assets.
func (c *Client) Publish(ctx context.Context, opts PublishOptions) (*PublishResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tag := opts.TagName()
	replaced := make(map[string]bool, len(opts.Assets))
	for _, file := range opts.Assets {
		replaced[strings.ToLower(assetName(file))] = true
	}

	existing, err := c.ReleaseByTag(ctx, tag)
	switch {
	case err == nil:
	case cerrors.CodeOf(err) == cerrors.CodeNotFound:
		existing = nil
	default:
		return nil, err
	}

	res := &PublishResult{}
	body := ""
	if existing != nil {
		c.logger.Info("updating release", "tag", tag, "id", existing.ID, "assets", len(existing.Assets))
		for _, asset := range existing.Assets {
			if !opts.Hotfix && !replaced[strings.ToLower(asset.Name)] {
				continue
			}
			if err := c.DeleteAsset(ctx, asset.ID); err != nil {
				c.logger.Warn("failed to delete asset", "name", asset.Name, "error", err)
				continue
			}
			res.Deleted = append(res.Deleted, asset.Name)
		}
		if existing.Body != "" && !strings.HasPrefix(existing.Body, generatedBodyPrefix) {
			body = existing.Body
		}
	} else if opts.Tags != nil {
		if err := opts.Tags.PublishTag(ctx, tag, opts.Message); err != nil {
			c.logger.Warn("failed to publish tag", "tag", tag, "error", err)
		}
	}

	emoji := strings.Repeat(releaseEmoji, 3)
	if opts.Hotfix && opts.Suffix == "branch" && opts.Tag != "master" {
		emoji = strings.Repeat(hotfixEmoji, 3)
	}
	if body == "" || strings.HasPrefix(body, emoji) {
		body = fmt.Sprintf("%s %s\n%s\n", emoji, opts.Now().UTC().Format(http.TimeFormat), opts.Message)
	}

	in := ReleaseInput{TagName: tag, Name: opts.Tag, Body: body, Prerelease: true}
	if existing != nil {
		res.Release, err = c.UpdateRelease(ctx, existing.ID, in)
	} else {
		generate := false
		in.GenerateReleaseNotes = &generate
		res.Release, err = c.CreateRelease(ctx, in)
		res.Created = true
	}
	if err != nil {
		return nil, cerrors.Wrapf(err, cerrors.CodePublishFailed, "failed to write release %s", tag)
	}

	for _, file := range opts.Assets {
		asset, err := c.uploadWithRetry(ctx, res.Release, opts.FS, opts.FS.Join(opts.AssetDir, strings.TrimSpace(file)), assetName(file))
		if err != nil {
			return res, cerrors.Wrapf(err, cerrors.CodePublishFailed, "failed to upload %s", file)
		}
		res.Uploaded = append(res.Uploaded, *asset)
	}
	return res, nil
}

func (c *Client) uploadWithRetry(ctx context.Context, rel *Release, fsys billy.Filesystem, p, name string) (*Asset, error) {
	for attempt := 1; ; attempt++ {
		asset, err := c.UploadAsset(ctx, rel, fsys, p, name)
		if err == nil {
			c.logger.Info("uploaded asset", "name", name, "size", asset.Size)
			return asset, nil
		}
		if attempt >= c.uploadAttempts || ctx.Err() != nil || cerrors.CodeOf(err) == cerrors.CodeNotFound {
			return nil, err
		}
		c.logger.Warn("upload failed, retrying", "name", name, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.uploadDelay):
		}
	}
}
