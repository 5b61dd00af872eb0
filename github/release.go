package github

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	cerrors "github.com/Arbin-com/github-upload/errors"
)

// Release is a GitHub release.
type Release struct {
	ID         int64     `json:"id"`
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	Draft      bool      `json:"draft"`
	Prerelease bool      `json:"prerelease"`
	HTMLURL    string    `json:"html_url"`
	UploadURL  string    `json:"upload_url"`
	CreatedAt  time.Time `json:"created_at"`
	Assets     []Asset   `json:"assets"`
}

// Asset is a file attached to a release.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// FileName is the name the asset is stored under locally: the last element
// of its download URL, or its name.
func (a Asset) FileName() string {
	if a.BrowserDownloadURL != "" {
		if u, err := url.Parse(a.BrowserDownloadURL); err == nil {
			if base := path.Base(u.Path); base != "." && base != "/" {
				return base
			}
		}
	}
	return a.Name
}

// ReleaseInput is the writable part of a release.
type ReleaseInput struct {
	TagName              string `json:"tag_name"`
	Name                 string `json:"name,omitempty"`
	Body                 string `json:"body"`
	Draft                bool   `json:"draft"`
	Prerelease           bool   `json:"prerelease"`
	GenerateReleaseNotes *bool  `json:"generate_release_notes,omitempty"`
}

// ReleaseByTag returns the release of tag. A missing release is a
// cerrors.CodeNotFound error.
func (c *Client) ReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	if tag == "" {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "tag is required")
	}
	var rel Release
	if err := c.do(ctx, http.MethodGet, c.repoURL("releases/tags/%s", url.PathEscape(tag)), nil, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// CreateRelease creates a release.
func (c *Client) CreateRelease(ctx context.Context, in ReleaseInput) (*Release, error) {
	if in.TagName == "" {
		return nil, cerrors.New(cerrors.CodeInvalidInput, "tag is required")
	}
	var rel Release
	if err := c.do(ctx, http.MethodPost, c.repoURL("releases"), in, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// UpdateRelease replaces the writable fields of release id.
func (c *Client) UpdateRelease(ctx context.Context, id int64, in ReleaseInput) (*Release, error) {
	var rel Release
	if err := c.do(ctx, http.MethodPatch, c.repoURL("releases/%d", id), in, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// DeleteAsset removes a release asset.
func (c *Client) DeleteAsset(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.repoURL("releases/assets/%d", id), nil, nil)
}

// uploadURL expands the upload_url template of rel for name.
func uploadURL(rel *Release, name string) (string, error) {
	raw := rel.UploadURL
	if i := strings.IndexByte(raw, '{'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "", cerrors.New(cerrors.CodeInvalidResponse, fmt.Sprintf("release %d has no upload URL", rel.ID))
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", cerrors.Wrap(err, cerrors.CodeInvalidResponse, "invalid upload URL")
	}
	u.RawQuery = url.Values{"name": {name}}.Encode()
	return u.String(), nil
}

// UploadAsset uploads the file at p of fsys as asset name of rel. The
// content type is sniffed from the content.
func (c *Client) UploadAsset(ctx context.Context, rel *Release, fsys billy.Filesystem, p, name string) (*Asset, error) {
	target, err := uploadURL(rel, name)
	if err != nil {
		return nil, err
	}
	info, err := fsys.Stat(p)
	if err != nil {
		return nil, cerrors.Wrapf(err, cerrors.CodeNotFound, "asset file %s", p)
	}
	if info.IsDir() {
		return nil, cerrors.New(cerrors.CodeInvalidInput, fmt.Sprintf("asset %s is a directory", p))
	}

	f, err := fsys.Open(p)
	if err != nil {
		return nil, cerrors.Wrapf(err, cerrors.CodeNotFound, "open asset %s", p)
	}
	defer f.Close()

	body := bufio.NewReader(f)
	head, _ := body.Peek(3072)
	contentType := mimetype.Detect(head).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeInvalidInput, "build upload request")
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("uploading asset", "name", name, "size", info.Size(), "type", contentType)
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var asset Asset
	if err := decodeJSON(resp.Body, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// DownloadAsset streams the content of asset id to w.
func (c *Client) DownloadAsset(ctx context.Context, id int64, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.repoURL("releases/assets/%d", id), nil)
	if err != nil {
		return 0, cerrors.Wrap(err, cerrors.CodeInvalidInput, "build download request")
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, classify(ctx, err, fmt.Sprintf("download asset %d", id))
	}
	return n, nil
}

// DownloadAssets stores every asset of rel under dir of fsys and returns the
// written paths in asset order.
func (c *Client) DownloadAssets(ctx context.Context, rel *Release, fsys billy.Filesystem, dir string) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, cerrors.Wrapf(err, cerrors.CodeInvalidInput, "create %s", dir)
	}

	paths := make([]string, 0, len(rel.Assets))
	for _, asset := range rel.Assets {
		p := fsys.Join(dir, asset.FileName())
		if err := c.downloadTo(ctx, asset, fsys, p); err != nil {
			return paths, err
		}
		c.logger.Info("downloaded asset", "name", asset.Name, "path", p)
		paths = append(paths, p)
	}
	return paths, nil
}

func (c *Client) downloadTo(ctx context.Context, asset Asset, fsys billy.Filesystem, p string) error {
	f, err := fsys.Create(p)
	if err != nil {
		return cerrors.Wrapf(err, cerrors.CodeInvalidInput, "create %s", p)
	}
	_, err = c.DownloadAsset(ctx, asset.ID, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = cerrors.Wrapf(closeErr, cerrors.CodeInternal, "close %s", p)
	}
	return err
}
