// Package github manages GitHub releases: lookup by tag, asset transfer and
// the publish flow that keeps one prerelease per tag up to date.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"

	cerrors "github.com/Arbin-com/github-upload/errors"
)

const (
	// DefaultHost is the public GitHub host.
	DefaultHost = "github.com"

	apiVersion = "2022-11-28"
)

// Client is a release client bound to one repository.
type Client struct {
	rest    *api.RESTClient
	http    *http.Client
	apiBase string
	owner   string
	repo    string
	logger  *slog.Logger

	uploadAttempts int
	uploadDelay    time.Duration
}

type clientOptions struct {
	host           string
	baseURL        string
	transport      http.RoundTripper
	logger         *slog.Logger
	uploadAttempts int
	uploadDelay    time.Duration
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHost targets a GitHub Enterprise host.
func WithHost(host string) Option {
	return func(o *clientOptions) { o.host = host }
}

// WithBaseURL overrides the REST API root, e.g. "https://ghe.example.com/api/v3/".
func WithBaseURL(base string) Option {
	return func(o *clientOptions) { o.baseURL = base }
}

// WithTransport sets the HTTP transport under go-gh's header handling.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithUploadRetry sets the tries per asset upload and the pause between them.
func WithUploadRetry(attempts int, delay time.Duration) Option {
	return func(o *clientOptions) {
		o.uploadAttempts = attempts
		o.uploadDelay = delay
	}
}

// New creates a client for "owner/repo". An empty token falls back to the
// gh CLI credentials of the host.
func New(ownerRepo, token string, opts ...Option) (*Client, error) {
	owner, repo, ok := strings.Cut(ownerRepo, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, cerrors.New(cerrors.CodeInvalidInput, fmt.Sprintf("repository %q is not owner/repo", ownerRepo))
	}

	o := &clientOptions{
		host:           DefaultHost,
		logger:         slog.Default(),
		uploadAttempts: 3,
		uploadDelay:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.uploadAttempts <= 0 {
		o.uploadAttempts = 1
	}

	clientOpts := api.ClientOptions{
		Host:      o.host,
		AuthToken: token,
		Transport: o.transport,
		Headers:   map[string]string{"X-GitHub-Api-Version": apiVersion},
	}
	rest, err := api.NewRESTClient(clientOpts)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeUnauthorized, "failed to create GitHub REST client")
	}
	httpClient, err := api.NewHTTPClient(clientOpts)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeUnauthorized, "failed to create GitHub HTTP client")
	}

	base := o.baseURL
	if base == "" {
		base = restBase(o.host)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return &Client{
		rest:           rest,
		http:           httpClient,
		apiBase:        base,
		owner:          owner,
		repo:           repo,
		logger:         o.logger,
		uploadAttempts: o.uploadAttempts,
		uploadDelay:    o.uploadDelay,
	}, nil
}

func restBase(host string) string {
	if host == "" || strings.EqualFold(host, DefaultHost) {
		return "https://api.github.com/"
	}
	return "https://" + host + "/api/v3/"
}

// Repository returns "owner/repo".
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

func (c *Client) repoURL(format string, args ...any) string {
	return c.apiBase + fmt.Sprintf("repos/%s/%s/", c.owner, c.repo) + fmt.Sprintf(format, args...)
}

// do sends a JSON request through the REST client.
func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return cerrors.Wrap(err, cerrors.CodeInvalidInput, "marshal request body")
		}
		reader = bytes.NewReader(data)
	}
	if err := c.rest.DoWithContext(ctx, method, url, reader, out); err != nil {
		return classify(ctx, err, method+" "+url)
	}
	return nil
}

// classify maps go-gh and transport errors to coded errors.
func classify(ctx context.Context, err error, what string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var httpErr *api.HTTPError
	if stderrors.As(err, &httpErr) {
		return cerrors.Wrap(err, cerrors.CodeForStatus(httpErr.StatusCode), what)
	}
	var coded *cerrors.Error
	if stderrors.As(err, &coded) {
		return err
	}
	return cerrors.Wrap(err, cerrors.CodeNetwork, what)
}

// send issues a raw request with the authenticated client and checks the
// status.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	what := req.Method + " " + req.URL.Redacted()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, err, what)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, classify(ctx, api.HandleHTTPError(resp), what)
	}
	return resp, nil
}

func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return cerrors.Wrap(err, cerrors.CodeInvalidResponse, "decode response")
	}
	return nil
}
