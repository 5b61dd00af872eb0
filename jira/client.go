// Package jira is a small client for the Jira Cloud REST API covering what
// release notes need: field discovery, project keys, JQL search and the
// batched fetch of release-note fields for harvested issue keys.
package jira

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/Arbin-com/github-upload/errors"
)

const userAgent = "relnotes"

// ErrFieldNotFound is returned by FieldID when no field has the given name.
var ErrFieldNotFound = stderrors.New("jira field not found")

// Client talks to one Jira site with basic authentication.
type Client struct {
	baseURL *url.URL
	user    string
	token   string
	http    *http.Client
	logger  *slog.Logger
	opts    *clientOptions
}

// Field is a Jira field definition.
type Field struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
}

// Project is a Jira project.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// SearchResult is the decoded answer of a JQL search.
type SearchResult struct {
	Total           int
	Issues          []RawIssue
	WarningMessages []string
}

type searchAnswer struct {
	Total           int         `json:"total"`
	Issues          *[]RawIssue `json:"issues"`
	WarningMessages []string    `json:"warningMessages"`
}

// RawIssue is an issue with undecoded fields.
type RawIssue struct {
	ID     string                     `json:"id"`
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// New creates a client for the site at baseURL, e.g. "https://acme.atlassian.net".
func New(baseURL, user, token string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "jira base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "invalid jira base URL %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New(errors.CodeInvalidConfig, fmt.Sprintf("jira base URL %q must be absolute", baseURL))
	}
	if user == "" || token == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "jira user and token are required")
	}

	opts := defaultOptions()
	applyOptions(opts, options)

	return &Client{
		baseURL: u,
		user:    user,
		token:   token,
		http:    opts.httpClient,
		logger:  opts.logger,
		opts:    opts,
	}, nil
}

// get performs an authenticated GET of path with query and decodes the JSON
// answer into out. Non-2xx answers become coded errors.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "failed to build request")
	}
	req.SetBasicAuth(c.user, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Wrapf(err, errors.CodeNetwork, "GET %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, errors.CodeNetwork, "failed to read response of GET %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New(errors.CodeForStatus(resp.StatusCode),
			fmt.Sprintf("GET %s: %s: %s", path, resp.Status, snippet(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, errors.CodeInvalidResponse, "failed to decode response of GET %s", path)
	}
	return nil
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

// Fields lists every field of the site.
func (c *Client) Fields(ctx context.Context) ([]Field, error) {
	var fields []Field
	if err := c.get(ctx, "/rest/api/latest/field", nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// FieldID returns the id of the field whose name equals name, ignoring case.
func (c *Client) FieldID(ctx context.Context, name string) (string, error) {
	fields, err := c.Fields(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) && f.ID != "" {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrFieldNotFound, name)
}

// Projects lists the projects visible to the user.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "/rest/api/3/project", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ProjectKeys returns the sorted project keys, the prefixes issue keys are
// harvested with.
func (c *Client) ProjectKeys(ctx context.Context) ([]string, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(projects))
	for _, p := range projects {
		if p.Key != "" {
			keys = append(keys, p.Key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Search runs a JQL query returning the given fields. An answer without an
// "issues" member is an invalid response.
func (c *Client) Search(ctx context.Context, jql string, fields []string) (*SearchResult, error) {
	query := url.Values{"jql": {jql}}
	if len(fields) > 0 {
		query.Set("fields", strings.Join(fields, ","))
	}
	query.Set("maxResults", "100")

	var answer searchAnswer
	if err := c.get(ctx, "/rest/api/3/search", query, &answer); err != nil {
		return nil, err
	}
	if answer.Issues == nil {
		return nil, errors.New(errors.CodeInvalidResponse, "search answer has no issues: "+jql)
	}
	return &SearchResult{
		Total:           answer.Total,
		Issues:          *answer.Issues,
		WarningMessages: answer.WarningMessages,
	}, nil
}

// IssueFields returns the requested fields of one issue.
func (c *Client) IssueFields(ctx context.Context, key string, fields []string) (*RawIssue, error) {
	if key == "" {
		return nil, errors.New(errors.CodeInvalidInput, "issue key is required")
	}
	query := url.Values{}
	if len(fields) > 0 {
		query.Set("fields", strings.Join(fields, ","))
	}
	var issue RawIssue
	if err := c.get(ctx, "/rest/api/latest/issue/"+url.PathEscape(key), query, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}
