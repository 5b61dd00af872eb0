package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Arbin-com/github-upload/errors"
	"github.com/Arbin-com/github-upload/history"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithRetry(3, time.Millisecond)}, opts...)
	c, err := New(srv.URL, "me@example.com", "secret", opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		base        string
		user, token string
	}{
		{"missing url", "", "u", "t"},
		{"relative url", "acme.atlassian.net", "u", "t"},
		{"missing user", "https://acme.atlassian.net", "", "t"},
		{"missing token", "https://acme.atlassian.net", "u", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.base, tt.user, tt.token)
			require.Error(t, err)
			assert.Equal(t, cerrors.CodeInvalidConfig, cerrors.CodeOf(err))
		})
	}
}

func TestClient_RequestHeaders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "me@example.com", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Equal(t, "/rest/api/latest/field", r.URL.Path)
		writeJSON(t, w, []Field{{ID: "customfield_10100", Name: "ReleaseNote", Custom: true}})
	}))

	fields, err := c.Fields(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "customfield_10100", fields[0].ID)
}

func TestClient_FieldID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []Field{
			{ID: "summary", Name: "Summary"},
			{ID: "customfield_10100", Name: "releasenote"},
		})
	}))

	id, err := c.FieldID(context.Background(), "ReleaseNote")
	require.NoError(t, err)
	assert.Equal(t, "customfield_10100", id)

	_, err = c.FieldID(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestClient_ProjectKeys(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/project", r.URL.Path)
		writeJSON(t, w, []Project{{Key: "WQ"}, {Key: "QA"}, {Key: ""}})
	}))

	keys, err := c.ProjectKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"QA", "WQ"}, keys)
}

func TestClient_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		code   cerrors.ErrorCode
	}{
		{http.StatusUnauthorized, cerrors.CodeUnauthorized},
		{http.StatusNotFound, cerrors.CodeNotFound},
		{http.StatusTooManyRequests, cerrors.CodeRateLimit},
		{http.StatusInternalServerError, cerrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			_, err := c.Projects(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.code, cerrors.CodeOf(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/search", r.URL.Path)
		assert.Equal(t, "(key = QA-1)", r.URL.Query().Get("jql"))
		assert.Equal(t, "summary,labels", r.URL.Query().Get("fields"))
		writeJSON(t, w, map[string]any{
			"total":           1,
			"issues":          []map[string]any{{"key": "QA-1", "fields": map[string]any{"summary": "first"}}},
			"warningMessages": []string{"careful"},
		})
	}))

	res, err := c.Search(context.Background(), "(key = QA-1)", []string{"summary", "labels"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "QA-1", res.Issues[0].Key)
	assert.Equal(t, []string{"careful"}, res.WarningMessages)
}

func TestClient_SearchWithoutIssues(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"errorMessages": []string{"bad jql"}})
	}))

	_, err := c.Search(context.Background(), "key = ???", nil)
	require.Error(t, err)
	assert.Equal(t, cerrors.CodeInvalidResponse, cerrors.CodeOf(err))
	assert.False(t, cerrors.IsRetryable(err))
}

func TestClient_IssueFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/latest/issue/QA-7", r.URL.Path)
		assert.Equal(t, "summary", r.URL.Query().Get("fields"))
		writeJSON(t, w, map[string]any{"key": "QA-7", "fields": map[string]any{"summary": "seven"}})
	}))

	issue, err := c.IssueFields(context.Background(), "QA-7", []string{"summary"})
	require.NoError(t, err)
	assert.Equal(t, "QA-7", issue.Key)
	assert.JSONEq(t, `"seven"`, string(issue.Fields["summary"]))

	_, err = c.IssueFields(context.Background(), "", nil)
	assert.Equal(t, cerrors.CodeInvalidInput, cerrors.CodeOf(err))
}

func TestClient_RetryOnTransientFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, map[string]any{"issues": []any{}})
	}))

	err := c.retry(context.Background(), "search", func() error {
		_, err := c.Search(context.Background(), "key = QA-1", nil)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RetryStopsOnPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "denied", http.StatusForbidden)
	}))

	err := c.retry(context.Background(), "search", func() error {
		_, err := c.Search(context.Background(), "key = QA-1", nil)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 3; attempt++ {
		want := base << (attempt - 1)
		got := backoff(base, attempt)
		assert.GreaterOrEqual(t, got, want-want/4)
		assert.LessOrEqual(t, got, want+want/4)
	}
	assert.Equal(t, maxRetryDelay, backoff(time.Second, 10))
	assert.Equal(t, time.Duration(0), backoff(0, 2))
}

func TestFetchReleaseNotes(t *testing.T) {
	var searches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/latest/field", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []Field{{ID: "customfield_1", Name: "ReleaseNote"}})
	})
	mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		jql := r.URL.Query().Get("jql")
		assert.Equal(t, "customfield_1,labels,assignee,summary", r.URL.Query().Get("fields"))

		var issues []map[string]any
		if strings.Contains(jql, "QA-1") {
			issues = append(issues,
				map[string]any{"key": "QA-2", "fields": map[string]any{
					"summary":       "second",
					"labels":        []string{"Fix"},
					"assignee":      map[string]any{"displayName": "Ann"},
					"customfield_1": "  fixed the crash  ",
				}},
				map[string]any{"key": "QA-1", "fields": map[string]any{
					"summary":  "first",
					"assignee": nil,
					"customfield_1": map[string]any{
						"type": "doc",
						"content": []any{
							map[string]any{"type": "paragraph", "content": []any{
								map[string]any{"type": "text", "text": "line one"},
							}},
							map[string]any{"type": "paragraph", "content": []any{
								map[string]any{"type": "text", "text": "line two"},
							}},
						},
					},
				}},
			)
		}
		if strings.Contains(jql, "WQ-") {
			http.Error(w, "gone", http.StatusBadRequest)
			return
		}
		writeJSON(t, w, map[string]any{"issues": issues})
	})

	c := newTestClient(t, mux, WithBatchSize(2), WithParallelism(2))
	res, err := c.FetchReleaseNotes(context.Background(), []history.IssueKeys{
		{Prefix: "QA", Numbers: []uint32{1, 2}},
		{Prefix: "WQ", Numbers: []uint32{9}},
	})
	require.NoError(t, err)

	require.Len(t, res.Issues, 2)
	assert.Equal(t, Issue{Key: "QA-1", Title: "first", ReleaseNote: "line one\nline two"}, res.Issues[0])
	assert.Equal(t, Issue{
		Key: "QA-2", Title: "second", Assignee: "Ann", Labels: []string{"Fix"}, ReleaseNote: "fixed the crash",
	}, res.Issues[1])

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "(key = WQ-9)", res.Failed[0].JQL)
	assert.Equal(t, cerrors.CodeInvalidInput, cerrors.CodeOf(res.Failed[0].Err))
	assert.Equal(t, int32(2), searches.Load())
}

func TestFetchReleaseNotes_NoKeys(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	}))

	res, err := c.FetchReleaseNotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestFetchReleaseNotes_MissingField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []Field{{ID: "summary", Name: "Summary"}})
	}))

	_, err := c.FetchReleaseNotes(context.Background(), []history.IssueKeys{{Prefix: "QA", Numbers: []uint32{1}}})
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestBatchQueries(t *testing.T) {
	ranges := []history.IssueRange{
		{Prefix: "QA", Number: 1, Count: 3},
		{Prefix: "QA", Number: 10, Count: 1},
		{Prefix: "WQ", Number: 5, Count: 5},
	}

	assert.Equal(t, []string{
		"(key >= QA-1 AND key <= QA-3) OR (key = QA-10)",
		"(key >= WQ-5 AND key <= WQ-8)",
		"(key = WQ-9)",
	}, BatchQueries(ranges, 4))

	assert.Equal(t, []string{
		"(key >= QA-1 AND key <= QA-3) OR (key = QA-10) OR (key >= WQ-5 AND key <= WQ-9)",
	}, BatchQueries(ranges, 0))

	assert.Nil(t, BatchQueries(nil, 10))
}

func TestCompareKeys(t *testing.T) {
	assert.Negative(t, CompareKeys("QA-2", "QA-10"))
	assert.Positive(t, CompareKeys("WQ-1", "QA-10"))
	assert.Zero(t, CompareKeys("QA-7", "QA-7"))
}
