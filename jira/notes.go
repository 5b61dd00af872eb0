package jira

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Arbin-com/github-upload/history"
)

// Standard fields read with the release note.
const (
	FieldSummary  = "summary"
	FieldLabels   = "labels"
	FieldAssignee = "assignee"
)

// Issue is the release-relevant part of a Jira issue.
type Issue struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Assignee    string   `json:"assignee,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	ReleaseNote string   `json:"releaseNote,omitempty"`
}

// FailedQuery is a batch that could not be fetched.
type FailedQuery struct {
	JQL string `json:"jql"`
	Err error  `json:"-"`
}

// Result collects the issues fetched by FetchReleaseNotes.
type Result struct {
	Issues   []Issue       `json:"issues"`
	Failed   []FailedQuery `json:"failed,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// BatchQueries turns issue ranges into JQL queries covering at most size keys
// each. Ranges longer than size are split.
func BatchQueries(ranges []history.IssueRange, size int) []string {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var (
		out     []string
		clauses []string
		used    int
	)
	flush := func() {
		if len(clauses) > 0 {
			out = append(out, strings.Join(clauses, " OR "))
			clauses, used = nil, 0
		}
	}

	for _, r := range ranges {
		for r.Count > 0 {
			n := min(r.Count, size-used)
			part := history.IssueRange{Prefix: r.Prefix, Number: r.Number, Count: n}
			clauses = append(clauses, rangeClause(part))
			used += n
			r.Number += uint32(n)
			r.Count -= n
			if used == size {
				flush()
			}
		}
	}
	flush()
	return out
}

func rangeClause(r history.IssueRange) string {
	if r.Count == 1 {
		return "(key = " + r.FromKey() + ")"
	}
	return "(key >= " + r.FromKey() + " AND key <= " + r.ToKey() + ")"
}

// FetchReleaseNotes reads the release-note field of every key. Batches run
// with bounded parallelism and are retried on transient failures; batches
// that still fail are reported in Result.Failed. Only field discovery and
// cancellation fail the call.
func (c *Client) FetchReleaseNotes(ctx context.Context, keys []history.IssueKeys) (*Result, error) {
	res := &Result{}
	queries := BatchQueries(history.IssueRanges(keys), c.opts.batchSize)
	if len(queries) == 0 {
		return res, nil
	}

	noteID, err := c.FieldID(ctx, c.opts.noteField)
	if err != nil {
		return nil, err
	}
	fields := []string{noteID, FieldLabels, FieldAssignee, FieldSummary}

	c.logger.Info("fetching release notes", "keys", len(history.IssueKeyStrings(keys)), "batches", len(queries))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.parallelism)
	for _, jql := range queries {
		g.Go(func() error {
			var found *SearchResult
			err := c.retry(gctx, jql, func() error {
				var err error
				found, err = c.Search(gctx, jql, fields)
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Warn("release note batch failed", "jql", jql, "error", err)
				res.Failed = append(res.Failed, FailedQuery{JQL: jql, Err: err})
				return nil
			}
			for _, w := range found.WarningMessages {
				c.logger.Warn("jira search warning", "jql", jql, "warning", w)
				res.Warnings = append(res.Warnings, w)
			}
			for _, raw := range found.Issues {
				res.Issues = append(res.Issues, decodeIssue(raw, noteID))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(res.Issues, func(a, b Issue) int { return CompareKeys(a.Key, b.Key) })
	slices.SortFunc(res.Failed, func(a, b FailedQuery) int { return strings.Compare(a.JQL, b.JQL) })
	return res, nil
}

func decodeIssue(raw RawIssue, noteID string) Issue {
	issue := Issue{Key: raw.Key}

	if v, ok := raw.Fields[FieldSummary]; ok {
		_ = json.Unmarshal(v, &issue.Title)
	}
	if v, ok := raw.Fields[FieldAssignee]; ok {
		var user struct {
			DisplayName string `json:"displayName"`
		}
		if json.Unmarshal(v, &user) == nil {
			issue.Assignee = user.DisplayName
		}
	}
	if v, ok := raw.Fields[FieldLabels]; ok {
		_ = json.Unmarshal(v, &issue.Labels)
	}
	if v, ok := raw.Fields[noteID]; ok {
		issue.ReleaseNote = strings.TrimSpace(fieldText(v))
	}
	return issue
}

// adfNode is a node of the Atlassian document format.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// fieldText renders a text field that is either a plain string or an
// Atlassian document. Blocks are separated by newlines.
func fieldText(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var doc adfNode
	if json.Unmarshal(v, &doc) != nil {
		return ""
	}
	var b strings.Builder
	doc.render(&b)
	return b.String()
}

func (n adfNode) render(b *strings.Builder) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
		return
	case "hardBreak":
		b.WriteByte('\n')
		return
	}
	for _, child := range n.Content {
		child.render(b)
	}
	switch n.Type {
	case "paragraph", "heading", "listItem", "codeBlock":
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
}

// CompareKeys orders issue keys by prefix, then numerically.
func CompareKeys(a, b string) int {
	ap, an := splitKey(a)
	bp, bn := splitKey(b)
	if c := strings.Compare(ap, bp); c != 0 {
		return c
	}
	return cmp.Compare(an, bn)
}

func splitKey(key string) (string, uint64) {
	i := strings.LastIndexByte(key, '-')
	if i < 0 {
		return key, 0
	}
	n, err := strconv.ParseUint(key[i+1:], 10, 32)
	if err != nil {
		return key, 0
	}
	return key[:i], n
}
