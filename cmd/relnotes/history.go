package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"regexp"
	"slices"

	"github.com/namsral/flag"

	"github.com/Arbin-com/github-upload/git"
	"github.com/Arbin-com/github-upload/history"
	"github.com/Arbin-com/github-upload/jira"
	"github.com/Arbin-com/github-upload/notes"
	"github.com/Arbin-com/github-upload/version"
)

var (
	errNoReference = errors.New("-ref is required")
	errNoTag       = errors.New("no matching tag found")
)

// scanFlags select the part of history describing one release.
type scanFlags struct {
	ref          version.Version
	policy       string
	stopCommit   string
	resolveStop  bool
	from         string
	maxCount     int
	ignorePrefix bool
}

func (s *scanFlags) register(fs *flag.FlagSet) {
	fs.Var(&s.ref, "ref", "version of the release being described, e.g. 1.4.0-release")
	fs.StringVar(&s.policy, "policy", history.PolicyExactSuffix.String(), "previous release policy: exact-suffix or stable-or-patch")
	fs.StringVar(&s.stopCommit, "stop-commit", "", "abbreviated hash of the commit ending the scan")
	fs.BoolVar(&s.resolveStop, "resolve-stop", false, "derive the stop commit from the branch of the previous release")
	fs.StringVar(&s.from, "from", "", "revision to start from (default HEAD)")
	fs.IntVar(&s.maxCount, "max-count", 0, "maximum number of commits to read")
	fs.BoolVar(&s.ignorePrefix, "ignore-prefix", true, "accept previous release tags with any path prefix")
}

func (s *scanFlags) parsePolicy() (history.Policy, error) {
	for _, p := range []history.Policy{history.PolicyExactSuffix, history.PolicyStableOrPatch} {
		if s.policy == p.String() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown policy %q", s.policy)
}

// scan is a history stream with the conditions ending it.
type scan struct {
	lines    iter.Seq2[string, error]
	boundary *history.Boundary
	stop     history.StopCommit
}

func (a *app) scan(ctx context.Context, s *scanFlags) (*scan, error) {
	policy, err := s.parsePolicy()
	if err != nil {
		return nil, err
	}

	out := &scan{stop: history.StopCommit(s.stopCommit)}
	hasRef := s.ref != version.Version{}
	if hasRef {
		out.boundary = &history.Boundary{
			Reference:        s.ref,
			Policy:           policy,
			IgnorePathPrefix: s.ignorePrefix,
		}
	}

	if s.resolveStop && out.stop == "" {
		if !hasRef {
			return nil, errNoReference
		}
		insp, err := a.inspector(ctx)
		if err != nil {
			return nil, err
		}
		stop, err := history.ResolveStopCommit(ctx, insp, s.ref, policy == history.PolicyStableOrPatch)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("resolved stop commit", "ref", s.ref.String(), "commit", string(stop))
		out.stop = stop
	}

	out.lines, err = a.logLines(ctx, git.LogFilter{From: s.from, MaxCount: s.maxCount})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func changelogCommand(fs *flag.FlagSet) runFunc {
	var s scanFlags
	s.register(fs)
	head := fs.String("head", history.DefaultMarkdownHead, "text written before every group name")
	conventional := fs.Bool("conventional", false, "also group conventional commit headers")

	return func(ctx context.Context, a *app) error {
		sc, err := a.scan(ctx, &s)
		if err != nil {
			return err
		}
		cl, err := history.MineChangelog(sc.lines, history.ChangelogOptions{
			Boundary:      sc.boundary,
			StopCommit:    sc.stop,
			DedupCapacity: a.cfg.History.DedupCapacity,
			Conventional:  *conventional || a.cfg.History.Conventional,
			Logger:        a.logger,
		})
		if err != nil {
			return err
		}
		a.logger.Info("changelog collected", "items", cl.Len())

		if a.json {
			return a.writeJSON(cl.Groups())
		}
		_, err = io.WriteString(a.stdout, cl.Markdown(*head))
		return err
	}
}

// keyFlags select the issue keys of a release.
type keyFlags struct {
	scanFlags
	prefixes string
}

func (k *keyFlags) register(fs *flag.FlagSet) {
	k.scanFlags.register(fs)
	fs.StringVar(&k.prefixes, "prefixes", "", "project keys to look for, comma separated (default configured or all Jira projects)")
}

// projectPrefixes resolves the prefixes: flag, configuration, then every
// project of the Jira instance.
func (a *app) projectPrefixes(ctx context.Context, flagValue string) ([]string, error) {
	if p := splitList(flagValue); len(p) > 0 {
		return p, nil
	}
	if len(a.cfg.Jira.Projects) > 0 {
		return a.cfg.Jira.Projects, nil
	}
	client, err := a.jiraClient()
	if err != nil {
		return nil, fmt.Errorf("no project prefixes given: %w", err)
	}
	return client.ProjectKeys(ctx)
}

func (a *app) mineKeys(ctx context.Context, k *keyFlags) ([]history.IssueKeys, error) {
	prefixes, err := a.projectPrefixes(ctx, k.prefixes)
	if err != nil {
		return nil, err
	}
	sc, err := a.scan(ctx, &k.scanFlags)
	if err != nil {
		return nil, err
	}
	return history.MineIssueKeys(sc.lines, history.IssueKeyOptions{
		Prefixes:   prefixes,
		Boundary:   sc.boundary,
		StopCommit: sc.stop,
		Logger:     a.logger,
	})
}

func issueKeysCommand(fs *flag.FlagSet) runFunc {
	var k keyFlags
	k.register(fs)
	ranges := fs.Bool("ranges", false, "print runs of consecutive keys")

	return func(ctx context.Context, a *app) error {
		keys, err := a.mineKeys(ctx, &k)
		if err != nil {
			return err
		}

		switch {
		case a.json:
			return a.writeJSON(keys)
		case *ranges:
			for _, r := range history.IssueRanges(keys) {
				line := r.FromKey()
				if r.Count > 1 {
					line += ".." + r.ToKey()
				}
				if err := a.println(line); err != nil {
					return err
				}
			}
			return nil
		default:
			return a.println(history.IssueKeyStrings(keys)...)
		}
	}
}

func releaseNotesCommand(fs *flag.FlagSet) runFunc {
	var k keyFlags
	k.register(fs)
	keysFile := fs.String("keys-file", "", "read issue keys from the JSON output of issue-keys (- for stdin) instead of history")
	software := fs.String("software", "", "software section name (default from configuration)")
	table := fs.Bool("table", false, "print a markdown table of the issues")

	return func(ctx context.Context, a *app) error {
		var keys []history.IssueKeys
		var err error
		if *keysFile != "" {
			keys, err = a.readKeys(*keysFile)
		} else {
			keys, err = a.mineKeys(ctx, &k)
		}
		if err != nil {
			return err
		}

		client, err := a.jiraClient()
		if err != nil {
			return err
		}
		res, err := client.FetchReleaseNotes(ctx, keys)
		if err != nil {
			return err
		}
		for _, f := range res.Failed {
			a.logger.Warn("jira query failed", "jql", f.JQL, "error", f.Err)
		}

		if err := a.writeNotes(res, *software, *table); err != nil {
			return err
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d jira queries failed", len(res.Failed))
		}
		return nil
	}
}

func (a *app) readKeys(p string) ([]history.IssueKeys, error) {
	var r io.Reader = a.stdin
	if p != "-" {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var keys []history.IssueKeys
	if err := json.NewDecoder(r).Decode(&keys); err != nil {
		return nil, fmt.Errorf("decode issue keys: %w", err)
	}
	return keys, nil
}

func (a *app) writeNotes(res *jira.Result, software string, table bool) error {
	if a.json {
		return a.writeJSON(res)
	}
	if table {
		rows := make([][]string, 0, len(res.Issues))
		for _, is := range res.Issues {
			rows = append(rows, []string{is.Key, is.Title, is.Assignee, is.ReleaseNote})
		}
		_, err := io.WriteString(a.stdout, notes.Table(
			[]string{"Key", "Title", "Assignee", "Release note"},
			rows,
			[]notes.Align{notes.AlignLeft, notes.AlignLeft, notes.AlignCenter, notes.AlignLeft},
		))
		return err
	}

	labels, err := a.cfg.LabelTable()
	if err != nil {
		return err
	}
	if software == "" {
		software = a.cfg.Notes.Software
	}
	_, err = io.WriteString(a.stdout, notes.Markdown(labels, notes.NewSoftware(software, labels, res.Issues)))
	return err
}

func prevVersionCommand(fs *flag.FlagSet) runFunc {
	var opts history.PrevScanOptions
	var special uint
	fs.StringVar(&opts.Suffix, "suffix", "", "suffix the tags must carry, e.g. release")
	fs.UintVar(&special, "special", 0, "special number the tags must carry")
	fs.StringVar(&opts.PathPrefix, "prefix", "", "path prefix the tags must carry")
	fs.BoolVar(&opts.MatchPathPrefix, "match-prefix", false, "require the path prefix to match")
	ignore := fs.String("ignore", history.DefaultIgnorePattern, "tags left out of the previous list (regular expression)")
	fs.IntVar(&opts.Count, "count", history.DefaultPreviousCount, "number of previous versions to collect")
	searchCount := fs.Int("search-count", 0, "maximum number of tagged commits to read")

	return func(ctx context.Context, a *app) error {
		opts.Special = uint32(special)
		if *ignore != "" {
			re, err := regexp.Compile(*ignore)
			if err != nil {
				return fmt.Errorf("invalid -ignore: %w", err)
			}
			opts.Ignore = re
		}

		lines, err := a.tagLogLines(ctx, *searchCount)
		if err != nil {
			return err
		}
		res, err := history.ScanPrevious(lines, opts)
		if err != nil {
			return err
		}
		if !res.Found {
			return errNoTag
		}

		if a.json {
			return a.writeJSON(struct {
				Version  version.Version   `json:"version"`
				Commit   string            `json:"commit"`
				Previous []version.Version `json:"previous"`
			}{res.Version, res.Commit, res.Previous})
		}
		if err := a.println(res.Version.String() + " " + res.Commit); err != nil {
			return err
		}
		return a.println(versionStrings(res.Previous)...)
	}
}

func findVersionCommand(fs *flag.FlagSet) runFunc {
	var ref version.Version
	fs.Var(&ref, "ref", "version pattern, e.g. 1.4.*-release")

	return func(ctx context.Context, a *app) error {
		if ref == (version.Version{}) {
			return errNoReference
		}
		names, err := a.tagNames(ctx, "")
		if err != nil {
			return err
		}
		v, found, err := history.LatestMatching(names, ref)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w for %s", errNoTag, ref)
		}
		return a.println(v.String())
	}
}

type oldTagFlags struct {
	ref          version.Version
	commit       string
	ignorePrefix bool
}

func (o *oldTagFlags) register(fs *flag.FlagSet) {
	fs.Var(&o.ref, "ref", "tags older than this version are listed")
	fs.StringVar(&o.commit, "commit", "HEAD", "only tags containing this commit are considered")
	fs.BoolVar(&o.ignorePrefix, "ignore-prefix", true, "accept tags with any path prefix")
}

// oldTags returns the names of the tags containing the commit that are
// older than the reference, newest first.
func (a *app) oldTags(ctx context.Context, o *oldTagFlags) ([]string, error) {
	if o.ref == (version.Version{}) {
		return nil, errNoReference
	}
	store, err := a.tags(ctx)
	if err != nil {
		return nil, err
	}
	names, err := store.TagsContaining(ctx, o.commit)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := version.Parse(name); ok {
			byKey[v.Key()] = name
		}
	}

	older := history.OlderTags(history.ParseTags(names), o.ref, o.ignorePrefix)
	slices.SortStableFunc(older, func(a, b version.Version) int {
		return version.CompareRelease(b, a)
	})
	out := make([]string, len(older))
	for i, v := range older {
		out[i] = byKey[v.Key()]
	}
	return out, nil
}

func oldTagsCommand(fs *flag.FlagSet) runFunc {
	var o oldTagFlags
	o.register(fs)

	return func(ctx context.Context, a *app) error {
		older, err := a.oldTags(ctx, &o)
		if err != nil {
			return err
		}
		if a.json {
			return a.writeJSON(older)
		}
		return a.println(older...)
	}
}

// DefaultKeepTags is the number of newest tags prune-tags keeps.
const DefaultKeepTags = 5

func pruneTagsCommand(fs *flag.FlagSet) runFunc {
	var o oldTagFlags
	o.register(fs)
	keep := fs.Int("keep", DefaultKeepTags, "number of newest old tags to keep")
	dryRun := fs.Bool("dry-run", false, "print the tags instead of deleting them")

	return func(ctx context.Context, a *app) error {
		older, err := a.oldTags(ctx, &o)
		if err != nil {
			return err
		}
		if *keep < 0 {
			return errors.New("-keep must not be negative")
		}
		if len(older) <= *keep {
			a.logger.Info("nothing to prune", "tags", len(older), "keep", *keep)
			return nil
		}

		names := older[*keep:]
		if *dryRun {
			return a.println(names...)
		}
		store, err := a.tags(ctx)
		if err != nil {
			return err
		}
		if err := store.DeleteRemoteTags(ctx, a.cfg.Repo.Remote, names); err != nil {
			return err
		}
		a.logger.Info("pruned remote tags", "count", len(names))
		return nil
	}
}

func versionStrings(vs []version.Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}
