package logstream

import (
	"errors"
	"iter"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	section Section
	enter   bool
	line    string
}

// recorder returns handlers logging every event, stopping when stop
// reports true for an event.
func recorder(events *[]event, stop func(event) bool) Handlers {
	var h Handlers
	for s := Commit; s <= End; s++ {
		h[s] = Handler{
			Enter: func() bool {
				e := event{section: s, enter: true}
				*events = append(*events, e)
				return stop == nil || !stop(e)
			},
			Line: func(line string) bool {
				e := event{section: s, line: line}
				*events = append(*events, e)
				return stop == nil || !stop(e)
			},
		}
	}
	return h
}

func TestParser_Sections(t *testing.T) {
	var events []event
	p := New(recorder(&events, nil))
	assert.Equal(t, End, p.Section())

	err := p.Run(Records(
		Record{Hash: "abc1234", Decoration: " (tag: 1.0.0)", Message: "first line\nsecond line"},
	))
	require.NoError(t, err)

	assert.Equal(t, []event{
		{section: Commit, enter: true},
		{section: Commit, line: "abc1234"},
		{section: Branch, enter: true},
		{section: Branch, line: " (tag: 1.0.0)"},
		{section: Message, enter: true},
		{section: Message, line: "first line"},
		{section: Message, line: "second line"},
		{section: End, enter: true},
	}, events)
	assert.Equal(t, End, p.Section())
	assert.False(t, p.Stopped())
}

func TestParser_StopOnSecondRecord(t *testing.T) {
	records := Records(
		Record{Hash: "aaa", Decoration: "", Message: "one"},
		Record{Hash: "bbb", Decoration: " (tag: 1.1.0)", Message: "two"},
		Record{Hash: "ccc", Decoration: "", Message: "three"},
		Record{Hash: "ddd", Decoration: " (tag: 1.0.0)", Message: "four"},
	)

	var events []event
	p := New(recorder(&events, func(e event) bool {
		return e.section == Branch && strings.Contains(e.line, "tag: ")
	}))
	require.NoError(t, p.Run(records))
	assert.True(t, p.Stopped())

	for _, e := range events {
		assert.NotContains(t, []string{"ccc", "three", "ddd", "four"}, e.line)
	}
	last := events[len(events)-1]
	assert.Equal(t, event{section: Branch, line: " (tag: 1.1.0)"}, last)

	assert.False(t, p.Feed("more"))
}

func TestParser_StopFromEnter(t *testing.T) {
	var lines []string
	var h Handlers
	h[Message] = Handler{Enter: func() bool { return false }}
	h[Commit] = Handler{Line: func(line string) bool {
		lines = append(lines, line)
		return true
	}}

	p := New(h)
	require.NoError(t, p.Run(Records(Record{Hash: "a"}, Record{Hash: "b"})))
	assert.Equal(t, []string{"a"}, lines)
}

func TestParser_StopMethod(t *testing.T) {
	var count int
	var p *Parser
	var h Handlers
	h[Message] = Handler{Line: func(string) bool {
		count++
		p.Stop()
		return true
	}}
	p = New(h)

	require.NoError(t, p.Run(Records(Record{Message: "a\nb\nc"})))
	assert.Equal(t, 1, count)
}

func TestParser_SourceError(t *testing.T) {
	boom := errors.New("boom")
	var src iter.Seq2[string, error] = func(yield func(string, error) bool) {
		if !yield(CommitSentinel, nil) {
			return
		}
		yield("", boom)
	}

	assert.ErrorIs(t, New(Handlers{}).Run(src), boom)
}

func TestParser_CRLF(t *testing.T) {
	var sections []Section
	var h Handlers
	for s := Commit; s <= End; s++ {
		h[s].Enter = func() bool {
			sections = append(sections, s)
			return true
		}
	}

	p := New(h)
	for _, line := range []string{"#_cm_\r", "x\r", "#_end_\r"} {
		p.Feed(line)
	}
	assert.Equal(t, []Section{Commit, End}, sections)
}

func TestReadLines(t *testing.T) {
	long := strings.Repeat("x", 200_000)
	input := "a\r\nb\n\n" + long + "\nlast"

	var got []string
	for line, err := range ReadLines(strings.NewReader(input)) {
		require.NoError(t, err)
		got = append(got, line)
	}
	assert.Equal(t, []string{"a", "b", "", long, "last"}, got)
}

func TestReadLines_Error(t *testing.T) {
	var gotErr error
	for _, err := range ReadLines(iotest.ErrReader(errors.New("read failed"))) {
		gotErr = err
	}
	assert.EqualError(t, gotErr, "read failed")
}

func TestSection(t *testing.T) {
	assert.Equal(t, "#_bh_", Branch.Sentinel())
	assert.Equal(t, "message", Message.String())
	assert.Equal(t, "unknown", Section(9).String())
	assert.Equal(t, "", Section(9).Sentinel())

	s, ok := ParseSentinel("#_end_")
	assert.True(t, ok)
	assert.Equal(t, End, s)

	_, ok = ParseSentinel("#_cm_ ")
	assert.False(t, ok)

	assert.Equal(t, "#_cm_%n%h%n#_bh_%n%d%n#_ms_%n%B%n#_end_", PrettyFormat)
}
