// Package logstream splits a stream of history lines into sections.
//
// A log source emits, for every record, four sections in fixed order, each
// introduced by a sentinel line:
//
//	#_cm_
//	<short commit hash>
//	#_bh_
//	<ref decoration>
//	#_ms_
//	<message lines>
//	#_end_
//
// PrettyFormat is the git log format producing this shape. A Parser routes
// every line to the handler of the section it belongs to and stops as soon
// as a handler asks it to.
package logstream

// Section identifies a part of a log record.
type Section int

const (
	// Commit holds the abbreviated commit hash.
	Commit Section = iota
	// Branch holds the ref decoration, e.g. " (HEAD -> main, tag: 1.2.0)".
	Branch
	// Message holds the raw commit message, one line per element.
	Message
	// End closes the record and carries no lines.
	End
)

// Sentinel lines, one per Section.
const (
	CommitSentinel  = "#_cm_"
	BranchSentinel  = "#_bh_"
	MessageSentinel = "#_ms_"
	EndSentinel     = "#_end_"
)

// PrettyFormat is passed to git log --pretty=format: to produce a sectioned stream.
const PrettyFormat = CommitSentinel + "%n%h%n" + BranchSentinel + "%n%d%n" + MessageSentinel + "%n%B%n" + EndSentinel

var sentinels = [...]string{
	Commit:  CommitSentinel,
	Branch:  BranchSentinel,
	Message: MessageSentinel,
	End:     EndSentinel,
}

// Sentinel returns the marker line introducing s.
func (s Section) Sentinel() string {
	if s < Commit || s > End {
		return ""
	}
	return sentinels[s]
}

func (s Section) String() string {
	switch s {
	case Commit:
		return "commit"
	case Branch:
		return "branch"
	case Message:
		return "message"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// ParseSentinel reports which section line introduces, if it is a sentinel.
func ParseSentinel(line string) (Section, bool) {
	for s, sentinel := range sentinels {
		if line == sentinel {
			return Section(s), true
		}
	}
	return End, false
}
