package logstream

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"
)

// ReadLines returns a lazy iterator over the lines of r without their line
// terminators. Lines of any length are supported.
func ReadLines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 && (err == nil || errors.Is(err, io.EOF)) {
				line = strings.TrimSuffix(line, "\n")
				line = strings.TrimSuffix(line, "\r")
				if !yield(line, nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}
		}
	}
}

// Slice returns an iterator over in-memory lines.
func Slice(lines []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, line := range lines {
			if !yield(line, nil) {
				return
			}
		}
	}
}

// Record is one history record used to produce sectioned lines in memory.
type Record struct {
	Hash       string
	Decoration string
	Message    string
}

// Records renders records in the sectioned shape, the same lines git log
// emits with PrettyFormat.
func Records(records ...Record) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, r := range records {
			lines := []string{CommitSentinel, r.Hash, BranchSentinel, r.Decoration, MessageSentinel}
			lines = append(lines, strings.Split(r.Message, "\n")...)
			lines = append(lines, EndSentinel)
			for _, line := range lines {
				if !yield(line, nil) {
					return
				}
			}
		}
	}
}
