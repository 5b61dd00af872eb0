// Package matcher finds every occurrence of a fixed set of literal patterns
// in a text with a single pass, using an Aho-Corasick automaton.
//
// Patterns are added to a Builder; Build turns the builder into an immutable
// Automaton that may be searched any number of times, concurrently.
//
//	b := matcher.NewBuilder()
//	b.Add("QA-")
//	b.Add("WQ-")
//	a := b.Build()
//	for m := range a.Matches("QA-12, WQ-7") {
//		fmt.Println(m.Start, m.Text)
//	}
package matcher

import (
	"iter"
	"unicode/utf8"
)

const root = 0

type node struct {
	next map[rune]int

	// fail is the node of the longest proper suffix of this node's path that
	// is also a path from the root.
	fail int

	// length is the byte length of the pattern ending here, or 0 when the
	// node is not terminal.
	length int
}

// Builder accumulates patterns. It is consumed by Build.
type Builder struct {
	nodes []node
	count int
	built bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{nodes: []node{{}}}
}

// Add inserts pattern. Empty patterns and duplicates are ignored.
// Add panics when called after Build.
func (b *Builder) Add(pattern string) {
	if b.built {
		panic("matcher: Add called after Build")
	}
	if pattern == "" {
		return
	}

	cur := root
	for _, r := range pattern {
		n := &b.nodes[cur]
		child, ok := n.next[r]
		if !ok {
			if n.next == nil {
				n.next = make(map[rune]int)
			}
			child = len(b.nodes)
			n.next[r] = child
			b.nodes = append(b.nodes, node{})
		}
		cur = child
	}

	if b.nodes[cur].length == 0 {
		b.nodes[cur].length = len(pattern)
		b.count++
	}
}

// Build computes failure links and returns the automaton. The builder is
// left empty; calling Build or Add on it again panics.
func (b *Builder) Build() *Automaton {
	if b.built {
		panic("matcher: Build called twice")
	}
	b.built = true

	nodes := b.nodes
	b.nodes = nil

	queue := make([]int, 0, len(nodes))
	for _, child := range nodes[root].next {
		nodes[child].fail = root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for r, child := range nodes[cur].next {
			f := nodes[cur].fail
			for {
				if next, ok := nodes[f].next[r]; ok {
					nodes[child].fail = next
					break
				}
				if f == root {
					nodes[child].fail = root
					break
				}
				f = nodes[f].fail
			}
			queue = append(queue, child)
		}
	}

	return &Automaton{nodes: nodes, count: b.count}
}

// Match is one occurrence of a pattern.
type Match struct {
	// Start is the byte offset of the match in the searched text.
	Start int
	// Text is the matched pattern.
	Text string
}

// End returns the byte offset just past the match.
func (m Match) End() int { return m.Start + len(m.Text) }

// Automaton is an immutable compiled pattern set.
type Automaton struct {
	nodes []node
	count int
}

// Len returns the number of distinct patterns.
func (a *Automaton) Len() int { return a.count }

// Search calls fn whenever the walk reaches a terminal node, in order of
// match end. A pattern that is only a proper suffix of the node reached is
// not reported, so "SS-" is not found inside "QSS-". start and length are
// byte offsets into text.
func (a *Automaton) Search(text string, fn func(text string, start, length int)) {
	a.walk(text, func(start, length int) bool {
		fn(text, start, length)
		return true
	})
}

// Matches is the iterator form of Search.
func (a *Automaton) Matches(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		a.walk(text, func(start, length int) bool {
			return yield(Match{Start: start, Text: text[start : start+length]})
		})
	}
}

func (a *Automaton) walk(text string, yield func(start, length int) bool) {
	cur := root
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			// invalid byte, nothing can match across it
			cur = root
			continue
		}

		for {
			if next, ok := a.nodes[cur].next[r]; ok {
				cur = next
				break
			}
			if cur == root {
				break
			}
			cur = a.nodes[cur].fail
		}

		if length := a.nodes[cur].length; length > 0 {
			if !yield(i-length, length) {
				return
			}
		}
	}
}
