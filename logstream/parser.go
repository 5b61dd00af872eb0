package logstream

import (
	"iter"
	"strings"
)

// Handler receives the events of one section. Either func may be nil.
// Returning false from either stops the parser.
type Handler struct {
	// Enter is called when the section's sentinel line is seen.
	Enter func() bool

	// Line is called for every content line of the section.
	Line func(line string) bool
}

// Handlers maps each section to its handler.
type Handlers [4]Handler

// Parser is a line driven state machine over Commit, Branch, Message and End.
// It starts in End and never buffers more than the line being fed.
type Parser struct {
	handlers Handlers
	section  Section
	stopped  bool
}

// New returns a parser dispatching to handlers.
func New(handlers Handlers) *Parser {
	return &Parser{handlers: handlers, section: End}
}

// Section returns the current section.
func (p *Parser) Section() Section { return p.section }

// Stop makes the parser ignore every following line.
func (p *Parser) Stop() { p.stopped = true }

// Stopped reports whether the parser has stopped.
func (p *Parser) Stopped() bool { return p.stopped }

// Feed processes one line and reports whether the parser wants more.
func (p *Parser) Feed(line string) bool {
	if p.stopped {
		return false
	}
	line = strings.TrimSuffix(line, "\r")

	if s, ok := ParseSentinel(line); ok {
		p.section = s
		if enter := p.handlers[s].Enter; enter != nil && !enter() {
			p.stopped = true
		}
		return !p.stopped
	}

	if fn := p.handlers[p.section].Line; fn != nil && !fn(line) {
		p.stopped = true
	}
	return !p.stopped
}

// Run feeds every line of lines until the source is exhausted, it fails or
// the parser stops. Stopping is not an error; it ends the iteration, which
// releases the source.
func (p *Parser) Run(lines iter.Seq2[string, error]) error {
	for line, err := range lines {
		if err != nil {
			return err
		}
		if !p.Feed(line) {
			return nil
		}
	}
	return nil
}
