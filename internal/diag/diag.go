// Package diag defines the advisory diagnostics reported while extracting
// documentation. Diagnostics never abort a run.
package diag

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/phobologic/whatsupdoc/internal/model"
)

// Kind classifies a diagnostic.
type Kind int

const (
	MalformedCall Kind = iota + 1
	UnresolvedReference
	InvalidGroup
	AmbiguousName
)

func (k Kind) String() string {
	switch k {
	case MalformedCall:
		return "malformed-call"
	case UnresolvedReference:
		return "unresolved-reference"
	case InvalidGroup:
		return "invalid-group"
	case AmbiguousName:
		return "ambiguous-name"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Diagnostic is one advisory message tied to a source location.
type Diagnostic struct {
	Kind     Kind
	Location model.Location
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Kind, d.Message)
}

// Reporter receives diagnostics.
type Reporter interface {
	Report(Diagnostic)
}

// Logger reports diagnostics as warnings on a zerolog logger and counts
// them per kind.
type Logger struct {
	log    zerolog.Logger
	counts map[Kind]int
}

// NewLogger creates a Logger.
func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log, counts: make(map[Kind]int)}
}

// Report implements Reporter.
func (l *Logger) Report(d Diagnostic) {
	l.counts[d.Kind]++
	l.log.Warn().
		Str("kind", d.Kind.String()).
		Str("file", d.Location.File).
		Int("line", d.Location.Line).
		Int("col", d.Location.Column).
		Msg(d.Message)
}

// Count returns how many diagnostics of kind were reported; kind 0 counts
// all of them.
func (l *Logger) Count(kind Kind) int {
	if kind != 0 {
		return l.counts[kind]
	}
	n := 0
	for _, c := range l.counts {
		n += c
	}
	return n
}

// Collector keeps diagnostics in memory.
type Collector struct {
	Diagnostics []Diagnostic
}

// Report implements Reporter.
func (c *Collector) Report(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// Kinds returns the kinds of the collected diagnostics in order.
func (c *Collector) Kinds() []Kind {
	out := make([]Kind, len(c.Diagnostics))
	for i, d := range c.Diagnostics {
		out[i] = d.Kind
	}
	return out
}

// Discard drops every diagnostic.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}
