package diag

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/phobologic/whatsupdoc/internal/model"
)

func TestLoggerCountsAndLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf))

	loc := model.Location{File: "lib.cpp", Line: 12, Column: 5}
	l.Report(Diagnostic{Kind: MalformedCall, Location: loc, Message: "bad arity"})
	l.Report(Diagnostic{Kind: MalformedCall, Location: loc, Message: "bad arity"})
	l.Report(Diagnostic{Kind: InvalidGroup, Location: loc, Message: "no group"})

	assert.Equal(t, 2, l.Count(MalformedCall))
	assert.Equal(t, 1, l.Count(InvalidGroup))
	assert.Equal(t, 0, l.Count(AmbiguousName))
	assert.Equal(t, 3, l.Count(0))

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"kind":"malformed-call"`)
	assert.Contains(t, out, `"file":"lib.cpp"`)
	assert.Contains(t, out, `"line":12`)
	assert.Contains(t, out, `"message":"no group"`)
}

func TestCollector(t *testing.T) {
	t.Parallel()

	var c Collector
	c.Report(Diagnostic{Kind: UnresolvedReference})
	c.Report(Diagnostic{Kind: AmbiguousName})
	Discard.Report(Diagnostic{Kind: MalformedCall})

	assert.Equal(t, []Kind{UnresolvedReference, AmbiguousName}, c.Kinds())
}

func TestDiagnosticString(t *testing.T) {
	t.Parallel()

	d := Diagnostic{Kind: UnresolvedReference, Location: model.Location{File: "a.cpp", Line: 3, Column: 1}, Message: "x"}
	assert.Contains(t, d.String(), "unresolved-reference: x")
	assert.Equal(t, "kind(9)", Kind(9).String())
}
