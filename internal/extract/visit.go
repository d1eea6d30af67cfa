package extract

import (
	"math"
	"strings"

	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/comment"
	"github.com/phobologic/whatsupdoc/internal/diag"
	"github.com/phobologic/whatsupdoc/internal/model"
	"github.com/phobologic/whatsupdoc/internal/resolve"
)

// Visit walks a translation unit, visiting every registration function and
// recording class-name accessors. System headers are skipped.
func (s *Session) Visit(tu ast.Cursor) {
	ast.Walk(tu, func(c ast.Cursor) bool {
		if c.InSystemHeader() {
			return false
		}
		if c.Kind() != ast.KindFunctionDecl {
			return true
		}
		if !c.IsDefinition() {
			return false
		}
		switch {
		case s.IsRegistrationFunction(c):
			s.VisitRegistrationFunction(c)
		case c.Spelling() == s.dialect.RegistrationFunction:
			s.checkRejected(c)
		case c.Spelling() == s.dialect.ClassNameAccessor:
			s.recordClassName(c)
		}
		return false
	})
}

// IsRegistrationFunction reports whether fn is a registration function: it
// has the registration name and takes exactly one namespace parameter.
func (s *Session) IsRegistrationFunction(fn ast.Cursor) bool {
	if fn.Kind() != ast.KindFunctionDecl || fn.Spelling() != s.dialect.RegistrationFunction {
		return false
	}
	params := fn.Arguments()
	return len(params) == 1 && s.res.Classify(params[0]) == resolve.Namespace
}

// checkRejected reports a function with the registration name and a single
// parameter whose type cannot be classified.
func (s *Session) checkRejected(fn ast.Cursor) {
	params := fn.Arguments()
	if len(params) != 1 || s.res.Classify(params[0]) != resolve.Neither {
		return
	}
	s.diag(diag.UnresolvedReference, fn.Location(), "%s skipped: parameter type %q is not a namespace",
		fn.QualifiedName(), params[0].TypeSpelling())
}

// VisitRegistrationFunction extracts one registration function definition:
// it seeds the function's context, queues its documentation comments and
// dispatches its binding calls in source order. Session state is reset
// afterwards.
func (s *Session) VisitRegistrationFunction(fn ast.Cursor) {
	id := fn.USR()
	if id == "" {
		return
	}
	ctx := s.Context(id)
	if params := fn.Arguments(); len(params) > 0 {
		ctx.ParamID = params[0].USR()
		if ctx.ParamID != "" {
			s.aliases[ctx.ParamID] = id
		}
		s.reg.GetOrCreate(id, s.res.Classify(params[0]).CompoundKind(), fn.Location())
	} else {
		s.reg.GetOrCreate(id, model.Unknown, fn.Location())
	}
	s.active = ctx
	s.file = fn.Location().File

	for _, block := range docComments(fn.Tokens()) {
		s.Enqueue(comment.Tokenize(block.text, block.loc))
	}

	for _, child := range fn.Children() {
		ast.Walk(child, func(c ast.Cursor) bool {
			switch c.Kind() {
			case ast.KindFunctionDecl:
				return false
			case ast.KindCallExpr:
				s.dispatch(c)
				return false
			}
			return true
		})
	}

	s.ResolveDescription(math.MaxInt)
	s.Reset()
}

func (s *Session) dispatch(call ast.Cursor) {
	switch call.Spelling() {
	case s.dialect.DeclareFunction:
		s.HandleDeclareFunction(call)
	case s.dialect.DeclareConstant:
		s.HandleDeclareConstant(call)
	case s.dialect.RegistrationFunction:
		s.HandleInitCall(call)
	}
}

// rawComment is one documentation comment block as written in source.
type rawComment struct {
	text  string
	loc   model.Location
	lines int
	line  bool
}

// docComments collects documentation comments from a token stream. Runs of
// line comments on consecutive lines in the same column form one block.
func docComments(toks []ast.Token) []rawComment {
	var out []rawComment
	for _, t := range toks {
		if t.Kind != ast.TokenComment || !comment.IsDoc(t.Spelling) {
			continue
		}
		isLine := comment.IsLine(t.Spelling)
		if n := len(out); n > 0 && isLine {
			prev := &out[n-1]
			if prev.line && prev.loc.File == t.Location.File && prev.loc.Column == t.Location.Column &&
				prev.loc.Line+prev.lines == t.Location.Line {
				prev.text += "\n" + t.Spelling
				prev.lines++
				continue
			}
		}
		out = append(out, rawComment{
			text:  t.Spelling,
			loc:   t.Location,
			lines: strings.Count(t.Spelling, "\n") + 1,
			line:  isLine,
		})
	}
	return out
}
