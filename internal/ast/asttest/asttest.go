// Package asttest builds in-memory cursor trees for tests.
package asttest

import (
	"strconv"

	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/model"
)

// File is the file name given to every fake location.
const File = "test.cpp"

// Node is a hand-built cursor.
type Node struct {
	K      ast.Kind
	Name   string
	Type   string
	ID     string
	QName  string
	Loc    model.Location
	Kids   []*Node
	Args   []*Node
	Ref    *Node
	Toks   []ast.Token
	Def    bool
	System bool
}

var _ ast.Cursor = (*Node)(nil)

func (n *Node) Kind() ast.Kind           { return n.K }
func (n *Node) Spelling() string         { return n.Name }
func (n *Node) TypeSpelling() string     { return n.Type }
func (n *Node) Location() model.Location { return n.Loc }
func (n *Node) USR() string              { return n.ID }
func (n *Node) IsDefinition() bool       { return n.Def }
func (n *Node) InSystemHeader() bool     { return n.System }

func (n *Node) QualifiedName() string {
	if n.QName != "" {
		return n.QName
	}
	return n.Name
}

func (n *Node) Children() []ast.Cursor { return cursors(n.Kids) }
func (n *Node) Arguments() []ast.Cursor { return cursors(n.Args) }

func (n *Node) Referenced() ast.Cursor {
	if n.K.IsDecl() {
		return n
	}
	if n.Ref == nil {
		return nil
	}
	return n.Ref
}

// Tokens returns the explicit tokens, or the tokens of the subtree when
// none were set.
func (n *Node) Tokens() []ast.Token {
	if n.Toks != nil {
		return n.Toks
	}
	var toks []ast.Token
	for _, k := range n.Kids {
		toks = append(toks, k.Tokens()...)
	}
	for _, a := range n.Args {
		toks = append(toks, a.Tokens()...)
	}
	return toks
}

func cursors(nodes []*Node) []ast.Cursor {
	out := make([]ast.Cursor, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// At returns a location on line in File.
func At(line int) model.Location {
	return model.Location{File: File, Line: line, Column: 3}
}

// TU wraps top-level declarations in a translation unit.
func TU(decls ...*Node) *Node {
	return &Node{K: ast.KindTranslationUnit, Name: File, Kids: decls}
}

// Param declares a parameter of the given type.
func Param(fn, name, typ string, line int) *Node {
	return &Node{K: ast.KindParamDecl, Name: name, Type: typ, ID: "c:@F@" + fn + "@P@" + name, QName: name, Loc: At(line)}
}

// Func defines a function named by its qualified name.
func Func(qname string, line int, params []*Node, body ...*Node) *Node {
	name := qname
	for i := len(qname) - 1; i > 0; i-- {
		if qname[i] == ':' {
			name = qname[i+1:]
			break
		}
	}
	return &Node{
		K:     ast.KindFunctionDecl,
		Name:  name,
		Type:  "void ()",
		ID:    "c:@F@" + qname,
		QName: qname,
		Loc:   At(line),
		Args:  params,
		Kids:  []*Node{{K: ast.KindOther, Loc: At(line), Kids: body}},
		Def:   true,
	}
}

// Decl declares a function without a body, with the given return type.
func Decl(qname, typ string, line int) *Node {
	f := Func(qname, line, nil)
	f.Type = typ + " ()"
	f.Kids = nil
	f.Def = false
	return f
}

// Var declares a local variable with an optional initializer.
func Var(fn, name, typ string, line int, init *Node) *Node {
	v := &Node{K: ast.KindVarDecl, Name: name, Type: typ, ID: "c:@F@" + fn + "@L@" + name, QName: name, Loc: At(line), Def: true}
	if init != nil {
		v.Kids = []*Node{init}
	}
	return v
}

// Ref is a plain name reference to decl.
func Ref(decl *Node, line int) *Node {
	return &Node{K: ast.KindDeclRef, Name: decl.Name, Type: decl.Type, Loc: At(line), Ref: decl}
}

// Member is a member access named name resolving to decl (may be nil).
func Member(name string, decl *Node, line int, object *Node) *Node {
	m := &Node{K: ast.KindMemberRef, Name: name, Loc: At(line), Ref: decl}
	if object != nil {
		m.Kids = []*Node{object}
	}
	return m
}

// AddrOf wraps e in a unary address-of.
func AddrOf(e *Node) *Node {
	return &Node{K: ast.KindUnaryOp, Loc: e.Loc, Kids: []*Node{e}}
}

// Wrap wraps e in an unexposed node.
func Wrap(e *Node) *Node {
	return &Node{K: ast.KindUnexposed, Type: e.Type, Loc: e.Loc, Kids: []*Node{e}}
}

// New constructs an instance of typ at line.
func New(typ string, line int, args ...*Node) *Node {
	return &Node{
		K:    ast.KindNewExpr,
		Type: typ + " *",
		ID:   "c:@E@" + File + ":" + strconv.Itoa(line),
		Loc:  At(line),
		Args: args,
		Kids: args,
	}
}

// Call is a call expression of callee with arguments.
func Call(callee *Node, line int, args ...*Node) *Node {
	c := &Node{K: ast.KindCallExpr, Name: callee.Name, Loc: At(line), Ref: callee, Args: args}
	if callee.K.IsDecl() {
		c.Type = callee.Type
		if len(c.Type) > 3 && c.Type[len(c.Type)-3:] == " ()" {
			c.Type = c.Type[:len(c.Type)-3]
		}
	}
	c.Kids = append([]*Node{Ref(callee, line)}, args...)
	return c
}

// Named is a call to an unresolved function called name (declareFunction,
// declareConstant).
func Named(name string, line int, args ...*Node) *Node {
	return Call(&Node{K: ast.KindUnresolved, Name: name, ID: "c:@U@" + name, Loc: At(line)}, line, args...)
}

// Str is a string literal.
func Str(s string, line int) *Node {
	q := strconv.Quote(s)
	return &Node{
		K:    ast.KindStringLiteral,
		Name: q,
		Type: "const char *",
		Loc:  At(line),
		Toks: []ast.Token{{Kind: ast.TokenLiteral, Spelling: q, Location: At(line)}},
	}
}

// Int is an integer literal.
func Int(v int, line int) *Node {
	s := strconv.Itoa(v)
	if v < 0 {
		s = strconv.Itoa(-v)
		return &Node{
			K:    ast.KindUnaryOp,
			Type: "int",
			Loc:  At(line),
			Kids: []*Node{{K: ast.KindIntegerLiteral, Name: s, Type: "int", Loc: At(line)}},
			Toks: []ast.Token{
				{Kind: ast.TokenPunctuation, Spelling: "-", Location: At(line)},
				{Kind: ast.TokenLiteral, Spelling: s, Location: At(line)},
			},
		}
	}
	return &Node{
		K:    ast.KindIntegerLiteral,
		Name: s,
		Type: "int",
		Loc:  At(line),
		Toks: []ast.Token{{Kind: ast.TokenLiteral, Spelling: s, Location: At(line)}},
	}
}

// Comment is a comment token starting at line, column 3.
func Comment(text string, line int) ast.Token {
	return ast.Token{Kind: ast.TokenComment, Spelling: text, Location: model.Location{File: File, Line: line, Column: 3}}
}

// WithComments sets the token stream of fn to the given comments.
func WithComments(fn *Node, comments ...ast.Token) *Node {
	fn.Toks = comments
	return fn
}

// Return is a return statement of e.
func Return(e *Node, line int) *Node {
	return &Node{K: ast.KindReturnStmt, Loc: At(line), Kids: []*Node{e}}
}

// Typed is a declaration-less expression of static type typ, such as a call
// through an unresolved macro.
func Typed(typ string, line int, kids ...*Node) *Node {
	return &Node{K: ast.KindUnexposed, Type: typ, Loc: At(line), Kids: kids}
}
