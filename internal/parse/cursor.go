package parse

import (
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/lang"
	"github.com/phobologic/whatsupdoc/internal/model"
)

var integerRe = regexp.MustCompile(`^[-+]?(0[xX][0-9a-fA-F']+|0[bB][01']+|[0-9][0-9']*)[uUlLzZ]*$`)

// cursor adapts a tree-sitter node to ast.Cursor.
type cursor struct {
	u     *Unit
	n     *sitter.Node
	kind  ast.Kind
	fn    *function    // function whose body contains the node
	decl  *sitter.Node // declarator of a function, variable or parameter
	index int          // parameter position
	owner string       // identity of the function declaring a parameter
	name  string       // spelling of unresolved references
}

var _ ast.Cursor = (*cursor)(nil)

func (c *cursor) project() *Project {
	return c.u.project
}

// wrap maps one syntax node to zero or more cursors. Comments, inactive
// conditional branches and non-conditional directives vanish; conditionals
// are flattened and multi-declarator declarations split.
func (c *cursor) wrap(n *sitter.Node, fn *function) []ast.Cursor {
	if n == nil || !c.u.active(n) {
		return nil
	}
	t := n.Type()
	switch {
	case t == "comment":
		return nil
	case isConditional(t):
		var out []ast.Cursor
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if !child.IsNamed() {
				continue
			}
			if f := n.FieldNameForChild(i); f == "name" || f == "condition" {
				continue
			}
			out = append(out, c.wrap(child, fn)...)
		}
		return out
	case strings.HasPrefix(t, "preproc_"):
		return nil
	case t == "declaration" || t == "field_declaration":
		return c.declaration(n, fn)
	case t == "function_definition":
		return []ast.Cursor{&cursor{u: c.u, n: n, kind: ast.KindFunctionDecl, fn: fn, decl: n.ChildByFieldName("declarator")}}
	}
	return []ast.Cursor{&cursor{u: c.u, n: n, kind: kindOf(c.u, n), fn: fn}}
}

func (c *cursor) declaration(n *sitter.Node, fn *function) []ast.Cursor {
	decls := declarators(n)
	if len(decls) == 0 {
		if spec := n.ChildByFieldName("type"); spec != nil && kindOf(c.u, spec) == ast.KindClassDecl {
			return []ast.Cursor{&cursor{u: c.u, n: spec, kind: ast.KindClassDecl, fn: fn}}
		}
		return nil
	}
	out := make([]ast.Cursor, 0, len(decls))
	for _, d := range decls {
		kind := ast.KindVarDecl
		if _, _, fd := unwrapDeclarator(d); fd != nil {
			kind = ast.KindFunctionDecl
		}
		out = append(out, &cursor{u: c.u, n: n, kind: kind, fn: fn, decl: d})
	}
	return out
}

func kindOf(u *Unit, n *sitter.Node) ast.Kind {
	switch n.Type() {
	case "translation_unit":
		return ast.KindTranslationUnit
	case "namespace_definition":
		return ast.KindNamespaceDecl
	case "class_specifier", "struct_specifier":
		if n.ChildByFieldName("body") != nil {
			return ast.KindClassDecl
		}
	case "function_definition":
		return ast.KindFunctionDecl
	case "call_expression":
		return ast.KindCallExpr
	case "identifier", "qualified_identifier", "template_function":
		return ast.KindDeclRef
	case "field_expression":
		return ast.KindMemberRef
	case "pointer_expression", "unary_expression":
		return ast.KindUnaryOp
	case "parenthesized_expression", "cast_expression":
		return ast.KindUnexposed
	case "new_expression":
		return ast.KindNewExpr
	case "lambda_expression":
		return ast.KindLambdaExpr
	case "return_statement":
		return ast.KindReturnStmt
	case "string_literal", "raw_string_literal", "concatenated_string":
		return ast.KindStringLiteral
	case "number_literal":
		if integerRe.MatchString(u.text(n)) {
			return ast.KindIntegerLiteral
		}
		return ast.KindOtherLiteral
	case "char_literal", "true", "false", "nullptr":
		return ast.KindOtherLiteral
	}
	return ast.KindOther
}

func (c *cursor) Kind() ast.Kind {
	return c.kind
}

func (c *cursor) self() *function {
	if c.kind != ast.KindFunctionDecl || c.n.Type() != "function_definition" {
		return nil
	}
	return c.project().function(c.u, c.n)
}

// declName returns the name node of a declaration cursor.
func (c *cursor) declName() *sitter.Node {
	switch c.kind {
	case ast.KindFunctionDecl, ast.KindVarDecl:
		if c.decl != nil {
			name, _, _ := unwrapDeclarator(c.decl)
			return name
		}
	case ast.KindParamDecl:
		if d := c.n.ChildByFieldName("declarator"); d != nil {
			name, _, _ := unwrapDeclarator(d)
			return name
		}
	case ast.KindNamespaceDecl, ast.KindClassDecl:
		return c.n.ChildByFieldName("name")
	}
	return nil
}

func (c *cursor) Spelling() string {
	switch c.kind {
	case ast.KindTranslationUnit:
		return c.u.Path
	case ast.KindFunctionDecl, ast.KindVarDecl, ast.KindParamDecl, ast.KindNamespaceDecl, ast.KindClassDecl:
		if name := c.declName(); name != nil {
			return lastSegment(refText(c.u, name))
		}
		return ""
	case ast.KindCallExpr:
		return lastSegment(refName(c.u, c.n.ChildByFieldName("function")))
	case ast.KindDeclRef, ast.KindMemberRef:
		return lastSegment(refName(c.u, c.n))
	case ast.KindUnresolved:
		return lastSegment(c.name)
	case ast.KindNewExpr:
		if t := c.n.ChildByFieldName("type"); t != nil {
			return lang.CollapseWhitespace(c.u.text(t))
		}
		return ""
	case ast.KindStringLiteral, ast.KindIntegerLiteral, ast.KindOtherLiteral:
		return c.u.text(c.n)
	}
	return ""
}

func (c *cursor) QualifiedName() string {
	switch c.kind {
	case ast.KindFunctionDecl:
		if f := c.self(); f != nil {
			return f.qname
		}
		if name := c.declName(); name != nil {
			return qualify(scopeOf(c.u, c.n), refText(c.u, name))
		}
	case ast.KindVarDecl:
		name := c.declName()
		if name == nil {
			return ""
		}
		if c.fn != nil {
			return c.u.text(name)
		}
		return qualify(scopeOf(c.u, c.n), refText(c.u, name))
	case ast.KindNamespaceDecl, ast.KindClassDecl:
		if name := c.declName(); name != nil {
			return qualify(scopeOf(c.u, c.n), refText(c.u, name))
		}
	case ast.KindCallExpr:
		return refName(c.u, c.n.ChildByFieldName("function"))
	case ast.KindDeclRef, ast.KindMemberRef:
		return refName(c.u, c.n)
	case ast.KindUnresolved:
		return c.name
	}
	return c.Spelling()
}

func (c *cursor) USR() string {
	switch c.kind {
	case ast.KindFunctionDecl:
		if q := c.QualifiedName(); q != "" {
			return "c:@F@" + q
		}
	case ast.KindParamDecl:
		if c.owner == "" {
			return ""
		}
		if name := c.Spelling(); name != "" {
			return c.owner + "@P@" + name
		}
		return fmt.Sprintf("%s@P@#%d", c.owner, c.index)
	case ast.KindVarDecl:
		name := c.declName()
		if name == nil {
			return ""
		}
		if c.fn != nil {
			return c.fn.localUSR(c.u.text(name), c.decl)
		}
		return "c:@V@" + c.QualifiedName()
	case ast.KindNamespaceDecl:
		return "c:@N@" + c.QualifiedName()
	case ast.KindClassDecl:
		return "c:@S@" + c.QualifiedName()
	case ast.KindNewExpr:
		loc := c.Location()
		return fmt.Sprintf("c:@E@%s:%d:%d", loc.File, loc.Line, loc.Column)
	case ast.KindUnresolved:
		return "c:@U@" + c.name
	}
	return ""
}

func (c *cursor) Location() model.Location {
	n := c.n
	if c.kind == ast.KindVarDecl && c.decl != nil {
		n = c.decl
	}
	p := n.StartPoint()
	return model.Location{File: c.u.Path, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func (c *cursor) TypeSpelling() string {
	switch c.kind {
	case ast.KindFunctionDecl:
		_, deco, _ := unwrapDeclarator(c.decl)
		return c.typeOf(c.n.ChildByFieldName("type")) + deco + " ()"
	case ast.KindVarDecl:
		_, deco, _ := unwrapDeclarator(c.decl)
		base := c.typeOf(c.n.ChildByFieldName("type"))
		if strings.Contains(base, "auto") {
			for _, init := range c.Children() {
				if t := init.TypeSpelling(); t != "" {
					return t
				}
			}
		}
		return base + deco
	case ast.KindParamDecl:
		deco := ""
		if d := c.n.ChildByFieldName("declarator"); d != nil {
			_, deco, _ = unwrapDeclarator(d)
		}
		return c.typeOf(c.n.ChildByFieldName("type")) + deco
	case ast.KindCallExpr:
		if ref := c.Referenced(); ref != nil && ref.Kind() == ast.KindFunctionDecl {
			return strings.TrimSuffix(ref.TypeSpelling(), " ()")
		}
	case ast.KindDeclRef, ast.KindMemberRef:
		if ref := c.Referenced(); ref != nil && ref.Kind() != ast.KindUnresolved {
			return ref.TypeSpelling()
		}
	case ast.KindNewExpr:
		if t := c.n.ChildByFieldName("type"); t != nil {
			return c.typeOf(t) + " *"
		}
	case ast.KindUnaryOp:
		arg := c.n.ChildByFieldName("argument")
		if arg == nil {
			return ""
		}
		var inner string
		for _, a := range c.wrap(arg, c.fn) {
			inner = a.TypeSpelling()
		}
		op := c.n.ChildByFieldName("operator")
		switch {
		case op != nil && c.u.text(op) == "&" && inner != "":
			return inner + " *"
		case op != nil && c.u.text(op) == "*":
			return strings.TrimSuffix(inner, " *")
		}
		return inner
	case ast.KindUnexposed:
		if t := c.n.ChildByFieldName("type"); t != nil {
			return c.typeOf(t)
		}
		for _, child := range c.Children() {
			return child.TypeSpelling()
		}
	case ast.KindStringLiteral:
		return "const char *"
	case ast.KindIntegerLiteral:
		return "int"
	}
	return ""
}

func (c *cursor) Children() []ast.Cursor {
	var out []ast.Cursor
	switch c.kind {
	case ast.KindTranslationUnit:
		return c.named(c.n, c.fn)
	case ast.KindNamespaceDecl, ast.KindClassDecl:
		if body := c.n.ChildByFieldName("body"); body != nil {
			return c.named(body, c.fn)
		}
		return nil
	case ast.KindFunctionDecl:
		if f := c.self(); f != nil {
			return c.wrap(c.n.ChildByFieldName("body"), f)
		}
		return nil
	case ast.KindVarDecl:
		if c.decl == nil || c.decl.Type() != "init_declarator" {
			return nil
		}
		value := c.decl.ChildByFieldName("value")
		if value == nil {
			return nil
		}
		switch value.Type() {
		case "argument_list", "initializer_list":
			return c.named(value, c.fn)
		}
		return c.wrap(value, c.fn)
	case ast.KindParamDecl:
		return c.wrap(c.n.ChildByFieldName("default_value"), c.fn)
	case ast.KindCallExpr:
		out = append(out, c.wrap(c.n.ChildByFieldName("function"), c.fn)...)
		return append(out, c.Arguments()...)
	case ast.KindNewExpr:
		return c.Arguments()
	case ast.KindMemberRef:
		return c.wrap(c.n.ChildByFieldName("argument"), c.fn)
	case ast.KindUnaryOp:
		return c.wrap(c.n.ChildByFieldName("argument"), c.fn)
	case ast.KindUnexposed:
		if v := c.n.ChildByFieldName("value"); v != nil {
			return c.wrap(v, c.fn)
		}
		return c.named(c.n, c.fn)
	case ast.KindDeclRef, ast.KindStringLiteral, ast.KindIntegerLiteral, ast.KindOtherLiteral, ast.KindUnresolved:
		return nil
	}
	return c.named(c.n, c.fn)
}

// named wraps the named children of n.
func (c *cursor) named(n *sitter.Node, fn *function) []ast.Cursor {
	var out []ast.Cursor
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, c.wrap(n.NamedChild(i), fn)...)
	}
	return out
}

func (c *cursor) Arguments() []ast.Cursor {
	switch c.kind {
	case ast.KindFunctionDecl:
		return c.params()
	case ast.KindCallExpr, ast.KindNewExpr:
		if args := c.n.ChildByFieldName("arguments"); args != nil {
			return c.named(args, c.fn)
		}
	}
	return nil
}

func (c *cursor) params() []ast.Cursor {
	var (
		nodes []*sitter.Node
		fn    *function
	)
	if f := c.self(); f != nil {
		nodes, fn = f.params, f
	} else if c.decl != nil {
		if _, _, fd := unwrapDeclarator(c.decl); fd != nil {
			nodes = parameters(fd)
		}
	}
	owner := c.USR()
	out := make([]ast.Cursor, len(nodes))
	for i, n := range nodes {
		out[i] = &cursor{u: c.u, n: n, kind: ast.KindParamDecl, fn: fn, index: i, owner: owner}
	}
	return out
}

func (c *cursor) Referenced() ast.Cursor {
	switch {
	case c.kind.IsDecl():
		return c
	case c.kind == ast.KindCallExpr:
		if fn := c.n.ChildByFieldName("function"); fn != nil && fn.Type() == "field_expression" {
			if ref := c.lookupMember(fn); ref != nil {
				return ref
			}
		}
		return c.lookupRef(refName(c.u, c.n.ChildByFieldName("function")))
	case c.kind == ast.KindMemberRef:
		if ref := c.lookupMember(c.n); ref != nil {
			return ref
		}
		return c.lookupRef(refName(c.u, c.n))
	case c.kind.IsRef():
		return c.lookupRef(refName(c.u, c.n))
	}
	return nil
}

// lookupRef resolves a name used at c: locals and parameters of the
// enclosing function first, then the project index from the innermost
// enclosing scope outwards. Unknown names yield an unresolved declaration.
func (c *cursor) lookupRef(name string) ast.Cursor {
	if name == "" {
		return nil
	}
	if f := c.fn; f != nil && !strings.Contains(name, "::") {
		if l := f.local(name, c.n.StartByte()); l != nil {
			return &cursor{u: f.u, n: l.owner, kind: ast.KindVarDecl, fn: f, decl: l.decl}
		}
		if i, prm := f.param(name); prm != nil {
			return &cursor{u: f.u, n: prm, kind: ast.KindParamDecl, fn: f, index: i, owner: f.usr}
		}
	}
	scope := scopeOf(c.u, c.n)
	if c.fn != nil {
		scope = parentScope(c.fn.qname)
	}
	if s := c.project().lookup(name, scope); s != nil {
		return s.cursor()
	}
	return &cursor{u: c.u, n: c.n, kind: ast.KindUnresolved, name: name}
}

// lookupMember resolves `obj.field` / `obj->field` on the declared type of
// obj.
func (c *cursor) lookupMember(n *sitter.Node) ast.Cursor {
	arg, field := n.ChildByFieldName("argument"), n.ChildByFieldName("field")
	if arg == nil || field == nil {
		return nil
	}
	var typ string
	for _, a := range c.wrap(arg, c.fn) {
		typ = a.TypeSpelling()
	}
	typ = strings.TrimSpace(strings.TrimRight(typ, "*& "))
	typ = strings.TrimSpace(strings.TrimPrefix(typ, "const "))
	if typ == "" {
		return nil
	}
	scope := scopeOf(c.u, c.n)
	if c.fn != nil {
		scope = parentScope(c.fn.qname)
	}
	if s := c.project().lookup(lang.StripWhitespace(typ)+"::"+refText(c.u, field), scope); s != nil {
		return s.cursor()
	}
	return nil
}

func (s *site) cursor() ast.Cursor {
	c := &cursor{u: s.u, n: s.node, kind: s.kind, decl: s.decl}
	if s.kind == ast.KindFunctionDecl && s.node.Type() == "function_definition" {
		c.decl = s.node.ChildByFieldName("declarator")
	}
	return c
}

func (c *cursor) Tokens() []ast.Token {
	if c.kind == ast.KindUnresolved {
		return nil
	}
	n := c.n
	if c.kind == ast.KindVarDecl && c.decl != nil {
		n = c.decl
	}
	var toks []ast.Token
	c.u.tokens(n, &toks)
	return toks
}

func (c *cursor) IsDefinition() bool {
	switch c.kind {
	case ast.KindFunctionDecl:
		return c.n.Type() == "function_definition"
	case ast.KindNamespaceDecl, ast.KindClassDecl, ast.KindVarDecl, ast.KindParamDecl:
		return true
	}
	return false
}

func (c *cursor) InSystemHeader() bool {
	return c.u.System
}

// refName returns the written name of a reference expression with template
// arguments removed.
func refName(u *Unit, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier", "qualified_identifier", "field_identifier", "type_identifier", "namespace_identifier":
		return refText(u, n)
	case "template_function":
		return refName(u, n.ChildByFieldName("name"))
	case "field_expression":
		return refName(u, n.ChildByFieldName("field"))
	case "parenthesized_expression":
		return refName(u, firstNamed(n))
	}
	return ""
}

func refText(u *Unit, n *sitter.Node) string {
	return stripTemplateArgs(lang.StripWhitespace(u.text(n)))
}

func stripTemplateArgs(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

var literalNodes = map[string]bool{
	"string_literal":     true,
	"raw_string_literal": true,
	"char_literal":       true,
	"number_literal":     true,
	"system_lib_string":  true,
}

var identifierNodes = map[string]bool{
	"identifier":           true,
	"field_identifier":     true,
	"type_identifier":      true,
	"namespace_identifier": true,
	"statement_identifier": true,
}

// tokens appends the lexical tokens of n. Literals are single tokens;
// comments in skipped conditional branches are dropped.
func (u *Unit) tokens(n *sitter.Node, out *[]ast.Token) {
	t := n.Type()
	switch {
	case t == "comment":
		if u.active(n) {
			*out = append(*out, u.token(n, ast.TokenComment))
		}
	case literalNodes[t]:
		*out = append(*out, u.token(n, ast.TokenLiteral))
	case n.ChildCount() == 0:
		switch {
		case identifierNodes[t]:
			*out = append(*out, u.token(n, ast.TokenIdentifier))
		case isWord(u.text(n)):
			*out = append(*out, u.token(n, ast.TokenKeyword))
		case u.text(n) != "":
			*out = append(*out, u.token(n, ast.TokenPunctuation))
		}
	default:
		for i := 0; i < int(n.ChildCount()); i++ {
			u.tokens(n.Child(i), out)
		}
	}
}

func (u *Unit) token(n *sitter.Node, kind ast.TokenKind) ast.Token {
	p := n.StartPoint()
	return ast.Token{
		Kind:     kind,
		Spelling: u.text(n),
		Location: model.Location{File: u.Path, Line: int(p.Row) + 1, Column: int(p.Column) + 1},
	}
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
