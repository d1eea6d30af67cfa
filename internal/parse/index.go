package parse

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/lang"
)

// site is one indexed declaration.
type site struct {
	u     *Unit
	node  *sitter.Node // function_definition, declaration, field_declaration, namespace or class
	decl  *sitter.Node // the declarator (function_declarator or variable declarator)
	qname string
	kind  ast.Kind
	def   bool
}

// Project is the set of units parsed for one run plus a project-wide
// declaration index used to follow references across files.
type Project struct {
	units     []*Unit
	functions map[string]*site
	globals   map[string]*site
	scopes    map[string]*site
	simple    map[string][]string
	funcs     map[nodeKey]*function
}

type nodeKey struct {
	u     *Unit
	start uint32
	end   uint32
}

func keyOf(u *Unit, n *sitter.Node) nodeKey {
	return nodeKey{u, n.StartByte(), n.EndByte()}
}

// NewProject indexes the declarations of units using the language's index
// query.
func NewProject(l *lang.Language, units []*Unit) (*Project, error) {
	q, err := l.GetIndexQuery()
	if err != nil {
		return nil, err
	}
	p := &Project{
		units:     units,
		functions: make(map[string]*site),
		globals:   make(map[string]*site),
		scopes:    make(map[string]*site),
		simple:    make(map[string][]string),
		funcs:     make(map[nodeKey]*function),
	}
	for _, u := range units {
		u.project = p
		p.indexQuery(q, u)
		p.indexGlobals(u, u.root())
	}
	return p, nil
}

// Units returns the indexed units.
func (p *Project) Units() []*Unit {
	return p.units
}

// Close releases every unit's syntax tree.
func (p *Project) Close() {
	for _, u := range p.units {
		u.Close()
	}
}

// Cursor returns the translation-unit cursor of u.
func (p *Project) Cursor(u *Unit) ast.Cursor {
	return &cursor{u: u, n: u.root(), kind: ast.KindTranslationUnit}
}

func (p *Project) indexQuery(q *sitter.Query, u *Unit) {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, u.root())
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var name, node *sitter.Node
		var capture string
		for _, c := range m.Captures {
			cname := q.CaptureNameForId(c.Index)
			if cname == lang.CaptureName {
				name = c.Node
			} else {
				capture, node = cname, c.Node
			}
		}
		if name == nil || node == nil || !u.active(node) {
			continue
		}
		qname := qualify(scopeOf(u, node), lang.StripWhitespace(u.text(name)))
		switch capture {
		case lang.CaptureFunctionDefinition, lang.CaptureFunctionDeclaration:
			def := capture == lang.CaptureFunctionDefinition
			if old, ok := p.functions[qname]; ok && (old.def || !def) {
				continue
			}
			p.addFunction(&site{u: u, node: node, decl: topDeclarator(node, name), qname: qname, kind: ast.KindFunctionDecl, def: def})
		case lang.CaptureNamespace:
			if _, ok := p.scopes[qname]; !ok {
				p.scopes[qname] = &site{u: u, node: node, qname: qname, kind: ast.KindNamespaceDecl, def: true}
			}
		case lang.CaptureClass:
			p.scopes[qname] = &site{u: u, node: node, qname: qname, kind: ast.KindClassDecl, def: true}
		}
	}
}

func (p *Project) addFunction(s *site) {
	if _, ok := p.functions[s.qname]; !ok {
		simple := lastSegment(s.qname)
		p.simple[simple] = append(p.simple[simple], s.qname)
	}
	p.functions[s.qname] = s
}

// indexGlobals records variables declared at namespace or class scope.
func (p *Project) indexGlobals(u *Unit, n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if !u.active(c) {
			continue
		}
		switch c.Type() {
		case "declaration", "field_declaration":
			scope := scopeOf(u, c)
			for _, d := range declarators(c) {
				name, _, fn := unwrapDeclarator(d)
				if fn != nil || name == nil {
					continue
				}
				qname := qualify(scope, lang.StripWhitespace(u.text(name)))
				if _, ok := p.globals[qname]; !ok {
					p.globals[qname] = &site{u: u, node: c, decl: d, qname: qname, kind: ast.KindVarDecl, def: true}
				}
			}
		case "function_definition", "comment":
		default:
			p.indexGlobals(u, c)
		}
	}
}

// lookup resolves a possibly qualified name written inside scope (a
// "::"-joined chain, innermost last).
func (p *Project) lookup(name, scope string) *site {
	name = strings.TrimPrefix(name, "::")
	for s := scope; ; s = parentScope(s) {
		q := qualify(s, name)
		if f, ok := p.functions[q]; ok {
			return f
		}
		if g, ok := p.globals[q]; ok {
			return g
		}
		if sc, ok := p.scopes[q]; ok {
			return sc
		}
		if s == "" {
			break
		}
	}
	var match *site
	for _, q := range p.simple[lastSegment(name)] {
		if q != name && !strings.HasSuffix(q, "::"+name) {
			continue
		}
		if match != nil {
			return nil
		}
		match = p.functions[q]
	}
	return match
}

// scopeOf returns the "::"-joined names of the namespaces and classes
// enclosing n.
func scopeOf(u *Unit, n *sitter.Node) string {
	var parts []string
	for a := n.Parent(); a != nil; a = a.Parent() {
		switch a.Type() {
		case "namespace_definition", "class_specifier", "struct_specifier":
			if name := a.ChildByFieldName("name"); name != nil {
				parts = append(parts, lang.StripWhitespace(u.text(name)))
			}
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::")
}

func qualify(scope, name string) string {
	name = strings.TrimPrefix(name, "::")
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

func parentScope(scope string) string {
	if i := strings.LastIndex(scope, "::"); i >= 0 {
		return scope[:i]
	}
	return ""
}

func lastSegment(q string) string {
	if i := strings.LastIndex(q, "::"); i >= 0 {
		return q[i+2:]
	}
	return q
}

// declarators returns the declarator children of a declaration.
func declarators(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == "declarator" {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// unwrapDeclarator walks a declarator chain to the declared name. It returns
// the pointer/reference decoration to append to the base type, and the
// function_declarator when the chain declares a function.
func unwrapDeclarator(d *sitter.Node) (name *sitter.Node, deco string, fn *sitter.Node) {
	for n := d; n != nil; {
		switch n.Type() {
		case "pointer_declarator", "abstract_pointer_declarator":
			deco += " *"
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			deco += " &"
			n = firstNamed(n)
		case "function_declarator":
			if fn == nil {
				fn = n
			}
			n = n.ChildByFieldName("declarator")
		case "init_declarator", "array_declarator", "attributed_declarator":
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator":
			n = firstNamed(n)
		default:
			return n, deco, fn
		}
	}
	return nil, deco, fn
}

// topDeclarator returns the declarator child of decl that contains n.
func topDeclarator(decl, n *sitter.Node) *sitter.Node {
	for _, d := range declarators(decl) {
		if d.StartByte() <= n.StartByte() && n.EndByte() <= d.EndByte() {
			return d
		}
	}
	return nil
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

// function is a function definition with its lazily collected locals.
type function struct {
	u      *Unit
	node   *sitter.Node
	qname  string
	usr    string
	params []*sitter.Node
	locals []local
	loaded bool
}

type local struct {
	name  string
	decl  *sitter.Node
	owner *sitter.Node
	at    uint32
}

func (p *Project) function(u *Unit, n *sitter.Node) *function {
	k := keyOf(u, n)
	if f, ok := p.funcs[k]; ok {
		return f
	}
	f := &function{u: u, node: n}
	if d := n.ChildByFieldName("declarator"); d != nil {
		name, _, fd := unwrapDeclarator(d)
		if name != nil {
			f.qname = qualify(scopeOf(u, n), lang.StripWhitespace(u.text(name)))
		}
		if fd != nil {
			f.params = parameters(fd)
		}
	}
	f.usr = "c:@F@" + f.qname
	p.funcs[k] = f
	return f
}

func parameters(fd *sitter.Node) []*sitter.Node {
	list := fd.ChildByFieldName("parameters")
	if list == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		switch c.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
			out = append(out, c)
		}
	}
	return out
}

// param returns the index and node of the parameter called name.
func (f *function) param(name string) (int, *sitter.Node) {
	for i, prm := range f.params {
		if d := prm.ChildByFieldName("declarator"); d != nil {
			if n, _, _ := unwrapDeclarator(d); n != nil && f.u.text(n) == name {
				return i, prm
			}
		}
	}
	return -1, nil
}

// local returns the last variable called name declared before offset at.
func (f *function) local(name string, at uint32) *local {
	if !f.loaded {
		f.loaded = true
		if body := f.node.ChildByFieldName("body"); body != nil {
			f.collectLocals(body)
		}
	}
	var found *local
	for i := range f.locals {
		l := &f.locals[i]
		if l.name == name && l.at <= at {
			found = l
		}
	}
	return found
}

func (f *function) collectLocals(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if !f.u.active(c) {
			continue
		}
		if c.Type() == "declaration" {
			for _, d := range declarators(c) {
				name, _, fd := unwrapDeclarator(d)
				if name == nil || fd != nil {
					continue
				}
				f.locals = append(f.locals, local{name: f.u.text(name), decl: d, owner: c, at: d.StartByte()})
			}
		}
		f.collectLocals(c)
	}
}

// localUSR identifies a local variable by name and declaration line, so
// shadowing declarations stay distinct.
func (f *function) localUSR(name string, decl *sitter.Node) string {
	line := int(decl.StartPoint().Row) + 1
	return fmt.Sprintf("%s@L@%s@%d", f.usr, name, line)
}
