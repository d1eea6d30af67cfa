package parse

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/lang"
)

var typeNameRe = regexp.MustCompile(`(?:::\s*)?[A-Za-z_]\w*(?:\s*::\s*[A-Za-z_]\w*)*`)

// typeKeywords are words in type spellings that never name a scope member.
var typeKeywords = map[string]bool{
	"auto": true, "bool": true, "char": true, "char16_t": true, "char32_t": true,
	"class": true, "const": true, "decltype": true, "double": true, "enum": true,
	"float": true, "int": true, "long": true, "short": true, "signed": true,
	"struct": true, "typename": true, "union": true, "unsigned": true,
	"void": true, "volatile": true, "wchar_t": true, "size_t": true,
}

// usings are the using-directives and using-declarations visible at a node.
type usings struct {
	namespaces []string          // using namespace N;
	names      map[string]string // using N::X;  X -> N::X
}

// typeOf spells the type node t with every name qualified the way the
// compiler would see it, so `Namespace` inside `namespace EScript` reads
// `EScript::Namespace`.
func (c *cursor) typeOf(t *sitter.Node) string {
	if t == nil {
		return ""
	}
	text := lang.CollapseWhitespace(c.u.text(t))
	p := c.project()
	if p == nil {
		return text
	}
	scope := p.typeScope(c.u, t)
	us := p.visibleUsings(c.u, t)
	return typeNameRe.ReplaceAllStringFunc(text, func(name string) string {
		return p.qualifyType(lang.StripWhitespace(name), scope, us)
	})
}

// typeScope is the scope names written at n are looked up in: the scope of
// the enclosing function definition (which may name a class out of line),
// else the enclosing namespaces and classes.
func (p *Project) typeScope(u *Unit, n *sitter.Node) string {
	for a := n; a != nil; a = a.Parent() {
		if a.Type() == "function_definition" {
			if f := p.function(u, a); f.qname != "" {
				return parentScope(f.qname)
			}
			break
		}
	}
	return scopeOf(u, n)
}

// visibleUsings collects the using-directives and using-declarations that
// precede n in its enclosing blocks, namespace bodies and file.
func (p *Project) visibleUsings(u *Unit, n *sitter.Node) usings {
	us := usings{names: make(map[string]string)}
	for a := n.Parent(); a != nil; a = a.Parent() {
		switch a.Type() {
		case "translation_unit", "declaration_list", "compound_statement":
		default:
			continue
		}
		for i := 0; i < int(a.NamedChildCount()); i++ {
			ch := a.NamedChild(i)
			if ch.StartByte() >= n.StartByte() {
				break
			}
			if ch.Type() != "using_declaration" || !u.active(ch) || ch.NamedChildCount() == 0 {
				continue
			}
			target := lang.StripWhitespace(u.text(ch.NamedChild(int(ch.NamedChildCount()) - 1)))
			target = strings.TrimPrefix(target, "::")
			if !isNamespaceDirective(ch) {
				us.names[lastSegment(target)] = target
				continue
			}
			if ns := p.namespaceNamed(target, scopeOf(u, ch)); ns != "std" && !strings.HasPrefix(ns, "std::") {
				us.namespaces = append(us.namespaces, ns)
			}
		}
	}
	return us
}

func isNamespaceDirective(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "namespace" {
			return true
		}
	}
	return false
}

// namespaceNamed resolves a namespace name written inside scope. Unknown
// namespaces are taken as written.
func (p *Project) namespaceNamed(name, scope string) string {
	for s := scope; ; s = parentScope(s) {
		if sc, ok := p.scopes[qualify(s, name)]; ok && sc.kind == ast.KindNamespaceDecl {
			return sc.qname
		}
		if s == "" {
			break
		}
	}
	return name
}

// qualifyType resolves one type name written inside scope. Indexed classes
// and namespaces win; names the project does not declare are placed in the
// single using-directive in effect, else in the innermost enclosing
// namespace.
func (p *Project) qualifyType(name, scope string, us usings) string {
	if strings.HasPrefix(name, "::") {
		return name[2:]
	}
	if typeKeywords[name] {
		return name
	}
	first, rest, qualified := strings.Cut(name, "::")
	if q, ok := us.names[first]; ok {
		if qualified {
			return q + "::" + rest
		}
		return q
	}
	for s := scope; ; s = parentScope(s) {
		if _, ok := p.scopes[qualify(s, name)]; ok {
			return qualify(s, name)
		}
		if s == "" {
			break
		}
	}
	for _, ns := range us.namespaces {
		if _, ok := p.scopes[qualify(ns, name)]; ok {
			return qualify(ns, name)
		}
	}
	if qualified {
		return name
	}
	if len(us.namespaces) == 1 {
		return qualify(us.namespaces[0], name)
	}
	return qualify(p.enclosingNamespace(scope), name)
}

// enclosingNamespace drops the trailing class names of scope.
func (p *Project) enclosingNamespace(scope string) string {
	for s := scope; s != ""; s = parentScope(s) {
		if sc, ok := p.scopes[s]; ok && sc.kind == ast.KindClassDecl {
			continue
		}
		return s
	}
	return ""
}
