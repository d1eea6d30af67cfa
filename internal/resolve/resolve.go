// Package resolve maps binding-call argument expressions to the declarations
// they denote and classifies those declarations as namespaces or types.
package resolve

import (
	"strconv"
	"strings"

	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/model"
)

// maxDepth bounds reference chains (a variable initialized from a call whose
// callee returns another variable...).
const maxDepth = 32

// Role is the classification of a declaration.
type Role int

const (
	Neither Role = iota
	Namespace
	Type
)

func (r Role) String() string {
	switch r {
	case Namespace:
		return "namespace"
	case Type:
		return "type"
	}
	return "neither"
}

// CompoundKind converts the role to the compound kind it seeds.
func (r Role) CompoundKind() model.CompoundKind {
	switch r {
	case Namespace:
		return model.Namespace
	case Type:
		return model.Type
	}
	return model.Unknown
}

// Markers are substrings of static type names recognized by the resolver.
type Markers struct {
	Namespace []string
	Type      []string
	Value     []string
}

// DefaultMarkers are the EScript binding types.
var DefaultMarkers = Markers{
	Namespace: []string{"EScript::Namespace"},
	Type:      []string{"EScript::Type"},
	Value:     []string{"EScript::Object", "EScript::ObjRef", "EScript::ObjPtr"},
}

// Ref is a resolved declaration.
type Ref struct {
	Decl ast.Cursor
	ID   string
	Role Role
}

// Resolver resolves expressions against a set of markers.
type Resolver struct {
	markers Markers
}

// New creates a resolver. Empty marker lists fall back to DefaultMarkers.
func New(m Markers) *Resolver {
	if len(m.Namespace) == 0 {
		m.Namespace = DefaultMarkers.Namespace
	}
	if len(m.Type) == 0 {
		m.Type = DefaultMarkers.Type
	}
	if m.Value == nil {
		m.Value = DefaultMarkers.Value
	}
	return &Resolver{markers: m}
}

// Classify reports the role of c from its static type name.
func (r *Resolver) Classify(c ast.Cursor) Role {
	if c == nil {
		return Neither
	}
	return r.classifyType(c.TypeSpelling())
}

func (r *Resolver) classifyType(t string) Role {
	if t == "" {
		return Neither
	}
	if containsAny(t, r.markers.Namespace) {
		return Namespace
	}
	if containsAny(t, r.markers.Type) {
		return Type
	}
	return Neither
}

// IsValue reports whether c's static type is the generic value wrapper.
func (r *Resolver) IsValue(c ast.Cursor) bool {
	return containsAny(c.TypeSpelling(), r.markers.Value)
}

// Resolve follows an expression to the namespace or type declaration it
// denotes.
func (r *Resolver) Resolve(c ast.Cursor) (Ref, bool) {
	return r.resolve(c, 0)
}

func (r *Resolver) resolve(c ast.Cursor, depth int) (Ref, bool) {
	if c == nil || depth > maxDepth {
		return Ref{}, false
	}
	switch c.Kind() {
	case ast.KindUnexposed, ast.KindUnaryOp:
		return r.unwrap(c, depth)
	case ast.KindDeclRef, ast.KindMemberRef:
		decl := c.Referenced()
		if decl == nil {
			return Ref{}, false
		}
		return r.resolveDecl(decl, depth+1)
	case ast.KindCallExpr:
		return r.resolveCall(c, depth)
	case ast.KindNewExpr:
		if role := r.Classify(c); role != Neither && c.USR() != "" {
			return Ref{Decl: c, ID: c.USR(), Role: role}, true
		}
		return Ref{}, false
	}
	if c.Kind().IsDecl() {
		return r.resolveDecl(c, depth)
	}
	if r.IsValue(c) {
		return r.unwrap(c, depth)
	}
	return Ref{}, false
}

func (r *Resolver) unwrap(c ast.Cursor, depth int) (Ref, bool) {
	for _, child := range c.Children() {
		if ref, ok := r.resolve(child, depth+1); ok {
			return ref, true
		}
	}
	return Ref{}, false
}

// resolveCall adopts the callee when it yields a namespace or type, and
// otherwise the first reference in the call's subtree that does.
func (r *Resolver) resolveCall(c ast.Cursor, depth int) (Ref, bool) {
	if decl := c.Referenced(); decl != nil {
		if ref, ok := r.declRef(decl); ok {
			return ref, true
		}
	}
	var (
		found Ref
		ok    bool
	)
	for _, child := range c.Children() {
		ast.Walk(child, func(n ast.Cursor) bool {
			if ok {
				return false
			}
			if !n.Kind().IsRef() {
				return true
			}
			if decl := n.Referenced(); decl != nil {
				found, ok = r.declRef(decl)
			}
			return !ok
		})
		if ok {
			return found, true
		}
	}
	if r.IsValue(c) {
		for _, arg := range c.Arguments() {
			if ref, ok := r.resolve(arg, depth+1); ok {
				return ref, true
			}
		}
	}
	return Ref{}, false
}

// resolveDecl handles a declaration reached through a reference. Variables
// prefer a construction of the target type in their initializer, then the
// declaration their initializer refers to, then their own declared type.
func (r *Resolver) resolveDecl(decl ast.Cursor, depth int) (Ref, bool) {
	if depth > maxDepth {
		return Ref{}, false
	}
	if decl.Kind() != ast.KindVarDecl {
		return r.declRef(decl)
	}
	if ctor := r.findConstructor(decl); ctor != nil && decl.USR() != "" {
		return Ref{Decl: decl, ID: decl.USR(), Role: r.Classify(ctor)}, true
	}
	for _, init := range decl.Children() {
		if ref, ok := r.resolve(init, depth+1); ok {
			return ref, true
		}
	}
	return r.declRef(decl)
}

func (r *Resolver) declRef(decl ast.Cursor) (Ref, bool) {
	role := r.Classify(decl)
	if role == Neither || decl.USR() == "" {
		return Ref{}, false
	}
	return Ref{Decl: decl, ID: decl.USR(), Role: role}, true
}

// findConstructor returns the first construction of a namespace or type in
// a variable's initializer.
func (r *Resolver) findConstructor(decl ast.Cursor) ast.Cursor {
	for _, init := range decl.Children() {
		ctor := ast.Find(init, func(n ast.Cursor) bool {
			return n.Kind() == ast.KindNewExpr && r.Classify(n) != Neither
		})
		if ctor != nil {
			return ctor
		}
	}
	return nil
}

// FindConstructedBase locates the construction of a type object below c and
// returns the expression naming its supertype (the first constructor
// argument), or nil.
func (r *Resolver) FindConstructedBase(c ast.Cursor) ast.Cursor {
	ctor := ast.Find(c, func(n ast.Cursor) bool {
		return n.Kind() == ast.KindNewExpr && r.Classify(n) == Type
	})
	if ctor == nil {
		return nil
	}
	if args := ctor.Arguments(); len(args) > 0 {
		return args[0]
	}
	return nil
}

// FindNamedDescendant searches c's subtree for a member or variable
// reference spelled name.
func FindNamedDescendant(c ast.Cursor, name string) ast.Cursor {
	if name == "" {
		return nil
	}
	return ast.Find(c, func(n ast.Cursor) bool {
		return n.Kind().IsRef() && n.Spelling() == name
	})
}

// NativeRef returns the fully qualified name of the implementation symbol
// registered under name below c, or "".
func NativeRef(c ast.Cursor, name string) string {
	ref := FindNamedDescendant(c, name)
	if ref == nil {
		return ""
	}
	if decl := ref.Referenced(); decl != nil && decl.QualifiedName() != "" {
		return decl.QualifiedName()
	}
	return ref.Spelling()
}

// StringLiteral extracts the first string literal of c, without quotes.
func StringLiteral(c ast.Cursor) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, t := range c.Tokens() {
		if t.Kind == ast.TokenLiteral && strings.Contains(t.Spelling, `"`) {
			return unquote(t.Spelling), true
		}
	}
	lit := ast.Find(c, func(n ast.Cursor) bool { return n.Kind() == ast.KindStringLiteral })
	if lit == nil {
		return "", false
	}
	return unquote(lit.Spelling()), true
}

// IntLiteral extracts the first integer literal of c, honoring a leading
// minus sign.
func IntLiteral(c ast.Cursor) (int, bool) {
	if c == nil {
		return 0, false
	}
	neg := false
	for _, t := range c.Tokens() {
		switch {
		case t.Kind == ast.TokenPunctuation && t.Spelling == "-":
			neg = !neg
		case t.Kind == ast.TokenLiteral && !strings.ContainsAny(t.Spelling, `"'`):
			v, err := strconv.ParseInt(strings.TrimRight(t.Spelling, "uUlL"), 0, 64)
			if err != nil {
				return 0, false
			}
			if neg {
				v = -v
			}
			return int(v), true
		}
	}
	return 0, false
}

func unquote(s string) string {
	if i := strings.IndexByte(s, '"'); i >= 0 {
		s = s[i:]
	}
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, `"`)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
