package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/ast/asttest"
	"github.com/phobologic/whatsupdoc/internal/model"
)

const (
	nsPtr   = "EScript::Namespace *"
	typePtr = "EScript::Type *"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	r := New(Markers{})
	tests := []struct {
		typ  string
		want Role
	}{
		{"EScript::Namespace *", Namespace},
		{"EScript::Type *", Type},
		{"const EScript::Type &", Type},
		{"int", Neither},
		{"", Neither},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Classify(asttest.Param("f", "p", tt.typ, 1)), tt.typ)
	}
	assert.Equal(t, Neither, r.Classify(nil))
	assert.Equal(t, model.Unknown, Neither.CompoundKind())
	assert.Equal(t, model.Type, Type.CompoundKind())
}

func TestResolveParam(t *testing.T) {
	t.Parallel()

	r := New(DefaultMarkers)
	lib := asttest.Param("init", "lib", nsPtr, 1)

	ref, ok := r.Resolve(asttest.Ref(lib, 2))
	require.True(t, ok)
	assert.Equal(t, "c:@F@init@P@lib", ref.ID)
	assert.Equal(t, Namespace, ref.Role)

	ref, ok = r.Resolve(asttest.AddrOf(asttest.Wrap(asttest.Ref(lib, 2))))
	require.True(t, ok, "wrappers and unary operators are unwrapped")
	assert.Equal(t, "c:@F@init@P@lib", ref.ID)
}

func TestResolveLocalConstructed(t *testing.T) {
	t.Parallel()

	r := New(DefaultMarkers)
	ns := asttest.Var("init", "ns", nsPtr, 3, asttest.New("EScript::Namespace", 3))

	ref, ok := r.Resolve(asttest.Ref(ns, 4))
	require.True(t, ok)
	assert.Equal(t, "c:@F@init@L@ns", ref.ID, "constructed locals are identified by the variable")
	assert.Equal(t, Namespace, ref.Role)
}

func TestResolveLocalFromCall(t *testing.T) {
	t.Parallel()

	r := New(DefaultMarkers)
	getType := asttest.Decl("Foo::getTypeObject", typePtr, 1)
	typeObj := asttest.Var("init", "typeObject", typePtr, 5, asttest.Call(getType, 5))

	ref, ok := r.Resolve(asttest.Ref(typeObj, 6))
	require.True(t, ok)
	assert.Equal(t, "c:@F@Foo::getTypeObject", ref.ID)
	assert.Equal(t, Type, ref.Role)
}

func TestResolveCallSubtree(t *testing.T) {
	t.Parallel()

	r := New(DefaultMarkers)
	lib := asttest.Param("init", "lib", nsPtr, 1)
	// A helper of generic value type wrapping the namespace.
	helper := asttest.Decl("wrap", "EScript::ObjRef", 1)

	ref, ok := r.Resolve(asttest.Call(helper, 2, asttest.Ref(lib, 2)))
	require.True(t, ok)
	assert.Equal(t, "c:@F@init@P@lib", ref.ID)
}

func TestResolveValueTypedExpression(t *testing.T) {
	t.Parallel()

	r := New(DefaultMarkers)
	lib := asttest.Param("init", "lib", nsPtr, 1)

	ref, ok := r.Resolve(asttest.Typed("EScript::ObjPtr", 2, asttest.Ref(lib, 2)))
	require.True(t, ok)
	assert.Equal(t, "c:@F@init@P@lib", ref.ID)
}

func TestResolveNewExpr(t *testing.T) {
	t.Parallel()

	r := New(DefaultMarkers)
	ref, ok := r.Resolve(asttest.New("EScript::Namespace", 7))
	require.True(t, ok)
	assert.Equal(t, "c:@E@test.cpp:7", ref.ID)

	_, ok = r.Resolve(asttest.New("std::string", 7))
	assert.False(t, ok)
}

func TestResolveFailures(t *testing.T) {
	t.Parallel()

	r := New(DefaultMarkers)
	tests := []struct {
		name string
		expr ast.Cursor
	}{
		{"nil", nil},
		{"int literal", asttest.Int(3, 1)},
		{"string literal", asttest.Str("x", 1)},
		{"dangling ref", &asttest.Node{K: ast.KindDeclRef, Name: "x"}},
		{"int var", asttest.Ref(asttest.Var("f", "n", "int", 1, asttest.Int(1, 1)), 2)},
	}
	for _, tt := range tests {
		_, ok := r.Resolve(tt.expr)
		assert.False(t, ok, tt.name)
	}
}

func TestResolveCustomMarkers(t *testing.T) {
	t.Parallel()

	r := New(Markers{Namespace: []string{"Scope"}, Type: []string{"Klass"}, Value: []string{}})
	p := asttest.Param("init", "s", "Scope &", 1)

	ref, ok := r.Resolve(asttest.Ref(p, 2))
	require.True(t, ok)
	assert.Equal(t, Namespace, ref.Role)

	_, ok = r.Resolve(asttest.Ref(asttest.Param("init", "o", nsPtr, 1), 2))
	assert.False(t, ok)
	assert.False(t, r.IsValue(asttest.Typed("EScript::ObjRef", 1)))
}

func TestFindConstructedBase(t *testing.T) {
	t.Parallel()

	r := New(DefaultMarkers)
	base := asttest.Decl("Object::getTypeObject", typePtr, 1)
	baseCall := asttest.Call(base, 3)
	typeVar := asttest.Var("Foo::getTypeObject", "typeObject", typePtr, 3, asttest.New("EScript::Type", 3, baseCall))

	got := r.FindConstructedBase(typeVar)
	require.NotNil(t, got)
	assert.Same(t, baseCall, got)

	assert.Nil(t, r.FindConstructedBase(asttest.Var("f", "ns", nsPtr, 1, asttest.New("EScript::Namespace", 1))))
}

func TestNativeRef(t *testing.T) {
	t.Parallel()

	impl := asttest.Decl("Math::sqrt", "double", 1)
	impl.Name = "sqrt"
	arg := asttest.AddrOf(asttest.Ref(impl, 4))

	assert.Equal(t, "Math::sqrt", NativeRef(arg, "sqrt"))
	assert.Equal(t, "", NativeRef(arg, "pow"))
	assert.Nil(t, FindNamedDescendant(arg, ""))

	unresolved := asttest.Member("size", nil, 4, nil)
	assert.Equal(t, "size", NativeRef(unresolved, "size"))
}

func TestStringLiteral(t *testing.T) {
	t.Parallel()

	s, ok := StringLiteral(asttest.Str(`say "hi"`, 1))
	require.True(t, ok)
	assert.Equal(t, `say "hi"`, s)

	s, ok = StringLiteral(asttest.Wrap(asttest.Str("wrapped", 1)))
	require.True(t, ok)
	assert.Equal(t, "wrapped", s)

	_, ok = StringLiteral(asttest.Int(1, 1))
	assert.False(t, ok)
}

func TestIntLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr ast.Cursor
		want int
		ok   bool
	}{
		{"positive", asttest.Int(3, 1), 3, true},
		{"negative", asttest.Int(-1, 1), -1, true},
		{"hex", &asttest.Node{K: ast.KindIntegerLiteral, Toks: []ast.Token{{Kind: ast.TokenLiteral, Spelling: "0x10"}}}, 16, true},
		{"suffix", &asttest.Node{K: ast.KindIntegerLiteral, Toks: []ast.Token{{Kind: ast.TokenLiteral, Spelling: "5u"}}}, 5, true},
		{"string", asttest.Str("5", 1), 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := IntLiteral(tt.expr)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}
