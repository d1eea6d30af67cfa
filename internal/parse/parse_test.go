package parse

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/diag"
	"github.com/phobologic/whatsupdoc/internal/extract"
	"github.com/phobologic/whatsupdoc/internal/lang"
	"github.com/phobologic/whatsupdoc/internal/model"
	"github.com/phobologic/whatsupdoc/internal/registry"
)

// project parses files (path -> source) and indexes them together.
func project(t *testing.T, defines Defines, files map[string]string) *Project {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	parser := lang.CPP.NewParser()
	var units []*Unit
	for _, p := range paths {
		u, err := Parse(context.Background(), parser, p, []byte(files[p]), defines)
		require.NoError(t, err, p)
		units = append(units, u)
	}
	proj, err := NewProject(lang.CPP, units)
	require.NoError(t, err)
	t.Cleanup(proj.Close)
	return proj
}

func collect(root ast.Cursor, kind ast.Kind) []ast.Cursor {
	var out []ast.Cursor
	ast.Walk(root, func(c ast.Cursor) bool {
		if c.Kind() == kind {
			out = append(out, c)
		}
		return true
	})
	return out
}

func TestParseDefines(t *testing.T) {
	t.Parallel()

	d := ParseDefines(
		[]string{"ES_DEBUG", " LEVEL = 3 ", ""},
		[]string{"-O2", "-DWITH_GL", "-D", "PLATFORM=linux", "-I/usr/include"},
	)
	assert.Equal(t, Defines{
		"ES_DEBUG": "1",
		"LEVEL":    "3",
		"WITH_GL":  "1",
		"PLATFORM": "linux",
	}, d)
	assert.Equal(t, []string{"ES_DEBUG", "LEVEL", "PLATFORM", "WITH_GL"}, d.Names())
}

func TestParseEmptySource(t *testing.T) {
	t.Parallel()

	_, err := Parse(context.Background(), lang.CPP.NewParser(), "empty.cpp", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptySource))
}

func TestEvalCondition(t *testing.T) {
	t.Parallel()

	defines := Defines{"FOO": "1", "ZERO": "0"}
	tests := []struct {
		expr string
		want bool
	}{
		{"defined(FOO)", true},
		{"defined FOO", true},
		{"!defined(FOO)", false},
		{"defined(BAR)", false},
		{"FOO", true},
		{"ZERO", false},
		{"!ZERO", true},
		{"BAR", false},
		{"0", false},
		{"1", true},
		{"FOO && BAR", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, evalCondition(tt.expr, defines))
		})
	}
}

const conditionalSource = `#ifdef WITH_GL
void glOnly() {}
#else
void noGl() {}
#endif
#ifndef WITH_GL
void notGl() {}
#endif
#if 0
void never() {}
#endif
void always() {}
`

func TestConditionalBranches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		defines Defines
		present []string
		absent  []string
	}{
		{"undefined", nil, []string{"noGl", "notGl", "always"}, []string{"glOnly", "never"}},
		{"defined", Defines{"WITH_GL": "1"}, []string{"glOnly", "always"}, []string{"noGl", "notGl", "never"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := project(t, tt.defines, map[string]string{"gl.cpp": conditionalSource})
			for _, name := range tt.present {
				assert.NotNil(t, p.lookup(name, ""), name)
			}
			for _, name := range tt.absent {
				assert.Nil(t, p.lookup(name, ""), name)
			}

			var got []string
			for _, fn := range collect(p.Cursor(p.Units()[0]), ast.KindFunctionDecl) {
				got = append(got, fn.Spelling())
			}
			assert.ElementsMatch(t, tt.present, got, "cursors only expose active branches")
		})
	}
}

const declsSource = `namespace E_Geometry {

struct E_Vec3 {
	static EScript::Type * getTypeObject();
	static const char * getClassName() { return "Vec3"; }
};

int counter = 0, limit;

EScript::Type * E_Vec3::getTypeObject() {
	static EScript::Type * typeObject = new EScript::Type(nullptr);
	return typeObject;
}

void init(EScript::Namespace * lib, int flags = 0x10) {
	EScript::Type * t = E_Vec3::getTypeObject();
	declareConstant(lib, "Vec3", t);
	unknownCall(lib);
}

}
`

func TestCursorDeclarations(t *testing.T) {
	t.Parallel()

	p := project(t, nil, map[string]string{"geometry.cpp": declsSource})
	tu := p.Cursor(p.Units()[0])
	assert.Equal(t, ast.KindTranslationUnit, tu.Kind())
	assert.Equal(t, "geometry.cpp", tu.Spelling())

	ns := collect(tu, ast.KindNamespaceDecl)
	require.Len(t, ns, 1)
	assert.Equal(t, "E_Geometry", ns[0].Spelling())
	assert.Equal(t, "c:@N@E_Geometry", ns[0].USR())

	cls := collect(tu, ast.KindClassDecl)
	require.Len(t, cls, 1)
	assert.Equal(t, "E_Vec3", cls[0].Spelling())
	assert.Equal(t, "c:@S@E_Geometry::E_Vec3", cls[0].USR())

	fns := map[string]ast.Cursor{}
	for _, fn := range collect(tu, ast.KindFunctionDecl) {
		if fn.IsDefinition() {
			fns[fn.QualifiedName()] = fn
		}
	}
	require.Contains(t, fns, "E_Geometry::E_Vec3::getTypeObject")
	require.Contains(t, fns, "E_Geometry::E_Vec3::getClassName")
	require.Contains(t, fns, "E_Geometry::init")

	get := fns["E_Geometry::E_Vec3::getTypeObject"]
	assert.Equal(t, "getTypeObject", get.Spelling())
	assert.Equal(t, "c:@F@E_Geometry::E_Vec3::getTypeObject", get.USR())
	assert.Equal(t, "EScript::Type * ()", get.TypeSpelling())
	assert.Equal(t, 10, get.Location().Line)

	init := fns["E_Geometry::init"]
	params := init.Arguments()
	require.Len(t, params, 2)
	assert.Equal(t, ast.KindParamDecl, params[0].Kind())
	assert.Equal(t, "lib", params[0].Spelling())
	assert.Equal(t, "EScript::Namespace *", params[0].TypeSpelling())
	assert.Equal(t, "c:@F@E_Geometry::init@P@lib", params[0].USR())
	assert.Equal(t, "c:@F@E_Geometry::init@P@flags", params[1].USR())

	globals := collect(ns[0], ast.KindVarDecl)
	var names []string
	for _, g := range globals {
		if strings.HasPrefix(g.USR(), "c:@V@") {
			names = append(names, g.USR())
		}
	}
	assert.Equal(t, []string{"c:@V@E_Geometry::counter", "c:@V@E_Geometry::limit"}, names)
}

func TestCursorReferences(t *testing.T) {
	t.Parallel()

	p := project(t, nil, map[string]string{"geometry.cpp": declsSource})
	tu := p.Cursor(p.Units()[0])

	calls := map[string]ast.Cursor{}
	for _, c := range collect(tu, ast.KindCallExpr) {
		calls[c.Spelling()] = c
	}
	require.Contains(t, calls, "getTypeObject")
	require.Contains(t, calls, "declareConstant")
	require.Contains(t, calls, "unknownCall")

	get := calls["getTypeObject"]
	ref := get.Referenced()
	require.NotNil(t, ref)
	assert.Equal(t, ast.KindFunctionDecl, ref.Kind())
	assert.True(t, ref.IsDefinition(), "definitions win over prototypes")
	assert.Equal(t, "c:@F@E_Geometry::E_Vec3::getTypeObject", ref.USR())
	assert.Equal(t, "EScript::Type *", get.TypeSpelling())

	declare := calls["declareConstant"]
	args := declare.Arguments()
	require.Len(t, args, 3)

	lib := args[0].Referenced()
	require.NotNil(t, lib)
	assert.Equal(t, ast.KindParamDecl, lib.Kind())
	assert.Equal(t, "c:@F@E_Geometry::init@P@lib", lib.USR())

	assert.Equal(t, ast.KindStringLiteral, args[1].Kind())
	assert.Equal(t, `"Vec3"`, args[1].Spelling())

	local := args[2].Referenced()
	require.NotNil(t, local)
	assert.Equal(t, ast.KindVarDecl, local.Kind())
	assert.Equal(t, "c:@F@E_Geometry::init@L@t@16", local.USR())
	assert.Equal(t, "EScript::Type *", local.TypeSpelling())
	assert.Equal(t, "EScript::Type *", args[2].TypeSpelling())

	unknown := calls["unknownCall"].Referenced()
	require.NotNil(t, unknown)
	assert.Equal(t, ast.KindUnresolved, unknown.Kind())
	assert.Equal(t, "c:@U@unknownCall", unknown.USR())
}

func TestNewExpression(t *testing.T) {
	t.Parallel()

	p := project(t, nil, map[string]string{"geometry.cpp": declsSource})
	news := collect(p.Cursor(p.Units()[0]), ast.KindNewExpr)
	require.Len(t, news, 1)
	assert.Equal(t, "EScript::Type *", news[0].TypeSpelling())
	assert.Equal(t, "c:@E@geometry.cpp:11:38", news[0].USR())
	require.Len(t, news[0].Arguments(), 1)
	assert.Equal(t, ast.KindOtherLiteral, news[0].Arguments()[0].Kind())
}

func TestReferencesAcrossFiles(t *testing.T) {
	t.Parallel()

	p := project(t, nil, map[string]string{
		"E_Shape.h": `namespace E {
struct E_Shape {
	static EScript::Type * getTypeObject();
};
}
`,
		"E_Shape.cpp": `namespace E {
EScript::Type * E_Shape::getTypeObject() { return nullptr; }
}
`,
		"main.cpp": `namespace E {
void use() { E_Shape::getTypeObject(); }
}
`,
	})

	var main *Unit
	for _, u := range p.Units() {
		if u.Path == "main.cpp" {
			main = u
		}
	}
	require.NotNil(t, main)
	calls := collect(p.Cursor(main), ast.KindCallExpr)
	require.Len(t, calls, 1)

	ref := calls[0].Referenced()
	require.NotNil(t, ref)
	assert.Equal(t, "c:@F@E::E_Shape::getTypeObject", ref.USR())
	assert.Equal(t, "E_Shape.cpp", ref.Location().File)
	assert.True(t, ref.IsDefinition())
}

func TestTokens(t *testing.T) {
	t.Parallel()

	p := project(t, nil, map[string]string{"tokens.cpp": `void init(EScript::Namespace * lib) {
	/// Doc for x.
#ifdef NEVER
	/// hidden
#endif
	declareFunction(lib, "x", 0, 2, nullptr);
}
`})
	fns := collect(p.Cursor(p.Units()[0]), ast.KindFunctionDecl)
	require.Len(t, fns, 1)

	var comments, literals []string
	for _, tok := range fns[0].Tokens() {
		switch tok.Kind {
		case ast.TokenComment:
			comments = append(comments, tok.Spelling)
			assert.Equal(t, 2, tok.Location.Line)
			assert.Equal(t, 2, tok.Location.Column)
		case ast.TokenLiteral:
			literals = append(literals, tok.Spelling)
		}
	}
	assert.Equal(t, []string{"/// Doc for x."}, comments)
	assert.Equal(t, []string{`"x"`, "0", "2"}, literals)
}

const geometrySource = `namespace E_Geometry {

struct E_Shape {
	static EScript::Type * getTypeObject();
};

struct E_Vec3 {
	static EScript::Type * getTypeObject();
	static const char * getClassName() { return "Vec3"; }
	static void init(EScript::Namespace & lib);
};

EScript::Type * E_Shape::getTypeObject() {
	static EScript::Type * typeObject = new EScript::Type(nullptr);
	return typeObject;
}

EScript::Type * E_Vec3::getTypeObject() {
	static EScript::Type * typeObject = new EScript::Type(E_Shape::getTypeObject());
	return typeObject;
}

void E_Vec3::init(EScript::Namespace & lib) {
	EScript::Type * typeObject = getTypeObject();
	//! A three dimensional vector.
	declareConstant(&lib, getClassName(), typeObject);

	/// Euclidean length.
	declareFunction(typeObject, "length", 0, 0, nullptr);
}

}
`

const librarySource = `namespace E_Geometry {

void init(EScript::Namespace * lib) {
	/// @defgroup geometry Geometry
	/// Points and vectors.
	/// @ingroup geometry
	/// @{
	E_Vec3::init(*lib);
	/// @}

	/// Tolerance used by comparisons.
	declareConstant(lib, "EPSILON", 0.001);
	declareFunction(lib, "broken");
}

}
`

func TestExtractEndToEnd(t *testing.T) {
	t.Parallel()

	p := project(t, nil, map[string]string{
		"E_Geometry.cpp": librarySource,
		"E_Vec3.cpp":     geometrySource,
	})

	var diags diag.Collector
	s := extract.NewSession(registry.New(), extract.DefaultDialect(), &diags)
	for _, u := range p.Units() {
		s.Visit(p.Cursor(u))
	}
	reg := s.Registry()

	assert.Equal(t, []diag.Kind{diag.MalformedCall}, diags.Kinds())

	lib := reg.Canonical("c:@F@E_Geometry::init")
	require.NotNil(t, lib)
	assert.Equal(t, model.Namespace, lib.Kind)
	assert.Same(t, lib, reg.Canonical("c:@F@E_Geometry::E_Vec3::init"), "delegated registration merges into the caller")

	require.Len(t, lib.Members, 1)
	assert.Equal(t, "EPSILON", lib.Members[0].Name)
	assert.Equal(t, model.Constant, lib.Members[0].Kind)
	assert.Equal(t, "Tolerance used by comparisons.", lib.Members[0].Description)

	require.Len(t, lib.Children, 1)
	ref := lib.Children[0]
	assert.Equal(t, "Vec3", ref.Name)
	assert.Equal(t, "c:@F@E_Geometry::E_Vec3::getTypeObject", ref.TargetID)

	vec := reg.Canonical(ref.TargetID)
	require.NotNil(t, vec)
	assert.Equal(t, model.Type, vec.Kind)
	assert.Equal(t, "Vec3", vec.Name)
	assert.Equal(t, "A three dimensional vector.", vec.Description)
	assert.Equal(t, "c:@F@E_Geometry::E_Shape::getTypeObject", vec.BaseID)
	assert.Equal(t, "geometry", vec.GroupID)
	assert.True(t, reg.Same(vec.ParentID, lib.ID))

	require.Len(t, vec.Members, 1)
	assert.Equal(t, "length", vec.Members[0].Name)
	assert.Equal(t, "Euclidean length.", vec.Members[0].Description)

	group := reg.Canonical("geometry")
	require.NotNil(t, group)
	assert.Equal(t, model.Group, group.Kind)
	assert.Equal(t, "Geometry", group.Name)
	assert.Equal(t, "Points and vectors.", group.Description)
}

func TestRegistrationTypesResolvedThroughNamespaces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		id     string
	}{
		{
			name: "enclosing namespace",
			source: `namespace EScript {
void init(Namespace & lib) {
	declareFunction(&lib, "foo", 0, 0, nullptr);
}
}
`,
			id: "c:@F@EScript::init",
		},
		{
			name: "using directive",
			source: `using namespace EScript;
void init(Namespace & lib) {
	declareFunction(&lib, "foo", 0, 0, nullptr);
}
`,
			id: "c:@F@init",
		},
		{
			name: "using declaration",
			source: `namespace E_Lib {
using EScript::Namespace;
void init(Namespace & lib) {
	declareFunction(&lib, "foo", 0, 0, nullptr);
}
}
`,
			id: "c:@F@E_Lib::init",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := project(t, nil, map[string]string{"lib.cpp": tt.source})
			tu := p.Cursor(p.Units()[0])

			var params []ast.Cursor
			for _, fn := range collect(tu, ast.KindFunctionDecl) {
				params = append(params, fn.Arguments()...)
			}
			require.Len(t, params, 1)
			assert.Equal(t, "EScript::Namespace &", params[0].TypeSpelling())

			var diags diag.Collector
			s := extract.NewSession(registry.New(), extract.DefaultDialect(), &diags)
			s.Visit(tu)
			assert.Empty(t, diags.Kinds())

			lib := s.Registry().Canonical(tt.id)
			require.NotNil(t, lib)
			assert.Equal(t, model.Namespace, lib.Kind)
			require.Len(t, lib.Members, 1)
			assert.Equal(t, "foo", lib.Members[0].Name)
		})
	}
}

func TestTypeSpellingQualification(t *testing.T) {
	t.Parallel()

	p := project(t, nil, map[string]string{"lib.cpp": `namespace E_Lib {
struct Vec { };
namespace Detail {
Vec * make(int count, ::Global g, std::string s);
}
}
`})
	fns := collect(p.Cursor(p.Units()[0]), ast.KindFunctionDecl)
	require.Len(t, fns, 1)
	assert.Equal(t, "E_Lib::Vec * ()", fns[0].TypeSpelling())

	params := fns[0].Arguments()
	require.Len(t, params, 3)
	assert.Equal(t, "int", params[0].TypeSpelling())
	assert.Equal(t, "Global", params[1].TypeSpelling())
	assert.Equal(t, "std::string", params[2].TypeSpelling())
}
