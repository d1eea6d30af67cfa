package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/whatsupdoc/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/E_Vec3.cpp", "src/E_Vec3.cpp"},
		{"dotted name", "Geometry.Vec3.length", "Geometry.Vec3.length"},
		{"qualified name", "E_Vec3::init", `"E_Vec3::init"`},
		{"arity", "0..*", "0..*"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeCell(t *testing.T) {
	t.Parallel()

	if got := encodeCell(true); got != "true" {
		t.Errorf("bool: got %q", got)
	}
	if got := encodeCell(-1); got != "-1" {
		t.Errorf("int: got %q", got)
	}
	if got := encodeCell("false"); got != `"false"` {
		t.Errorf("string keyword: got %q", got)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	dm := &model.DocMap{
		Project: "geometry",
		Compounds: []model.CompoundRecord{
			{
				ID:          "c:@F@E_Geometry::init",
				Name:        "Geometry",
				FullName:    "Geometry",
				Kind:        model.Namespace,
				Location:    model.Location{File: "src/E_Geometry.cpp", Line: 10},
				Description: "Points and vectors.\nMore text.",
				Members: []model.MemberRecord{
					{
						Name:       "dist",
						FullName:   "Geometry.dist",
						Kind:       model.Function,
						MinParams:  2,
						MaxParams:  -1,
						Location:   model.Location{File: "src/E_Geometry.cpp", Line: 14},
						NativeRef:  "E_Geometry::dist",
						Deprecated: true,
					},
					{
						Name:        "EPSILON",
						FullName:    "Geometry.EPSILON",
						Kind:        model.Constant,
						Location:    model.Location{File: "src/E_Geometry.cpp", Line: 15},
						Description: "Tolerance.",
					},
				},
				Children: []model.ChildRecord{
					{Name: "Vec3", FullName: "Geometry.Vec3", TargetID: "c:@F@E_Vec3::getTypeObject"},
				},
			},
			{
				ID:       "geo",
				Name:     "Geo",
				FullName: "Geo",
				Kind:     model.Group,
				Members: []model.MemberRecord{
					{Name: "dist", FullName: "Geometry.dist", Kind: model.Function},
				},
			},
		},
	}

	got := Encode(dm)

	// Verify structure
	lines := strings.Split(got, "\n")
	want := []string{
		"project: geometry",
		"compounds[2]{id,fullName,kind,parent,group,base,file,line,summary}:",
		`  "c:@F@E_Geometry::init",Geometry,namespace,"","","",src/E_Geometry.cpp,10,Points and vectors.`,
		`  geo,Geo,group,"","","","",0,""`,
		"members[2]{owner,fullName,kind,params,group,deprecated,native,file,line,summary}:",
		`  "c:@F@E_Geometry::init",Geometry.dist,function,2..*,"",true,"E_Geometry::dist",src/E_Geometry.cpp,14,""`,
		`  "c:@F@E_Geometry::init",Geometry.EPSILON,constant,"","",false,"",src/E_Geometry.cpp,15,Tolerance.`,
		"children[1]{owner,fullName,target}:",
		`  "c:@F@E_Geometry::init",Geometry.Vec3,"c:@F@E_Vec3::getTypeObject"`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(&model.DocMap{Project: "empty"})
	if !strings.Contains(got, "compounds[0]{id,fullName,kind,parent,group,base,file,line,summary}:") {
		t.Errorf("expected empty compounds section, got:\n%s", got)
	}
	if !strings.Contains(got, "members[0]{") {
		t.Errorf("expected empty members section, got:\n%s", got)
	}
}
