package graph

import (
	"testing"

	"github.com/phobologic/whatsupdoc/internal/model"
	"github.com/phobologic/whatsupdoc/internal/registry"
)

func loc(line int) model.Location {
	return model.Location{File: "E_Geometry.cpp", Line: line, Column: 2}
}

// geometry builds: an unnamed root namespace (the library) exposing a
// namespace "Geometry" which exposes the type "Vec3", plus a group.
func geometry() *registry.Registry {
	r := registry.New()
	root := r.GetOrCreate("c:@F@init", model.Namespace, loc(1))

	geo := r.GetOrCreate("c:@F@E_Geometry::init", model.Namespace, loc(10))
	geo.Name = "Geometry"
	geo.ParentID = root.ID
	root.Children = append(root.Children, model.Reference{Name: "Geometry", OwnerID: root.ID, TargetID: geo.ID, Location: loc(3)})

	vec := r.GetOrCreate("c:@F@E_Vec3::getTypeObject", model.Type, loc(20))
	vec.Name = "Vec3"
	vec.ParentID = geo.ID
	vec.GroupID = "math"
	vec.BaseID = "c:@F@E_Shape::getTypeObject"
	vec.Members = append(vec.Members, model.Member{Name: "length", Kind: model.Function, OwnerID: vec.ID, MinParams: 0, MaxParams: 0})
	geo.Children = append(geo.Children, model.Reference{Name: "Vec3", OwnerID: geo.ID, TargetID: vec.ID, Location: loc(12)})

	g := r.GetOrCreate("math", model.Group, loc(11))
	g.Name = "Math"
	g.Members = append(g.Members, vec.Members[0])
	return r
}

func TestBuildOmitsUnnamed(t *testing.T) {
	t.Parallel()

	dm := Build(geometry(), "demo")
	if dm.Project != "demo" {
		t.Errorf("project = %q", dm.Project)
	}
	if len(dm.Compounds) != 3 {
		t.Fatalf("expected 3 compounds, got %d", len(dm.Compounds))
	}
	for _, c := range dm.Compounds {
		if c.ID == "c:@F@init" {
			t.Error("unnamed root compound should be omitted")
		}
	}
}

func TestBuildFullNamesAndSorting(t *testing.T) {
	t.Parallel()

	dm := Build(geometry(), "")
	want := []string{"Geometry", "Geometry.Vec3", "Math"}
	for i, c := range dm.Compounds {
		if c.FullName != want[i] {
			t.Errorf("compound %d: fullName = %q, want %q", i, c.FullName, want[i])
		}
	}

	geo := dm.Compounds[0]
	if geo.ParentID != "" {
		t.Errorf("unnamed parent should export as empty, got %q", geo.ParentID)
	}
	if len(geo.Children) != 1 || geo.Children[0].FullName != "Geometry.Vec3" || geo.Children[0].TargetID != "c:@F@E_Vec3::getTypeObject" {
		t.Errorf("children = %+v", geo.Children)
	}

	vec := dm.Compounds[1]
	if vec.ParentID != "c:@F@E_Geometry::init" {
		t.Errorf("parent = %q", vec.ParentID)
	}
	if vec.GroupID != "math" {
		t.Errorf("group = %q", vec.GroupID)
	}
	if vec.BaseID != "c:@F@E_Shape::getTypeObject" {
		t.Errorf("base = %q", vec.BaseID)
	}
	if len(vec.Members) != 1 || vec.Members[0].FullName != "Geometry.Vec3.length" {
		t.Errorf("members = %+v", vec.Members)
	}
}

func TestBuildGroupMembersUseOwnerName(t *testing.T) {
	t.Parallel()

	dm := Build(geometry(), "")
	group := dm.Compounds[2]
	if group.Kind != model.Group {
		t.Fatalf("kind = %q", group.Kind)
	}
	if len(group.Members) != 1 || group.Members[0].FullName != "Geometry.Vec3.length" {
		t.Errorf("group members = %+v", group.Members)
	}
}

func TestBuildCanonicalizesMerged(t *testing.T) {
	t.Parallel()

	r := geometry()
	alias := r.GetOrCreate("c:@F@E_Geometry::initMore", model.Unknown, loc(30))
	alias.Members = append(alias.Members, model.Member{Name: "PI", Kind: model.Constant, OwnerID: alias.ID})
	alias.Children = append(alias.Children, model.Reference{Name: "Self", OwnerID: alias.ID, TargetID: "c:@F@E_Geometry::init"})
	r.Merge("c:@F@E_Geometry::init", alias.ID)

	dm := Build(r, "")
	geo := dm.Compounds[0]
	if geo.ID != "c:@F@E_Geometry::init" {
		t.Fatalf("first compound = %q", geo.ID)
	}
	if len(geo.Members) != 1 || geo.Members[0].FullName != "Geometry.PI" {
		t.Errorf("members = %+v", geo.Members)
	}
	if len(geo.Children) != 1 {
		t.Errorf("self-children should be dropped, got %+v", geo.Children)
	}
	for _, c := range dm.Compounds {
		if c.ID == alias.ID {
			t.Error("tombstone should be omitted")
		}
	}
}

func TestBuildParentCycle(t *testing.T) {
	t.Parallel()

	r := registry.New()
	a := r.GetOrCreate("a", model.Namespace, loc(1))
	b := r.GetOrCreate("b", model.Namespace, loc(2))
	a.Name, b.Name = "A", "B"
	a.ParentID, b.ParentID = "b", "a"

	dm := Build(r, "")
	if len(dm.Compounds) != 2 {
		t.Fatalf("expected 2 compounds, got %d", len(dm.Compounds))
	}
	if dm.Compounds[0].FullName != "A.B" || dm.Compounds[1].FullName != "B.A" {
		t.Errorf("fullNames = %q, %q", dm.Compounds[0].FullName, dm.Compounds[1].FullName)
	}
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()

	dm := Build(registry.New(), "")
	if len(dm.Compounds) != 0 {
		t.Errorf("expected no compounds, got %d", len(dm.Compounds))
	}
}
