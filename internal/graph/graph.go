// Package graph flattens the compound registry into the exported DocMap:
// canonical, named compounds with resolved identities and full names.
package graph

import (
	"sort"
	"strings"

	"github.com/phobologic/whatsupdoc/internal/model"
	"github.com/phobologic/whatsupdoc/internal/registry"
)

// Build creates one record per canonical, named compound in reg. Tombstones
// and unnamed compounds are omitted; identities referring to them are
// canonicalized or, when the target has no name, left empty.
func Build(reg *registry.Registry, project string) *model.DocMap {
	b := &builder{reg: reg, names: make(map[string]string)}

	var records []model.CompoundRecord
	for _, c := range reg.Compounds() {
		if c.Name == "" {
			continue
		}
		records = append(records, b.record(c))
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].FullName != records[j].FullName {
			return records[i].FullName < records[j].FullName
		}
		return records[i].ID < records[j].ID
	})

	return &model.DocMap{Project: project, Compounds: records}
}

type builder struct {
	reg   *registry.Registry
	names map[string]string
}

func (b *builder) record(c *model.Compound) model.CompoundRecord {
	full := b.fullName(c)
	rec := model.CompoundRecord{
		ID:          c.ID,
		Name:        c.Name,
		FullName:    full,
		Kind:        c.Kind,
		Location:    c.Location,
		ParentID:    b.named(c.ParentID),
		GroupID:     b.named(c.GroupID),
		BaseID:      b.reg.CanonicalID(c.BaseID),
		Description: c.Description,
		Children:    []model.ChildRecord{},
		Members:     []model.MemberRecord{},
	}

	for _, ref := range c.Children {
		target := b.reg.CanonicalID(ref.TargetID)
		if target == c.ID {
			continue // no self-children
		}
		rec.Children = append(rec.Children, model.ChildRecord{
			Name:     ref.Name,
			FullName: join(full, ref.Name),
			TargetID: target,
			Location: ref.Location,
		})
	}

	for _, m := range c.Members {
		owner := full
		if o := b.reg.Canonical(m.OwnerID); o != nil && o != c {
			owner = b.fullName(o)
		}
		rec.Members = append(rec.Members, model.MemberRecord{
			Name:            m.Name,
			FullName:        join(owner, m.Name),
			Kind:            m.Kind,
			MinParams:       m.MinParams,
			MaxParams:       m.MaxParams,
			Location:        m.Location,
			Description:     m.Description,
			NativeRef:       m.NativeRef,
			GroupID:         m.GroupID,
			Deprecated:      m.Deprecated,
			DeprecationNote: m.DeprecationNote,
		})
	}
	return rec
}

// named returns the canonical id of a compound that has a name, or "".
func (b *builder) named(id string) string {
	if id == "" {
		return ""
	}
	c := b.reg.Canonical(id)
	if c == nil || c.Name == "" {
		return ""
	}
	return c.ID
}

// fullName joins the names of c and its ancestors with dots, outermost
// first. Unnamed ancestors contribute nothing.
func (b *builder) fullName(c *model.Compound) string {
	if full, ok := b.names[c.ID]; ok {
		return full
	}
	var parts []string
	seen := make(map[string]struct{})
	for cur := c; cur != nil; cur = b.reg.Canonical(cur.ParentID) {
		if _, ok := seen[cur.ID]; ok {
			break
		}
		seen[cur.ID] = struct{}{}
		if cur.Name != "" {
			parts = append(parts, cur.Name)
		}
		if cur.ParentID == "" {
			break
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	full := strings.Join(parts, ".")
	b.names[c.ID] = full
	return full
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
