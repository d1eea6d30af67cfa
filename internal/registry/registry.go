// Package registry stores compounds by identity and merges compounds that
// turn out to document the same scope.
package registry

import "github.com/phobologic/whatsupdoc/internal/model"

// Registry is an identity-keyed compound store. Merged compounds stay
// behind as redirect tombstones, so every identity ever issued remains a
// valid lookup key. It is not safe for concurrent use.
type Registry struct {
	compounds map[string]*model.Compound
	order     []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{compounds: make(map[string]*model.Compound)}
}

// Len returns the number of records, tombstones included.
func (r *Registry) Len() int {
	return len(r.order)
}

// GetOrCreate returns the canonical compound for id, creating it with the
// seed kind and location if it does not exist. An existing compound of
// unknown kind (or without location) takes the seed values.
func (r *Registry) GetOrCreate(id string, kind model.CompoundKind, loc model.Location) *model.Compound {
	if c := r.Canonical(id); c != nil {
		if c.Kind == model.Unknown && kind != "" {
			c.Kind = kind
		}
		if c.Location.IsZero() {
			c.Location = loc
		}
		return c
	}
	if kind == "" {
		kind = model.Unknown
	}
	c := &model.Compound{ID: id, Kind: kind, Location: loc}
	r.compounds[id] = c
	r.order = append(r.order, id)
	return c
}

// Lookup returns the record stored under id without following redirects.
func (r *Registry) Lookup(id string) (*model.Compound, bool) {
	c, ok := r.compounds[id]
	return c, ok
}

// Canonical follows redirects from id and returns the live record, or nil
// if id is unknown. Redirect chains are shortened as they are walked.
func (r *Registry) Canonical(id string) *model.Compound {
	c, ok := r.compounds[id]
	if !ok {
		return nil
	}
	root := c
	for seen := 0; root.Redirected(); seen++ {
		next, ok := r.compounds[root.RedirectTo]
		if !ok || seen > len(r.order) {
			break
		}
		root = next
	}
	for c != nil && c != root && c.Redirected() {
		next := r.compounds[c.RedirectTo]
		c.RedirectTo = root.ID
		c = next
	}
	return root
}

// CanonicalID returns the canonical identity for id, or id itself when it
// is unknown.
func (r *Registry) CanonicalID(id string) string {
	if c := r.Canonical(id); c != nil {
		return c.ID
	}
	return id
}

// Same reports whether two identities resolve to the same record.
func (r *Registry) Same(a, b string) bool {
	return a != "" && b != "" && r.CanonicalID(a) == r.CanonicalID(b)
}

// Merge unites the compounds of a and b. The record of a survives: it takes
// every field b has and it lacks, b's members and children are appended to
// its own, compounds parented by b move to it, and b redirects to it.
// Merging a compound with itself, or with an unknown id, returns a's
// canonical record unchanged.
func (r *Registry) Merge(a, b string) *model.Compound {
	ca, cb := r.Canonical(a), r.Canonical(b)
	switch {
	case ca == nil:
		return cb
	case cb == nil || ca == cb:
		return ca
	}

	fill(&ca.Name, cb.Name)
	fill(&ca.Description, cb.Description)
	fill(&ca.BaseID, cb.BaseID)
	fill(&ca.ParentID, cb.ParentID)
	fill(&ca.GroupID, cb.GroupID)
	if ca.Kind == model.Unknown {
		ca.Kind = cb.Kind
	}
	if ca.Location.IsZero() {
		ca.Location = cb.Location
	}

	for _, m := range cb.Members {
		if m.OwnerID == cb.ID || r.Same(m.OwnerID, cb.ID) {
			m.OwnerID = ca.ID
		}
		ca.Members = append(ca.Members, m)
	}
	for _, ref := range cb.Children {
		ref.OwnerID = ca.ID
		ca.Children = append(ca.Children, ref)
	}
	cb.Members = nil
	cb.Children = nil
	cb.RedirectTo = ca.ID

	for _, id := range r.order {
		c := r.compounds[id]
		if c.Redirected() || c.ParentID == "" {
			continue
		}
		if r.Same(c.ParentID, ca.ID) {
			c.ParentID = ca.ID
		}
	}
	if r.Same(ca.ParentID, ca.ID) {
		ca.ParentID = ""
	}
	return ca
}

// Compounds returns the live (non-tombstone) records in creation order.
func (r *Registry) Compounds() []*model.Compound {
	var out []*model.Compound
	for _, id := range r.order {
		if c := r.compounds[id]; !c.Redirected() {
			out = append(out, c)
		}
	}
	return out
}

func fill(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}
