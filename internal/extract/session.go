// Package extract walks binding-registration functions and builds the
// documented compound graph: members, nested references, doc-groups and
// merges of compounds that alias each other.
package extract

import (
	"fmt"

	"github.com/phobologic/whatsupdoc/internal/comment"
	"github.com/phobologic/whatsupdoc/internal/diag"
	"github.com/phobologic/whatsupdoc/internal/model"
	"github.com/phobologic/whatsupdoc/internal/registry"
	"github.com/phobologic/whatsupdoc/internal/resolve"
)

// Dialect names the binding API recognized in source.
type Dialect struct {
	RegistrationFunction string
	DeclareFunction      string
	DeclareConstant      string
	ClassNameAccessor    string
	Markers              resolve.Markers
}

// DefaultDialect is the EScript binding API.
func DefaultDialect() Dialect {
	return Dialect{
		RegistrationFunction: "init",
		DeclareFunction:      "declareFunction",
		DeclareConstant:      "declareConstant",
		ClassNameAccessor:    "getClassName",
		Markers:              resolve.DefaultMarkers,
	}
}

// Context describes one registration function: its identity, the identity
// of its namespace parameter, and the doc-group inherited from an init call
// that targets it.
type Context struct {
	ID             string
	ParamID        string
	InheritedGroup string
}

// scope tracks a directive waiting for `@{` and the scope currently open.
type scope struct {
	pending string
	active  string
}

// Session is the mutable state threaded through one extraction run. It is
// not safe for concurrent use; translation units are visited one at a time.
type Session struct {
	reg     *registry.Registry
	res     *resolve.Resolver
	dialect Dialect
	report  diag.Reporter

	queue           []comment.Token
	group           scope
	member          scope
	capture         string
	captureFresh    bool
	deprecated      bool
	deprecationNote string
	file            string

	names    map[string]string
	aliases  map[string]string
	contexts map[string]*Context
	active   *Context
}

// NewSession creates a session writing into reg. A nil reporter discards
// diagnostics.
func NewSession(reg *registry.Registry, dialect Dialect, report diag.Reporter) *Session {
	if report == nil {
		report = diag.Discard
	}
	def := DefaultDialect()
	fillString(&dialect.RegistrationFunction, def.RegistrationFunction)
	fillString(&dialect.DeclareFunction, def.DeclareFunction)
	fillString(&dialect.DeclareConstant, def.DeclareConstant)
	fillString(&dialect.ClassNameAccessor, def.ClassNameAccessor)
	return &Session{
		reg:      reg,
		res:      resolve.New(dialect.Markers),
		dialect:  dialect,
		report:   report,
		names:    make(map[string]string),
		aliases:  make(map[string]string),
		contexts: make(map[string]*Context),
	}
}

// Registry returns the compound registry the session writes into.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// Enqueue appends a tokenized comment block to the pending queue, splicing
// it onto the previous block when the two are adjacent.
func (s *Session) Enqueue(toks []comment.Token) {
	s.queue = comment.Splice(s.queue, toks)
}

// Pending returns the number of queued comment tokens.
func (s *Session) Pending() int {
	return len(s.queue)
}

// CurrentMemberGroup returns the member-group (`@name`) currently open.
func (s *Session) CurrentMemberGroup() string {
	return s.member.active
}

// CurrentGroup returns the doc-group currently open.
func (s *Session) CurrentGroup() string {
	return s.group.active
}

// TakeDeprecated returns and clears the deprecation flag; it applies to a
// single declaration.
func (s *Session) TakeDeprecated() (bool, string) {
	dep, note := s.deprecated, s.deprecationNote
	s.deprecated, s.deprecationNote = false, ""
	return dep, note
}

// Reset clears the comment queue and closes every scope. Group scoping does
// not leak across registration functions.
func (s *Session) Reset() {
	s.queue = nil
	s.group = scope{}
	s.member = scope{}
	s.capture = ""
	s.deprecated = false
	s.deprecationNote = ""
	s.active = nil
}

// ClassName returns the display name recorded for a declaration identity.
func (s *Session) ClassName(usr string) (string, bool) {
	name, ok := s.names[usr]
	return name, ok
}

// Context returns the registration context for id, creating it.
func (s *Session) Context(id string) *Context {
	ctx, ok := s.contexts[id]
	if !ok {
		ctx = &Context{ID: id}
		s.contexts[id] = ctx
	}
	return ctx
}

// alias maps a registration function's namespace parameter to the function.
func (s *Session) alias(id string) string {
	if a, ok := s.aliases[id]; ok {
		return a
	}
	return id
}

// compound returns the registry record for a resolved reference.
func (s *Session) compound(ref resolve.Ref) *model.Compound {
	var loc model.Location
	if ref.Decl != nil {
		loc = ref.Decl.Location()
	}
	return s.reg.GetOrCreate(s.alias(ref.ID), ref.Role.CompoundKind(), loc)
}

// effectiveGroup is the doc-group declarations on owner belong to: the
// explicitly open group, or the group the active registration function
// inherited when owner is that function's own scope.
func (s *Session) effectiveGroup(ownerID string) string {
	if s.group.active != "" {
		return s.group.active
	}
	if s.active != nil && s.active.InheritedGroup != "" && s.reg.Same(ownerID, s.active.ID) {
		return s.active.InheritedGroup
	}
	return ""
}

// joinGroup makes c a member of group unless it already has one.
func (s *Session) joinGroup(c *model.Compound, group string) {
	if group == "" || c.GroupID != "" || s.reg.Same(c.ID, group) {
		return
	}
	c.GroupID = group
}

// addToGroup lists m on the group compound as well as on its owner.
func (s *Session) addToGroup(m model.Member, group string) {
	if group == "" || s.reg.Same(m.OwnerID, group) {
		return
	}
	if g := s.reg.Canonical(group); g != nil {
		g.Members = append(g.Members, m)
	}
}

func (s *Session) diag(kind diag.Kind, loc model.Location, format string, args ...any) {
	s.report.Report(diag.Diagnostic{Kind: kind, Location: loc, Message: fmt.Sprintf(format, args...)})
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
