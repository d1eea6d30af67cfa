package extract

import (
	"github.com/phobologic/whatsupdoc/internal/ast"
	"github.com/phobologic/whatsupdoc/internal/diag"
	"github.com/phobologic/whatsupdoc/internal/model"
	"github.com/phobologic/whatsupdoc/internal/resolve"
)

// HandleDeclareFunction records a declareFunction(owner, name[, min, max],
// impl) call as a function member of owner.
func (s *Session) HandleDeclareFunction(call ast.Cursor) {
	loc := call.Location()
	args := call.Arguments()
	if len(args) != 3 && len(args) != 5 {
		s.diag(diag.MalformedCall, loc, "%s expects 3 or 5 arguments, got %d", call.Spelling(), len(args))
		return
	}
	owner, ok := s.res.Resolve(args[0])
	if !ok {
		s.diag(diag.UnresolvedReference, loc, "cannot resolve the namespace or type %s declares into", call.Spelling())
		return
	}
	name, ok := resolve.StringLiteral(args[1])
	if !ok || name == "" {
		s.diag(diag.UnresolvedReference, loc, "function name is not a string literal")
		return
	}
	var minParams, maxParams int
	if len(args) == 5 {
		minParams, _ = resolve.IntLiteral(args[2])
		maxParams, _ = resolve.IntLiteral(args[3])
	}
	native := resolve.NativeRef(args[len(args)-1], name)

	desc := s.ResolveDescription(loc.Line)
	deprecated, note := s.TakeDeprecated()
	c := s.compound(owner)
	group := s.effectiveGroup(c.ID)
	s.joinGroup(c, group)

	m := model.Member{
		Name:            name,
		Kind:            model.Function,
		OwnerID:         c.ID,
		Location:        loc,
		Description:     desc,
		NativeRef:       native,
		GroupID:         s.member.active,
		MinParams:       minParams,
		MaxParams:       maxParams,
		Deprecated:      deprecated,
		DeprecationNote: note,
	}
	c.Members = append(c.Members, m)
	s.addToGroup(m, group)
}

// HandleDeclareConstant records a declareConstant(owner, name, value) call.
// A value that is itself a namespace or type becomes a nested reference;
// anything else is a constant member.
func (s *Session) HandleDeclareConstant(call ast.Cursor) {
	loc := call.Location()
	args := call.Arguments()
	if len(args) != 3 {
		s.diag(diag.MalformedCall, loc, "%s expects 3 arguments, got %d", call.Spelling(), len(args))
		return
	}
	owner, ok := s.res.Resolve(args[0])
	if !ok {
		s.diag(diag.UnresolvedReference, loc, "cannot resolve the namespace or type %s declares into", call.Spelling())
		return
	}
	name, ok := s.constantName(args[1])
	if !ok {
		s.diag(diag.AmbiguousName, loc, "constant name is neither a literal nor a known class name")
		return
	}
	value, nested := s.res.Resolve(args[2])

	desc := s.ResolveDescription(loc.Line)
	deprecated, note := s.TakeDeprecated()
	c := s.compound(owner)
	group := s.effectiveGroup(c.ID)
	s.joinGroup(c, group)

	if nested {
		s.declareNested(c, value, name, desc, group, loc)
		return
	}

	m := model.Member{
		Name:            name,
		Kind:            model.Constant,
		OwnerID:         c.ID,
		Location:        loc,
		Description:     desc,
		NativeRef:       resolve.NativeRef(args[2], name),
		GroupID:         s.member.active,
		Deprecated:      deprecated,
		DeprecationNote: note,
	}
	c.Members = append(c.Members, m)
	s.addToGroup(m, group)
}

// declareNested names the value compound after the constant, parents it to
// owner and records the reference. A compound exposing itself is ignored.
func (s *Session) declareNested(owner *model.Compound, value resolve.Ref, name, desc, group string, loc model.Location) {
	target := s.compound(value)
	if s.reg.Same(target.ID, owner.ID) {
		return
	}
	if target.Name == "" {
		target.Name = name
	}
	if target.ParentID == "" {
		target.ParentID = owner.ID
	}
	if target.Description == "" {
		target.Description = desc
	}
	s.joinGroup(target, group)
	if target.Kind == model.Type && target.BaseID == "" {
		s.resolveBase(target, value.Decl)
	}
	owner.Children = append(owner.Children, model.Reference{
		Name:     name,
		OwnerID:  owner.ID,
		Location: loc,
		TargetID: target.ID,
	})
}

func (s *Session) resolveBase(target *model.Compound, decl ast.Cursor) {
	if decl == nil {
		return
	}
	expr := s.res.FindConstructedBase(decl)
	if expr == nil {
		return
	}
	base, ok := s.res.Resolve(expr)
	if !ok || base.Role != resolve.Type {
		return
	}
	bc := s.compound(base)
	if !s.reg.Same(bc.ID, target.ID) {
		target.BaseID = bc.ID
	}
}

// constantName reads the name argument of declareConstant: a string
// literal, or a call to a class-name accessor.
func (s *Session) constantName(arg ast.Cursor) (string, bool) {
	if name, ok := resolve.StringLiteral(arg); ok {
		return name, name != ""
	}
	ref := ast.Find(arg, func(n ast.Cursor) bool {
		return n.Kind() == ast.KindCallExpr || n.Kind().IsRef()
	})
	if ref == nil {
		return "", false
	}
	decl := ref.Referenced()
	if decl == nil || decl.USR() == "" {
		return "", false
	}
	if name, ok := s.names[decl.USR()]; ok {
		return name, true
	}
	if s.recordClassName(decl) {
		return s.names[decl.USR()], true
	}
	return "", false
}

// recordClassName evaluates a class-name accessor definition (a function
// returning a string literal) into the name table.
func (s *Session) recordClassName(fn ast.Cursor) bool {
	if fn.Kind() != ast.KindFunctionDecl || fn.Spelling() != s.dialect.ClassNameAccessor || fn.USR() == "" {
		return false
	}
	ret := ast.Find(fn, func(n ast.Cursor) bool { return n.Kind() == ast.KindReturnStmt })
	if ret == nil {
		return false
	}
	name, ok := resolve.StringLiteral(ret)
	if !ok || name == "" {
		return false
	}
	s.names[fn.USR()] = name
	return true
}

// HandleInitCall records a call that delegates registration to another
// function: the callee's compound and the owner passed to it are merged.
func (s *Session) HandleInitCall(call ast.Cursor) {
	loc := call.Location()
	args := call.Arguments()
	if len(args) != 1 {
		s.diag(diag.MalformedCall, loc, "%s expects 1 argument, got %d", call.Spelling(), len(args))
		return
	}
	owner, ok := s.res.Resolve(args[0])
	if !ok {
		s.diag(diag.UnresolvedReference, loc, "cannot resolve the namespace passed to %s", call.Spelling())
		return
	}
	callee := call.Referenced()
	if callee == nil || callee.USR() == "" {
		s.diag(diag.UnresolvedReference, loc, "cannot resolve the called %s", call.Spelling())
		return
	}

	s.ResolveDescription(loc.Line)
	s.TakeDeprecated()
	c := s.compound(owner)
	target := s.reg.GetOrCreate(s.alias(callee.USR()), model.Unknown, callee.Location())
	if group := s.effectiveGroup(c.ID); group != "" {
		for _, ref := range target.Children {
			if t := s.reg.Canonical(ref.TargetID); t != nil {
				s.joinGroup(t, group)
			}
		}
		if ctx := s.Context(callee.USR()); ctx.InheritedGroup == "" {
			ctx.InheritedGroup = group
		}
	}
	s.reg.Merge(c.ID, target.ID)
}
