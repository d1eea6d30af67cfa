// Package ast defines the cursor contract whatsupdoc consumes from a C++
// front end. Implementations map their native node kinds onto the small set
// of roles below; no behaviour depends on anything finer.
package ast

import "github.com/phobologic/whatsupdoc/internal/model"

// Kind is the role a cursor plays for extraction.
type Kind int

const (
	KindOther Kind = iota
	KindTranslationUnit
	KindNamespaceDecl
	KindClassDecl
	KindFunctionDecl
	KindParamDecl
	KindVarDecl
	KindCallExpr
	KindDeclRef
	KindMemberRef
	KindUnexposed
	KindUnaryOp
	KindNewExpr
	KindLambdaExpr
	KindReturnStmt
	KindStringLiteral
	KindIntegerLiteral
	KindOtherLiteral
	KindUnresolved
)

var kindNames = [...]string{
	KindOther:           "other",
	KindTranslationUnit: "translation-unit",
	KindNamespaceDecl:   "namespace",
	KindClassDecl:       "class",
	KindFunctionDecl:    "function",
	KindParamDecl:       "param",
	KindVarDecl:         "var",
	KindCallExpr:        "call",
	KindDeclRef:         "decl-ref",
	KindMemberRef:       "member-ref",
	KindUnexposed:       "unexposed",
	KindUnaryOp:         "unary",
	KindNewExpr:         "new",
	KindLambdaExpr:      "lambda",
	KindReturnStmt:      "return",
	KindStringLiteral:   "string",
	KindIntegerLiteral:  "integer",
	KindOtherLiteral:    "literal",
	KindUnresolved:      "unresolved",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// IsDecl reports whether cursors of this kind are declarations.
func (k Kind) IsDecl() bool {
	switch k {
	case KindNamespaceDecl, KindClassDecl, KindFunctionDecl, KindParamDecl, KindVarDecl, KindUnresolved:
		return true
	}
	return false
}

// IsRef reports whether cursors of this kind name another declaration.
func (k Kind) IsRef() bool {
	return k == KindDeclRef || k == KindMemberRef
}

// TokenKind classifies lexical tokens.
type TokenKind int

const (
	TokenPunctuation TokenKind = iota
	TokenKeyword
	TokenIdentifier
	TokenLiteral
	TokenComment
)

// Token is one lexical token of a cursor's source range.
type Token struct {
	Kind     TokenKind
	Spelling string
	Location model.Location
}

// Cursor is a node of a translation unit's AST.
//
// Referenced returns nil when a reference cannot be followed; declarations
// return themselves. Front ends may return a KindUnresolved declaration for
// a name they could not find, so callers still get a stable identity. USR
// is the stable declaration identity and is empty for cursors that are not
// declarations.
type Cursor interface {
	Kind() Kind
	Spelling() string
	TypeSpelling() string
	Location() model.Location
	USR() string
	QualifiedName() string
	Children() []Cursor
	Arguments() []Cursor
	Referenced() Cursor
	Tokens() []Token
	IsDefinition() bool
	InSystemHeader() bool
}

// Walk visits c and its descendants depth-first. Children of a cursor are
// skipped when fn returns false for it.
func Walk(c Cursor, fn func(Cursor) bool) {
	if c == nil || !fn(c) {
		return
	}
	for _, child := range c.Children() {
		Walk(child, fn)
	}
}

// Find returns the first cursor in c's subtree (c included) matching pred,
// in depth-first order.
func Find(c Cursor, pred func(Cursor) bool) Cursor {
	var found Cursor
	Walk(c, func(n Cursor) bool {
		if found != nil {
			return false
		}
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}
