// Package model defines core data structures for whatsupdoc.
package model

import "fmt"

// Location is the source position of a record. It is provenance only and
// never part of an identity.
type Location struct {
	File   string `json:"file" yaml:"file"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Column == 0
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// CompoundKind indicates what kind of scope a compound documents.
type CompoundKind string

const (
	Unknown   CompoundKind = "unknown"
	Namespace CompoundKind = "namespace"
	Type      CompoundKind = "type"
	Group     CompoundKind = "group"
)

// MemberKind indicates whether a member is a function or a constant.
type MemberKind string

const (
	Function MemberKind = "function"
	Constant MemberKind = "constant"
)

// Compound is a documented namespace, type or doc-group. Parent, group, base
// and redirect are identities resolved through the registry on read.
type Compound struct {
	ID          string
	RedirectTo  string
	ParentID    string
	GroupID     string
	BaseID      string
	Name        string
	Description string
	Location    Location
	Kind        CompoundKind
	Members     []Member
	Children    []Reference
}

// Redirected reports whether the compound is a tombstone left by a merge.
func (c *Compound) Redirected() bool {
	return c.RedirectTo != ""
}

// Member is a documented function or constant owned by one compound.
type Member struct {
	Name            string
	Kind            MemberKind
	OwnerID         string
	Location        Location
	Description     string
	NativeRef       string
	GroupID         string
	MinParams       int
	MaxParams       int
	Deprecated      bool
	DeprecationNote string
}

// Reference records that a compound exposes another compound under a name.
type Reference struct {
	Name     string
	OwnerID  string
	Location Location
	TargetID string
}

// ChildRecord is the exported form of a Reference.
type ChildRecord struct {
	Name     string   `json:"name" yaml:"name"`
	FullName string   `json:"fullName" yaml:"fullName"`
	TargetID string   `json:"id" yaml:"id"`
	Location Location `json:"location" yaml:"location"`
}

// MemberRecord is the exported form of a Member.
type MemberRecord struct {
	Name            string     `json:"name" yaml:"name"`
	FullName        string     `json:"fullName" yaml:"fullName"`
	Kind            MemberKind `json:"kind" yaml:"kind"`
	MinParams       int        `json:"minParams" yaml:"minParams"`
	MaxParams       int        `json:"maxParams" yaml:"maxParams"`
	Location        Location   `json:"location" yaml:"location"`
	Description     string     `json:"description" yaml:"description"`
	NativeRef       string     `json:"nativeRef" yaml:"nativeRef"`
	GroupID         string     `json:"group" yaml:"group"`
	Deprecated      bool       `json:"deprecated" yaml:"deprecated"`
	DeprecationNote string     `json:"deprecationNote,omitempty" yaml:"deprecationNote,omitempty"`
}

// CompoundRecord is one canonical, named compound ready for serialization.
type CompoundRecord struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	FullName    string         `json:"fullName" yaml:"fullName"`
	Kind        CompoundKind   `json:"kind" yaml:"kind"`
	Location    Location       `json:"location" yaml:"location"`
	ParentID    string         `json:"parent" yaml:"parent"`
	GroupID     string         `json:"group" yaml:"group"`
	BaseID      string         `json:"base" yaml:"base"`
	Description string         `json:"description" yaml:"description"`
	Children    []ChildRecord  `json:"children" yaml:"children"`
	Members     []MemberRecord `json:"members" yaml:"members"`
}

// DocMap is the complete extracted documentation model.
type DocMap struct {
	Project   string
	Compounds []CompoundRecord
}
