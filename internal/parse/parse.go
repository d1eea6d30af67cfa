// Package parse builds translation units from C++ sources with tree-sitter
// and exposes them through the ast cursor contract.
package parse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/whatsupdoc/internal/lang"
)

// ErrEmptySource is returned for files with no content.
var ErrEmptySource = errors.New("empty source")

// Defines maps preprocessor symbols to their values.
type Defines map[string]string

// ParseDefines collects `NAME` / `NAME=VALUE` entries and `-DNAME[=VALUE]`
// compiler flags. Other flags are ignored.
func ParseDefines(predefined, flags []string) Defines {
	d := Defines{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			value = "1"
		}
		d[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	for _, p := range predefined {
		add(p)
	}
	for i := 0; i < len(flags); i++ {
		f := flags[i]
		switch {
		case f == "-D" && i+1 < len(flags):
			i++
			add(flags[i])
		case strings.HasPrefix(f, "-D"):
			add(f[2:])
		}
	}
	return d
}

// Names returns the defined symbols in sorted order.
func (d Defines) Names() []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type span struct {
	start, end uint32
}

// Unit is one parsed source file. System units are indexed for name lookup
// but never visited for registrations.
type Unit struct {
	Path   string
	Source []byte
	System bool

	tree     *sitter.Tree
	inactive []span
	project  *Project
}

// Parse parses source as the file at path (used for locations). Branches of
// #ifdef/#ifndef/#if conditionals not selected by defines are ignored.
func Parse(ctx context.Context, parser *sitter.Parser, path string, source []byte, defines Defines) (*Unit, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptySource)
	}
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	u := &Unit{Path: path, Source: source, tree: tree}
	u.markConditionals(tree.RootNode(), defines)
	return u, nil
}

// Close releases the syntax tree.
func (u *Unit) Close() {
	if u.tree != nil {
		u.tree.Close()
		u.tree = nil
	}
}

func (u *Unit) root() *sitter.Node {
	return u.tree.RootNode()
}

func (u *Unit) text(n *sitter.Node) string {
	return lang.NodeText(n, u.Source)
}

// active reports whether n lies outside every skipped conditional branch.
func (u *Unit) active(n *sitter.Node) bool {
	start := n.StartByte()
	for _, s := range u.inactive {
		if start >= s.start && start < s.end {
			return false
		}
	}
	return true
}

func isConditional(t string) bool {
	switch t {
	case "preproc_if", "preproc_ifdef", "preproc_elif", "preproc_else":
		return true
	}
	return false
}

// markConditionals records the byte ranges of conditional branches that
// the defines do not select.
func (u *Unit) markConditionals(n *sitter.Node, defines Defines) {
	switch n.Type() {
	case "preproc_if", "preproc_ifdef", "preproc_elif":
		head := n.ChildByFieldName("condition")
		if head == nil {
			head = n.ChildByFieldName("name")
		}
		alt := n.ChildByFieldName("alternative")
		bodyStart := n.StartByte()
		if head != nil {
			bodyStart = head.EndByte()
		}
		bodyEnd := n.EndByte()
		if alt != nil {
			bodyEnd = alt.StartByte()
		}
		if u.conditionHolds(n, head, defines) {
			if alt != nil {
				u.inactive = append(u.inactive, span{alt.StartByte(), alt.EndByte()})
			}
			u.markChildren(n, defines, alt)
			return
		}
		u.inactive = append(u.inactive, span{bodyStart, bodyEnd})
		if alt != nil {
			u.markConditionals(alt, defines)
		}
		return
	}
	u.markChildren(n, defines, nil)
}

func (u *Unit) markChildren(n *sitter.Node, defines Defines, skip *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if skip != nil && c.StartByte() == skip.StartByte() && c.Type() == skip.Type() {
			continue
		}
		u.markConditionals(c, defines)
	}
}

var (
	definedRe = regexp.MustCompile(`^(!)?\s*defined\s*\(?\s*(\w+)\s*\)?$`)
	symbolRe  = regexp.MustCompile(`^(!)?\s*(\w+)$`)
)

func (u *Unit) conditionHolds(n, head *sitter.Node, defines Defines) bool {
	if head == nil {
		return true
	}
	text := lang.CollapseWhitespace(u.text(head))
	if n.Type() == "preproc_ifdef" {
		_, ok := defines[text]
		if n.ChildCount() > 0 && n.Child(0).Type() == "#ifndef" {
			return !ok
		}
		return ok
	}
	return evalCondition(text, defines)
}

// evalCondition understands literals, `defined(X)` and bare symbols with
// optional negation. Anything more complex is assumed true.
func evalCondition(expr string, defines Defines) bool {
	expr = strings.TrimSpace(expr)
	if m := definedRe.FindStringSubmatch(expr); m != nil {
		_, ok := defines[m[2]]
		return ok != (m[1] == "!")
	}
	if m := symbolRe.FindStringSubmatch(expr); m != nil {
		v := m[2]
		if val, ok := defines[v]; ok {
			v = val
		} else if !isNumber(v) {
			v = "0"
		}
		return (v != "0") != (m[1] == "!")
	}
	return true
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
