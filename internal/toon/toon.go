// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/whatsupdoc/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a DocMap into a TOON index: one table each for compounds,
// members and children. Descriptions are reduced to their first line.
func Encode(dm *model.DocMap) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(dm.Project)))

	var compoundRows [][]any
	for i := range dm.Compounds {
		c := &dm.Compounds[i]
		compoundRows = append(compoundRows, []any{
			c.ID,
			c.FullName,
			string(c.Kind),
			c.ParentID,
			c.GroupID,
			c.BaseID,
			c.Location.File,
			c.Location.Line,
			summary(c.Description),
		})
	}
	parts = append(parts, formatTabular("compounds",
		[]string{"id", "fullName", "kind", "parent", "group", "base", "file", "line", "summary"}, compoundRows))

	var memberRows [][]any
	for i := range dm.Compounds {
		c := &dm.Compounds[i]
		if c.Kind == model.Group {
			continue // group listings repeat members of their owners
		}
		for j := range c.Members {
			m := &c.Members[j]
			memberRows = append(memberRows, []any{
				c.ID,
				m.FullName,
				string(m.Kind),
				params(m),
				m.GroupID,
				m.Deprecated,
				m.NativeRef,
				m.Location.File,
				m.Location.Line,
				summary(m.Description),
			})
		}
	}
	parts = append(parts, formatTabular("members",
		[]string{"owner", "fullName", "kind", "params", "group", "deprecated", "native", "file", "line", "summary"}, memberRows))

	var childRows [][]any
	for i := range dm.Compounds {
		c := &dm.Compounds[i]
		for j := range c.Children {
			ch := &c.Children[j]
			childRows = append(childRows, []any{c.ID, ch.FullName, ch.TargetID})
		}
	}
	parts = append(parts, formatTabular("children", []string{"owner", "fullName", "target"}, childRows))

	return strings.Join(parts, "\n")
}

// params renders a function's arity as min..max; -1 is unbounded.
func params(m *model.MemberRecord) string {
	if m.Kind != model.Function {
		return ""
	}
	upper := strconv.Itoa(m.MaxParams)
	if m.MaxParams < 0 {
		upper = "*"
	}
	return fmt.Sprintf("%d..%s", m.MinParams, upper)
}

func summary(desc string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(desc), "\n")
	return strings.TrimSpace(line)
}

func formatTabular(name string, columns []string, rows [][]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeCell(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

// encodeCell writes booleans and integers as TOON primitives and every
// other value as a string.
func encodeCell(cell any) string {
	switch v := cell.(type) {
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case string:
		return encodeValue(v)
	}
	return encodeValue(fmt.Sprint(cell))
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
