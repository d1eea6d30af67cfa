// Package comment turns raw documentation comments into a token stream of
// prose lines and the doxygen directives whatsupdoc interprets.
package comment

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/phobologic/whatsupdoc/internal/model"
)

// Kind identifies the variant of a Token.
type Kind int

const (
	TextLine Kind = iota + 1
	BlockStart
	BlockEnd
	DefGroup
	InGroup
	MemberGroup
	Deprecated
	CodeBlockStart
	CodeBlockEnd
	CodeLine
	CommentEnd
)

var kindNames = map[Kind]string{
	TextLine:       "text",
	BlockStart:     "block-start",
	BlockEnd:       "block-end",
	DefGroup:       "defgroup",
	InGroup:        "ingroup",
	MemberGroup:    "name",
	Deprecated:     "deprecated",
	CodeBlockStart: "code",
	CodeBlockEnd:   "endcode",
	CodeLine:       "code-line",
	CommentEnd:     "end",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is one logical line of a comment block.
//
// Text holds the prose or code for TextLine/CodeLine, the note for
// Deprecated and the language for CodeBlockStart. Group holds the group id
// for DefGroup/InGroup/MemberGroup, and Title the DefGroup title.
type Token struct {
	Kind  Kind
	Line  int
	Text  string
	Group string
	Title string
}

func (t Token) String() string {
	switch t.Kind {
	case DefGroup:
		return fmt.Sprintf("%d:%s(%s, %q)", t.Line, t.Kind, t.Group, t.Title)
	case InGroup, MemberGroup:
		return fmt.Sprintf("%d:%s(%s)", t.Line, t.Kind, t.Group)
	case BlockStart, BlockEnd, CodeBlockEnd, CommentEnd:
		return fmt.Sprintf("%d:%s", t.Line, t.Kind)
	}
	return fmt.Sprintf("%d:%s(%q)", t.Line, t.Kind, t.Text)
}

// lexer carries the per-block code mode across lines.
type lexer struct {
	code bool
}

// rule matches one stripped line. It returns nil when the line is not
// handled.
type rule struct {
	name  string
	re    *regexp.Regexp
	apply func(lx *lexer, m []string, line int) []Token
}

// rules are tried in order until one matches.
var rules = []rule{
	{
		name: "defgroup",
		re:   regexp.MustCompile(`^[@\\]defgroup\s+(\w+)\s*(.*)$`),
		apply: func(_ *lexer, m []string, line int) []Token {
			return []Token{{Kind: DefGroup, Line: line, Group: m[1], Title: strings.TrimSpace(m[2])}}
		},
	},
	{
		name: "ingroup",
		re:   regexp.MustCompile(`^[@\\](?:addtogroup|ingroup)\s+(\w+)`),
		apply: func(_ *lexer, m []string, line int) []Token {
			return []Token{{Kind: InGroup, Line: line, Group: m[1]}}
		},
	},
	{
		name: "name",
		re:   regexp.MustCompile(`^[@\\]name\s+(.*)$`),
		apply: func(_ *lexer, m []string, line int) []Token {
			return []Token{{Kind: MemberGroup, Line: line, Group: strings.TrimSpace(m[1])}}
		},
	},
	{
		name: "block",
		re:   regexp.MustCompile(`^@([{}])$`),
		apply: func(_ *lexer, m []string, line int) []Token {
			if m[1] == "{" {
				return []Token{{Kind: BlockStart, Line: line}}
			}
			return []Token{{Kind: BlockEnd, Line: line}}
		},
	},
	{
		name: "deprecated",
		re:   regexp.MustCompile(`^(.*?)[@\\]deprecated\b\s*(.*)$`),
		apply: func(_ *lexer, m []string, line int) []Token {
			var toks []Token
			if lead := strings.TrimSpace(m[1]); lead != "" {
				toks = append(toks, Token{Kind: TextLine, Line: line, Text: escape(lead)})
			}
			return append(toks, Token{Kind: Deprecated, Line: line, Text: strings.TrimSpace(m[2])})
		},
	},
	{
		name: "code",
		re:   regexp.MustCompile(`^[@\\]code(?:\{\.([\w+#-]+)\})?(?:\s.*)?$`),
		apply: func(lx *lexer, m []string, line int) []Token {
			lx.code = true
			return []Token{{Kind: CodeBlockStart, Line: line, Text: m[1]}}
		},
	},
	{
		name: "endcode",
		re:   regexp.MustCompile(`^[@\\]endcode\b`),
		apply: func(lx *lexer, _ []string, line int) []Token {
			lx.code = false
			return []Token{{Kind: CodeBlockEnd, Line: line}}
		},
	},
}

var (
	trailerRe = regexp.MustCompile(`\s*\*+/\s*$`)
	markdown  = strings.NewReplacer(`|`, `\|`, `*`, `\*`)

	prefixMu    sync.Mutex
	prefixCache = map[int]*regexp.Regexp{}
)

// prefixPattern returns the delimiter-stripping pattern for a comment that
// starts at the given 1-based column. Continuation lines without a delimiter
// lose exactly column spaces, plus one optional separator.
func prefixPattern(column int) *regexp.Regexp {
	indent := max(column, 0)
	prefixMu.Lock()
	defer prefixMu.Unlock()
	if re, ok := prefixCache[indent]; ok {
		return re
	}
	re := regexp.MustCompile(fmt.Sprintf(`^(?:/\*(?:!|\*+)<?|//(?:!|/+)<?|\s*\*+/?|\s{%d})\s?(.*)$`, indent))
	prefixCache[indent] = re
	return re
}

// Strip removes the comment delimiter from one physical line.
func Strip(line string, column int) string {
	line = strings.TrimRight(line, "\r")
	if m := prefixPattern(column).FindStringSubmatch(line); m != nil {
		line = m[1]
	}
	return trailerRe.ReplaceAllString(line, "")
}

// Tokenize converts one raw comment block starting at loc into tokens. The
// result always ends with exactly one CommentEnd placed on the line after
// the last comment line; leading and trailing blank text lines are dropped.
func Tokenize(raw string, loc model.Location) []Token {
	var (
		toks []Token
		lx   lexer
	)
	lines := strings.Split(raw, "\n")
	for i, physical := range lines {
		line := loc.Line + i
		text := Strip(physical, loc.Column)
		toks = append(toks, classify(&lx, text, line)...)
	}

	for len(toks) > 0 && isBlank(toks[0]) {
		toks = toks[1:]
	}
	for len(toks) > 0 && isBlank(toks[len(toks)-1]) {
		toks = toks[:len(toks)-1]
	}
	return append(toks, Token{Kind: CommentEnd, Line: loc.Line + len(lines)})
}

func classify(lx *lexer, text string, line int) []Token {
	directive := strings.TrimSpace(text)
	for _, r := range rules {
		if m := r.re.FindStringSubmatch(directive); m != nil {
			return r.apply(lx, m, line)
		}
	}
	if lx.code {
		return []Token{{Kind: CodeLine, Line: line, Text: text}}
	}
	return []Token{{Kind: TextLine, Line: line, Text: escape(strings.TrimRight(text, " \t"))}}
}

func escape(s string) string {
	return markdown.Replace(s)
}

func isBlank(t Token) bool {
	return t.Kind == TextLine && strings.TrimSpace(t.Text) == ""
}

// IsDoc reports whether a raw comment uses one of the documentation
// openers (`///`, `//!`, `/**`, `/*!`).
func IsDoc(raw string) bool {
	raw = strings.TrimLeft(raw, " \t")
	if strings.HasPrefix(raw, "/**/") {
		return false
	}
	for _, p := range []string{"///", "//!", "/**", "/*!"} {
		if strings.HasPrefix(raw, p) {
			return true
		}
	}
	return false
}

// IsLine reports whether a raw comment is a single-line `//` comment.
func IsLine(raw string) bool {
	return strings.HasPrefix(strings.TrimLeft(raw, " \t"), "//")
}

// Splice appends next to seq, dropping seq's trailing CommentEnd when next
// starts on that same line so adjacent blocks read as one unit.
func Splice(seq, next []Token) []Token {
	if len(seq) > 0 && len(next) > 0 {
		last := seq[len(seq)-1]
		if last.Kind == CommentEnd && last.Line == next[0].Line {
			seq = seq[:len(seq)-1]
		}
	}
	return append(seq, next...)
}
