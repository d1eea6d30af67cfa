// Package lang provides a language registry mapping file extensions to
// tree-sitter languages and their embedded query files.
package lang

import (
	"embed"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

//go:embed queries/*.scm
var queryFS embed.FS

var whitespaceRe = regexp.MustCompile(`\s+`)

// Capture names used by the index queries.
const (
	CaptureName                = "name"
	CaptureFunctionDefinition  = "definition.function"
	CaptureFunctionDeclaration = "declaration.function"
	CaptureNamespace           = "definition.namespace"
	CaptureClass               = "definition.class"
)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language
	queryOnce  sync.Once
	query      *sitter.Query
	queryErr   error
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// GetIndexQuery returns the compiled declaration index query (safe to share
// across goroutines).
func (l *Language) GetIndexQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", l.Name))
		if err != nil {
			l.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, l.lang)
		if err != nil {
			l.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		l.query = q
	})
	return l.query, l.queryErr
}

// CPP is the C++ front end; headers are parsed as C++ too.
var CPP = &Language{
	Name:       "cpp",
	Extensions: []string{".cpp", ".cc", ".cxx", ".c++", ".h", ".hh", ".hpp", ".hxx"},
	lang:       cpp.GetLanguage(),
}

// Languages maps language names to their configuration.
var Languages = map[string]*Language{
	CPP.Name: CPP,
}

// extensionMap is built lazily from Languages.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// ForPath returns the language of a file path, or nil if unsupported.
func ForPath(path string) *Language {
	return Languages[ForExtension(filepath.Ext(path))]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// StripWhitespace removes all whitespace, for qualified names split across
// lines or written as `A :: B`.
func StripWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(s, "")
}
