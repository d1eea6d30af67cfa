// Package discover finds the C++ sources and headers under the configured
// input and include roots.
package discover

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/whatsupdoc/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // relative to the project root when inside it
	Language string
	System   bool // found only under an include root
}

// Options selects what Files walks.
type Options struct {
	Inputs   []string // files or directories whose registrations are extracted
	Includes []string // directories searched for declarations only
	Exclude  []string // gitignore-style patterns, matched relative to the root
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"build":        {},
	"CMakeFiles":   {},
	".cache":       {},
}

// Files discovers parseable sources below root. Relative input and include
// roots are resolved against root. A file reachable from an input root is
// never reported as a system file, even when an include root covers it too.
func Files(root string, opts Options) ([]FileEntry, error) {
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}
	var excl *ignore.GitIgnore
	if len(opts.Exclude) > 0 {
		excl = ignore.CompileIgnoreLines(opts.Exclude...)
	}

	found := make(map[string]*FileEntry)
	add := func(path string, system bool) {
		rel := relative(root, path)
		inRoot := !filepath.IsAbs(rel)
		if inRoot {
			slash := filepath.ToSlash(rel)
			if excl != nil && excl.MatchesPath(slash) {
				return
			}
			if gitFiles != nil {
				if _, ok := gitFiles[slash]; !ok {
					return
				}
			} else if gi != nil && gi.MatchesPath(slash) {
				return
			}
		}
		l := lang.ForPath(path)
		if l == nil {
			return
		}
		if e, ok := found[rel]; ok {
			e.System = e.System && system
			return
		}
		found[rel] = &FileEntry{Path: rel, Language: l.Name, System: system}
	}

	for _, in := range opts.Inputs {
		if err := walk(resolve(root, in), func(p string) { add(p, false) }); err != nil {
			return nil, fmt.Errorf("input %s: %w", in, err)
		}
	}
	for _, inc := range opts.Includes {
		if err := walk(resolve(root, inc), func(p string) { add(p, true) }); err != nil {
			return nil, fmt.Errorf("include %s: %w", inc, err)
		}
	}

	results := make([]FileEntry, 0, len(found))
	for _, e := range found {
		results = append(results, *e)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// walk calls fn for start itself when it is a file, or for every regular
// file below it.
func walk(start string, fn func(string)) error {
	info, err := os.Stat(start)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		fn(start)
		return nil
	}
	return filepath.WalkDir(start, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == start {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		fn(path)
		return nil
	})
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// relative returns path relative to root, or the absolute path when it lies
// outside root.
func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return rel
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
