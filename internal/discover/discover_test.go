package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverCppFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "src/E_Geometry.cpp", "void init() {}")
	writeFile(t, dir, "src/E_Vec3.h", "struct E_Vec3 {};")
	// Non-C++ file should be ignored
	writeFile(t, dir, "src/readme.txt", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, "src/.hidden.cpp", "secret")

	entries, err := Files(dir, Options{Inputs: []string{"src"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), paths)
	}

	// Should be sorted
	if entries[0].Path != filepath.Join("src", "E_Geometry.cpp") {
		t.Errorf("entry 0: got %q", entries[0].Path)
	}
	if entries[1].Path != filepath.Join("src", "E_Vec3.h") {
		t.Errorf("entry 1: got %q", entries[1].Path)
	}

	for _, e := range entries {
		if e.Language != "cpp" {
			t.Errorf("entry %q: language = %q, want cpp", e.Path, e.Language)
		}
		if e.System {
			t.Errorf("entry %q: input file marked as system", e.Path)
		}
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.cpp", "")
	writeFile(t, dir, "node_modules/pkg.cpp", "")
	writeFile(t, dir, "build/generated.cpp", "")
	writeFile(t, dir, ".hidden/secret.cpp", "")

	entries, err := Files(dir, Options{Inputs: []string{"."}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Path != "main.cpp" {
		t.Errorf("expected main.cpp, got %q", entries[0].Path)
	}
}

func TestDiscoverIncludesAreSystem(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "src/lib.cpp", "")
	writeFile(t, dir, "src/lib.h", "")
	writeFile(t, dir, "include/EScript/Type.h", "")

	entries, err := Files(dir, Options{
		Inputs:   []string{"src"},
		Includes: []string{"include", "src"},
	})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	system := map[string]bool{}
	for _, e := range entries {
		system[e.Path] = e.System
	}
	if !system[filepath.Join("include", "EScript", "Type.h")] {
		t.Error("include-only header should be a system file")
	}
	if system[filepath.Join("src", "lib.h")] {
		t.Error("a header under an input root is not a system file")
	}
}

func TestDiscoverSingleFileInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.cpp", "")
	writeFile(t, dir, "b.cpp", "")

	entries, err := Files(dir, Options{Inputs: []string{"b.cpp"}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "b.cpp" {
		t.Fatalf("expected only b.cpp, got %v", entries)
	}
}

func TestDiscoverMissingInput(t *testing.T) {
	t.Parallel()

	if _, err := Files(t.TempDir(), Options{Inputs: []string{"missing"}}); err == nil {
		t.Fatal("expected an error for a missing input root")
	}
}

func TestDiscoverExcludePatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "src/keep.cpp", "")
	writeFile(t, dir, "src/tests/skip.cpp", "")
	writeFile(t, dir, "src/gen_skip.cpp", "")

	entries, err := Files(dir, Options{
		Inputs:  []string{"src"},
		Exclude: []string{"tests/", "gen_*.cpp"},
	})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != filepath.Join("src", "keep.cpp") {
		t.Fatalf("expected only src/keep.cpp, got %v", entries)
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\n")
	writeFile(t, dir, "src/keep.cpp", "")
	writeFile(t, dir, "generated/out.cpp", "")

	entries, err := Files(dir, Options{Inputs: []string{"."}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != filepath.Join("src", "keep.cpp") {
		t.Fatalf("expected only src/keep.cpp, got %v", entries)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.cpp", "")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "real.cpp"), filepath.Join(dir, "link.cpp"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(dir, Options{Inputs: []string{"."}})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry (no symlink), got %d", len(entries))
	}
	if entries[0].Path != "real.cpp" {
		t.Errorf("expected real.cpp, got %q", entries[0].Path)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
