// Package output writes the extracted DocMap to the output directory in the
// configured formats.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/whatsupdoc/internal/model"
	"github.com/phobologic/whatsupdoc/internal/toon"
)

// Format names an output format.
type Format string

const (
	JSON   Format = "json"   // one <id>.json file per compound
	YAML   Format = "yaml"   // docs.yaml with every compound
	TOON   Format = "toon"   // index.toon
	SQLite Format = "sqlite" // docs.db
)

// File names of the single-file formats.
const (
	YAMLFile   = "docs.yaml"
	TOONFile   = "index.toon"
	SQLiteFile = "docs.db"
)

// ErrUnknownFormat is returned for format names ParseFormats does not know.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormats validates format names, dropping duplicates.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		if f == "" || seen[f] {
			continue
		}
		switch f {
		case JSON, YAML, TOON, SQLite:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, n)
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// Write writes dm into dir once per format. dir must exist.
func Write(dir string, dm *model.DocMap, formats []Format) error {
	for _, f := range formats {
		var err error
		switch f {
		case JSON:
			err = WriteJSON(dir, dm)
		case YAML:
			err = WriteYAML(filepath.Join(dir, YAMLFile), dm)
		case TOON:
			err = os.WriteFile(filepath.Join(dir, TOONFile), []byte(toon.Encode(dm)+"\n"), 0o644)
		case SQLite:
			err = WriteSQLite(filepath.Join(dir, SQLiteFile), dm)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
		if err != nil {
			return fmt.Errorf("writing %s output: %w", f, err)
		}
	}
	return nil
}

// WriteJSON writes one indented JSON document per compound, named after the
// compound's identity.
func WriteJSON(dir string, dm *model.DocMap) error {
	for i := range dm.Compounds {
		c := &dm.Compounds[i]
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", c.ID, err)
		}
		if err := os.WriteFile(filepath.Join(dir, JSONFilename(c.ID)), append(data, '\n'), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// JSONFilename maps a compound identity to a portable file name.
func JSONFilename(id string) string {
	return filenameReplacer.Replace(id) + ".json"
}

var filenameReplacer = strings.NewReplacer(
	"@", "_",
	":", "_",
	".", "_",
	"*", "",
	"#", "",
	"$", "",
	"/", "_",
	`\`, "_",
)

type yamlDoc struct {
	Project   string                 `yaml:"project"`
	Compounds []model.CompoundRecord `yaml:"compounds"`
}

// WriteYAML writes the whole DocMap as one YAML document.
func WriteYAML(path string, dm *model.DocMap) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDoc{Project: dm.Project, Compounds: dm.Compounds}); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
