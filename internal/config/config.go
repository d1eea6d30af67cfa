// Package config loads the `KEY = value` run configuration.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/phobologic/whatsupdoc/internal/extract"
	"github.com/phobologic/whatsupdoc/internal/resolve"
)

// EnvPrefix prefixes the environment variables overriding config keys.
const EnvPrefix = "WHATSUPDOC"

// Config keys.
const (
	KeyProjectFolder        = "PROJECT_FOLDER"
	KeyOutputDirectory      = "OUTPUT_DIRECTORY"
	KeyInput                = "INPUT"
	KeyInclude              = "INCLUDE"
	KeyPredefined           = "PREDEFINED"
	KeyFlags                = "FLAGS"
	KeyOutputFormat         = "OUTPUT_FORMAT"
	KeyExcludePatterns      = "EXCLUDE_PATTERNS"
	KeyLogLevel             = "LOG_LEVEL"
	KeyMaxFileSize          = "MAX_FILE_SIZE"
	KeyRegistrationFunction = "REGISTRATION_FUNCTION"
	KeyNamespaceType        = "NAMESPACE_TYPE"
	KeyTypeType             = "TYPE_TYPE"
	KeyValueTypes           = "VALUE_TYPES"
	KeyClassNameAccessor    = "CLASS_NAME_ACCESSOR"
)

var (
	// ErrNoConfig is returned when the config file is missing or malformed.
	ErrNoConfig = errors.New("invalid config file")
	// ErrProjectFolder is returned when PROJECT_FOLDER is not a directory.
	ErrProjectFolder = errors.New("invalid project folder")
	// ErrOutputFolder is returned when OUTPUT_DIRECTORY is not a directory.
	ErrOutputFolder = errors.New("invalid output folder")
)

// Config is one run's configuration. Folder paths are absolute; input and
// include roots stay relative to ProjectFolder as written.
type Config struct {
	Path            string
	ProjectFolder   string
	OutputDirectory string
	Inputs          []string
	Includes        []string
	Predefined      []string
	Flags           []string
	OutputFormats   []string
	ExcludePatterns []string
	LogLevel        string
	MaxFileSize     int

	RegistrationFunction string
	NamespaceTypes       []string
	TypeTypes            []string
	ValueTypes           []string
	ClassNameAccessor    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyProjectFolder, ".")
	v.SetDefault(KeyOutputDirectory, "json")
	v.SetDefault(KeyOutputFormat, "json toon")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMaxFileSize, 1_000_000)
	v.SetDefault(KeyRegistrationFunction, "init")
	v.SetDefault(KeyNamespaceType, strings.Join(resolve.DefaultMarkers.Namespace, " "))
	v.SetDefault(KeyTypeType, strings.Join(resolve.DefaultMarkers.Type, " "))
	v.SetDefault(KeyValueTypes, strings.Join(resolve.DefaultMarkers.Value, " "))
	v.SetDefault(KeyClassNameAccessor, "getClassName")
}

// Load reads the config file at path, applies defaults and WHATSUPDOC_*
// environment overrides, and checks that the project and output folders
// exist. A relative PROJECT_FOLDER is taken relative to the working
// directory; OUTPUT_DIRECTORY is relative to the project folder.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoConfig, path, err)
	}
	if err := validate(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoConfig, path, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetConfigType("properties")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoConfig, path, err)
	}

	cfg := &Config{
		Path:                 path,
		Inputs:               list(v, KeyInput),
		Includes:             list(v, KeyInclude),
		Predefined:           list(v, KeyPredefined),
		Flags:                list(v, KeyFlags),
		OutputFormats:        list(v, KeyOutputFormat),
		ExcludePatterns:      list(v, KeyExcludePatterns),
		LogLevel:             strings.TrimSpace(v.GetString(KeyLogLevel)),
		MaxFileSize:          v.GetInt(KeyMaxFileSize),
		RegistrationFunction: strings.TrimSpace(v.GetString(KeyRegistrationFunction)),
		NamespaceTypes:       list(v, KeyNamespaceType),
		TypeTypes:            list(v, KeyTypeType),
		ValueTypes:           list(v, KeyValueTypes),
		ClassNameAccessor:    strings.TrimSpace(v.GetString(KeyClassNameAccessor)),
	}

	project := strings.TrimSpace(v.GetString(KeyProjectFolder))
	if project == "" {
		project = "."
	}
	if cfg.ProjectFolder, err = filepath.Abs(project); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrProjectFolder, project, err)
	}
	if !isDir(cfg.ProjectFolder) {
		return nil, fmt.Errorf("%w %q", ErrProjectFolder, project)
	}

	out := strings.TrimSpace(v.GetString(KeyOutputDirectory))
	if !filepath.IsAbs(out) {
		out = filepath.Join(cfg.ProjectFolder, out)
	}
	cfg.OutputDirectory = filepath.Clean(out)
	if !isDir(cfg.OutputDirectory) {
		return nil, fmt.Errorf("%w %q", ErrOutputFolder, cfg.OutputDirectory)
	}

	return cfg, nil
}

// Dialect returns the binding API the extractor should recognize.
func (c *Config) Dialect() extract.Dialect {
	d := extract.DefaultDialect()
	if c.RegistrationFunction != "" {
		d.RegistrationFunction = c.RegistrationFunction
	}
	if c.ClassNameAccessor != "" {
		d.ClassNameAccessor = c.ClassNameAccessor
	}
	d.Markers = resolve.Markers{
		Namespace: c.NamespaceTypes,
		Type:      c.TypeTypes,
		Value:     c.ValueTypes,
	}
	return d
}

// validate rejects lines that are neither blank, comments, nor KEY = value
// entries.
func validate(data []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		key, _, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid entry at line %d", n)
		}
	}
	return sc.Err()
}

// list splits a whitespace-separated value.
func list(v *viper.Viper, key string) []string {
	return strings.Fields(v.GetString(key))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
