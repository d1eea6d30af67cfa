package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/whatsupdoc/internal/config"
)

const (
	sentinelStart = "# whatsupdoc:start"
	sentinelEnd   = "# whatsupdoc:end"

	defaultConfigFile = "whatsupdoc.cfg"
)

// newInitCmd builds the `whatsupdoc init` subcommand, which writes (or
// updates) the default settings block of a config file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [config-file]",
		Short: "Write a config template",
		Long: `Write the default whatsupdoc settings to a config file. The block is wrapped
in sentinel comments so it can be refreshed in place on subsequent runs
without touching surrounding entries. Creates the file if it does not exist.

config-file defaults to ./` + defaultConfigFile + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args, dryRun, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

func runInit(args []string, dryRun bool, stdout, stderr io.Writer) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := defaultConfigFile
	if len(args) > 0 {
		path = args[0]
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote whatsupdoc settings to %s\n", path)
	return nil
}

// generateSection returns the sentinel-wrapped default settings block.
func generateSection() string {
	entry := func(key, value, help string) string {
		return "# " + help + "\n" + key + " = " + value + "\n"
	}
	body := strings.Join([]string{
		entry(config.KeyProjectFolder, ".", "Project root, relative to the working directory."),
		entry(config.KeyOutputDirectory, "json", "Output folder below the project root. Must exist."),
		entry(config.KeyInput, "", "Files or folders whose registration functions are documented. Empty means the project root."),
		entry(config.KeyInclude, "", "Folders searched for declarations only."),
		entry(config.KeyPredefined, "", "Preprocessor symbols, NAME or NAME=VALUE."),
		entry(config.KeyFlags, "", "Compiler flags; -D definitions are honored."),
		entry(config.KeyExcludePatterns, "", "Gitignore-style patterns of sources to skip."),
		entry(config.KeyOutputFormat, "json toon", "Any of json yaml toon sqlite."),
		entry(config.KeyLogLevel, "info", "debug, info, warn or error."),
		entry(config.KeyMaxFileSize, "1000000", "Sources larger than this many bytes are skipped."),
		entry(config.KeyRegistrationFunction, "init", "Name of the registration functions."),
		entry(config.KeyNamespaceType, "EScript::Namespace", "Static types of namespace objects."),
		entry(config.KeyTypeType, "EScript::Type", "Static types of type objects."),
		entry(config.KeyValueTypes, "EScript::Object EScript::ObjRef EScript::ObjPtr", "Static types of other script values."),
		entry(config.KeyClassNameAccessor, "getClassName", "Accessor whose string literal names a type."),
	}, "\n")

	return sentinelStart + "\n" + body + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
