// whatsupdoc extracts the documentation of EScript C++ bindings into JSON,
// YAML, TOON and SQLite files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/spf13/cobra"

	"github.com/phobologic/whatsupdoc/internal/config"
	"github.com/phobologic/whatsupdoc/internal/diag"
	"github.com/phobologic/whatsupdoc/internal/discover"
	"github.com/phobologic/whatsupdoc/internal/extract"
	"github.com/phobologic/whatsupdoc/internal/graph"
	"github.com/phobologic/whatsupdoc/internal/lang"
	"github.com/phobologic/whatsupdoc/internal/output"
	"github.com/phobologic/whatsupdoc/internal/parse"
	"github.com/phobologic/whatsupdoc/internal/registry"
)

var version = "dev"

// errInterrupted is returned after partial results were written because the
// run was cancelled.
var errInterrupted = errors.New("interrupted")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "whatsupdoc <config-file>",
		Short: "Extract EScript binding documentation from C++ sources",
		Long: `whatsupdoc reads a KEY = value config file, parses the C++ sources below
its INPUT roots and writes one document per namespace, type and group
exposed through the registration functions into OUTPUT_DIRECTORY.

Run 'whatsupdoc init' to write a config template.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			log := newLogger(stderr, cfg.LogLevel, verbose)
			return generate(cmd.Context(), cfg, log, stdout)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("whatsupdoc {{.Version}}\n")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	cmd.AddCommand(newInitCmd(stdout, stderr))
	return cmd
}

// newLogger builds the console logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: zerolog.SyncWriter(w), NoColor: true}
	log := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	}
	return log
}

// generate runs one extraction: discover, parse, visit, write.
func generate(ctx context.Context, cfg *config.Config, log zerolog.Logger, stdout io.Writer) error {
	formats, err := output.ParseFormats(cfg.OutputFormats)
	if err != nil {
		return err
	}

	root := cfg.ProjectFolder
	inputs := existingRoots(root, cfg.Inputs, "input", log)
	if len(cfg.Inputs) == 0 {
		inputs = []string{"."}
	}
	includes := existingRoots(root, cfg.Includes, "include", log)

	files, err := discover.Files(root, discover.Options{
		Inputs:   inputs,
		Includes: includes,
		Exclude:  cfg.ExcludePatterns,
	})
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}

	files = filterBySize(root, files, cfg.MaxFileSize, log)
	if len(files) == 0 {
		return fmt.Errorf("no parseable files found")
	}

	defines := parse.ParseDefines(cfg.Predefined, cfg.Flags)
	units := parseFilesConcurrent(ctx, root, files, defines, log)
	if len(units) == 0 {
		return fmt.Errorf("no files could be parsed")
	}

	project, err := parse.NewProject(lang.CPP, units)
	if err != nil {
		return fmt.Errorf("indexing declarations: %w", err)
	}
	defer project.Close()

	reporter := diag.NewLogger(log)
	sess := extract.NewSession(registry.New(), cfg.Dialect(), reporter)

	interrupted := false
	for _, u := range project.Units() {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if u.System {
			continue
		}
		log.Debug().Str("file", u.Path).Msg("visiting")
		sess.Visit(project.Cursor(u))
	}

	dm := graph.Build(sess.Registry(), filepath.Base(root))
	if err := output.Write(cfg.OutputDirectory, dm, formats); err != nil {
		return err
	}

	log.Info().
		Int("files", len(units)).
		Int("compounds", len(dm.Compounds)).
		Int("diagnostics", reporter.Count(0)).
		Str("output", cfg.OutputDirectory).
		Msg("finished")
	_, _ = fmt.Fprintf(stdout, "wrote %d compounds to %s\n", len(dm.Compounds), cfg.OutputDirectory)

	if interrupted {
		return fmt.Errorf("%w: partial results written", errInterrupted)
	}
	return nil
}

// existingRoots drops roots that do not exist below root, logging each.
func existingRoots(root string, roots []string, what string, log zerolog.Logger) []string {
	var kept []string
	for _, r := range roots {
		if _, err := os.Stat(absPath(root, r)); err != nil {
			log.Warn().Str(what, r).Msgf("invalid %s path, skipped", what)
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func absPath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func filterBySize(root string, files []discover.FileEntry, maxSize int, log zerolog.Logger) []discover.FileEntry {
	if maxSize <= 0 {
		return files
	}
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(absPath(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > int64(maxSize) {
			log.Warn().Str("file", f.Path).Int("limit", maxSize).Msg("skipped: file too large")
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func parseFilesConcurrent(ctx context.Context, root string, files []discover.FileEntry, defines parse.Defines, log zerolog.Logger) []*parse.Unit {
	type result struct {
		index int
		unit  *parse.Unit
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Each goroutine gets its own parser
			parsers := make(map[string]*sitter.Parser)

			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				f := files[idx]
				parser, ok := parsers[f.Language]
				if !ok {
					l, known := lang.Languages[f.Language]
					if !known {
						continue
					}
					parser = l.NewParser()
					parsers[f.Language] = parser
				}

				source, err := os.ReadFile(absPath(root, f.Path))
				if err != nil {
					log.Warn().Str("file", f.Path).Err(err).Msg("failed to read")
					continue
				}

				u, err := parse.Parse(ctx, parser, f.Path, source, defines)
				if errors.Is(err, parse.ErrEmptySource) {
					log.Debug().Str("file", f.Path).Msg("skipped: empty")
					continue
				}
				if err != nil {
					log.Warn().Str("file", f.Path).Err(err).Msg("failed to parse")
					continue
				}
				u.System = f.System
				log.Debug().Str("file", f.Path).Bool("system", f.System).Msg("parsed")
				results <- result{index: idx, unit: u}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]*parse.Unit, len(files))
	for r := range results {
		indexed[r.index] = r.unit
	}

	var units []*parse.Unit
	for _, u := range indexed {
		if u != nil {
			units = append(units, u)
		}
	}
	return units
}
