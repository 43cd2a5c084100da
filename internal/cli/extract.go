package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/docblock/internal/config"
	"github.com/mvp-joe/docblock/internal/output"
	"github.com/mvp-joe/docblock/internal/watcher"
)

// errStrictWarnings is returned by extract --strict when warnings were produced.
var errStrictWarnings = errors.New("extraction produced warnings")

var (
	formatFlag         string
	outFlag            string
	workersFlag        int
	extractQuietFlag   bool
	strictFlag         bool
	watchFlag          bool
	includePrivateFlag bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [paths...]",
	Short: "Extract documentation comments into JSON or YAML",
	Long: `Extract scans source files for documentation comments and writes the
normalized documents.

Without paths, every file matching paths.include under the project root is
scanned. Explicit files are always read; directories are walked with the
include and ignore patterns.

Examples:
  # Extract the whole project to stdout
  docblock extract

  # Extract one directory as YAML into a file
  docblock extract src/api --format yaml --out docs/api.yaml

  # Fail the build when any comment is malformed
  docblock extract --strict --quiet

  # Re-extract whenever a source file changes
  docblock extract --watch --out docs/api.json
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: json or yaml (default from config)")
	extractCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write output to a file instead of stdout")
	extractCmd.Flags().IntVarP(&workersFlag, "workers", "j", 0, "Concurrent extraction workers (0 = GOMAXPROCS)")
	extractCmd.Flags().BoolVarP(&extractQuietFlag, "quiet", "q", false, "Disable progress bars, timing and warning output")
	extractCmd.Flags().BoolVar(&strictFlag, "strict", false, "Exit non-zero when any warning is produced")
	extractCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and re-extract")
	extractCmd.Flags().BoolVar(&includePrivateFlag, "include-private", false, "Keep blocks marked @apiPrivate")
}

// extractOptions carries the command line for one extract run.
type extractOptions struct {
	rootDir        string
	configFile     string
	paths          []string
	format         string
	out            string
	workers        int
	workersSet     bool
	quiet          bool
	strict         bool
	watch          bool
	includePrivate bool
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root, err := resolveRoot(rootFlag)
	if err != nil {
		return err
	}

	opts := extractOptions{
		rootDir:        root,
		configFile:     cfgFile,
		paths:          args,
		format:         formatFlag,
		out:            outFlag,
		workers:        workersFlag,
		workersSet:     cmd.Flags().Changed("workers"),
		quiet:          extractQuietFlag,
		strict:         strictFlag,
		watch:          watchFlag,
		includePrivate: includePrivateFlag,
	}

	return executeExtract(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// executeExtract runs one extraction, and then keeps re-extracting on file
// changes when watching. Output goes to stdout unless a file is configured;
// progress goes to stderr.
func executeExtract(ctx context.Context, opts extractOptions, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(opts.rootDir, opts.configFile)
	if err != nil {
		return err
	}
	applyExtractFlags(cfg, opts)

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	quiet := opts.quiet || opts.watch
	r, err := newRunner(cfg, opts.rootDir, NewCLIProgressReporter(stderr, quiet), opts.quiet, opts.watch)
	if err != nil {
		return err
	}
	defer r.close()

	env, err := r.run(ctx, opts.paths)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		return fmt.Errorf("extraction failed: %w", err)
	}
	if err := emit(env, format, cfg, opts, stdout); err != nil {
		return err
	}

	if !opts.watch {
		if cfg.Extract.Strict && len(env.Warnings) > 0 {
			return fmt.Errorf("%w: %d warning(s)", errStrictWarnings, len(env.Warnings))
		}
		return nil
	}

	return watch(ctx, r, cfg, format, opts, stdout)
}

// applyExtractFlags lets explicit flags override the loaded configuration.
func applyExtractFlags(cfg *config.Config, opts extractOptions) {
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.out != "" {
		cfg.Output.File = opts.out
	}
	if opts.workersSet {
		cfg.Extract.Workers = opts.workers
	}
	if opts.includePrivate {
		cfg.Extract.IncludePrivate = true
	}
	if opts.strict {
		cfg.Extract.Strict = true
	}
}

// emit logs warnings and writes the envelope to the configured destination.
func emit(env *output.Envelope, format output.Format, cfg *config.Config, opts extractOptions, stdout io.Writer) error {
	if !opts.quiet {
		for _, w := range env.Warnings {
			log.Printf("Warning: %s", w)
		}
	}

	if cfg.Output.File == "" {
		return output.Write(stdout, format, env)
	}

	path := cfg.Output.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(opts.rootDir, path)
	}
	if err := output.WriteFile(path, format, env); err != nil {
		return err
	}
	if !opts.quiet {
		log.Printf("Wrote %d documents to %s", len(env.Documents), path)
	}
	return nil
}

// watch re-runs the extraction after each debounced batch of changes until
// ctx is cancelled. Unchanged files are served from the result cache.
func watch(ctx context.Context, r *runner, cfg *config.Config, format output.Format, opts extractOptions, stdout io.Writer) error {
	debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
	fw, err := watcher.NewFileWatcher([]string{opts.rootDir}, r.discovery, debounce)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Stop()

	onBatch := func(batch watcher.Batch) {
		r.forget(batch.Removed)

		if !opts.quiet {
			log.Printf("Re-extracting due to changes in %d file(s)...", batch.Len())
		}
		start := time.Now()

		env, err := r.run(ctx, opts.paths)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Error during re-extraction: %v", err)
			}
			return
		}
		if err := emit(env, format, cfg, opts, stdout); err != nil {
			log.Printf("Error writing output: %v", err)
			return
		}
		if !opts.quiet {
			log.Printf("Re-extraction complete in %v (%d documents, %d warnings)",
				time.Since(start), len(env.Documents), len(env.Warnings))
		}
	}

	if err := fw.Start(ctx, onBatch); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	if !opts.quiet {
		log.Println("Watching for changes (Ctrl+C to stop)...")
	}

	<-ctx.Done()
	if !opts.quiet {
		log.Println("Watch mode stopped")
	}
	return nil
}
