package cli

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/mvp-joe/docblock/internal/cache"
	"github.com/mvp-joe/docblock/internal/config"
	"github.com/mvp-joe/docblock/internal/discovery"
	"github.com/mvp-joe/docblock/internal/extraction"
	"github.com/mvp-joe/docblock/internal/output"
	"github.com/mvp-joe/docblock/internal/resolve"
	"github.com/mvp-joe/docblock/internal/source"
)

// runner wires discovery, reading, extraction and reference resolution for
// one project root.
type runner struct {
	rootDir   string
	quiet     bool
	discovery *discovery.FileDiscovery
	reader    *source.Reader
	pipeline  *extraction.Pipeline
	resolver  *resolve.Resolver
	cache     *cache.ResultCache // nil unless watching
}

func newRunner(cfg *config.Config, rootDir string, progress extraction.ProgressReporter, quiet, withCache bool) (*runner, error) {
	fd, err := discovery.New(rootDir, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	reader, err := source.NewReader(rootDir, cfg.Extract.Encoding, cfg.SyntaxFor)
	if err != nil {
		return nil, fmt.Errorf("failed to create source reader: %w", err)
	}

	opts, err := cfg.ToOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction options: %w", err)
	}
	opts.Progress = progress

	r := &runner{
		rootDir:   rootDir,
		quiet:     quiet,
		discovery: fd,
		reader:    reader,
		resolver:  resolve.New(resolveOptions(cfg)),
	}

	if withCache {
		c, err := cache.New(cfg.Watch.CacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = c
		opts.Cache = c
	}

	pipeline, err := extraction.New(opts)
	if err != nil {
		r.close()
		return nil, fmt.Errorf("failed to create extraction pipeline: %w", err)
	}
	r.pipeline = pipeline

	return r, nil
}

// resolveOptions derives reference resolution settings from the tag policy.
func resolveOptions(cfg *config.Config) resolve.Options {
	opts := resolve.DefaultOptions()
	opts.Singular = cfg.Tags.Singular

	exclude := []string{extraction.DescriptionTag}
	exclude = append(exclude, cfg.Tags.Name...)
	exclude = append(exclude, cfg.Tags.Group...)
	exclude = append(exclude, cfg.Tags.Version...)
	exclude = append(exclude, cfg.Tags.Route...)
	opts.Exclude = exclude

	return opts
}

// run extracts every matching file, or only the given paths when present.
func (r *runner) run(ctx context.Context, paths []string) (*output.Envelope, error) {
	phaseStart := time.Now()
	files, err := r.discover(paths)
	if err != nil {
		return nil, err
	}
	r.timing("Discover files: %v (%d files)", time.Since(phaseStart), len(files))

	phaseStart = time.Now()
	sources, err := r.reader.ReadAll(ctx, files)
	if err != nil {
		return nil, err
	}
	r.timing("Read sources: %v (%d sources)", time.Since(phaseStart), len(sources))

	phaseStart = time.Now()
	result, err := r.pipeline.Extract(ctx, sources)
	if err != nil {
		return nil, err
	}
	r.timing("Extract documents: %v (%d blocks -> %d documents)", time.Since(phaseStart), result.Stats.Blocks, result.Stats.Documents)

	phaseStart = time.Now()
	docs, refWarnings := r.resolver.Resolve(result.Documents)
	warnings := append(result.Warnings, refWarnings...)
	r.timing("Resolve references: %v", time.Since(phaseStart))

	return output.NewEnvelope(Version, time.Now(), result, docs, warnings), nil
}

func (r *runner) discover(paths []string) ([]string, error) {
	if len(paths) == 0 {
		files, err := r.discovery.Discover()
		if err != nil {
			return nil, fmt.Errorf("failed to discover files: %w", err)
		}
		return files, nil
	}

	abs := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			abs[i] = p
		} else {
			abs[i] = filepath.Join(r.rootDir, p)
		}
	}
	files, err := r.discovery.DiscoverPaths(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	return files, nil
}

// forget drops cached results for the given files.
func (r *runner) forget(files []string) {
	if r.cache == nil {
		return
	}
	for _, f := range files {
		r.cache.Invalidate(r.reader.SourceID(f))
	}
}

func (r *runner) timing(format string, args ...any) {
	if r.quiet {
		return
	}
	log.Printf("[TIMING] "+format+"\n", args...)
}

func (r *runner) close() {
	if r.cache != nil {
		r.cache.Close()
	}
}
