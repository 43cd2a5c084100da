package extraction

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// SourceCache memoizes per-source results. Implementations must be safe for
// concurrent use and must not hand out values that alias each other.
type SourceCache interface {
	Get(src Source) (SourceResult, bool)
	Put(src Source, result SourceResult)
}

// Options configures a Pipeline.
type Options struct {
	// Syntaxes are the delimiter profiles sources may select. Empty uses
	// BuiltinSyntaxes.
	Syntaxes []Syntax

	// Registry resolves tag parsers. Nil uses DefaultRegistry. The pipeline
	// keeps its own copy.
	Registry *Registry

	Policy TagPolicy

	// IgnoreTags drop every block that carries one of them.
	IgnoreTags []string
	// PrivateTags drop blocks unless IncludePrivate is set.
	PrivateTags    []string
	IncludePrivate bool

	// Workers bounds concurrent sources. Zero uses GOMAXPROCS.
	Workers int

	Progress ProgressReporter
	Cache    SourceCache
}

// DefaultPolicy returns the built-in tag aggregation policy.
func DefaultPolicy() TagPolicy {
	return TagPolicy{
		Repeatable: []string{
			"apiParam", "apiQuery", "apiBody", "apiHeader", "apiSuccess", "apiError",
			"apiExample", "apiSuccessExample", "apiErrorExample", "apiParamExample",
			"apiHeaderExample", "apiUse", "apiPermission",
			"codeParam", "codeAnnotation", "codePlatform",
			"param", "platform", "example",
		},
		Singular: []string{
			DescriptionTag, "name", "group", "version",
			"api", "apiName", "apiGroup", "apiVersion", "apiDescription",
			"apiDefine", "apiDeprecated", "apiPrivate",
			"codeName", "codeGroup", "codeVersion", "codeDescription", "codeReturn",
			"codeStatic", "codeAsync", "codeSince",
		},
		NameTags:    []string{"apiName", "codeName", "apiDefine", "name"},
		GroupTags:   []string{"apiGroup", "codeGroup", "group"},
		VersionTags: []string{"apiVersion", "codeVersion", "version"},
		RouteTags:   []string{"api"},
	}
}

// DefaultOptions returns options with the built-in syntaxes, parsers and
// policy.
func DefaultOptions() Options {
	return Options{
		Syntaxes:    BuiltinSyntaxes(),
		Registry:    DefaultRegistry(),
		Policy:      DefaultPolicy(),
		IgnoreTags:  []string{"apiIgnore"},
		PrivateTags: []string{"apiPrivate"},
	}
}

// Pipeline turns sources into documents. It holds only read-only state after
// construction and may be shared between goroutines.
type Pipeline struct {
	locators  map[string]*Locator
	registry  *Registry
	assembler *Assembler
	ignore    map[string]bool
	private   map[string]bool
	inclPriv  bool
	workers   int
	progress  ProgressReporter
	cache     SourceCache
}

// New validates opts and builds a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Workers < 0 {
		return nil, fmt.Errorf("workers must be >= 0, got %d", opts.Workers)
	}

	syntaxes := opts.Syntaxes
	if len(syntaxes) == 0 {
		syntaxes = BuiltinSyntaxes()
	}
	locators := make(map[string]*Locator, len(syntaxes))
	for _, s := range syntaxes {
		loc, err := NewLocator(s)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(s.Name)
		if _, dup := locators[key]; dup {
			return nil, fmt.Errorf("%w: duplicate profile %q", ErrInvalidSyntax, s.Name)
		}
		locators[key] = loc
	}
	if _, ok := locators[DefaultSyntax]; !ok {
		return nil, fmt.Errorf("%w: no %q profile configured", ErrUnknownSyntax, DefaultSyntax)
	}

	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	} else {
		registry = registry.Clone()
	}

	assembler, err := NewAssembler(opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("invalid tag policy: %w", err)
	}

	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	progress := opts.Progress
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	return &Pipeline{
		locators:  locators,
		registry:  registry,
		assembler: assembler,
		ignore:    lowerSet(opts.IgnoreTags),
		private:   lowerSet(opts.PrivateTags),
		inclPriv:  opts.IncludePrivate,
		workers:   workers,
		progress:  progress,
		cache:     opts.Cache,
	}, nil
}

// Extract processes sources concurrently and returns documents and warnings
// in input order. Cancellation returns ctx.Err() and no result.
func (p *Pipeline) Extract(ctx context.Context, sources []Source) (*Result, error) {
	startTime := time.Now()
	p.progress.OnExtractStart(len(sources))

	slots := make([]SourceResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, src := range sources {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			r, err := p.ExtractSource(gctx, src)
			if err != nil {
				return err
			}
			slots[i] = r
			p.progress.OnSourceDone(src.ID, len(r.Documents))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Documents: []Document{},
		Warnings:  []Warning{},
	}
	for _, r := range slots {
		result.Documents = append(result.Documents, r.Documents...)
		result.Warnings = append(result.Warnings, r.Warnings...)
		result.Stats.Blocks += r.Blocks
	}
	result.Stats.Sources = len(sources)
	result.Stats.Documents = len(result.Documents)
	result.Stats.Warnings = len(result.Warnings)
	result.Stats.Duration = time.Since(startTime)

	p.progress.OnExtractComplete(result.Stats)
	return result, nil
}

// ExtractSource processes a single source.
func (p *Pipeline) ExtractSource(ctx context.Context, src Source) (SourceResult, error) {
	if err := ctx.Err(); err != nil {
		return SourceResult{}, err
	}
	if p.cache != nil {
		if r, ok := p.cache.Get(src); ok {
			return r, nil
		}
	}

	r, err := p.extract(ctx, src)
	if err != nil {
		return SourceResult{}, err
	}
	if p.cache != nil {
		p.cache.Put(src, r)
	}
	return r, nil
}

func (p *Pipeline) extract(ctx context.Context, src Source) (SourceResult, error) {
	result := SourceResult{
		SourceID:  src.ID,
		Documents: []Document{},
		Warnings:  []Warning{},
	}

	name := src.Syntax
	if name == "" {
		name = DefaultSyntax
	}
	locator, ok := p.locators[strings.ToLower(name)]
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownSyntax, src.Syntax)
		result.Warnings = append(result.Warnings, Warning{
			Kind:     WarningLocation,
			Message:  "source skipped: " + err.Error(),
			Location: SourceLocation{SourceID: src.ID, Line: 1, Column: 1},
			Err:      err,
		})
		return result, nil
	}
	syntax := locator.Syntax()

	onWarn := func(w Warning) {
		result.Warnings = append(result.Warnings, w)
	}

	for block := range locator.Blocks(src.ID, src.Text, onWarn) {
		if err := ctx.Err(); err != nil {
			return SourceResult{}, err
		}
		result.Blocks++

		lines := Tokenize(Interior(block, syntax))
		if p.skip(lines) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return SourceResult{}, err
		}

		tags := p.registry.Parse(lines)
		if err := ctx.Err(); err != nil {
			return SourceResult{}, err
		}

		doc, warnings := p.assembler.Assemble(block, tags)
		result.Documents = append(result.Documents, doc)
		result.Warnings = append(result.Warnings, warnings...)
	}

	if err := ctx.Err(); err != nil {
		return SourceResult{}, err
	}
	return result, nil
}

// skip reports whether a block is filtered out by ignore or private tags.
func (p *Pipeline) skip(lines []TagLine) bool {
	for _, l := range lines {
		name := strings.ToLower(l.Name)
		if p.ignore[name] {
			return true
		}
		if !p.inclPriv && p.private[name] {
			return true
		}
	}
	return false
}
