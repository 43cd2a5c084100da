package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// configDir is never scanned.
const configDir = ".docblock"

// compiledPattern holds the pattern string, its glob, and for "**/" patterns
// a root-level variant so "**/*.js" also matches "app.js".
type compiledPattern struct {
	pattern string
	glob    glob.Glob
	root    glob.Glob
}

// FileDiscovery finds source files under a root with include and ignore globs.
// Patterns are matched against slash-separated paths relative to the root.
type FileDiscovery struct {
	rootDir        string
	includePattern []compiledPattern
	ignorePatterns []compiledPattern
}

// New creates a file discovery instance.
func New(rootDir string, include, ignore []string) (*FileDiscovery, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	ign, err := compileAll(ignore)
	if err != nil {
		return nil, err
	}
	return &FileDiscovery{
		rootDir:        rootDir,
		includePattern: inc,
		ignorePatterns: ign,
	}, nil
}

func compileAll(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if rg, err := glob.Compile(simplified, '/'); err == nil {
				cp.root = rg
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// RootDir returns the directory patterns are relative to.
func (fd *FileDiscovery) RootDir() string {
	return fd.rootDir
}

// Discover walks the root and returns matching files, sorted.
func (fd *FileDiscovery) Discover() ([]string, error) {
	return fd.DiscoverPaths([]string{fd.rootDir})
}

// DiscoverPaths resolves explicit paths: files are taken as given, directories
// are walked with the include and ignore patterns. The result is sorted and
// free of duplicates.
func (fd *FileDiscovery) DiscoverPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	files := []string{}

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			relPath, ok := fd.relative(path)
			if !ok {
				// Outside the root: match relative to the walked directory.
				relPath, err = filepath.Rel(p, path)
				if err != nil {
					return err
				}
				relPath = filepath.ToSlash(relPath)
			}

			if d.IsDir() {
				if relPath != "." && fd.ShouldIgnore(relPath) {
					return filepath.SkipDir
				}
				return nil
			}

			if fd.Matches(relPath) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether a root-relative, slash-separated path is included
// and not ignored.
func (fd *FileDiscovery) Matches(relPath string) bool {
	if fd.ShouldIgnore(relPath) {
		return false
	}
	return matchesAnyPattern(relPath, fd.includePattern)
}

// MatchesFile is Matches for an absolute or root-joined path.
func (fd *FileDiscovery) MatchesFile(path string) bool {
	relPath, ok := fd.relative(path)
	return ok && fd.Matches(relPath)
}

// ShouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) ShouldIgnore(relPath string) bool {
	if relPath == configDir || strings.HasPrefix(relPath, configDir+"/") {
		return true
	}

	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// "node_modules" should match pattern "node_modules/**"
	return matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// ShouldWatchDir reports whether a directory under the root should be
// watched for changes.
func (fd *FileDiscovery) ShouldWatchDir(path string) bool {
	relPath, ok := fd.relative(path)
	if !ok {
		return false
	}
	if relPath == "." {
		return true
	}
	return !fd.ShouldIgnore(relPath)
}

func (fd *FileDiscovery) relative(path string) (string, bool) {
	rel, err := filepath.Rel(fd.rootDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// matchesAnyPattern checks if a path matches any of the given patterns.
// Root-level paths (no slash) also try the "**/"-stripped variants.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	rootLevel := !strings.Contains(path, "/")
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
		if rootLevel && cp.root != nil && cp.root.Match(path) {
			return true
		}
	}
	return false
}
