package watcher

import "context"

// FileWatcher delivers debounced batches of source changes.
type FileWatcher interface {
	// Start begins watching. onBatch runs on the watch goroutine, one batch
	// at a time, until ctx is cancelled or Stop is called.
	Start(ctx context.Context, onBatch func(Batch)) error

	// Stop ends watching and releases the underlying watcher. It is safe to
	// call more than once, with or without Start.
	Stop() error

	// Pause holds batches back while still recording changes.
	Pause()

	// Resume delivers anything recorded while paused, then continues.
	Resume()
}

// Matcher selects the files and directories a watcher reacts to.
// *discovery.FileDiscovery implements it.
type Matcher interface {
	// MatchesFile reports whether a changed file is a source of interest.
	MatchesFile(path string) bool

	// ShouldWatchDir reports whether a directory is watched at all.
	ShouldWatchDir(path string) bool
}
