package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

var errAlreadyStarted = errors.New("watcher already started")

// Batch is one debounced set of source changes. Paths are absolute, sorted
// and appear in exactly one list; the last event seen for a path decides
// which.
type Batch struct {
	Changed []string // written or created
	Removed []string // deleted or renamed away
}

// Len returns the number of paths in the batch.
func (b Batch) Len() int {
	return len(b.Changed) + len(b.Removed)
}

// Paths returns every path in the batch, sorted.
func (b Batch) Paths() []string {
	paths := append(slices.Clone(b.Changed), b.Removed...)
	slices.Sort(paths)
	return paths
}

// sourceWatcher feeds fsnotify events for matched sources into batches.
type sourceWatcher struct {
	fsw      *fsnotify.Watcher
	matcher  Matcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]bool // path -> removed
	paused  bool
	cancel  context.CancelFunc

	resumeCh chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewFileWatcher watches the given root directories and every directory
// below them that matcher accepts. A non-positive debounce uses
// DefaultDebounce.
func NewFileWatcher(dirs []string, matcher Matcher, debounce time.Duration) (FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &sourceWatcher{
		fsw:      fsw,
		matcher:  matcher,
		debounce: debounce,
		pending:  make(map[string]bool),
		resumeCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *sourceWatcher) Start(ctx context.Context, onBatch func(Batch)) error {
	if onBatch == nil {
		return errors.New("watcher needs a batch handler")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return errAlreadyStarted
	}
	ctx, w.cancel = context.WithCancel(ctx)

	go w.run(ctx, onBatch)
	return nil
}

func (w *sourceWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		cancel := w.cancel
		w.mu.Unlock()

		if cancel != nil {
			cancel()
			<-w.done
		}
		err = w.fsw.Close()
	})
	return err
}

func (w *sourceWatcher) Pause() {
	w.mu.Lock()
	w.paused = true
	w.mu.Unlock()
}

func (w *sourceWatcher) Resume() {
	w.mu.Lock()
	wasPaused := w.paused
	w.paused = false
	w.mu.Unlock()

	if wasPaused {
		select {
		case w.resumeCh <- struct{}{}:
		default:
		}
	}
}

func (w *sourceWatcher) run(ctx context.Context, onBatch func(Batch)) {
	defer close(w.done)

	quiet := time.NewTimer(w.debounce)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.record(event) {
				quiet.Reset(w.debounce)
			}

		case <-quiet.C:
			w.deliver(onBatch)

		case <-w.resumeCh:
			w.deliver(onBatch)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: file watcher error: %v", err)
		}
	}
}

// record adds a source event to the pending batch and reports whether it was
// kept. A created directory is watched instead of recorded.
func (w *sourceWatcher) record(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
			}
			return false
		}
	}

	// A rename shows up as Rename on the old name and Create on the new one.
	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !removed && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if !w.matcher.MatchesFile(event.Name) {
		return false
	}

	w.mu.Lock()
	w.pending[event.Name] = removed
	w.mu.Unlock()
	return true
}

// deliver hands the pending changes to onBatch unless paused or empty.
func (w *sourceWatcher) deliver(onBatch func(Batch)) {
	w.mu.Lock()
	if w.paused || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	pending := w.pending
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	onBatch(newBatch(pending))
}

func newBatch(pending map[string]bool) Batch {
	var b Batch
	for path, removed := range pending {
		if removed {
			b.Removed = append(b.Removed, path)
		} else {
			b.Changed = append(b.Changed, path)
		}
	}
	slices.Sort(b.Changed)
	slices.Sort(b.Removed)
	return b
}

// addTree watches root and every directory below it that the matcher accepts.
// Only an unreadable root is an error.
func (w *sourceWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil && path == root:
			return err
		case err != nil:
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		case !d.IsDir():
			return nil
		case !w.matcher.ShouldWatchDir(path):
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
