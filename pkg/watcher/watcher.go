// Package watcher reloads timeline data when its backing files change. It
// uses fsnotify where it can and falls back to stat polling on remote
// filesystems or when forced through the environment.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/swimlane/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Environment variables that force polling mode.
const (
	EnvForcePolling = "SWIMLANE_FORCE_POLLING"
	EnvForcePoll    = "SWIMLANE_FORCE_POLL"
)

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrNoPaths        = errors.New("no paths to watch")
)

// detectFilesystemTypeFunc is swapped out by tests.
var detectFilesystemTypeFunc = DetectFilesystemType

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when any watched file changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

type fileState struct {
	mtime time.Time
	size  int64
}

// Watcher monitors one or more files (for a JSONL source, initiatives.jsonl
// and events.jsonl) and reports a single debounced change for any of them.
type Watcher struct {
	paths            []string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	last        map[string]fileState

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a watcher for the given files. Paths are made absolute
// and deduplicated; order is preserved.
func NewWatcher(paths []string, opts ...WatcherOption) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	seen := make(map[string]bool, len(paths))
	var abs []string
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		a = filepath.Clean(a)
		if seen[a] {
			continue
		}
		seen[a] = true
		abs = append(abs, a)
	}

	w := &Watcher{
		paths:            abs,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		last:             make(map[string]fileState, len(abs)),
		changeCh:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	// Initial file state; files that don't exist yet are fine.
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsPermission(err) {
				return ErrPermission
			}
			w.last[p] = fileState{}
			continue
		}
		w.last[p] = fileState{mtime: info.ModTime(), size: info.Size()}
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.fsType = detectFilesystemTypeFunc(w.paths[0])
	w.useFallback = w.forcePoll || envBool(EnvForcePolling) || envBool(EnvForcePoll) ||
		isRemoteFilesystem(w.fsType)

	if !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			w.useFallback = true
		} else {
			// Watch directories, not files, so atomic rename-over writes are seen.
			for _, dir := range w.dirs() {
				if err := fsw.Add(dir); err != nil {
					debug.Log("watcher: fsnotify add %s failed: %v", dir, err)
					w.useFallback = true
					break
				}
			}
			if w.useFallback {
				fsw.Close()
			} else {
				w.fsWatcher = fsw
				go w.watchFsnotify(fsw.Events, fsw.Errors)
			}
		}
	}

	if w.useFallback {
		go w.watchPolling()
	}

	debug.Log("watcher: started on %d path(s), fs=%s polling=%v", len(w.paths), w.fsType, w.useFallback)
	w.started = true
	return nil
}

func (w *Watcher) dirs() []string {
	set := make(map[string]bool)
	for _, p := range w.paths {
		set[filepath.Dir(p)] = true
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Stop stops watching. The Changed channel is left open: a receiver blocked
// on it stays blocked rather than spinning on a closed channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when a watched file changes.
// This is an alternative to using the OnChange callback.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the first watched path.
func (w *Watcher) Path() string {
	return w.paths[0]
}

// Paths returns every watched path.
func (w *Watcher) Paths() []string {
	return append([]string(nil), w.paths...)
}

// FilesystemType returns the best-effort filesystem classification of the
// first watched path.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) watched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	_, ok := w.last[filepath.Clean(abs)]
	return ok
}

// watchFsnotify monitors using fsnotify events. The channels are passed in
// so Stop can nil out fsWatcher without racing this goroutine.
func (w *Watcher) watchFsnotify(events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			w.mu.RLock()
			ours := w.watched(event.Name)
			w.mu.RUnlock()
			if !ours {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove != 0:
				w.onError(ErrFileRemoved)

			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// watchPolling monitors using periodic stat checks.
func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			if w.pollOnce() {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// pollOnce stats every path and reports whether any of them changed.
func (w *Watcher) pollOnce() bool {
	changed := false
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			switch {
			case os.IsNotExist(err):
				w.mu.Lock()
				hadFile := !w.last[p].mtime.IsZero()
				w.last[p] = fileState{}
				w.mu.Unlock()
				// Only report if the file existed before.
				if hadFile {
					w.onError(ErrFileRemoved)
				}
			case os.IsPermission(err):
				w.onError(ErrPermission)
			default:
				w.onError(err)
			}
			continue
		}

		w.mu.Lock()
		prev := w.last[p]
		if info.ModTime().After(prev.mtime) || info.Size() != prev.size {
			w.last[p] = fileState{mtime: info.ModTime(), size: info.Size()}
			changed = true
		}
		w.mu.Unlock()
	}
	return changed
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	// Best effort: a change racing with Stop may still be delivered.
	if !started {
		return
	}

	w.onChange()

	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
