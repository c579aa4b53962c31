package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
	"github.com/vanderheijden86/swimlane/pkg/watcher"
)

// WorkerState represents the current state of the reload worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is reading a new snapshot.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DataReloadedMsg carries a fresh in-memory copy of the data source.
type DataReloadedMsg struct {
	Provider    *timeline.MemoryProvider
	Initiatives int
	Events      int
	Generation  uint64
	At          time.Time
}

// ReloadErrorMsg reports a failed reload. Recoverable errors are retried on
// the next file change.
type ReloadErrorMsg struct {
	Err         error
	Recoverable bool
}

// WorkerConfig configures the ReloadWorker.
type WorkerConfig struct {
	// Paths are the files to watch; none disables watching.
	Paths []string
	// Open returns a provider over the current data. A provider that
	// implements io.Closer is closed after each read.
	Open          func() (timeline.Provider, error)
	DebounceDelay time.Duration
	PollInterval  time.Duration
	MessageBuffer int // Buffer size for worker -> UI messages (default: 8)
}

// ReloadWorker watches the data source and reads it off the UI thread.
// Changes arriving while a read is in flight are coalesced into one more
// read, and a result superseded by a newer change is dropped.
type ReloadWorker struct {
	open          func() (timeline.Provider, error)
	debounceDelay time.Duration

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool // a change came in while processing
	started    bool
	generation uint64
	lastError  error

	coalesceCount atomic.Int64
	processed     atomic.Uint64

	watcher *watcher.Watcher
	msgCh   chan tea.Msg

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReloadWorker creates a worker. Zero config values fall back to
// SWIMLANE_DEBOUNCE_MS and SWIMLANE_CHANNEL_BUFFER, then to defaults.
func NewReloadWorker(cfg WorkerConfig) (*ReloadWorker, error) {
	if cfg.Open == nil {
		return nil, fmt.Errorf("reload worker: Open is required")
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = envDurationMilliseconds("SWIMLANE_DEBOUNCE_MS", watcher.DefaultDebounceDuration)
	}
	if cfg.MessageBuffer <= 0 {
		cfg.MessageBuffer = envPositiveIntOr("SWIMLANE_CHANNEL_BUFFER", 8)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &ReloadWorker{
		open:          cfg.Open,
		debounceDelay: cfg.DebounceDelay,
		state:         WorkerIdle,
		msgCh:         make(chan tea.Msg, cfg.MessageBuffer),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	if len(cfg.Paths) > 0 {
		opts := []watcher.WatcherOption{watcher.WithDebounceDuration(cfg.DebounceDelay)}
		if cfg.PollInterval > 0 {
			opts = append(opts, watcher.WithPollInterval(cfg.PollInterval))
		}
		opts = append(opts, watcher.WithOnError(func(err error) {
			debug.Log("worker: watcher error: %v", err)
		}))
		fw, err := watcher.NewWatcher(cfg.Paths, opts...)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}
	return w, nil
}

// Messages returns a channel of Bubble Tea messages emitted by the worker.
// The channel is never closed; use Done() to stop waiting.
func (w *ReloadWorker) Messages() <-chan tea.Msg {
	if w == nil {
		return nil
	}
	return w.msgCh
}

// Done is closed when the worker's watch loop exits.
func (w *ReloadWorker) Done() <-chan struct{} {
	return w.done
}

// Start begins watching. Calling Start twice is a no-op.
func (w *ReloadWorker) Start() error {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return fmt.Errorf("worker has been stopped")
	}
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher == nil {
		close(w.done)
		return nil
	}
	if err := w.watcher.Start(); err != nil {
		w.mu.Lock()
		w.started = false
		w.mu.Unlock()
		return err
	}
	debug.Log("worker: watching %v (polling=%v)", w.watcher.Paths(), w.watcher.IsPolling())
	go w.loop()
	return nil
}

func (w *ReloadWorker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.TriggerRefresh()
		}
	}
}

// Stop halts the worker. Stop is idempotent.
func (w *ReloadWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}
	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(5 * time.Second):
			debug.Log("worker: shutdown timeout")
		}
	}
}

// State returns the current worker state.
func (w *ReloadWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the error of the most recent read, or nil.
func (w *ReloadWorker) LastError() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// CoalesceCount reports how many triggers were folded into a running read.
func (w *ReloadWorker) CoalesceCount() int64 { return w.coalesceCount.Load() }

// ProcessedCount reports how many reads completed.
func (w *ReloadWorker) ProcessedCount() uint64 { return w.processed.Load() }

// WatcherInfo reports how the data files are being watched.
func (w *ReloadWorker) WatcherInfo() (polling bool, fsType watcher.FilesystemType) {
	if w.watcher == nil {
		return false, watcher.FSTypeUnknown
	}
	return w.watcher.IsPolling(), w.watcher.FilesystemType()
}

// TriggerRefresh schedules a read, coalescing with one already running.
func (w *ReloadWorker) TriggerRefresh() {
	w.mu.Lock()
	switch w.state {
	case WorkerStopped:
		w.mu.Unlock()
		return
	case WorkerProcessing:
		w.dirty = true
		n := w.coalesceCount.Add(1)
		w.mu.Unlock()
		debug.Log("worker: coalesced refresh (%d)", n)
		return
	}
	w.mu.Unlock()

	go w.process()
}

// process reads a snapshot and sends it unless a newer change arrived in
// the meantime, in which case it reads again.
func (w *ReloadWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.generation++
	gen := w.generation
	w.mu.Unlock()

	msg := w.read(gen)

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerIdle
	rerun := w.dirty
	w.dirty = false
	if e, ok := msg.(ReloadErrorMsg); ok {
		w.lastError = e.Err
	} else {
		w.lastError = nil
	}
	w.mu.Unlock()

	if rerun {
		debug.Log("worker: dropping stale snapshot %d", gen)
		w.process()
		return
	}
	w.processed.Add(1)
	w.send(msg)
}

func (w *ReloadWorker) read(gen uint64) (msg tea.Msg) {
	defer metrics.Timer(metrics.DataLoad)()
	defer func() {
		if r := recover(); r != nil {
			msg = ReloadErrorMsg{Err: fmt.Errorf("reload panic: %v", r), Recoverable: true}
		}
	}()

	p, err := w.open()
	if err != nil {
		return ReloadErrorMsg{Err: err, Recoverable: true}
	}
	if c, ok := p.(io.Closer); ok {
		defer c.Close()
	}
	snap, nEvents, err := Snapshot(p)
	if err != nil {
		return ReloadErrorMsg{Err: err, Recoverable: true}
	}
	return DataReloadedMsg{
		Provider:    snap,
		Initiatives: len(snap.Initiatives),
		Events:      nEvents,
		Generation:  gen,
		At:          time.Now(),
	}
}

// Snapshot copies p into memory so the UI thread never touches the source.
func Snapshot(p timeline.Provider) (*timeline.MemoryProvider, int, error) {
	inits, err := p.ListInitiatives()
	if err != nil {
		return nil, 0, fmt.Errorf("list initiatives: %w", err)
	}
	var events []model.Event
	for _, in := range inits {
		evs, err := p.ListEvents(in.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("list events for %s: %w", in.ID, err)
		}
		events = append(events, evs...)
	}
	return timeline.NewMemoryProvider(inits, events), len(events), nil
}

func (w *ReloadWorker) send(msg tea.Msg) {
	if w == nil || msg == nil {
		return
	}
	for {
		select {
		case w.msgCh <- msg:
			return
		case <-w.ctx.Done():
			return
		default:
		}

		// Channel is full; drop an older message so the newest wins.
		select {
		case <-w.msgCh:
		default:
		}
	}
}

// StartWorkerCmd starts the worker.
func StartWorkerCmd(w *ReloadWorker) tea.Cmd {
	return func() tea.Msg {
		if w == nil {
			return nil
		}
		if err := w.Start(); err != nil {
			return ReloadErrorMsg{Err: fmt.Errorf("starting reload worker: %w", err)}
		}
		return nil
	}
}

// WaitForWorkerMsgCmd waits for the next worker message.
func WaitForWorkerMsgCmd(w *ReloadWorker) tea.Cmd {
	return func() tea.Msg {
		if w == nil {
			return nil
		}
		select {
		case msg := <-w.Messages():
			return msg
		case <-w.ctx.Done():
			return nil
		}
	}
}

func envPositiveIntOr(name string, fallback int) int {
	if v, ok := envPositiveInt(name); ok {
		return v
	}
	return fallback
}

func envPositiveInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func envDurationMilliseconds(name string, fallback time.Duration) time.Duration {
	if v, ok := envPositiveInt(name); ok {
		return time.Duration(v) * time.Millisecond
	}
	return fallback
}
