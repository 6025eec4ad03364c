// Package watcher reports batches of file changes under a site root so the
// watch command can rebuild after edits to elements, pages or the manifest.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/logging"
)

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent is a single change to a watched path.
type ChangeEvent struct {
	Type EventType
	Path string
}

// Filter reports whether a change to path is of interest.
type Filter func(path string) bool

// Handler receives one debounced batch of changes.
type Handler func(ctx context.Context, events []ChangeEvent) error

// Watcher wraps an fsnotify watcher with filtering and debouncing.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	logger    logging.Logger

	mutex   sync.RWMutex
	filters []Filter
	skip    []string
}

// New creates a Watcher whose batches are emitted after delay of quiet.
func New(delay time.Duration, logger logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeWatchFailed, "unable to start file watcher", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		watcher:   fw,
		debouncer: NewDebouncer(delay),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a filter; a change is reported only if every filter passes.
func (w *Watcher) AddFilter(filter Filter) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.filters = append(w.filters, filter)
}

// Skip excludes dir and everything beneath it, both from registration and
// from reported changes.
func (w *Watcher) Skip(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.skip = append(w.skip, abs)
}

// AddRecursive watches root and every directory below it.
func (w *Watcher) AddRecursive(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeWatchFailed, root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.WrapIO(err, errors.ErrCodeWatchFailed, path)
		}
		w.logger.Debug(context.Background(), "watching directory", "path", path)
		return nil
	})
}

func (w *Watcher) skipped(path string) bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	for _, dir := range w.skip {
		if within(dir, path) {
			return true
		}
	}
	return false
}

func (w *Watcher) accepts(path string) bool {
	if w.skipped(path) {
		return false
	}
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	for _, filter := range w.filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

// Run delivers debounced batches to handler until ctx is done. Handler
// errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	go w.debouncer.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, err, "file watcher error")
		case batch := <-w.debouncer.Batches():
			if err := handler(ctx, batch); err != nil {
				w.logger.Error(ctx, err, "change handler failed", "changes", len(batch))
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		// New directories are not covered by an existing recursive watch.
		if isDir(event.Name) && !w.skipped(event.Name) {
			if err := w.AddRecursive(event.Name); err != nil {
				w.logger.Warn(context.Background(), err, "unable to watch new directory", "path", event.Name)
			}
		}
	}
	if !w.accepts(event.Name) {
		return
	}
	w.debouncer.Add(ChangeEvent{Type: eventType(event.Op), Path: event.Name})
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.watcher.Close()
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

// Debouncer groups rapid changes into one batch per quiet period.
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	mutex   sync.Mutex
	timer   *time.Timer
	pending map[string]ChangeEvent
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 1),
		pending: make(map[string]ChangeEvent),
	}
}

// Add queues a change. It never blocks; a full queue drops the event.
func (d *Debouncer) Add(event ChangeEvent) {
	select {
	case d.events <- event:
	default:
	}
}

// Batches returns the channel of debounced batches.
func (d *Debouncer) Batches() <-chan []ChangeEvent {
	return d.output
}

// Run consumes queued changes until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.Stop()
			return
		case event := <-d.events:
			d.add(event)
		}
	}
}

// Stop cancels a pending flush.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending[event.Path] = event
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	batch := make([]ChangeEvent, 0, len(d.pending))
	for _, event := range d.pending {
		batch = append(batch, event)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	select {
	case d.output <- batch:
		d.pending = make(map[string]ChangeEvent)
	default:
		// Previous batch not consumed yet; keep the changes for the next flush.
		d.timer = time.AfterFunc(d.delay, d.flush)
	}
}

// ExtensionFilter accepts paths with one of the given extensions.
func ExtensionFilter(exts ...string) Filter {
	return func(path string) bool {
		ext := filepath.Ext(path)
		for _, e := range exts {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}
}

// NoTempFilter rejects editor swap and backup files.
func NoTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, ".#"):
		return false
	}
	return true
}

// NoHiddenFilter rejects paths below root with a dot-prefixed segment such
// as .git.
func NoHiddenFilter(root string) Filter {
	return func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return true
		}
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if len(part) > 1 && part[0] == '.' && part != ".." {
				return false
			}
		}
		return true
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
