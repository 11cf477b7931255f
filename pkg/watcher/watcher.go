// Package watcher re-runs a callback whenever definition files change under
// a set of source roots.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/ocmigrate/pkg/logger"
)

// DefaultDebounce is the quiet period used when none is configured
const DefaultDebounce = 500 * time.Millisecond

// Event is a single relevant filesystem change
type Event struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Watcher watches source roots and their namespace directories
type Watcher struct {
	roots    map[string]struct{}
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// Option configures a Watcher
type Option func(*Watcher) error

// WithDebounce sets how long the tree must stay quiet before the callback runs
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) error {
		if d < 0 {
			return errors.Errorf("debounce cannot be negative: %s", d)
		}
		w.debounce = d
		return nil
	}
}

// New starts watching roots and every directory directly below them.
// Changes made after New returns are delivered by Run.
func New(ctx context.Context, roots []string, opts ...Option) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, errors.New("at least one directory must be watched")
	}

	w := &Watcher{
		roots:    make(map[string]struct{}, len(roots)),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, errors.Wrap(err, "failed to apply watcher option")
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	w.fsw = fsw

	for _, root := range roots {
		root = filepath.Clean(root)
		w.roots[root] = struct{}{}
		if err := w.addTree(ctx, root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

func (w *Watcher) addTree(ctx context.Context, root string) error {
	if err := w.fsw.Add(root); err != nil {
		return errors.Wrapf(err, "failed to watch directory '%s'", root)
	}
	logger.G(ctx).WithField("directory", root).Debug("Adding directory to watcher")

	entries, err := os.ReadDir(root)
	if err != nil {
		return errors.Wrapf(err, "failed to read directory '%s'", root)
	}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if !isDir(path) {
			continue
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch directory '%s'", path)
		}
		logger.G(ctx).WithField("directory", path).Debug("Adding directory to watcher")
	}
	return nil
}

// Run delivers debounced batches of changes to onChange until ctx is
// cancelled. Calls to onChange never overlap. The underlying watcher is
// closed when Run returns.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, events []Event)) error {
	defer w.fsw.Close()

	events := make(chan Event)
	batches := make(chan []Event)

	go debounceEvents(ctx, events, batches, w.debounce)
	go w.pump(ctx, events)

	for {
		select {
		case batch := <-batches:
			logger.G(ctx).WithField("changes", len(batch)).Debug("Source change detected")
			onChange(ctx, batch)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) pump(ctx context.Context, out chan<- Event) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ctx, event) {
				continue
			}
			select {
			case out <- Event{Path: event.Name, Op: event.Op, Time: time.Now()}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.G(ctx).WithError(err).Error("Error watching files")
		case <-ctx.Done():
			return
		}
	}
}

// relevant reports whether event may change the migration output. A new
// namespace directory is added to the watch set as a side effect.
func (w *Watcher) relevant(ctx context.Context, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
		if _, ok := w.roots[filepath.Dir(event.Name)]; ok {
			if err := w.fsw.Add(event.Name); err != nil {
				logger.G(ctx).WithError(err).WithField("directory", event.Name).Warn("Failed to watch new directory")
			} else {
				logger.G(ctx).WithField("directory", event.Name).Debug("Adding directory to watcher")
			}
		}
		return true
	}

	return strings.HasSuffix(event.Name, ".md")
}

// debounceEvents forwards everything received on input as one batch once no
// new event has arrived for delay
func debounceEvents(ctx context.Context, input <-chan Event, output chan<- []Event, delay time.Duration) {
	var (
		pending []Event
		timer   *time.Timer
		fire    <-chan time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stop()
				return
			}
			pending = append(pending, event)
			stop()
			timer = time.NewTimer(delay)
			fire = timer.C
		case <-fire:
			batch := pending
			pending = nil
			fire = nil
			select {
			case output <- batch:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			stop()
			return
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
