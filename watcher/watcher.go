package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"siteimg/content"
	"siteimg/discovery"
	"siteimg/logging"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors the content and public directories and re-runs the
// generator when records or source images change.
type Watcher struct {
	roots     []string
	ignore    string
	debounce  time.Duration
	exts      map[string]bool
	onChange  func(ctx context.Context) error
	watcher   *fsnotify.Watcher
	events    chan Event
	triggered chan struct{}
}

// Event represents a relevant file system change
type Event struct {
	Type     EventType
	FilePath string
}

// EventType represents the type of file event
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
)

// Options configure a watcher.
type Options struct {
	// Roots are watched recursively. Missing roots are skipped.
	Roots []string
	// Ignore is a directory whose events never trigger a run, typically the
	// generated output inside the public directory.
	Ignore string
	// Extensions of content records; empty means the content defaults.
	Extensions []string
	Debounce   time.Duration
	// OnChange runs once per debounced burst of events.
	OnChange func(ctx context.Context) error
}

// NewWatcher creates a new file watcher
func NewWatcher(opts Options) (*Watcher, error) {
	if opts.OnChange == nil {
		return nil, errors.New("watcher: OnChange is required")
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = content.DefaultExtensions
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ignore := opts.Ignore
	if ignore != "" {
		ignore = filepath.Clean(ignore)
	}

	return &Watcher{
		roots:     opts.Roots,
		ignore:    ignore,
		debounce:  debounce,
		exts:      extSet,
		onChange:  opts.OnChange,
		watcher:   fsWatcher,
		events:    make(chan Event, 100),
		triggered: make(chan struct{}, 100),
	}, nil
}

// Start adds every directory under the roots to the watch list.
func (w *Watcher) Start() error {
	for _, root := range w.roots {
		if !discovery.DirExists(root) {
			logging.Warn().Str("dir", root).Msg("watch root missing, skipping")
			continue
		}
		if err := w.addTree(root); err != nil {
			return err
		}
		logging.Info().Str("dir", root).Msg("watching folder")
	}
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) || (path != root && strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch folder %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	if w.ignore == "" {
		return false
	}
	path = filepath.Clean(path)
	return path == w.ignore || strings.HasPrefix(path, w.ignore+string(filepath.Separator))
}

// relevant reports whether a change to path can affect the generated set.
func (w *Watcher) relevant(path string) bool {
	if w.ignored(path) {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return w.exts[ext] || discovery.HasRasterExt(base)
}

// Run processes events until ctx is cancelled. OnChange runs on this
// goroutine, so runs never overlap.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.ignored(event.Name) {
					if err := w.addTree(event.Name); err != nil {
						logging.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new folder")
					}
				}
			}
			if !w.relevant(event.Name) {
				continue
			}
			w.handleEvent(event)

			// Debounce: restart the quiet period on every event
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			logging.Info().Msg("changes detected, regenerating images")
			if err := w.onChange(ctx); err != nil {
				logging.Error().Err(err).Msg("regeneration failed")
			}
			select {
			case w.triggered <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn().Err(err).Msg("watcher error")
		}
	}
}

// handleEvent forwards a relevant fsnotify event to the Events channel.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventModified
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		eventType = EventDeleted
	default:
		return
	}
	logging.Debug().Str("file", event.Name).Int("type", int(eventType)).Msg("file changed")

	select {
	case w.events <- Event{Type: eventType, FilePath: event.Name}:
	default:
	}
}

// Events returns the event channel
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Triggered receives a value after each OnChange run.
func (w *Watcher) Triggered() <-chan struct{} {
	return w.triggered
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
