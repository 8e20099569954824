package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"skillrouter/internal/logging"
)

// Watcher watches a skills directory for SKILL.md changes and reloads the
// catalog after a debounce window. Reloads are delivered to the registered
// callback; the watcher never replaces a catalog mid-request.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	skillsDir   string
	debounceDur time.Duration
	pending     *time.Timer
	onReload    func(*Catalog)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for skillsDir. onReload is invoked with the
// freshly loaded catalog after each debounced change burst.
func NewWatcher(skillsDir string, onReload func(*Catalog)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fsw,
		skillsDir:   skillsDir,
		debounceDur: 500 * time.Millisecond,
		onReload:    onReload,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.skillsDir); err != nil {
		logging.CatalogWarn("watcher: initial watch failed: %v", err)
	} else {
		logging.Catalog("watcher: watching %s", w.skillsDir)
	}

	// Skill files live one level down (<dir>/<skill>/SKILL.md), so watch
	// the per-skill directories too.
	if matches, err := filepath.Glob(filepath.Join(w.skillsDir, "*")); err == nil {
		for _, dir := range matches {
			_ = w.watcher.Add(dir)
		}
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryCatalog).Error("watcher: close: %v", err)
	}
	logging.Catalog("watcher: stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logging.CatalogDebug("watcher: %s %s", event.Op, event.Name)
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.CatalogWarn("watcher: %v", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if base == "SKILL.md" {
		return true
	}
	// A new skill directory appearing also needs a watch and a reload.
	if event.Op&fsnotify.Create != 0 && !strings.Contains(base, ".") {
		_ = w.watcher.Add(event.Name)
		return true
	}
	return false
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceDur, func() {
		cat, err := LoadDir(w.skillsDir)
		if err != nil {
			logging.CatalogWarn("watcher: reload failed: %v", err)
			return
		}
		logging.Catalog("watcher: reloaded %d skills", cat.Len())
		if w.onReload != nil {
			w.onReload(cat)
		}
	})
}
