package fiction

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors emit when
// saving a file.
const reloadDebounce = 500 * time.Millisecond

// Watcher reloads a scenario file into a ScenarioSource whenever it
// changes on disk. A reload that fails to parse or verify is logged
// and the running scenario keeps playing.
type Watcher struct {
	path    string
	source  *ScenarioSource
	logger  *log.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}

	mu       sync.Mutex
	debounce *time.Timer
}

// WatchScenario watches the scenario file at path and feeds changed
// versions to source. The directory is watched rather than the file
// itself so editors that replace the file on save are still seen.
func WatchScenario(path string, source *ScenarioSource, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fiction: create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("fiction: watch scenario dir: %w", err)
	}

	w := &Watcher{
		path:    path,
		source:  source,
		logger:  logger,
		watcher: fsw,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("fiction: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDebounce, w.reload)
	w.mu.Unlock()
}

func (w *Watcher) reload() {
	metrics := globalFictionMetrics()

	sc, err := LoadScenario(w.path)
	if err != nil {
		metrics.reloads.WithLabelValues("error").Inc()
		w.logger.Printf("fiction: reload of %s failed: %v", w.path, err)
		return
	}
	if err := w.source.ReplaceScenario(sc); err != nil {
		metrics.reloads.WithLabelValues("error").Inc()
		w.logger.Printf("fiction: reload of %s failed: %v", w.path, err)
		return
	}

	metrics.reloads.WithLabelValues("ok").Inc()
	w.logger.Printf("fiction: reloaded scenario from %s", w.path)
}
