// Package watcher observes the Salesforce CLI's config file for target-
// org changes and fires re-identification events (spec §4.6).
package watcher

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the minimum stable-write interval before the
// watcher reads the config file (§4.6, §5).
const DefaultDebounce = 5 * time.Second

// ConfigFileName is the CLI configuration file watched under the
// workspace's .sf subdirectory.
const ConfigFileName = "config.json"

// OrgChanged is delivered when the target-org entry differs from the
// last observed value (§4.6, §9).
type OrgChanged struct {
	OldAlias string
	NewAlias string
}

type sfConfig struct {
	TargetOrg string `json:"target-org"`
}

// Watcher watches <workspace>/.sf/config.json's parent directory so renames
// (the CLI writes atomically via rename) are observed, debounces bursts
// of writes, and fires OrgChanged on a value diff.
type Watcher struct {
	dir       string
	file      string
	debounce  time.Duration
	logger    *slog.Logger
	onChange  func(OrgChanged)

	mu          sync.Mutex
	lastAlias   string
	stopped     bool
	watcherImpl *fsnotify.Watcher
}

// New creates a Watcher over <workspace>/.sf/config.json.
func New(workspace string, onChange func(OrgChanged), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(workspace, ".sf")
	return &Watcher{
		dir:      dir,
		file:     ConfigFileName,
		debounce: DefaultDebounce,
		logger:   logger,
		onChange: onChange,
	}
}

// SetDebounce overrides the default debounce interval; used by tests.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching. It is idempotent: calling Start twice without
// an intervening Stop is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcherImpl != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.watcherImpl = fsw
	w.stopped = false

	if alias, ok := w.readTargetOrg(); ok {
		w.lastAlias = alias
	}

	go w.run(fsw)
	return nil
}

// Stop removes all event listeners and closes the underlying watcher.
// Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcherImpl == nil {
		return
	}
	w.stopped = true
	w.watcherImpl.Close()
	w.watcherImpl = nil
}

func (w *Watcher) run(fsw *fsnotify.Watcher) {
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.handleStableWrite()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("org watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleStableWrite() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	alias, ok := w.readTargetOrg()
	if !ok {
		return
	}

	w.mu.Lock()
	old := w.lastAlias
	changed := old != alias
	if changed {
		w.lastAlias = alias
	}
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(OrgChanged{OldAlias: old, NewAlias: alias})
	}
}

// readTargetOrg parses the config file and returns its target-org
// value. Read or parse errors are logged and the prior value retained
// (§4.6).
func (w *Watcher) readTargetOrg() (string, bool) {
	path := filepath.Join(w.dir, w.file)
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("could not read org config", "path", path, "error", err)
		return "", false
	}
	var cfg sfConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		w.logger.Warn("could not parse org config", "path", path, "error", err)
		return "", false
	}
	return cfg.TargetOrg, true
}
