// Package watcher reports external changes to the ledger file and the
// dataset directories, batched over a debounce window.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
)

// Change is one debounced batch of file events.
type Change struct {
	Ledger bool     // the ledger file was written or replaced
	Paths  []string // other changed files, sorted
}

// Watcher wraps an fsnotify watcher on the ledger's directory and every
// dataset directory.
type Watcher struct {
	fs       *fsnotify.Watcher
	ledger   string
	debounce time.Duration
	logger   *slog.Logger
}

// New watches the directory holding ledgerPath plus each of dirs that
// exists. Missing dirs are skipped.
func New(ledgerPath string, dirs []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	w := &Watcher{fs: fsw, debounce: debounce, logger: logging.OrDefault(logger)}

	if w.ledger, err = filepath.Abs(ledgerPath); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watcher: %w", err)
	}
	seen := make(map[string]bool)
	for _, d := range append([]string{filepath.Dir(w.ledger)}, dirs...) {
		abs, err := filepath.Abs(d)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			w.logger.Debug("watch dir skipped", "dir", abs)
			continue
		}
		if err := fsw.Add(abs); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watcher: add %s: %w", abs, err)
		}
	}
	return w, nil
}

// Close releases the fsnotify watcher.
func (w *Watcher) Close() error { return w.fs.Close() }

// Run delivers batches to onChange until ctx is done. onChange runs on the
// Run goroutine; a slow handler delays the next batch but loses nothing.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]bool)
	ledger := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Name == w.ledger {
				ledger = true
			} else {
				pending[ev.Name] = true
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			if !ledger && len(pending) == 0 {
				continue
			}
			c := Change{Ledger: ledger}
			for p := range pending {
				c.Paths = append(c.Paths, p)
			}
			sort.Strings(c.Paths)
			pending = make(map[string]bool)
			ledger = false
			w.logger.Debug("external change", "ledger", c.Ledger, "files", len(c.Paths))
			onChange(c)
		}
	}
}

// relevant drops chmod-only events and hidden files, which include the
// temp files of atomic writes.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	return !strings.HasPrefix(filepath.Base(ev.Name), ".")
}
