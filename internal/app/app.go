// Package app wires the catalog, dataset store, ledger, scheduler and
// session together and owns the single mutual-exclusion domain they share.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/config"
	"github.com/LISSConsulting/LISSTech.Revise/internal/dataset"
	"github.com/LISSConsulting/LISSTech.Revise/internal/efc"
	"github.com/LISSConsulting/LISSTech.Revise/internal/ledger"
	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
	"github.com/LISSConsulting/LISSTech.Revise/internal/session"
	"github.com/LISSConsulting/LISSTech.Revise/internal/watcher"
)

// App is the assembled core. Every use of its components from more than
// one goroutine must go through Do.
type App struct {
	mu sync.Mutex

	Config  *config.Config
	Logger  *slog.Logger
	Notices *notify.Buffer
	Sink    notify.Sink
	State   *config.StateFile

	Catalog *catalog.Catalog
	Store   *dataset.Store
	Ledger  *ledger.Ledger
	Engine  *efc.Engine
	Session *session.Session
}

// noticeHistory bounds the in-memory notification buffer.
const noticeHistory = 100

// New builds an App from cfg. The ledger is loaded immediately so a
// corrupt ledger fails here rather than mid-session.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger = logging.OrDefault(logger)
	notices := notify.NewBuffer(noticeHistory)
	sink := notify.Multi{notify.NewLog(logger.With("component", "notify")), notices}

	cat := catalog.New(catalog.Options{
		Root:         cfg.DataRoot(),
		Languages:    cfg.Data.Languages,
		LockPrefixes: cfg.Data.LockPrefixes,
	}, sink, logger.With("component", "catalog"))

	state := config.NewStateFile(cfg.StatePath())
	store := dataset.New(cat, dataset.Options{
		RevisionExt: cfg.Data.RevisionExt,
		Signatures:  cfg.Signatures,
		PartSize:    cfg.Mistakes.PartSize,
		PartCnt:     cfg.Mistakes.PartCnt,
		Seeds:       state,
	}, sink, logger.With("component", "dataset"))

	led, err := ledger.Open(cfg.LedgerPath(), logger.With("component", "ledger"))
	if err != nil {
		return nil, err
	}

	pred, err := efc.LoadPredictor(cfg.ModelPath())
	if err != nil {
		return nil, err
	}
	engine := efc.New(cat, led, pred, efc.Options{
		Threshold:        cfg.EFC.Threshold,
		InitRevsCnt:      cfg.EFC.InitRevsCnt,
		InitRevsInth:     cfg.EFC.InitRevsInth,
		DaysToNewRev:     cfg.EFC.DaysToNewRev,
		CacheExpiryHours: cfg.EFC.CacheExpiryHours,
		SortPrimary:      efc.SortKey(cfg.EFC.SortPrimary),
		SortSecondary:    efc.SortKey(cfg.EFC.SortSecondary),
		Search: efc.SearchOptions{
			ResolutionHours: cfg.EFC.ResolutionHours,
			MaxIterations:   cfg.EFC.MaxIterations,
			ShrinkFactor:    cfg.EFC.ShrinkFactor,
			Tolerance:       cfg.EFC.Tolerance,
		},
	}, logger.With("component", "efc"))

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Notices: notices,
		Sink:    sink,
		State:   state,
		Catalog: cat,
		Store:   store,
		Ledger:  led,
		Engine:  engine,
	}
	a.Session = session.New(store, a, sink, logger.With("component", "session"), nil)
	return a, nil
}

// Do runs fn while holding the App lock. Foreground commands and the
// background watcher both enter here, so they never overlap.
func (a *App) Do(fn func(a *App) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a)
}

// Begin starts a session on fd and remembers it as the last active file.
func (a *App) Begin(fd *catalog.FileDescriptor) {
	a.Session.Begin(fd)
	if fd.Temporary || fd.Filepath == "" {
		return
	}
	st, err := a.State.Load()
	if err == nil {
		st.LastActive = fd.Filepath
		err = a.State.Save(st)
	}
	if err != nil {
		a.Logger.Warn("runtime state not saved", "error", err)
	}
}

// Append records a review and drops cached recommendations. It satisfies
// session.Recorder; callers already hold the lock.
func (a *App) Append(rec ledger.Record) error {
	if err := a.Ledger.Append(rec); err != nil {
		return err
	}
	a.Engine.Invalidate()
	return nil
}

// Rename renames fd on disk and rewrites its ledger rows to match.
func (a *App) Rename(fd *catalog.FileDescriptor, newBase string) (int, error) {
	old, err := a.Store.RenameFile(fd, newBase)
	if err != nil {
		return 0, err
	}
	n, err := a.Ledger.RenameSignature(old, newBase)
	if err != nil {
		return 0, fmt.Errorf("app: file renamed but ledger not updated: %w", err)
	}
	a.Engine.Invalidate()
	return n, nil
}

// Resolve finds a catalogued file by path or by basename. With several
// basename matches the first in natural order wins.
func (a *App) Resolve(name string) (*catalog.FileDescriptor, error) {
	files, err := a.Catalog.Files()
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(name); err == nil {
		if fd, ok := files[abs]; ok {
			return fd, nil
		}
	}
	if fd, ok := files[name]; ok {
		return fd, nil
	}
	for _, kind := range []catalog.Kind{catalog.Revision, catalog.Language, catalog.Mistakes} {
		list, err := a.Catalog.SortedByKind(kind)
		if err != nil {
			return nil, err
		}
		for _, fd := range list {
			if fd.Basename == name || filepath.Base(fd.Filepath) == name {
				return fd, nil
			}
		}
	}
	return nil, fmt.Errorf("app: no file named %q", name)
}

// Apply handles an external change: the ledger snapshot is refreshed and
// the catalog invalidated. Callers hold the lock.
func (a *App) Apply(c watcher.Change) error {
	if c.Ledger {
		reloaded, err := a.Ledger.Refresh()
		if err != nil {
			a.Sink.Notify(fmt.Sprintf("Ledger could not be reloaded: %v", err), notify.Error)
			return err
		}
		if reloaded {
			a.Engine.Invalidate()
		}
	}
	if len(c.Paths) > 0 {
		a.Catalog.Invalidate()
		a.Engine.Invalidate()
	}
	return nil
}

// Watch runs the background change watcher until ctx is done. Every batch
// is applied inside Do; after each batch onChange is called, if non-nil,
// outside the lock.
func (a *App) Watch(ctx context.Context, onChange func(watcher.Change)) error {
	var dirs []string
	for _, lng := range a.Config.Data.Languages {
		for _, kind := range []catalog.Kind{catalog.Revision, catalog.Language, catalog.Mistakes} {
			dirs = append(dirs, a.Catalog.Dir(lng, kind))
		}
	}
	debounce := time.Duration(a.Config.Watch.DebounceMS) * time.Millisecond
	w, err := watcher.New(a.Config.LedgerPath(), dirs, debounce, a.Logger.With("component", "watcher"))
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx, func(c watcher.Change) {
		err := a.Do(func(a *App) error { return a.Apply(c) })
		if err != nil {
			a.Logger.Warn("external change not applied", "error", err)
		}
		if onChange != nil {
			onChange(c)
		}
	})
}
