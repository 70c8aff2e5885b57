package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LISSConsulting/LISSTech.Revise/internal/app"
	"github.com/LISSConsulting/LISSTech.Revise/internal/config"
	"github.com/LISSConsulting/LISSTech.Revise/internal/logging"
	"github.com/LISSConsulting/LISSTech.Revise/internal/tui"
	"github.com/LISSConsulting/LISSTech.Revise/internal/watcher"
)

// loadApp reads the configuration named by --config and assembles the app.
// A quiet app logs nothing; the review UI owns the terminal.
func loadApp(cmd *cobra.Command, quiet bool) (*app.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger := logging.Discard()
	if !quiet {
		logger = logging.New(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		})
	}
	return app.New(cfg, logger)
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runReview runs the review UI with the watcher feeding external changes
// into it. A non-empty name opens that file immediately.
func runReview(ctx context.Context, a *app.App, name string) error {
	model := tui.New(a)
	if name != "" {
		model = model.Open(name)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Watch(gctx, func(c watcher.Change) {
			program.Send(tui.ExternalChangeMsg{Change: c})
		})
	})
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// runWatch applies external changes until ctx is done, printing one line
// per batch.
func runWatch(ctx context.Context, a *app.App, out io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Watch(gctx, func(c watcher.Change) {
			var line string
			_ = a.Do(func(a *app.App) error {
				recs, err := a.Engine.Recommendations()
				if err != nil {
					line = fmt.Sprintf("%s: %v", formatChange(c), err)
					return nil
				}
				line = fmt.Sprintf("%s; %d due", formatChange(c), len(recs))
				return nil
			})
			fmt.Fprintln(out, line)
		})
	})
	return g.Wait()
}
