package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.Revise/internal/app"
	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
	"github.com/LISSConsulting/LISSTech.Revise/internal/session"
	"github.com/LISSConsulting/LISSTech.Revise/internal/tui/components"
	"github.com/LISSConsulting/LISSTech.Revise/internal/watcher"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	noticeRows    = 4
)

// ExternalChangeMsg reports a batch already applied by the background
// watcher; the model only needs to redraw from fresh state.
type ExternalChangeMsg struct{ Change watcher.Change }

// card is the part of the session the view draws.
type card struct {
	front, back string
	revealed    bool
	done, total int
	positives   int
	file        string
}

// Model is the bubbletea model for the review UI. All access to the
// application goes through app.App.Do.
type Model struct {
	app   *app.App
	modes modeStack

	picker  list.Model
	notices components.Notices
	rename  textinput.Model

	renameTarget *catalog.FileDescriptor
	card         card
	result       *session.Result

	width  int
	height int
	err    error
}

// New creates a Model over a and loads the first recommendations.
func New(a *app.App) Model {
	ti := textinput.New()
	ti.Prompt = "new name: "
	ti.CharLimit = 120

	m := Model{
		app:     a,
		modes:   newModeStack(),
		picker:  newPicker(defaultWidth, defaultHeight-noticeRows-3),
		notices: components.NewNotices(defaultWidth, noticeRows),
		rename:  ti,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	return m.refresh()
}

// Mode returns the screen on top of the stack.
func (m Model) Mode() Mode { return m.modes.current() }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle("revise")
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.picker.SetSize(msg.Width, max(msg.Height-noticeRows-3, 1))
		m.notices = m.notices.SetSize(msg.Width, noticeRows)
		return m, nil
	case ExternalChangeMsg:
		if m.Mode() == ModePicker {
			return m.refresh(), nil
		}
		return m.syncNotices(), nil
	case tea.KeyMsg:
		m.err = nil
		if msg.Type == tea.KeyCtrlC {
			return m.abort(), tea.Quit
		}
		switch m.Mode() {
		case ModePicker:
			return m.updatePicker(msg)
		case ModeReview:
			return m.updateReview(msg)
		case ModeSummary:
			return m.updateSummary(msg)
		case ModeRename:
			return m.updateRename(msg)
		}
	}
	var cmd tea.Cmd
	m.notices, cmd = m.notices.Update(msg)
	return m, cmd
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Select):
		if rec, ok := selected(m.picker); ok {
			return m.begin(func(a *app.App) (*catalog.FileDescriptor, error) {
				fd, found, err := a.Catalog.Lookup(rec.Filepath)
				if err == nil && !found {
					err = fmt.Errorf("%s is no longer in the catalog", rec.Filepath)
				}
				return fd, err
			}), nil
		}
	case key.Matches(msg, keys.Mistake):
		language := ""
		if rec, ok := selected(m.picker); ok {
			language = rec.Language
		}
		return m.begin(func(a *app.App) (*catalog.FileDescriptor, error) {
			if language == "" {
				language = a.Config.Data.Languages[0]
			}
			fd, err := a.Store.MistakesReview(language, a.Config.Mistakes.PartSize, a.Config.Mistakes.ReviewMin)
			if err == nil && fd == nil {
				a.Sink.Notify(fmt.Sprintf("Not enough %s mistakes to review", language), notify.Info)
			}
			return fd, err
		}), nil
	case key.Matches(msg, keys.Rename):
		rec, ok := selected(m.picker)
		if !ok || rec.NewRevision {
			return m, nil
		}
		var fd *catalog.FileDescriptor
		m.err = m.app.Do(func(a *app.App) error {
			var err error
			fd, _, err = a.Catalog.Lookup(rec.Filepath)
			return err
		})
		if fd == nil {
			return m, nil
		}
		m.renameTarget = fd
		m.rename.SetValue(fd.Basename)
		m.rename.CursorEnd()
		m.modes = m.modes.push(ModeRename)
		return m, m.rename.Focus()
	case key.Matches(msg, keys.Refresh):
		_ = m.app.Do(func(a *app.App) error {
			a.Catalog.Invalidate()
			a.Engine.Invalidate()
			return nil
		})
		return m.refresh(), nil
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m.abort(), tea.Quit
	case key.Matches(msg, keys.Back):
		return m.finish(), nil
	case key.Matches(msg, keys.Reveal):
		m.err = m.app.Do(func(a *app.App) error {
			_, err := a.Session.Reveal()
			return err
		})
		return m.syncCard(), nil
	case key.Matches(msg, keys.Correct), key.Matches(msg, keys.Wrong):
		correct := key.Matches(msg, keys.Correct)
		done := false
		m.err = m.app.Do(func(a *app.App) error {
			if err := a.Session.Answer(correct); err != nil {
				return err
			}
			done = a.Session.Done()
			return nil
		})
		if done {
			return m.finish(), nil
		}
		return m.syncCard(), nil
	case key.Matches(msg, keys.Shuffle):
		if m.card.done != 0 {
			return m, nil
		}
		m.err = m.app.Do(func(a *app.App) error {
			seed, err := a.Store.Shuffle(nil)
			if err == nil {
				a.Sink.Notify(fmt.Sprintf("Shuffled with seed %d", seed), notify.Info)
			}
			return err
		})
		return m.syncCard(), nil
	}
	return m, nil
}

func (m Model) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Select), key.Matches(msg, keys.Back):
		m.modes = m.modes.pop()
		m.result = nil
		return m.refresh(), nil
	}
	return m, nil
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.rename.Blur()
		m.renameTarget = nil
		m.modes = m.modes.pop()
		return m, nil
	case tea.KeyEnter:
		name, fd := m.rename.Value(), m.renameTarget
		m.err = m.app.Do(func(a *app.App) error {
			n, err := a.Rename(fd, name)
			if err != nil {
				return err
			}
			a.Sink.Notify(fmt.Sprintf("Renamed to %s (%d ledger rows)", name, n), notify.Info)
			return nil
		})
		m.rename.Blur()
		m.renameTarget = nil
		m.modes = m.modes.pop()
		return m.refresh(), nil
	}
	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

// begin starts a session on the descriptor pick returns and enters review.
func (m Model) begin(pick func(a *app.App) (*catalog.FileDescriptor, error)) Model {
	started := false
	m.err = m.app.Do(func(a *app.App) error {
		fd, err := pick(a)
		if err != nil || fd == nil {
			return err
		}
		a.Begin(fd)
		started = true
		return nil
	})
	if !started {
		return m.syncNotices()
	}
	m.modes = m.modes.push(ModeReview)
	return m.syncCard()
}

// finish closes the session and shows its summary.
func (m Model) finish() Model {
	var res session.Result
	m.err = m.app.Do(func(a *app.App) error {
		var err error
		res, err = a.Session.Finish()
		return err
	})
	m.result = &res
	m.modes = m.modes.replace(ModeSummary)
	return m.syncNotices()
}

// abort closes a running session on quit so wrong answers from a partial
// pass still reach the mistakes log.
func (m Model) abort() Model {
	if m.Mode() != ModeReview {
		return m
	}
	return m.finish()
}

// refresh reloads the recommendations and the notice pane.
func (m Model) refresh() Model {
	threshold := m.app.Config.EFC.Threshold
	var items []list.Item
	err := m.app.Do(func(a *app.App) error {
		recs, err := a.Engine.Recommendations()
		if err != nil {
			return err
		}
		items = recItems(recs, threshold)
		return nil
	})
	if err != nil {
		m.err = err
	} else {
		m.picker.SetItems(items)
	}
	return m.syncNotices()
}

func (m Model) syncCard() Model {
	var c card
	err := m.app.Do(func(a *app.App) error {
		s := a.Session
		if fd := s.File(); fd != nil {
			c.file = fd.Signature
		}
		c.done, c.total = s.Progress()
		c.positives = s.Positives()
		row, revealed, err := s.Current()
		if err != nil {
			return err
		}
		c.front, c.revealed = row[0], revealed
		if revealed {
			c.back = row[1]
		}
		return nil
	})
	if err != nil && !errors.Is(err, session.ErrFinished) && m.err == nil {
		m.err = err
	}
	m.card = c
	return m.syncNotices()
}

func (m Model) syncNotices() Model {
	var msgs []notify.Message
	_ = m.app.Do(func(a *app.App) error {
		msgs = a.Notices.Messages()
		return nil
	})
	m.notices = m.notices.SetMessages(msgs)
	return m
}

// Open starts a review of the file named name right away, as if it had
// been picked from the list.
func (m Model) Open(name string) Model {
	return m.begin(func(a *app.App) (*catalog.FileDescriptor, error) {
		return a.Resolve(name)
	})
}
