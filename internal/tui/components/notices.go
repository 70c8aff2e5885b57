// Package components holds reusable bubbletea widgets for the review UI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.Revise/internal/notify"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

// Notices is a scrollable pane of status messages. It sticks to the newest
// message until the user scrolls up.
type Notices struct {
	vp     viewport.Model
	shown  int
	follow bool
}

// NewNotices creates a pane of the given size.
func NewNotices(w, h int) Notices {
	return Notices{vp: viewport.New(w, h), follow: true}
}

// RenderMessage formats one message on a single line.
func RenderMessage(m notify.Message) string {
	line := fmt.Sprintf("%s  %s", m.At.Format("15:04:05"), m.Text)
	switch m.Severity {
	case notify.Error:
		return errorStyle.Render("✗ " + line)
	case notify.Warning:
		return warningStyle.Render("! " + line)
	default:
		return infoStyle.Render("· " + line)
	}
}

// SetMessages replaces the pane content.
func (n Notices) SetMessages(msgs []notify.Message) Notices {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = RenderMessage(m)
	}
	n.shown = len(msgs)
	n.vp.SetContent(strings.Join(lines, "\n"))
	if n.follow {
		n.vp.GotoBottom()
	}
	return n
}

// Len returns the number of messages shown.
func (n Notices) Len() int { return n.shown }

// Following reports whether the pane tracks the newest message.
func (n Notices) Following() bool { return n.follow }

// SetSize resizes the pane.
func (n Notices) SetSize(w, h int) Notices {
	n.vp.Width, n.vp.Height = w, h
	if n.follow {
		n.vp.GotoBottom()
	}
	return n
}

// Update forwards scroll input to the viewport.
func (n Notices) Update(msg tea.Msg) (Notices, tea.Cmd) {
	var cmd tea.Cmd
	n.vp, cmd = n.vp.Update(msg)
	switch msg.(type) {
	case tea.KeyMsg, tea.MouseMsg:
		n.follow = n.vp.AtBottom()
	}
	return n, cmd
}

// View renders the pane.
func (n Notices) View() string { return n.vp.View() }
