package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	var body, help string
	switch m.Mode() {
	case ModePicker:
		body = m.pickerView()
		help = helpLine(keys.Select, keys.Mistake, keys.Rename, keys.Refresh, keys.Quit)
	case ModeReview:
		body = m.reviewView()
		if m.card.revealed {
			help = helpLine(keys.Correct, keys.Wrong, keys.Back)
		} else if m.card.done == 0 {
			help = helpLine(keys.Reveal, keys.Shuffle, keys.Back)
		} else {
			help = helpLine(keys.Reveal, keys.Back)
		}
	case ModeSummary:
		body = m.summaryView()
		help = helpLine(keys.Select, keys.Quit)
	case ModeRename:
		body = m.renameView()
		help = hintStyle.Render("enter confirm  ·  esc cancel")
	}

	status := help
	if m.err != nil {
		status = badStyle.Render("error: " + m.err.Error())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		body,
		m.notices.View(),
		status,
	)
}

func (m Model) headerView() string {
	title := "revise · " + m.Mode().String()
	if m.Mode() == ModeReview && m.card.file != "" {
		title += " · " + m.card.file
	}
	return headerStyle.Width(m.width).Render(title)
}

func (m Model) pickerView() string {
	if len(m.picker.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).Height(m.picker.Height()).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(colorGray).
			Render("Nothing due. Press m to review mistakes.")
	}
	return m.picker.View()
}

func (m Model) reviewView() string {
	c := m.card
	lines := []string{frontStyle.Render(c.front)}
	if c.revealed {
		lines = append(lines, "", backStyle.Render(c.back))
	} else {
		lines = append(lines, "", hintStyle.Render("?"))
	}
	width := max(m.width/2, 20)
	progress := hintStyle.Render(fmt.Sprintf("card %d/%d  ·  %d correct", c.done+1, c.total, c.positives))
	return lipgloss.JoinVertical(lipgloss.Center,
		cardStyle.Width(width).Render(strings.Join(lines, "\n")),
		progress,
	)
}

func (m Model) summaryView() string {
	r := m.result
	if r == nil {
		return ""
	}
	score := 0.0
	if r.Total > 0 {
		score = 100 * float64(r.Positives) / float64(r.Total)
	}
	lines := []string{
		frontStyle.Render(r.Signature),
		fmt.Sprintf("%d/%d correct  %s", r.Positives, r.Total,
			scoreStyle(score, m.app.Config.EFC.Threshold).Render(fmt.Sprintf("%.0f%%", score))),
		fmt.Sprintf("%ds spent, %d mistakes", r.SecondsSpent, r.Mistakes),
	}
	switch {
	case r.RevisionPath != "":
		lines = append(lines, goodStyle.Render("new revision "+r.RevisionPath))
	case r.Recorded:
		lines = append(lines, hintStyle.Render("recorded"))
	default:
		lines = append(lines, warnStyle.Render("not recorded"))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renameView() string {
	name := ""
	if m.renameTarget != nil {
		name = m.renameTarget.Basename
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		"Rename "+frontStyle.Render(name),
		m.rename.View(),
	)
}
