package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/LISSConsulting/LISSTech.Revise/internal/catalog"
	"github.com/LISSConsulting/LISSTech.Revise/internal/efc"
	"github.com/LISSConsulting/LISSTech.Revise/internal/ledger"
	"github.com/LISSConsulting/LISSTech.Revise/internal/watcher"
)

var headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cell = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *ltable.Table {
	return ltable.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerCell
			}
			return cell
		}).
		Headers(headers...)
}

func formatFiles(files []*catalog.FileDescriptor) string {
	if len(files) == 0 {
		return "No files found"
	}
	t := newTable("LNG", "KIND", "NAME", "VALID", "PATH")
	for _, fd := range files {
		valid := "yes"
		if !fd.Valid {
			valid = "no"
		}
		t.Row(fd.Language, fd.Kind.String(), fd.Basename, valid, fd.Filepath)
	}
	return t.String()
}

func formatRecommendations(recs []efc.Recommendation) string {
	if len(recs) == 0 {
		return "Nothing due"
	}
	t := newTable("SCORE", "LNG", "ITEM", "FILE")
	for _, r := range recs {
		score := fmt.Sprintf("%.0f", r.Score)
		if r.NewRevision {
			score = "new"
		}
		t.Row(score, r.Language, r.Label, filepath.Base(r.Filepath))
	}
	return t.String()
}

func formatEFC(rows []efc.Row, due bool) string {
	if len(rows) == 0 {
		return "No revisions found"
	}
	headers := []string{"SIGNATURE", "LNG", "DAYS", "SCORE", "PHASE"}
	if due {
		headers = append(headers, "DUE")
	}
	t := newTable(headers...)
	for _, r := range rows {
		phase := "decay"
		if r.IsInitial {
			phase = "initial"
		}
		cells := []string{r.Signature, r.Language, formatDays(r.DaysSinceReview), fmt.Sprintf("%.1f", r.Score), phase}
		if due {
			cells = append(cells, formatDue(r.DueHours))
		}
		t.Row(cells...)
	}
	return t.String()
}

// formatDays renders a day count; +Inf means never reviewed.
func formatDays(d float64) string {
	if math.IsInf(d, 1) {
		return "never"
	}
	return fmt.Sprintf("%.1f", d)
}

// formatDue renders hours until the score falls below the threshold.
func formatDue(h float64) string {
	switch {
	case h <= 0:
		return "now"
	case h < 48:
		return fmt.Sprintf("in %.0fh", h)
	default:
		return fmt.Sprintf("in %.1fd", h/24)
	}
}

func formatStats(v *ledger.View, sig string, now time.Time) string {
	if v.Count(sig) == 0 {
		if sig == "" {
			return "No reviews recorded"
		}
		return fmt.Sprintf("No reviews recorded for %s", sig)
	}
	title := "All revisions"
	if sig != "" {
		title = sig
	}

	var b strings.Builder
	fmt.Fprintln(&b, title)
	fmt.Fprintln(&b, strings.Repeat("─", len([]rune(title))))
	line := func(k, format string, args ...any) {
		fmt.Fprintf(&b, "  %-20s %s\n", k+":", fmt.Sprintf(format, args...))
	}
	if sig == "" {
		line("Revisions", "%d", v.DistinctSignatures(""))
	}
	line("Reviews", "%d (%d repeats)", v.Count(sig), v.Repeats(sig))
	line("Cards", "%d, %d correct", v.TotalCards(sig), v.TotalPositives(sig))
	line("Average score", "%.1f%%", 100*v.AverageScore(sig, 0))
	line("Cards per minute", "%.1f", v.AverageCardsPerMinute(sig, 0))
	line("Time spent", "%s", (time.Duration(v.SecondsSpent(sig)) * time.Second).String())
	if d, ok := v.SinceCreation(sig, now); ok {
		line("Created", "%s ago", d.Round(time.Minute))
	}
	if d, ok := v.SinceLastReview(sig, now); ok {
		line("Last review", "%s ago", d.Round(time.Minute))
	}
	if sig != "" {
		line("Best", "%d", v.MaxPositives(sig))
		if chart := v.ChartPositives(sig); len(chart) > 0 {
			parts := make([]string, len(chart))
			for i, p := range chart {
				parts[i] = fmt.Sprint(p)
			}
			line("Daily positives", "%s", strings.Join(parts, " "))
		}
	}
	if n := v.ZeroTimeCount(sig); n > 0 {
		line("Untimed reviews", "%d", n)
	}
	return b.String()
}

func formatChange(c watcher.Change) string {
	var parts []string
	if c.Ledger {
		parts = append(parts, "ledger changed")
	}
	switch n := len(c.Paths); {
	case n == 1:
		parts = append(parts, "1 dataset file changed")
	case n > 1:
		parts = append(parts, fmt.Sprintf("%d dataset files changed", n))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}
