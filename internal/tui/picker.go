package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.Revise/internal/efc"
)

// recItem implements list.Item for a recommendation.
type recItem struct {
	rec       efc.Recommendation
	threshold float64
}

func (i recItem) Title() string { return i.rec.Label }

func (i recItem) Description() string {
	if i.rec.NewRevision {
		return i.rec.Language + " · new"
	}
	return fmt.Sprintf("%s · %.0f%%", i.rec.Language, i.rec.Score)
}

func (i recItem) FilterValue() string { return i.rec.Label }

// recDelegate renders one recommendation per line.
type recDelegate struct{}

func (d recDelegate) Height() int                             { return 1 }
func (d recDelegate) Spacing() int                            { return 0 }
func (d recDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d recDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(recItem)
	if !ok {
		return
	}
	score := "  new"
	if !item.rec.NewRevision {
		score = scoreStyle(item.rec.Score, item.threshold).Render(fmt.Sprintf("%4.0f%%", item.rec.Score))
	}
	s := fmt.Sprintf("%s  [%s] %s", score, item.rec.Language, item.rec.Label)
	if index == m.Index() {
		s = selectedStyle.Render("> ") + s
	} else {
		s = "  " + s
	}
	fmt.Fprint(w, s)
}

func newPicker(w, h int) list.Model {
	l := list.New(nil, recDelegate{}, w, h)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return l
}

func recItems(recs []efc.Recommendation, threshold float64) []list.Item {
	items := make([]list.Item, len(recs))
	for i, r := range recs {
		items[i] = recItem{rec: r, threshold: threshold}
	}
	return items
}

// selected returns the highlighted recommendation.
func selected(l list.Model) (efc.Recommendation, bool) {
	item, ok := l.SelectedItem().(recItem)
	if !ok {
		return efc.Recommendation{}, false
	}
	return item.rec, true
}
