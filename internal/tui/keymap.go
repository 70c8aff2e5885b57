package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Select  key.Binding
	Reveal  key.Binding
	Correct key.Binding
	Wrong   key.Binding
	Shuffle key.Binding
	Mistake key.Binding
	Rename  key.Binding
	Refresh key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "review")),
	Reveal:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "reveal")),
	Correct: key.NewBinding(key.WithKeys("y", "right"), key.WithHelp("y", "knew it")),
	Wrong:   key.NewBinding(key.WithKeys("n", "left"), key.WithHelp("n", "missed")),
	Shuffle: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
	Mistake: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mistakes")),
	Rename:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
	Refresh: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),
}

// helpLine renders the short help for a set of bindings.
func helpLine(bs ...key.Binding) string {
	var out string
	for i, b := range bs {
		h := b.Help()
		if i > 0 {
			out += "  ·  "
		}
		out += h.Key + " " + h.Desc
	}
	return hintStyle.Render(out)
}
