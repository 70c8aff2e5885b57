package tui

// Mode is one screen of the UI.
type Mode int

const (
	ModePicker Mode = iota
	ModeReview
	ModeSummary
	ModeRename
)

func (m Mode) String() string {
	switch m {
	case ModePicker:
		return "picker"
	case ModeReview:
		return "review"
	case ModeSummary:
		return "summary"
	case ModeRename:
		return "rename"
	default:
		return "unknown"
	}
}

// modeStack holds the screens entered so far. The bottom entry is always
// the picker; popping it is a no-op.
type modeStack []Mode

func newModeStack() modeStack { return modeStack{ModePicker} }

func (s modeStack) current() Mode { return s[len(s)-1] }

func (s modeStack) push(m Mode) modeStack { return append(s[:len(s):len(s)], m) }

func (s modeStack) pop() modeStack {
	if len(s) <= 1 {
		return s
	}
	return s[:len(s)-1]
}

// replace swaps the top mode, used when a review ends in its summary.
func (s modeStack) replace(m Mode) modeStack {
	return s.pop().push(m)
}
