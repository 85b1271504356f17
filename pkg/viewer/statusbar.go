package viewer

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	barStyle     = lipgloss.NewStyle().Faint(true)
)

const keyHints = "n:next  p:prev  q:quit"

// statusBar renders exactly one line of m.width cells.
func (m Model) statusBar() string {
	if m.width <= 0 {
		return ""
	}
	left := keyHints
	if e, ok := m.current(); ok {
		left = fmt.Sprintf("[%d/%d] %s", m.index+1, len(m.entries), e.URL)
		if m.state == stateReady && m.frames > 1 {
			left += fmt.Sprintf("  frame %d/%d", m.frame+1, m.frames)
		}
		left += "  " + keyHints
	}
	if m.opts.Status != "" {
		left += "  |  " + m.opts.Status
	}

	line := ansi.Truncate(left, m.width, "…")
	if pad := m.width - ansi.StringWidth(line); pad > 0 {
		line += lipgloss.NewStyle().Width(pad).Render("")
	}
	return barStyle.Render(line)
}
