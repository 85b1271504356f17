// Package viewer is a bubbletea program that shows cached media in the
// terminal, one URL at a time, with animations played back at their
// recorded frame delays.
package viewer

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TickEvent drives frame selection and redraws.
type TickEvent struct {
	Time time.Time
}

// TickCmd returns a Cmd that sends a TickEvent after d.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickEvent{Time: t}
	})
}
