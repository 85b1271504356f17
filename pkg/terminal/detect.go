// Package terminal detects the terminal emulator, picks an inline image
// protocol for it and queries the terminal size.
//
// Detection only inspects environment variables and ioctls; it never
// writes query sequences to the terminal.
package terminal

import (
	"os"
	"strings"
)

// Terminal identifies the terminal emulator in use.
type Terminal int

const (
	TermUnknown   Terminal = iota
	TermGhostty            // kitty graphics
	TermKitty              // kitty graphics
	TermWezTerm            // kitty graphics, sixel, iterm2 images
	TermITerm2             // iterm2 images
	TermAlacritty          // true color only
	TermVTE                // GNOME Terminal, Tilix and other VTE terminals
	TermTmux
	TermGeneric
)

var terminalNames = [...]string{
	TermUnknown:   "unknown",
	TermGhostty:   "ghostty",
	TermKitty:     "kitty",
	TermWezTerm:   "wezterm",
	TermITerm2:    "iterm2",
	TermAlacritty: "alacritty",
	TermVTE:       "vte",
	TermTmux:      "tmux",
	TermGeneric:   "generic",
}

// String returns the terminal's name.
func (t Terminal) String() string {
	if t >= 0 && int(t) < len(terminalNames) {
		return terminalNames[t]
	}
	return "unknown"
}

// SupportsTrueColor reports whether the terminal is known to render
// 24-bit colour.
func (t Terminal) SupportsTrueColor() bool {
	switch t {
	case TermGhostty, TermKitty, TermWezTerm, TermITerm2, TermAlacritty, TermVTE:
		return true
	default:
		return false
	}
}

// Detect identifies the terminal emulator from the environment. Signals
// are checked from most to least specific: TERM_PROGRAM, TERM, emulator
// specific variables, then multiplexers.
func Detect() Terminal {
	return detectFrom(os.Getenv)
}

func detectFrom(getenv func(string) string) Terminal {
	switch strings.ToLower(getenv("TERM_PROGRAM")) {
	case "ghostty":
		return TermGhostty
	case "kitty":
		return TermKitty
	case "wezterm":
		return TermWezTerm
	case "iterm.app":
		return TermITerm2
	case "alacritty":
		return TermAlacritty
	case "tmux":
		return TermTmux
	}

	switch term := getenv("TERM"); {
	case term == "xterm-ghostty":
		return TermGhostty
	case term == "xterm-kitty":
		return TermKitty
	case strings.HasPrefix(term, "alacritty"):
		return TermAlacritty
	}

	switch {
	case getenv("KITTY_WINDOW_ID") != "":
		return TermKitty
	case getenv("ITERM_SESSION_ID") != "", getenv("LC_TERMINAL") == "iTerm2":
		return TermITerm2
	case getenv("WEZTERM_EXECUTABLE") != "":
		return TermWezTerm
	case getenv("VTE_VERSION") != "":
		return TermVTE
	case getenv("TMUX") != "":
		return TermTmux
	}
	return TermGeneric
}
