package terminal

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Capabilities summarises what the attached terminal can display.
type Capabilities struct {
	Term      Terminal
	Protocol  GraphicsProtocol
	Size      Size
	TrueColor bool
	TTY       bool // f is an interactive terminal
	SSH       bool
}

// DetectCapabilities inspects the environment and f. When f is not a
// terminal the protocol is ProtocolNone, output is going to a pipe or file.
func DetectCapabilities(f *os.File) Capabilities {
	t := Detect()
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())

	trueColor := t.SupportsTrueColor() || termenv.EnvColorProfile() == termenv.TrueColor

	caps := Capabilities{
		Term:      t,
		Protocol:  SelectProtocol(t),
		TrueColor: trueColor,
		TTY:       tty,
		SSH:       isSSH(),
	}
	if tty {
		caps.Size = GetSize(f)
	} else {
		caps.Size = sizeFromEnv()
		caps.Protocol = ProtocolNone
	}
	return caps
}
