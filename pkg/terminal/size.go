package terminal

import (
	"os"
	"strconv"

	"github.com/charmbracelet/x/term"
	"golang.org/x/sys/unix"
)

// Size represents terminal dimensions in cells and, when known, pixels.
type Size struct {
	Cols   int
	Rows   int
	PixelW int // 0 if unknown
	PixelH int
	CellW  int // pixel width per cell, 0 if unknown
	CellH  int
}

// GetSize returns the terminal dimensions of f. It tries TIOCGWINSZ (cells
// and pixels), then x/term (cells only), then COLUMNS/LINES, then 80x24.
func GetSize(f *os.File) Size {
	if s := sizeFromIoctl(f.Fd()); s.Cols > 0 && s.Rows > 0 {
		return s
	}
	if cols, rows, err := term.GetSize(f.Fd()); err == nil && cols > 0 && rows > 0 {
		return Size{Cols: cols, Rows: rows}
	}
	return sizeFromEnv()
}

func sizeFromIoctl(fd uintptr) Size {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err != nil {
		return Size{}
	}
	s := Size{
		Cols:   int(ws.Col),
		Rows:   int(ws.Row),
		PixelW: int(ws.Xpixel),
		PixelH: int(ws.Ypixel),
	}
	if s.PixelW > 0 && s.Cols > 0 {
		s.CellW = s.PixelW / s.Cols
	}
	if s.PixelH > 0 && s.Rows > 0 {
		s.CellH = s.PixelH / s.Rows
	}
	return s
}

func sizeFromEnv() Size {
	return Size{Cols: envInt("COLUMNS", 80), Rows: envInt("LINES", 24)}
}

// envInt reads a positive integer from the named variable, or fallback.
func envInt(name string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
