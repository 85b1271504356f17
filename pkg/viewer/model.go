package viewer

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/mediacache/pkg/mediacache"
)

// DefaultTickInterval is used when Options.TickInterval is zero.
const DefaultTickInterval = 16 * time.Millisecond

// Source hands out load units and animation frames. *mediacache.Images
// satisfies it.
type Source interface {
	Request(url string, t mediacache.CacheType) *mediacache.Promise[mediacache.TexturedImage]
	Frame(url string, anim *mediacache.Animation, now time.Time) mediacache.TextureFrame
}

// Painter turns a texture into terminal output for a cell area.
type Painter interface {
	RenderTexture(tex mediacache.Texture, cols, rows int) (string, error)
}

// Entry is one item in the viewer's playlist.
type Entry struct {
	URL  string
	Type mediacache.CacheType
}

// Options configures a Model.
type Options struct {
	TickInterval time.Duration
	// MaxCols and MaxRows cap the image area; zero uses the window size.
	MaxCols int
	MaxRows int
	// Status is shown on the right of the status bar, e.g. the protocol.
	Status string
}

// state is what the current entry looks like on the last tick.
type state int

const (
	stateLoading state = iota
	stateReady
	stateFailed
)

// Model is the viewer's bubbletea model.
type Model struct {
	source  Source
	painter Painter
	entries []Entry
	opts    Options

	index   int
	width   int
	height  int
	ready   bool
	spinner spinner.Model

	state  state
	frame  int
	frames int
	body   string
	err    error
}

// New creates a viewer over entries.
func New(source Source, painter Painter, entries []Entry, opts Options) Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return Model{
		source:  source,
		painter: painter,
		entries: entries,
		opts:    opts,
		spinner: sp,
	}
}

// Index returns the position of the entry on screen.
func (m Model) Index() int { return m.index }

// Ready reports whether the terminal size is known.
func (m Model) Ready() bool { return m.ready }

// Err returns the load or render error of the current entry, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.request()
	return tea.Batch(m.spinner.Tick, TickCmd(m.opts.TickInterval))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.refresh(time.Now())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "n", "right", "l", " ":
			m.move(1)
		case "p", "left", "h":
			m.move(-1)
		}
		return m, nil

	case TickEvent:
		m.refresh(msg.Time)
		return m, TickCmd(m.opts.TickInterval)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return ""
	}
	var body string
	switch m.state {
	case stateLoading:
		body = m.spinner.View() + " loading"
	case stateFailed:
		body = errorStyle.Render(fmt.Sprintf("error: %v", m.err))
	default:
		body = m.body
	}
	return body + "\n" + m.statusBar()
}

// move steps through the playlist, wrapping at both ends.
func (m *Model) move(delta int) {
	if len(m.entries) == 0 {
		return
	}
	m.index = (m.index + delta + len(m.entries)) % len(m.entries)
	m.state = stateLoading
	m.body = ""
	m.err = nil
	m.request()
	m.refresh(time.Now())
}

func (m *Model) current() (Entry, bool) {
	if len(m.entries) == 0 {
		return Entry{}, false
	}
	return m.entries[m.index], true
}

func (m *Model) request() *mediacache.Promise[mediacache.TexturedImage] {
	e, ok := m.current()
	if !ok {
		return nil
	}
	return m.source.Request(e.URL, e.Type)
}

// refresh polls the current entry's load unit and redraws it if settled.
// It never blocks.
func (m *Model) refresh(now time.Time) {
	e, ok := m.current()
	if !ok {
		m.state = stateFailed
		m.err = fmt.Errorf("nothing to show")
		return
	}
	res, settled := m.request().Ready()
	if !settled {
		m.state = stateLoading
		return
	}
	if res.Err != nil {
		m.state = stateFailed
		m.err = res.Err
		return
	}

	var tex mediacache.Texture
	switch img := res.Value.(type) {
	case mediacache.StaticImage:
		tex = img.Texture
		m.frame, m.frames = 0, 1
	case *mediacache.Animation:
		tex = m.source.Frame(e.URL, img, now).Texture
		m.frames = img.NumFrames()
		if st, ok := m.lastIndex(e.URL); ok {
			m.frame = st
		}
	default:
		m.state = stateFailed
		m.err = fmt.Errorf("unexpected media %T", res.Value)
		return
	}

	if !m.ready {
		m.state = stateReady
		return
	}
	out, err := m.painter.RenderTexture(tex, m.imageCols(), m.imageRows())
	if err != nil {
		m.state = stateFailed
		m.err = err
		return
	}
	m.state = stateReady
	m.body = out
	m.err = nil
}

// lastIndex reads the playback position when the source exposes it.
func (m *Model) lastIndex(url string) (int, bool) {
	pi, ok := m.source.(interface {
		PlaybackIndex(url string) (int, bool)
	})
	if !ok {
		return 0, false
	}
	return pi.PlaybackIndex(url)
}

func (m *Model) imageCols() int {
	cols := max(m.width, 1)
	if m.opts.MaxCols > 0 {
		cols = min(cols, m.opts.MaxCols)
	}
	return cols
}

// imageRows leaves one line for the status bar.
func (m *Model) imageRows() int {
	rows := max(m.height-1, 1)
	if m.opts.MaxRows > 0 {
		rows = min(rows, m.opts.MaxRows)
	}
	return rows
}
