package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/snipkit/snipkit/pkg/registry"
	"github.com/snipkit/snipkit/pkg/snippet/engine"
	"github.com/snipkit/snipkit/pkg/snippet/node"
)

// mode is the playground's current screen
type mode int

const (
	// modeTrigger - typing a line, waiting for a trigger to expand
	modeTrigger mode = iota
	// modeSession - a live session is active, editing stops
	modeSession
)

// KeyMap defines the playground key bindings
type KeyMap struct {
	Expand   key.Binding
	Next     key.Binding
	Prev     key.Binding
	CycleFwd key.Binding
	CycleBwd key.Binding
	Abort    key.Binding
	Quit     key.Binding
}

// DefaultKeyMap is the standard set of key bindings
var DefaultKeyMap = KeyMap{
	Expand:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand")),
	Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next stop")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous stop")),
	CycleFwd: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next choice")),
	CycleBwd: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "previous choice")),
	Abort:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "abort session")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// Model represents the playground state
type Model struct {
	registry   *registry.Registry
	engine     *engine.Engine
	filetype   string
	linePrefix string

	mode    mode
	input   textinput.Model
	session *engine.Session

	// finalText holds the render of the last exited session.
	finalText string
	errMsg    string

	width  int
	height int
}

// NewModel creates a playground over a registry.
func NewModel(reg *registry.Registry, filetype, linePrefix string) Model {
	input := textinput.New()
	input.Placeholder = "type a trigger..."
	input.Focus()

	return Model{
		registry:   reg,
		engine:     engine.New(),
		filetype:   filetype,
		linePrefix: linePrefix,
		input:      input,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// activeText returns the editable text of the current stop, empty for
// non-insert stops.
func (m Model) activeText() string {
	if m.session == nil {
		return ""
	}
	stop := m.session.Active()
	if stop == nil || stop.Kind != node.KindInsert {
		return ""
	}
	return strings.Join(stop.Lines, "\n")
}

// syncInput points the text input at the current stop.
func (m *Model) syncInput() {
	stop := m.session.Active()
	if stop != nil && stop.Kind == node.KindInsert {
		m.input.Placeholder = ""
		m.input.SetValue(m.activeText())
		m.input.CursorEnd()
		m.input.Focus()
	} else {
		m.input.SetValue("")
		m.input.Blur()
	}
}
