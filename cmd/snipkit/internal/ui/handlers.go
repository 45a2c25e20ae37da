package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/snipkit/snipkit/pkg/snippet/engine"
	"github.com/snipkit/snipkit/pkg/snippet/node"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Quit) {
			if m.session != nil {
				m.session.Abort()
			}
			return m, tea.Quit
		}
		if m.mode == modeSession {
			return m.handleSessionKeys(msg)
		}
		return m.handleTriggerKeys(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleTriggerKeys handles input while waiting for a trigger.
func (m Model) handleTriggerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, DefaultKeyMap.Expand) {
		line := m.input.Value()
		def, _, ok := m.registry.Lookup(m.filetype, line)
		if !ok {
			m.errMsg = "no trigger matches"
			return m, nil
		}

		session, err := m.engine.Expand(def.Template, engine.ExpandOpts{LinePrefix: m.linePrefix})
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}

		m.session = session
		m.mode = modeSession
		m.errMsg = ""
		m.finalText = ""
		m.syncInput()
		return m, nil
	}

	m.errMsg = ""
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSessionKeys handles input while a session is live.
func (m Model) handleSessionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Next):
		if _, err := m.session.JumpForward(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		if m.session.State() == engine.StateExited {
			return m.finishSession(), nil
		}
		m.syncInput()
		return m, nil

	case key.Matches(msg, DefaultKeyMap.Prev):
		if _, err := m.session.JumpBackward(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.syncInput()
		return m, nil

	case key.Matches(msg, DefaultKeyMap.CycleFwd):
		return m.cycle(1), nil

	case key.Matches(msg, DefaultKeyMap.CycleBwd):
		return m.cycle(-1), nil

	case key.Matches(msg, DefaultKeyMap.Abort):
		m.session.Abort()
		return m.finishSession(), nil
	}

	// Anything else edits the active stop, when it is editable.
	stop := m.session.Active()
	if stop == nil || stop.Kind != node.KindInsert {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if err := m.session.SetText(m.input.Value()); err != nil {
		m.errMsg = err.Error()
	} else {
		m.errMsg = ""
	}
	return m, cmd
}

func (m Model) cycle(dir int) Model {
	if err := m.session.CycleChoice(dir); err != nil {
		m.errMsg = err.Error()
		return m
	}
	m.errMsg = ""
	m.syncInput()
	return m
}

// finishSession returns to trigger mode, keeping the final text on screen.
func (m Model) finishSession() Model {
	m.finalText = m.session.Render()
	m.session = nil
	m.mode = modeTrigger
	m.input.SetValue("")
	m.input.Placeholder = "type a trigger..."
	m.input.Focus()
	return m
}
