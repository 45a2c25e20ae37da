package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/snipkit/snipkit/pkg/snippet/node"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("snipkit playground · %s", m.filetype)))
	b.WriteString("\n")

	if m.mode == modeSession {
		b.WriteString(m.sessionView())
	} else {
		b.WriteString(m.triggerView())
	}

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("✗ " + m.errMsg))
	}

	b.WriteString("\n")
	b.WriteString(m.helpView())
	return b.String()
}

func (m Model) triggerView() string {
	var b strings.Builder

	b.WriteString(labelStyle.Render("line:"))
	b.WriteString(" ")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	completions := m.registry.Completions(m.filetype, m.input.Value())
	if len(completions) > 0 {
		b.WriteString(labelStyle.Render("triggers:"))
		b.WriteString("\n")
		for _, c := range completions {
			b.WriteString(fmt.Sprintf("  %-8s %-14s %s\n", c.Trigger, c.Name, labelStyle.Render(c.Description)))
		}
	}

	if m.finalText != "" {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("last result:"))
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(m.finalText))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) sessionView() string {
	var b strings.Builder

	b.WriteString(boxStyle.Render(m.session.Render()))
	b.WriteString("\n\n")

	if stop := m.session.Active(); stop != nil {
		b.WriteString(labelStyle.Render("stop:"))
		b.WriteString(" ")
		b.WriteString(activeStyle.Render(fmt.Sprintf("%s (%s)", node.PathString(node.PathOf(stop)), stop.Kind)))
		b.WriteString("\n")
		if stop.Kind == node.KindInsert {
			b.WriteString(labelStyle.Render("edit:"))
			b.WriteString(" ")
			b.WriteString(m.input.View())
			b.WriteString("\n")
		} else if stop.Kind == node.KindChoice {
			b.WriteString(labelStyle.Render(fmt.Sprintf("choice %d/%d, cycle with ctrl+n/ctrl+p",
				stop.Active+1, len(stop.Kids))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) helpView() string {
	if m.mode == modeSession {
		return helpStyle.Render("tab/shift+tab jump · ctrl+n/ctrl+p cycle · esc abort · ctrl+c quit")
	}
	return helpStyle.Render("enter expand · ctrl+c quit")
}
