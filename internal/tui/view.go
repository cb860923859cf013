package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chat-widget/internal/chat"
	"chat-widget/internal/store"
)

// chromeHeight is the number of rows taken by everything but the transcript.
const chromeHeight = 6

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	modeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	avatarStyle    = lipgloss.NewStyle().Bold(true).Width(4)
	intentStyle    = lipgloss.NewStyle().Faint(true).Italic(true).PaddingLeft(4)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	pickerStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
)

func (m Model) View() string {
	if !m.ready {
		return "starting…"
	}
	var b strings.Builder

	header := titleStyle.Render("Assistant") + "  " + modeStyle.Render("Active mode: "+m.client.ModeLabel())
	if sid := m.client.SessionID(); sid != "" {
		if len(sid) > 8 {
			sid = sid[:8]
		}
		header += helpStyle.Render("  session " + sid)
	}
	b.WriteString(header + "\n\n")

	if m.picking {
		b.WriteString(m.pickerView())
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	if m.sending {
		b.WriteString(m.spinner.View() + " waiting for the assistant…")
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	} else {
		b.WriteString(helpStyle.Render("enter send · tab capabilities · /help · ctrl+c quit"))
	}
	return b.String()
}

func (m Model) pickerView() string {
	var b strings.Builder
	b.WriteString("Capabilities\n")
	current := m.client.Mode()
	for i, e := range m.entries {
		line := "  " + e.Label
		if e.Mode == current {
			line += " ✓"
		}
		if i == m.cursor {
			line = selectedStyle.Render("› " + strings.TrimPrefix(line, "  "))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move · enter select · esc close"))
	return pickerStyle.Render(b.String())
}

func renderTranscript(msgs []store.Message, width int) string {
	if width <= 0 {
		width = 80
	}
	bodyWidth := max(width-4, 10)
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		style := assistantStyle
		if msg.Role == store.RoleUser {
			style = userStyle
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top,
			avatarStyle.Render(chat.Avatar(msg.Role)),
			style.Width(bodyWidth).Render(msg.Content),
		)
		b.WriteString(row)
		if msg.Role == store.RoleAssistant && msg.Intent != nil {
			b.WriteString("\n" + intentStyle.Render(chat.FormatIntent(msg.Intent)))
		}
	}
	return b.String()
}
