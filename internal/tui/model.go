// Package tui is the terminal rendition of the chat widget: a scrolling
// transcript, a capability picker and a single-line composer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chat-widget/internal/chat"
	"chat-widget/internal/modes"
)

// Messages produced by background commands.
type (
	replyMsg    struct{ err error }
	feedbackMsg struct{ err error }
	pingMsg     struct {
		status string
		err    error
	}
)

type Model struct {
	ctx    context.Context
	client *chat.Client

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries []modes.Entry
	picking bool
	cursor  int
	sending bool
	status  string

	width  int
	height int
	ready  bool
}

func New(ctx context.Context, client *chat.Client) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, Tab for capabilities, /help for commands"
	ti.Prompt = "› "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:      ctx,
		client:   client,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		entries:  client.Catalog().Entries(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.picking {
			return m.updatePicker(msg)
		}
		switch msg.String() {
		case "tab":
			m.openPicker()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "enter":
			return m.submit()
		}
		if m.sending {
			return m, nil
		}

	case replyMsg:
		m.sending = false
		if errors.Is(msg.err, chat.ErrInputDisabled) {
			m.status = "still waiting for the previous reply"
		}
		m.refresh()
		return m, m.input.Focus()

	case feedbackMsg:
		if msg.err != nil {
			m.status = "feedback failed: " + msg.err.Error()
		} else {
			m.status = "feedback sent, thanks"
		}
		return m, nil

	case pingMsg:
		if msg.err != nil {
			m.status = "backend unreachable: " + msg.err.Error()
		} else {
			m.status = "backend status: " + msg.status
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.sending {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles Enter in the composer: slash commands run locally,
// anything else is sent to the backend in the background.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.sending || !m.client.InputEnabled() {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.status = ""
	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}
	m.sending = true
	m.input.Blur()
	m.refresh()
	return m, sendCmd(m.ctx, m.client, text)
}

func (m Model) command(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/mode":
		if len(fields) < 2 {
			m.status = "usage: /mode <" + modeNames() + ">"
			return m, nil
		}
		mode, err := modes.Parse(fields[1])
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.client.SetMode(mode, "")
		m.refresh()
		return m, nil
	case "/feedback":
		if len(fields) < 2 {
			m.status = "usage: /feedback <expected intent> [rating 1-5]"
			return m, nil
		}
		fb := chat.Feedback{ExpectedIntent: fields[1]}
		if len(fields) > 2 {
			r, err := strconv.Atoi(fields[2])
			if err != nil {
				m.status = "rating must be a number from 1 to 5"
				return m, nil
			}
			fb.Rating = r
		}
		return m, feedbackCmd(m.ctx, m.client, fb)
	case "/ping":
		return m, pingCmd(m.ctx, m.client)
	case "/help":
		m.status = "/mode <name>  /feedback <intent> [rating]  /ping  /quit  ·  Tab: capabilities  PgUp/PgDn: scroll"
		return m, nil
	}
	m.status = fmt.Sprintf("unknown command %s, try /help", fields[0])
	return m, nil
}

func (m *Model) openPicker() {
	m.picking = true
	m.cursor = 0
	current := m.client.Mode()
	for i, e := range m.entries {
		if e.Mode == current {
			m.cursor = i
		}
	}
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "esc", "tab":
		m.picking = false
	case "enter":
		e := m.entries[m.cursor]
		m.client.SetMode(e.Mode, e.Label)
		m.picking = false
		m.refresh()
	}
	return m, nil
}

// refresh re-renders the transcript into the viewport and pins it to the
// newest message.
func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.client.Messages(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func sendCmd(ctx context.Context, c *chat.Client, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := c.Send(ctx, text)
		return replyMsg{err: err}
	}
}

func feedbackCmd(ctx context.Context, c *chat.Client, fb chat.Feedback) tea.Cmd {
	return func() tea.Msg {
		return feedbackMsg{err: c.SendFeedback(ctx, fb)}
	}
}

func pingCmd(ctx context.Context, c *chat.Client) tea.Cmd {
	return func() tea.Msg {
		status, err := c.Ping(ctx)
		return pingMsg{status: status, err: err}
	}
}

func modeNames() string {
	names := make([]string, len(modes.All))
	for i, m := range modes.All {
		names[i] = string(m)
	}
	return strings.Join(names, "|")
}
