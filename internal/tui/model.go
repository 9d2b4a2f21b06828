package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
)

// Asker is the session-facing subset of the assistant.
type Asker interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
}

const (
	welcome          = "Ask questions about your documents. Type help for commands."
	farewell         = "Goodbye."
	noResultsMessage = "No relevant information found in the indexed documents."

	helpText = `Commands:
  help        show this message
  quit        leave the session (also: exit, bye)

Anything else is answered from the indexed documents.`
)

// Model is the Bubble Tea model for the question session. Questions run
// synchronously inside Update; the session is single-user and blocking.
type Model struct {
	assistant Asker
	renderer  *renderer
	input     textinput.Model
	viewport  viewport.Model
	history   []string
	status    string
	ready     bool
}

// New creates a session over an assistant. The status line shows what the
// session is answering from.
func New(assistant Asker, chunkCount int, fingerprint string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		assistant: assistant,
		renderer:  newRenderer(80),
		input:     ti,
		viewport:  vp,
		history:   []string{welcome},
		status:    fmt.Sprintf("%d chunks indexed | %s | help for commands", chunkCount, fingerprint),
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		tw, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - th
		m.viewport.Width = max(20, msg.Width-tw)
		m.viewport.Height = max(3, vh)
		m.renderer = newRenderer(m.viewport.Width - 2)
		m.viewport.SetContent(strings.Join(m.history, "\n\n"))
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.pushSection(farewell)
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.input.Reset()
			switch strings.ToLower(q) {
			case "quit", "exit", "bye":
				m.pushSection(farewell)
				return m, tea.Quit
			case "help":
				m.pushSection(helpText)
				return m, nil
			}
			m.runQuestion(q)
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// runQuestion asks the assistant and appends the exchange to the transcript.
func (m *Model) runQuestion(q string) {
	prompt := questionStyle.Render("> " + q)
	ans, err := m.assistant.Ask(context.Background(), q)
	switch {
	case errors.Is(err, domain.ErrNoResults):
		m.pushSection(prompt + "\n" + noResultsMessage)
	case err != nil:
		m.pushSection(prompt + "\n" + errorStyle.Render("Error: "+err.Error()))
	default:
		section := prompt + "\n" + m.renderer.render(ans.Text)
		if src := formatSources(ans.Sources); src != "" {
			section += "\n" + sourceStyle.Render(src)
		}
		m.pushSection(section)
	}
}

func (m *Model) pushSection(section string) {
	m.history = append(m.history, section)
	m.viewport.SetContent(strings.Join(m.history, "\n\n"))
	m.viewport.GotoBottom()
}

// View renders the session layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("docchat")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

// formatSources lists each cited source page once, in rank order.
func formatSources(sources []domain.ScoredChunk) string {
	if len(sources) == 0 {
		return ""
	}
	type key struct {
		source string
		page   int
	}
	seen := make(map[key]struct{}, len(sources))
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		k := key{s.Source, s.Page}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		parts = append(parts, fmt.Sprintf("%s p.%d (%.2f)", s.Source, s.Page, s.Score))
	}
	return "Sources: " + strings.Join(parts, ", ")
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
