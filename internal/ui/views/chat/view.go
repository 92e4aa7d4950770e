package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	querydto "ragstream/internal/modules/query/dto"
	apperrors "ragstream/internal/platform/errors"
	"ragstream/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	Ask(ctx context.Context, query string) (querydto.AskOutput, error)
	Cancel(ctx context.Context) bool
}

// ─── messages ────────────────────────────────────────────────────────────────

// StreamEventMsg wraps one event from the query session subscription. The root
// model pumps these in; this view only renders them.
type StreamEventMsg struct {
	Event querydto.StreamEvent
}

type askedMsg struct {
	out querydto.AskOutput
	err error
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port     Port
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	ready   bool
	session querydto.SessionOutput
	notice  string
	width   int
	height  int
}

func New(port Port) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question about your document…"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 4000
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(0),
	)

	return Model{
		port:     port,
		input:    ta,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		renderer: r,
	}
}

func (m Model) Init() tea.Cmd { return nil }

// SetReady gates the question input on a successful upload.
func (m *Model) SetReady(ready bool) tea.Cmd {
	m.ready = ready
	if ready {
		m.notice = ""
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

func (m Model) Ready() bool { return m.ready }

func (m Model) Streaming() bool { return m.session.Active }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(max(m.width-4, 10))
		m.resize()
		m.refresh()
		return m, nil

	case askedMsg:
		switch {
		case msg.err == nil && !msg.out.Started:
			// empty question
		case errors.Is(msg.err, apperrors.ErrSessionActive):
			m.notice = "A response is still streaming. Press esc to cancel it."
		case errors.Is(msg.err, apperrors.ErrNotReady):
			m.notice = "Upload a document before asking."
		case msg.err != nil:
			m.notice = "Error: " + msg.err.Error()
		default:
			m.input.Reset()
			m.notice = ""
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case StreamEventMsg:
		m.session = msg.Event.Session
		if msg.Event.Closed() {
			m.notice = ""
		}
		m.refresh()
		if msg.Event.Fragment != "" {
			m.viewport.GotoBottom()
		}
		return m, nil

	case spinner.TickMsg:
		if m.session.Active {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.session.Active {
				port := m.port
				return m, func() tea.Msg {
					port.Cancel(context.Background())
					return nil
				}
			}
		case "enter":
			if !m.ready {
				m.notice = "Upload a document before asking."
				return m, nil
			}
			return m, m.Ask(m.input.Value())
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if !m.ready {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// Ask submits question. Blank questions are ignored by the query module.
func (m Model) Ask(question string) tea.Cmd {
	port := m.port
	return func() tea.Msg {
		out, err := port.Ask(context.Background(), question)
		return askedMsg{out: out, err: err}
	}
}

func (m Model) View() string {
	header := theme.Title.Render("Ask")
	if !m.ready {
		header += "  " + theme.Warn.Render("upload a document to enable questions")
	}

	status := m.renderStatus()
	inputBox := theme.Pane.Width(max(m.width-2, 10)).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		inputBox,
	)
}

func (m Model) renderStatus() string {
	switch {
	case m.notice != "":
		return theme.Warn.Render(m.notice)
	case m.session.Active:
		return m.spinner.View() + " " + theme.Muted.Render("streaming… esc to cancel")
	case m.session.ID == "":
		return ""
	case m.session.Complete:
		return theme.Ok.Render("✓ complete")
	default:
		return theme.Fail.Render("⚠ incomplete: " + terminationLabel(m.session))
	}
}

func (m *Model) resize() {
	inputH := 5
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = max(m.height-inputH-2, 1)
}

func (m *Model) refresh() {
	if m.session.ID == "" {
		m.viewport.SetContent(theme.Muted.Render("Answers appear here as they stream in."))
		return
	}
	var b strings.Builder
	b.WriteString(theme.Hot.Render("› "+m.session.Query) + "\n\n")
	b.WriteString(m.renderAnswer())
	m.viewport.SetContent(b.String())
}

// renderAnswer shows raw text while streaming and markdown once the
// session is over, so partial markup never reflows mid-stream.
func (m Model) renderAnswer() string {
	if m.session.Active || m.renderer == nil {
		return lipgloss.NewStyle().Width(max(m.width-2, 10)).Render(m.session.Answer)
	}
	out, err := m.renderer.Render(m.session.Answer)
	if err != nil {
		return m.session.Answer
	}
	return out
}

func terminationLabel(s querydto.SessionOutput) string {
	label := strings.ReplaceAll(s.Termination, "_", " ")
	if s.Cause != "" {
		label += " (" + s.Cause + ")"
	}
	return label
}
