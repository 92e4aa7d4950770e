package upload

import (
	"context"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	ingestdto "ragstream/internal/modules/ingest/dto"
	"ragstream/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	Upload(ctx context.Context, path string) (ingestdto.AttemptOutput, error)
	Latest(ctx context.Context) (ingestdto.AttemptOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

// UploadedMsg carries the outcome of an upload. Err is set only when no
// attempt could be made (bad path, overlap, storage failure).
type UploadedMsg struct {
	Attempt ingestdto.AttemptOutput
	Err     error
}

type latestLoadedMsg struct {
	attempt ingestdto.AttemptOutput
	err     error
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the drop zone. Terminals paste the path of a file dropped onto
// them, so a paste submits immediately; typed paths submit on enter.
type Model struct {
	port      Port
	input     textinput.Model
	spinner   spinner.Model
	uploading bool
	last      ingestdto.AttemptOutput
	status    string
	width     int
	height    int
}

func New(port Port) Model {
	ti := textinput.New()
	ti.Placeholder = "drop a .txt, .md, .json or .pdf file here, or type its path"
	ti.CharLimit = 4096
	ti.Prompt = "› "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{port: port, input: ti, spinner: sp}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.input.Focus(), m.loadLatestCmd())
}

func (m Model) Uploading() bool { return m.uploading }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(m.width-12, 10)

	case latestLoadedMsg:
		if msg.err == nil {
			m.last = msg.attempt
			m.status = msg.attempt.Message
		}
		return m, nil

	case UploadedMsg:
		m.uploading = false
		if msg.Err != nil {
			m.status = "Error uploading file: " + msg.Err.Error()
			return m, nil
		}
		m.last = msg.Attempt
		m.status = msg.Attempt.Message
		m.input.SetValue("")
		return m, nil

	case spinner.TickMsg:
		if m.uploading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.uploading {
			return m, nil
		}
		if msg.Paste {
			m.input.SetValue(NormalizeDroppedPath(string(msg.Runes)))
			return m, m.Submit(m.input.Value())
		}
		if msg.Type == tea.KeyEnter {
			return m, m.Submit(m.input.Value())
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Submit starts an upload of path. It is a no-op while one is running.
func (m *Model) Submit(path string) tea.Cmd {
	path = NormalizeDroppedPath(path)
	if path == "" || m.uploading {
		return nil
	}
	m.uploading = true
	m.status = "Reading file..."
	port := m.port
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		attempt, err := port.Upload(context.Background(), path)
		return UploadedMsg{Attempt: attempt, Err: err}
	})
}

func (m Model) View() string {
	zoneW := max(m.width-4, 20)
	var body strings.Builder
	body.WriteString(theme.Title.Render("Drop a document") + "\n\n")
	body.WriteString(m.input.View() + "\n")
	zone := theme.DropZone.Width(zoneW).Render(body.String())

	var status string
	switch {
	case m.uploading:
		status = m.spinner.View() + " " + m.status
	case m.last.Succeeded && m.status == m.last.Message:
		status = theme.Ok.Render("✓ "+m.status) + "  " + theme.Muted.Render(m.last.FileName)
	case m.status != "":
		status = theme.Fail.Render(m.status)
	default:
		status = theme.Muted.Render("No document uploaded yet.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, zone, "", status)
}

func (m Model) loadLatestCmd() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		attempt, err := port.Latest(context.Background())
		return latestLoadedMsg{attempt: attempt, err: err}
	}
}

// NormalizeDroppedPath undoes the quoting terminals apply to dropped paths:
// surrounding quotes, backslash-escaped spaces and file:// URLs.
func NormalizeDroppedPath(raw string) string {
	path := strings.TrimSpace(raw)
	if len(path) >= 2 && (path[0] == '\'' || path[0] == '"') && path[len(path)-1] == path[0] {
		path = path[1 : len(path)-1]
	}
	if strings.HasPrefix(path, "file://") {
		if u, err := url.Parse(path); err == nil {
			path = u.Path
		}
	}
	return strings.ReplaceAll(path, `\ `, " ")
}
