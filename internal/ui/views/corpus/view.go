package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	corpusdto "ragstream/internal/modules/corpus/dto"
	apperrors "ragstream/internal/platform/errors"
	"ragstream/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	Status(ctx context.Context, refresh bool) (corpusdto.StatusOutput, error)
	Search(ctx context.Context, query string, n int) ([]corpusdto.PassageOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type StatusLoadedMsg struct {
	Status corpusdto.StatusOutput
	Err    error
}

type SearchDoneMsg struct {
	Query    string
	Passages []corpusdto.PassageOutput
	Err      error
}

// ─── list item ───────────────────────────────────────────────────────────────

type passageItem struct {
	passage corpusdto.PassageOutput
}

func (i passageItem) Title() string {
	first, _, _ := strings.Cut(strings.TrimSpace(i.passage.Content), "\n")
	return first
}
func (i passageItem) Description() string { return i.passage.Source }
func (i passageItem) FilterValue() string { return i.passage.Content }

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port      Port
	input     textinput.Model
	list      list.Model
	spinner   spinner.Model
	status    corpusdto.StatusOutput
	statusErr error
	loading   bool
	width     int
	height    int
}

func New(port Port) Model {
	ti := textinput.New()
	ti.Placeholder = "search passages…"
	ti.Prompt = "/ "
	ti.CharLimit = 1024

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Passages"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{port: port, input: ti, list: l, spinner: sp}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.input.Focus(), m.Refresh())
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(m.width-6, 10)
		m.list.SetSize(m.width, max(m.height-4, 1))
		return m, nil

	case StatusLoadedMsg:
		m.status, m.statusErr = msg.Status, msg.Err
		return m, nil

	case SearchDoneMsg:
		m.loading = false
		if msg.Err != nil {
			m.list.Title = "Passages: " + describeError(msg.Err)
			return m, m.list.SetItems(nil)
		}
		items := make([]list.Item, len(msg.Passages))
		for i, p := range msg.Passages {
			items[i] = passageItem{passage: p}
		}
		m.list.Title = fmt.Sprintf("Passages for %q", msg.Query)
		return m, m.list.SetItems(items)

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return m, m.Search(m.input.Value(), 0)
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Refresh reloads the document count, bypassing the cache.
func (m Model) Refresh() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		status, err := port.Status(context.Background(), true)
		return StatusLoadedMsg{Status: status, Err: err}
	}
}

// Search looks up passages for query. n <= 0 uses the service default.
func (m *Model) Search(query string, n int) tea.Cmd {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	m.loading = true
	m.input.SetValue(query)
	port := m.port
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		passages, err := port.Search(context.Background(), query, n)
		return SearchDoneMsg{Query: query, Passages: passages, Err: err}
	})
}

func (m Model) View() string {
	var status string
	switch {
	case m.statusErr != nil:
		status = theme.Fail.Render("status: " + describeError(m.statusErr))
	case m.status.HasDocuments:
		status = theme.Ok.Render(fmt.Sprintf("%d documents indexed", m.status.DocumentCount))
	default:
		status = theme.Muted.Render("no documents indexed")
	}
	if m.loading {
		status += "  " + m.spinner.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, m.input.View(), "", m.list.View())
}

// describeError prefers the backend's own detail text over the wrapped chain.
func describeError(err error) string {
	if detail := apperrors.DetailOf(err); detail != "" {
		return detail
	}
	return err.Error()
}
