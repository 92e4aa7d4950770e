package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	corpusdto "ragstream/internal/modules/corpus/dto"
	ingestdto "ragstream/internal/modules/ingest/dto"
	querydto "ragstream/internal/modules/query/dto"
	"ragstream/internal/ui/components"
	"ragstream/internal/ui/theme"
	chatview "ragstream/internal/ui/views/chat"
	corpusview "ragstream/internal/ui/views/corpus"
	uploadview "ragstream/internal/ui/views/upload"
)

// ─── ports ───────────────────────────────────────────────────────────────────
// Each port is the minimal interface that this orchestration layer requires.
// Sub-view ports are defined in their own packages and narrowed further.

type ingestPort interface {
	Upload(ctx context.Context, path string) (ingestdto.AttemptOutput, error)
	Latest(ctx context.Context) (ingestdto.AttemptOutput, error)
	Ready(ctx context.Context) (bool, error)
}

type queryPort interface {
	Ask(ctx context.Context, query string) (querydto.AskOutput, error)
	Cancel(ctx context.Context) bool
}

type corpusPort interface {
	Status(ctx context.Context, refresh bool) (corpusdto.StatusOutput, error)
	Search(ctx context.Context, query string, n int) ([]corpusdto.PassageOutput, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabUpload tabID = iota
	tabChat
	tabCorpus
	tabCount
)

var tabLabels = [tabCount]string{
	"Upload", "Ask", "Corpus",
}

// ─── async messages ───────────────────────────────────────────────────────────

type readyLoadedMsg struct {
	ready bool
	err   error
}

type cancelledMsg struct{ cancelled bool }

// subscriptionClosedMsg arrives once the event channel is closed.
type subscriptionClosedMsg struct{}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Submit  key.Binding
	Newline key.Binding
	Cancel  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch tab")),
		Help:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Palette: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Newline: key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel stream")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Submit, k.Newline},
		{k.Cancel},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, readiness, the
// global help overlay, and the command palette. All business logic is
// delegated to port interfaces; all rendering is delegated to sub-views.
type Model struct {
	ingest ingestPort
	query  queryPort
	events <-chan querydto.StreamEvent

	uploadView uploadview.Model
	chatView   chatview.Model
	corpusView corpusview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	status    string
	width     int
	height    int
}

// ─── constructor ─────────────────────────────────────────────────────────────

// NewModel builds the root model. events is a query session subscription;
// the model drains it for as long as the program runs.
func NewModel(ingest ingestPort, query queryPort, corpus corpusPort, events <-chan querydto.StreamEvent) Model {
	return Model{
		ingest:     ingest,
		query:      query,
		events:     events,
		uploadView: uploadview.New(ingest),
		chatView:   chatview.New(query),
		corpusView: corpusview.New(corpus),
		activeTab:  tabUpload,
		keys:       defaultKeys(),
		help:       help.New(),
		palette:    components.NewPalette(),
		status:     "ready",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.uploadView.Init(),
		m.chatView.Init(),
		m.loadReadyCmd(),
		m.waitForEventCmd(),
	)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Stream events must keep flowing while the palette is open.
	if ev, ok := msg.(chatview.StreamEventMsg); ok {
		return m.handleStreamEvent(ev)
	}

	// The palette intercepts all input while open.
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case readyLoadedMsg:
		if msg.err != nil {
			m.status = "readiness check: " + msg.err.Error()
			return m, nil
		}
		return m, m.chatView.SetReady(msg.ready)

	case uploadview.UploadedMsg:
		var cmd tea.Cmd
		m.uploadView, cmd = m.uploadView.Update(msg)
		cmds = append(cmds, cmd, m.loadReadyCmd())
		if msg.Err == nil && msg.Attempt.Succeeded {
			m.status = msg.Attempt.Message
			m.activeTab = tabChat
			cmds = append(cmds, m.corpusView.Refresh())
		}
		return m, tea.Batch(cmds...)

	case corpusview.StatusLoadedMsg, corpusview.SearchDoneMsg:
		var cmd tea.Cmd
		m.corpusView, cmd = m.corpusView.Update(msg)
		return m, cmd

	case cancelledMsg:
		if msg.cancelled {
			m.status = "stream cancelled"
		} else {
			m.status = "nothing to cancel"
		}
		return m, nil

	case subscriptionClosedMsg:
		m.events = nil
		return m, nil

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "f1" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case "f1":
			m.showHelp = true
			return m, nil
		case "ctrl+p":
			return m, m.palette.Open()
		}
	}

	// Everything else goes to the active tab's sub-view. Async results from
	// views that are not on screen still need routing, so non-key messages
	// reach every view.
	if _, isKey := msg.(tea.KeyMsg); isKey {
		var cmd tea.Cmd
		switch m.activeTab {
		case tabUpload:
			m.uploadView, cmd = m.uploadView.Update(msg)
		case tabChat:
			m.chatView, cmd = m.chatView.Update(msg)
		case tabCorpus:
			m.corpusView, cmd = m.corpusView.Update(msg)
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.uploadView, cmd = m.uploadView.Update(msg)
	cmds = append(cmds, cmd)
	m.chatView, cmd = m.chatView.Update(msg)
	cmds = append(cmds, cmd)
	m.corpusView, cmd = m.corpusView.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleStreamEvent(ev chatview.StreamEventMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.chatView, cmd = m.chatView.Update(ev)
	if ev.Event.Closed() {
		if ev.Event.Session.Complete {
			m.status = "answer complete"
		} else {
			m.status = "answer incomplete: " + ev.Event.Session.Termination
		}
	}
	return m, tea.Batch(cmd, m.waitForEventCmd())
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	tabBarH := lipgloss.Height(tabBar)
	statusBarH := lipgloss.Height(statusBar)

	contentH := m.height - tabBarH - statusBarH
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = m.activeView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabUpload:
		return m.uploadView.View()
	case tabChat:
		return m.chatView.View()
	case tabCorpus:
		return m.corpusView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	sep := theme.Muted.Render(" │ ")
	bar := "ragstream  " + strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	var badge string
	switch {
	case m.uploadView.Uploading():
		badge = theme.Hot.Render("● uploading")
	case m.chatView.Streaming():
		badge = theme.Hot.Render("● streaming")
	case m.chatView.Ready():
		badge = theme.Ok.Render("● ready")
	default:
		badge = theme.Warn.Render("○ no document")
	}
	left := badge + "  " + m.status
	right := theme.Muted.Render("f1:help  tab:switch  ctrl+p:palette  ctrl+c:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), parts[0]))

	switch parts[0] {
	case "upload":
		if rest == "" {
			m.status = "usage: upload <path>"
			return m, nil
		}
		m.activeTab = tabUpload
		if m.uploadView.Uploading() {
			m.status = "an upload is already running"
			return m, nil
		}
		return m, m.uploadView.Submit(rest)

	case "search":
		if rest == "" {
			m.status = "usage: search <query>"
			return m, nil
		}
		m.activeTab = tabCorpus
		return m, m.corpusView.Search(rest, 0)

	case "status":
		m.activeTab = tabCorpus
		return m, m.corpusView.Refresh()

	case "cancel":
		query := m.query
		return m, func() tea.Msg {
			return cancelledMsg{cancelled: query.Cancel(context.Background())}
		}

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.uploadView, _ = m.uploadView.Update(sz)
	m.chatView, _ = m.chatView.Update(sz)
	m.corpusView, _ = m.corpusView.Update(sz)
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) loadReadyCmd() tea.Cmd {
	ingest := m.ingest
	return func() tea.Msg {
		ready, err := ingest.Ready(context.Background())
		return readyLoadedMsg{ready: ready, err: err}
	}
}

func (m Model) waitForEventCmd() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return subscriptionClosedMsg{}
		}
		return chatview.StreamEventMsg{Event: ev}
	}
}
