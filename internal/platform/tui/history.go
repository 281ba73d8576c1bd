package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/padclash/internal/storage"
)

// maxMatches is how many recordings the history screen loads.
const maxMatches = 100

// HistoryKeyMap defines the key bindings for the match history.
type HistoryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Reload key.Binding
	Back   key.Binding
	Quit   key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Reload, k.Back}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Reload},
		{k.Back, k.Quit},
	}
}

// DefaultHistoryKeyMap returns default key bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc/b", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HistoryModel lists recorded matches.
type HistoryModel struct {
	store     *storage.Store
	matches   []storage.MatchRecord
	loadErr   error
	table     table.Model
	help      help.Model
	keys      HistoryKeyMap
	width     int
	height    int
	quitting  bool
	goingBack bool
}

// NewHistoryModel creates the history screen. store may be nil.
func NewHistoryModel(store *storage.Store, width, height int) HistoryModel {
	h := help.New()
	h.Width = width

	m := HistoryModel{
		store:  store,
		keys:   DefaultHistoryKeyMap(),
		help:   h,
		width:  width,
		height: height,
	}
	m.table = m.createTable()
	m.load()
	return m
}

// historyColumns are the table columns, shared with the plain listing.
var historyColumns = []table.Column{
	{Title: "Match", Width: 28},
	{Title: "Mode", Width: 8},
	{Title: "Started", Width: 12},
	{Title: "Result", Width: 18},
	{Title: "Score", Width: 5},
	{Title: "Ticks", Width: 7},
	{Title: "Final hash", Width: 16},
}

func (m *HistoryModel) createTable() table.Model {
	t := table.New(
		table.WithColumns(historyColumns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-6, 3)), // Leave room for title, help, and margins
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func (m *HistoryModel) load() {
	m.matches, m.loadErr = nil, nil
	if m.store != nil {
		m.matches, m.loadErr = m.store.RecentMatches(maxMatches)
	}
	rows := make([]table.Row, len(m.matches))
	for i, rec := range m.matches {
		rows[i] = HistoryRow(rec)
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// HistoryRow formats one recording in column order.
func HistoryRow(rec storage.MatchRecord) table.Row {
	result, score, ticks, hash := "in progress", "-", "-", "-"
	if rec.Finished() {
		result = rec.EndReason
		score = fmt.Sprintf("%d-%d", rec.Score1, rec.Score2)
		ticks = fmt.Sprintf("%d", rec.Ticks)
		hash = fmt.Sprintf("%016x", rec.FinalHash)
	}
	return table.Row{
		rec.MatchID,
		rec.Mode,
		rec.StartedAt.Local().Format("Jan 02 15:04"),
		result,
		score,
		ticks,
		hash,
	}
}

// Init initializes the model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			m.goingBack = true
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			m.load()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(m.height-6, 3))
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history.
func (m HistoryModel) View() string {
	if m.quitting || m.goingBack {
		return ""
	}

	var b strings.Builder
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229"))
	b.WriteString(titleStyle.Render(centerText("MATCH HISTORY", m.width)))
	b.WriteString("\n\n")

	tableStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	b.WriteString(tableStyle.Render(m.tableContent()))
	b.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m HistoryModel) tableContent() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(1, 4)
	switch {
	case m.store == nil:
		return emptyStyle.Render("Recording is disabled.")
	case m.loadErr != nil:
		return emptyStyle.Render("Cannot load matches: " + m.loadErr.Error())
	case len(m.matches) == 0:
		return emptyStyle.Render("No matches recorded yet.")
	}
	return m.table.View()
}

// Matches returns the loaded recordings.
func (m HistoryModel) Matches() []storage.MatchRecord { return m.matches }

// IsGoingBack returns true if user wants to go back to menu.
func (m HistoryModel) IsGoingBack() bool { return m.goingBack }

// IsQuitting returns true if user wants to quit entirely.
func (m HistoryModel) IsQuitting() bool { return m.quitting }

// HistoryHeaders returns the column titles in HistoryRow order.
func HistoryHeaders() []string {
	out := make([]string, len(historyColumns))
	for i, c := range historyColumns {
		out[i] = c.Title
	}
	return out
}

// historyOnly quits instead of returning to a menu.
type historyOnly struct {
	HistoryModel
}

func (m historyOnly) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.HistoryModel.Update(msg)
	m.HistoryModel = next.(HistoryModel)
	if m.IsGoingBack() {
		return m, tea.Quit
	}
	return m, cmd
}

// RunHistory shows the match history on its own.
func RunHistory(store *storage.Store, width, height int) error {
	p := tea.NewProgram(historyOnly{NewHistoryModel(store, width, height)}, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
