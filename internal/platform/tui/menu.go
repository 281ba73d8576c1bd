package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Screen names a top-level screen reachable from the menu.
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenLocal
	ScreenOnline
	ScreenHistory
)

// MenuItem represents a selectable entry in the menu.
type MenuItem struct {
	Screen Screen
	Title  string
}

// MenuModel is the Bubble Tea model for the main menu.
type MenuModel struct {
	items    []MenuItem
	cursor   int
	width    int
	height   int
	notice   string
	quitting bool
	selected *MenuItem // Set when user picks an entry
}

// NewMenuModel creates a new menu model. Online play is listed only when
// a coordinator is available.
func NewMenuModel(online bool, width, height int) MenuModel {
	items := []MenuItem{{Screen: ScreenLocal, Title: "Local match (shared keyboard)"}}
	if online {
		items = append(items, MenuItem{Screen: ScreenOnline, Title: "Online match"})
	}
	items = append(items, MenuItem{Screen: ScreenHistory, Title: "Match history"})

	return MenuModel{
		items:  items,
		width:  width,
		height: height,
	}
}

// WithNotice shows a one-line message under the title.
func (m MenuModel) WithNotice(s string) MenuModel {
	m.notice = s
	return m
}

// Init initializes the menu model.
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu.
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input for menu navigation.
func (m MenuModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch MapKeyToMenuAction(msg) {
	case MenuActionQuit:
		m.quitting = true
		return m, tea.Quit

	case MenuActionUp:
		if m.cursor > 0 {
			m.cursor--
		}

	case MenuActionDown:
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case MenuActionSelect:
		selected := m.items[m.cursor]
		m.selected = &selected
	}

	return m, nil
}

// View renders the menu.
func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(centerText("  P A D C L A S H  ", m.width))
	b.WriteString("\n\n")
	if m.notice != "" {
		b.WriteString(centerText(m.notice, m.width))
		b.WriteString("\n\n")
	}

	for i, item := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(centerText(fmt.Sprintf("%s%s", cursor, item.Title), m.width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(centerText("Up/Down: Navigate  |  Enter: Select  |  Q: Quit", m.width))
	b.WriteString("\n")

	return b.String()
}

// Selected returns the selected menu item, or nil if none selected.
func (m MenuModel) Selected() *MenuItem {
	return m.selected
}

// IsQuitting returns true if user requested to quit.
func (m MenuModel) IsQuitting() bool {
	return m.quitting
}

// centerText centers text within given width.
func centerText(text string, width int) string {
	n := len([]rune(text))
	if n >= width {
		return text
	}
	return strings.Repeat(" ", (width-n)/2) + text
}
