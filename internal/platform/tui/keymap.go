package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/padclash/internal/game"
)

// GameKeyMap holds the in-match bindings. In a local match each player has
// a side of the keyboard; online, either side drives your own player.
type GameKeyMap struct {
	P1Left  key.Binding
	P1Right key.Binding
	P1Jump  key.Binding
	P2Left  key.Binding
	P2Right key.Binding
	P2Jump  key.Binding
	Back    key.Binding
	Quit    key.Binding
	Help    key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k GameKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.P1Left, k.P1Right, k.P1Jump, k.P2Jump, k.Back, k.Help}
}

// FullHelp returns key bindings for the full help view.
func (k GameKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.P1Left, k.P1Right, k.P1Jump},
		{k.P2Left, k.P2Right, k.P2Jump},
		{k.Back, k.Quit, k.Help},
	}
}

// DefaultGameKeyMap returns the default bindings.
func DefaultGameKeyMap() GameKeyMap {
	return GameKeyMap{
		P1Left:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "P1 left")),
		P1Right: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "P1 right")),
		P1Jump:  key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "P1 jump/claim")),
		P2Left:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "P2 left")),
		P2Right: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "P2 right")),
		P2Jump:  key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "P2 jump/claim")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// online relabels the bindings for a single player.
func (k GameKeyMap) online() GameKeyMap {
	k.P1Left = key.NewBinding(key.WithKeys("a", "left"), key.WithHelp("a/←", "left"))
	k.P1Right = key.NewBinding(key.WithKeys("d", "right"), key.WithHelp("d/→", "right"))
	k.P1Jump = key.NewBinding(key.WithKeys("w", "up"), key.WithHelp("w/↑", "jump/claim"))
	k.P2Left.SetEnabled(false)
	k.P2Right.SetEnabled(false)
	k.P2Jump.SetEnabled(false)
	return k
}

// Local maps a key to the player and input field it presses.
func (k GameKeyMap) Local(msg tea.KeyMsg) (game.PlayerID, game.InputField, bool) {
	switch {
	case key.Matches(msg, k.P1Left):
		return game.Player1, game.FieldLeft, true
	case key.Matches(msg, k.P1Right):
		return game.Player1, game.FieldRight, true
	case key.Matches(msg, k.P1Jump):
		return game.Player1, game.FieldAction, true
	case key.Matches(msg, k.P2Left):
		return game.Player2, game.FieldLeft, true
	case key.Matches(msg, k.P2Right):
		return game.Player2, game.FieldRight, true
	case key.Matches(msg, k.P2Jump):
		return game.Player2, game.FieldAction, true
	}
	return 0, 0, false
}

// Online maps a key to an input field of the local player.
func (k GameKeyMap) Online(msg tea.KeyMsg) (game.InputField, bool) {
	_, field, ok := k.Local(msg)
	return field, ok
}

// MenuAction represents a menu-specific action derived from input.
type MenuAction int

const (
	MenuActionNone MenuAction = iota
	MenuActionUp
	MenuActionDown
	MenuActionSelect
	MenuActionBack
	MenuActionQuit
)

// MapKeyToMenuAction translates a key to a menu action.
func MapKeyToMenuAction(msg tea.KeyMsg) MenuAction {
	switch msg.String() {
	case "ctrl+c", "q":
		return MenuActionQuit
	case "w", "up", "k":
		return MenuActionUp
	case "s", "down", "j":
		return MenuActionDown
	case "enter", " ":
		return MenuActionSelect
	case "b", "esc":
		return MenuActionBack
	}
	return MenuActionNone
}
