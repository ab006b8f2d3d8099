package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the scoreboard.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	PressA key.Binding
	PressB key.Binding
	Log    key.Binding
	Escape key.Binding
	Resync key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev node"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next node"),
		),
		PressA: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "press side a"),
		),
		PressB: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "press side b"),
		),
		Log: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "event log"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Resync: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "resync"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
