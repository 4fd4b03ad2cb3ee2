package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	launch  key.Binding
	install key.Binding
	back    key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		launch:  key.NewBinding(key.WithKeys("l", "enter"), key.WithHelp("l/enter", "launch")),
		install: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "install only")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// bindings returns the keys shown in the help line of view v.
func (k keyMap) bindings(v ViewState) []key.Binding {
	switch v {
	case InstanceListView:
		return []key.Binding{k.enter, k.quit}
	case ConfirmView:
		return []key.Binding{k.launch, k.install, k.back, k.quit}
	case ResultView:
		return []key.Binding{k.restart, k.quit}
	case GameView:
		return nil
	}
	return []key.Binding{k.quit}
}
