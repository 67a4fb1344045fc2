package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Next    key.Binding
	Back    key.Binding
	Refresh key.Binding
	Inc     key.Binding
	Dec     key.Binding
	Remove  key.Binding
	Notes   key.Binding
	New     key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
	Down:    key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
	Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next step")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Refresh: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload stock")),
	Inc:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "one more")),
	Dec:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "one less")),
	Remove:  key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
	Notes:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notes")),
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new order")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k keyMap) customerHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Quit}
}

func (k keyMap) productHelp() []key.Binding {
	return []key.Binding{k.Select, k.Next, k.Back, k.Refresh, k.Quit}
}

func (k keyMap) reviewHelp() []key.Binding {
	return []key.Binding{k.Select, k.Inc, k.Dec, k.Remove, k.Notes, k.Back, k.Quit}
}

func (k keyMap) doneHelp() []key.Binding {
	return []key.Binding{k.New, k.Quit}
}
