package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	nextTab   key.Binding
	prevTab   key.Binding
	search    key.Binding
	sort      key.Binding
	add       key.Binding
	edit      key.Binding
	delete    key.Binding
	retry     key.Binding
	theme     key.Binding
	nextField key.Binding
	prevField key.Binding
	submit    key.Binding
	back      key.Binding
	yes       key.Binding
	no        key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		nextTab:   key.NewBinding(key.WithKeys("tab", "l"), key.WithHelp("tab/l", "next tab")),
		prevTab:   key.NewBinding(key.WithKeys("shift+tab", "h"), key.WithHelp("shift+tab/h", "prev tab")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		sort:      key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "sort by column")),
		add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		edit:      key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
		delete:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		theme:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		nextField: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		prevField: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		submit:    key.NewBinding(key.WithKeys("enter", "ctrl+s"), key.WithHelp("enter", "save")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:        key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextTab, k.search, k.add, k.edit, k.delete, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.nextTab, k.prevTab},
		{k.search, k.sort, k.retry, k.theme},
		{k.add, k.edit, k.delete},
		{k.help, k.quit},
	}
}
