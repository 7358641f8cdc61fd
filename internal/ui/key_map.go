package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	moveUp   key.Binding
	moveDown key.Binding
	edit     key.Binding
	describe key.Binding
	image    key.Binding
	batch    key.Binding
	export   key.Binding
	add      key.Binding
	delete   key.Binding
	refresh  key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		moveUp:   key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move page up")),
		moveDown: key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move page down")),
		edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit outline")),
		describe: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "generate description")),
		image:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "generate image")),
		batch:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "describe all pages")),
		export:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export deck")),
		add:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new page")),
		delete:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete page")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resync")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.edit, k.describe, k.image, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.moveUp, k.moveDown},
		{k.edit, k.describe, k.image, k.batch},
		{k.add, k.delete, k.export, k.refresh},
		{k.back, k.quit},
	}
}
