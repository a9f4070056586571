package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings that work on every page.
type KeyMap struct {
	ToggleFocus key.Binding
	PortPicker  key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var GlobalKeys = KeyMap{
	ToggleFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
	PortPicker:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "port (sidebar)")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Bindings lists the global keys in display order.
func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.ToggleFocus, k.PortPicker, k.Help, k.Quit}
}
