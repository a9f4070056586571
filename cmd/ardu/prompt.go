package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/buckleypaul/ardu/internal/app"
)

// cliPrompter asks questions with a one-shot picker. Without a terminal
// every prompt is declined.
type cliPrompter struct {
	interactive bool
}

func newCLIPrompter() *cliPrompter {
	return &cliPrompter{
		interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (p *cliPrompter) Confirm(ctx context.Context, msg string) bool {
	v, ok := p.pick(ctx, "Confirm", msg, []string{"Yes", "No"})
	return ok && v == "Yes"
}

func (p *cliPrompter) Pick(ctx context.Context, title string, items []string) (string, bool) {
	return p.pick(ctx, title, "", items)
}

func (p *cliPrompter) pick(ctx context.Context, title, message string, items []string) (string, bool) {
	if !p.interactive {
		return "", false
	}

	picker := app.NewPicker("cli", title)
	picker.SetMessage(message)
	picker.SetItems(app.Items(items))

	final, err := tea.NewProgram(&pickModel{picker: picker}, tea.WithContext(ctx)).Run()
	if err != nil {
		return "", false
	}
	m := final.(*pickModel)
	return m.value, m.ok
}

type pickModel struct {
	picker *app.Picker
	value  string
	ok     bool
	done   bool
}

func (m *pickModel) Init() tea.Cmd { return nil }

func (m *pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.picker.SetSize(msg.Width, msg.Height)
		return m, nil
	case app.PickerSelectedMsg:
		m.value, m.ok, m.done = msg.Value, true, true
		return m, tea.Quit
	case app.PickerClosedMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *pickModel) View() string {
	if m.done {
		return ""
	}
	return m.picker.View() + "\n"
}
