package pages

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/store"
	"github.com/buckleypaul/ardu/internal/ui"
)

type historyLoadedMsg struct {
	builds []store.BuildRecord
	err    error
}

type HistoryPage struct {
	store         *store.Store
	builds        []store.BuildRecord
	cursor        int
	width, height int
	message       string
}

func NewHistoryPage(st *store.Store) *HistoryPage {
	return &HistoryPage{store: st}
}

func (p *HistoryPage) Init() tea.Cmd { return p.load() }

func (p *HistoryPage) load() tea.Cmd {
	st := p.store
	if st == nil {
		return nil
	}
	return func() tea.Msg {
		builds, err := st.Builds()
		return historyLoadedMsg{builds: builds, err: err}
	}
}

func (p *HistoryPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.err != nil {
			p.message = fmt.Sprintf("Error loading history: %v", msg.err)
			return p, nil
		}
		// Newest first.
		p.builds = make([]store.BuildRecord, len(msg.builds))
		for i, b := range msg.builds {
			p.builds[len(msg.builds)-1-i] = b
		}
		if p.cursor >= len(p.builds) {
			p.cursor = max(len(p.builds)-1, 0)
		}
		p.message = ""
		return p, nil

	case buildFinishedMsg:
		return p, p.load()

	case tea.KeyMsg:
		switch msg.String() {
		case "down":
			if p.cursor < len(p.builds)-1 {
				p.cursor++
			}
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "r":
			return p, p.load()
		}
	}
	return p, nil
}

func (p *HistoryPage) View() string {
	var inner strings.Builder

	if len(p.builds) == 0 {
		inner.WriteString(ui.DimStyle.Render("No builds yet"))
		inner.WriteString("\n")
	}

	sketchWidth := p.width - 70
	if sketchWidth < 12 {
		sketchWidth = 12
	}

	for i, b := range p.builds {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("> ")
		}
		status := ui.ResultBadge(b.Success, b.ExitCode)
		sketch := runewidth.FillRight(runewidth.Truncate(b.Sketch, sketchWidth, "…"), sketchWidth)
		inner.WriteString(fmt.Sprintf("%s%s  %-26s %s %-8s %s\n",
			cursor,
			b.Timestamp.Format("2006-01-02 15:04:05"),
			b.Mode,
			sketch,
			b.Duration,
			status,
		))
	}

	if len(p.builds) > 0 && p.cursor < len(p.builds) {
		b := p.builds[p.cursor]
		inner.WriteString("\n")
		inner.WriteString(fmt.Sprintf("  Board:  %s\n", ui.Value(b.Board)))
		inner.WriteString(fmt.Sprintf("  Port:   %s\n", ui.Value(b.Port)))
		inner.WriteString(fmt.Sprintf("  Output: %s\n", ui.Value(b.BuildDir)))
	}

	if p.message != "" {
		inner.WriteString("\n  " + p.message)
	}

	return ui.Panel("Build History", inner.String(), p.width, 0, false)
}

func (p *HistoryPage) Name() string { return "History" }

func (p *HistoryPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "select")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

func (p *HistoryPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
