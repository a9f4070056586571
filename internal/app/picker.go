package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/buckleypaul/ardu/internal/ui"
)

// PickerItem represents a selectable item in the picker.
type PickerItem struct {
	Label string // Display text
	Value string // Selection value
	Desc  string // Optional secondary text
}

// PickerSelectedMsg is sent when the user selects an item.
type PickerSelectedMsg struct {
	ID    string
	Value string
}

// PickerClosedMsg is sent when the user closes the picker without selecting.
type PickerClosedMsg struct {
	ID string
}

// Picker is a filtered-list overlay component.
type Picker struct {
	id       string
	title    string
	message  string
	items    []PickerItem
	filtered []PickerItem
	input    textinput.Model
	cursor   int
	width    int
	height   int
}

const maxPickerItems = 12

// NewPicker creates a new picker overlay. id is echoed in the messages the
// picker sends.
func NewPicker(id, title string) *Picker {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 128

	return &Picker{
		id:    id,
		title: title,
		input: ti,
	}
}

// ID returns the identifier the picker was created with.
func (p *Picker) ID() string { return p.id }

// SetMessage sets text shown above the filter input.
func (p *Picker) SetMessage(msg string) {
	p.message = msg
}

// SetItems populates the picker with items.
func (p *Picker) SetItems(items []PickerItem) {
	p.items = items
	p.filter()
}

// SetSize sets the available dimensions.
func (p *Picker) SetSize(w, h int) {
	p.width = w
	p.height = h
}

// Selected returns the item under the cursor.
func (p *Picker) Selected() (PickerItem, bool) {
	if p.cursor < len(p.filtered) {
		return p.filtered[p.cursor], true
	}
	return PickerItem{}, false
}

// Update handles input for the picker.
func (p *Picker) Update(msg tea.Msg) (*Picker, tea.Cmd) {
	id := p.id
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return p, func() tea.Msg { return PickerClosedMsg{ID: id} }
		case "enter":
			if item, ok := p.Selected(); ok {
				return p, func() tea.Msg { return PickerSelectedMsg{ID: id, Value: item.Value} }
			}
			return p, nil
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil
		case "down":
			if p.cursor < len(p.filtered)-1 {
				p.cursor++
			}
			return p, nil
		}
	}

	// Forward other keys to text input
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	p.filter()
	return p, cmd
}

// View renders the picker overlay.
func (p *Picker) View() string {
	boxWidth := p.width - 4
	if boxWidth > 64 {
		boxWidth = 64
	}
	if boxWidth < 30 {
		boxWidth = 30
	}

	innerWidth := boxWidth - 4 // border + padding

	var b strings.Builder

	if p.message != "" {
		b.WriteString(wordwrap.String(p.message, innerWidth))
		b.WriteString("\n\n")
	}

	p.input.Width = innerWidth - 3 // account for prompt "> "
	b.WriteString(p.input.View())
	b.WriteString("\n\n")

	visible := maxPickerItems
	if visible > len(p.filtered) {
		visible = len(p.filtered)
	}

	// Scroll window around cursor
	start := 0
	if p.cursor >= visible {
		start = p.cursor - visible + 1
	}
	end := start + visible
	if end > len(p.filtered) {
		end = len(p.filtered)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	selectedStyle := lipgloss.NewStyle().Foreground(ui.Primary).Bold(true)

	for i := start; i < end; i++ {
		item := p.filtered[i]
		label := runewidth.Truncate(item.Label, innerWidth-4, "…")
		if room := innerWidth - 6 - runewidth.StringWidth(label); item.Desc != "" && room > 3 {
			label += "  " + ui.DimStyle.Render(runewidth.Truncate(item.Desc, room, "…"))
		}

		if i == p.cursor {
			b.WriteString(selectedStyle.Render("> ") + label)
		} else {
			b.WriteString("  " + label)
		}
		b.WriteString("\n")
	}

	if len(p.filtered) == 0 {
		b.WriteString(ui.DimStyle.Render("  No matches"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	footer := fmt.Sprintf("(%d/%d)  enter:select  esc:close", len(p.filtered), len(p.items))
	b.WriteString(ui.DimStyle.Render(footer))

	box := lipgloss.NewStyle().
		Width(boxWidth).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ui.Primary).
		Padding(1, 1).
		Render(b.String())

	title := lipgloss.NewStyle().
		Foreground(ui.Primary).
		Bold(true).
		Render(" " + p.title + " ")

	return title + "\n" + box
}

// filter ranks items by fuzzy distance to the query. Ties keep the
// original order.
func (p *Picker) filter() {
	query := p.input.Value()
	if query == "" {
		p.filtered = p.items
	} else {
		labels := make([]string, len(p.items))
		for i, item := range p.items {
			labels[i] = item.Label
		}
		ranks := fuzzy.RankFindNormalizedFold(query, labels)
		sort.SliceStable(ranks, func(i, j int) bool {
			if ranks[i].Distance != ranks[j].Distance {
				return ranks[i].Distance < ranks[j].Distance
			}
			return ranks[i].OriginalIndex < ranks[j].OriginalIndex
		})
		p.filtered = make([]PickerItem, 0, len(ranks))
		for _, r := range ranks {
			p.filtered = append(p.filtered, p.items[r.OriginalIndex])
		}
	}
	if p.cursor >= len(p.filtered) {
		p.cursor = len(p.filtered) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// Items converts plain strings to picker items.
func Items(values []string) []PickerItem {
	items := make([]PickerItem, len(values))
	for i, v := range values {
		items[i] = PickerItem{Label: v, Value: v}
	}
	return items
}
