package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/board"
	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/serial"
	"github.com/buckleypaul/ardu/internal/ui"
)

// BoardLister lists the installed boards.
type BoardLister interface {
	ListAll(ctx context.Context) ([]board.Board, error)
}

// ProgrammerLister lists the programmers a board supports.
type ProgrammerLister interface {
	List(ctx context.Context, fqbn string) ([]board.Programmer, error)
}

type fieldKind int

const (
	fieldPick fieldKind = iota
	fieldText
	fieldCycle
)

type deviceField struct {
	label string
	id    string
	kind  fieldKind
}

var deviceFields = []deviceField{
	{"Sketch", "sketch", fieldPick},
	{"Board", "board", fieldPick},
	{"Configuration", "configuration", fieldText},
	{"Port", "port", fieldPick},
	{"Programmer", "programmer", fieldPick},
	{"Output", "output", fieldText},
	{"Pre-build", "prebuild", fieldText},
	{"Post-build", "postbuild", fieldText},
	{"IntelliSense", "intellisense", fieldCycle},
}

const devicePickerPrefix = "device."

// intelliSenseModes are the values of the per-project override in order.
var intelliSenseModes = []string{"", "enable", "disable"}

// deviceErrMsg reports a failed listing.
type deviceErrMsg struct {
	err error
}

type DevicePage struct {
	ctx         context.Context
	dev         *device.Context
	boards      BoardLister
	programmers ProgrammerLister
	listPorts   func() ([]serial.PortInfo, error)

	cursor        int
	editing       bool
	loading       bool
	input         textinput.Model
	width, height int
	message       string
}

func NewDevicePage(ctx context.Context, dev *device.Context, boards BoardLister, programmers ProgrammerLister, listPorts func() ([]serial.PortInfo, error)) *DevicePage {
	ti := textinput.New()
	ti.CharLimit = 256
	return &DevicePage{
		ctx:         ctx,
		dev:         dev,
		boards:      boards,
		programmers: programmers,
		listPorts:   listPorts,
		input:       ti,
	}
}

func (p *DevicePage) Init() tea.Cmd { return nil }

func (p *DevicePage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case deviceErrMsg:
		p.loading = false
		p.message = fmt.Sprintf("Error: %v", msg.err)
		return p, nil

	case app.OpenPickerMsg:
		p.loading = false
		return p, nil

	case app.PickerSelectedMsg:
		if id, ok := strings.CutPrefix(msg.ID, devicePickerPrefix); ok {
			p.apply(id, msg.Value)
		}
		return p, nil

	case app.DeviceChangedMsg:
		// Values are read from the context on every render; only a pick
		// in flight for a cleared board needs attention.
		if msg.Change.Kind == device.ChangeBoard && msg.Change.Settings.Board == "" && p.loading {
			p.message = "Please select the board type first."
		}
		return p, nil

	case tea.KeyMsg:
		if p.editing {
			switch msg.String() {
			case "enter":
				p.apply(deviceFields[p.cursor].id, strings.TrimSpace(p.input.Value()))
				p.editing = false
				p.input.Blur()
				return p, nil
			case "esc":
				p.editing = false
				p.input.Blur()
				return p, nil
			}
			var cmd tea.Cmd
			p.input, cmd = p.input.Update(msg)
			return p, cmd
		}

		switch msg.String() {
		case "down":
			if p.cursor < len(deviceFields)-1 {
				p.cursor++
			}
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "enter", "e":
			return p, p.activate()
		case "x":
			p.apply(deviceFields[p.cursor].id, "")
		case "r":
			if err := p.dev.Reload(); err != nil {
				p.message = fmt.Sprintf("Error reloading: %v", err)
			} else {
				p.message = "Reloaded " + device.FileName
			}
		}
	}
	return p, nil
}

// activate starts editing the field under the cursor. Pick fields load
// their choices in the background and answer with an OpenPickerMsg.
func (p *DevicePage) activate() tea.Cmd {
	f := deviceFields[p.cursor]
	switch f.kind {
	case fieldText:
		p.editing = true
		p.input.SetValue(p.value(f.id))
		return p.input.Focus()
	case fieldCycle:
		cur := p.value(f.id)
		next := intelliSenseModes[0]
		for i, m := range intelliSenseModes {
			if m == cur {
				next = intelliSenseModes[(i+1)%len(intelliSenseModes)]
			}
		}
		p.apply(f.id, next)
		return nil
	}

	if p.loading {
		return nil
	}
	load := p.loader(f.id)
	if load == nil {
		return nil
	}
	p.loading = true
	p.message = ""
	id, title := devicePickerPrefix+f.id, "Select "+strings.ToLower(f.label)
	return func() tea.Msg {
		items, err := load()
		if err != nil {
			return deviceErrMsg{err: err}
		}
		return app.OpenPickerMsg{ID: id, Title: title, Items: items}
	}
}

func (p *DevicePage) loader(id string) func() ([]app.PickerItem, error) {
	ctx := p.ctx
	switch id {
	case "sketch":
		dev := p.dev
		return func() ([]app.PickerItem, error) {
			paths, err := dev.SketchCandidates()
			if err != nil {
				return nil, err
			}
			return app.Items(paths), nil
		}
	case "board":
		boards := p.boards
		if boards == nil {
			return nil
		}
		return func() ([]app.PickerItem, error) {
			list, err := boards.ListAll(ctx)
			if err != nil {
				return nil, err
			}
			items := make([]app.PickerItem, len(list))
			for i, b := range list {
				items[i] = app.PickerItem{Label: b.Name, Value: b.FQBN, Desc: b.FQBN}
			}
			return items, nil
		}
	case "port":
		listPorts := p.listPorts
		return func() ([]app.PickerItem, error) {
			ports, err := listPorts()
			if err != nil {
				return nil, err
			}
			items := make([]app.PickerItem, len(ports))
			for i, port := range ports {
				items[i] = app.PickerItem{Label: port.Label(), Value: port.Name}
			}
			return items, nil
		}
	case "programmer":
		programmers := p.programmers
		fqbn := p.dev.Settings().Board
		if programmers == nil {
			return nil
		}
		if fqbn == "" {
			p.message = "Please select the board type first."
			return nil
		}
		return func() ([]app.PickerItem, error) {
			list, err := programmers.List(ctx, fqbn)
			if err != nil {
				return nil, err
			}
			items := make([]app.PickerItem, len(list))
			for i, pr := range list {
				items[i] = app.PickerItem{Label: pr.Name, Value: pr.ID, Desc: pr.ID}
			}
			return items, nil
		}
	}
	return nil
}

func (p *DevicePage) value(id string) string {
	s := p.dev.Settings()
	switch id {
	case "sketch":
		return s.Sketch
	case "board":
		return s.Board
	case "configuration":
		return s.Configuration
	case "port":
		return s.Port
	case "programmer":
		return s.Programmer
	case "output":
		return s.Output
	case "prebuild":
		return s.Prebuild
	case "postbuild":
		return s.Postbuild
	case "intellisense":
		return s.IntelliSenseGen
	}
	return ""
}

func (p *DevicePage) apply(id, val string) {
	var err error
	switch id {
	case "sketch":
		err = p.dev.SetSketch(val)
	case "board":
		err = p.dev.SetBoard(val)
	case "configuration":
		err = p.dev.SetConfiguration(val)
	case "port":
		err = p.dev.SetPort(val)
	case "programmer":
		err = p.dev.SetProgrammer(val)
	case "output":
		err = p.dev.SetOutput(val)
	case "prebuild":
		err = p.dev.SetPrebuild(val)
	case "postbuild":
		err = p.dev.SetPostbuild(val)
	case "intellisense":
		err = p.dev.SetIntelliSenseGen(val)
	default:
		return
	}
	if err != nil {
		p.message = fmt.Sprintf("Error saving: %v", err)
		return
	}
	p.message = fmt.Sprintf("%s updated", labelFor(id))
}

func labelFor(id string) string {
	for _, f := range deviceFields {
		if f.id == id {
			return f.label
		}
	}
	return id
}

func (p *DevicePage) View() string {
	var inner strings.Builder

	for i, f := range deviceFields {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("> ")
		}

		val := p.value(f.id)
		if val == "" {
			if f.kind == fieldCycle {
				val = ui.DimStyle.Render("(global setting)")
			} else {
				val = ui.DimStyle.Render("(not set)")
			}
		}

		inner.WriteString(fmt.Sprintf("%s%-16s %s\n", cursor, f.label, val))
	}

	if p.editing {
		inner.WriteString("\n")
		inner.WriteString(fmt.Sprintf("  Edit %s:\n", deviceFields[p.cursor].label))
		inner.WriteString("  " + p.input.View())
		inner.WriteString("\n")
	}

	if p.loading {
		inner.WriteString("\n  " + ui.DimStyle.Render("Loading..."))
	} else if p.message != "" {
		inner.WriteString("\n  " + p.message)
	}

	return ui.Panel("Device ("+device.FileName+")", inner.String(), p.width, 0, false)
}

func (p *DevicePage) Name() string { return "Device" }

func (p *DevicePage) ShortHelp() []key.Binding {
	if p.editing {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "change")),
		key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
}

func (p *DevicePage) InputCaptured() bool {
	return p.editing
}

func (p *DevicePage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
