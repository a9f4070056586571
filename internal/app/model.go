package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/ardu/internal/analysis"
	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/serial"
	"github.com/buckleypaul/ardu/internal/ui"
)

const portPickerID = "port"

type FocusArea int

const (
	FocusSidebar FocusArea = iota
	FocusContent
)

// Status reports what the build orchestrator is doing.
type Status interface {
	IsBuilding() bool
	AnalysisState() analysis.State
}

type portsListedMsg struct {
	ports []serial.PortInfo
	err   error
}

type Model struct {
	pages       map[PageID]Page
	activePage  PageID
	focus       FocusArea
	width       int
	height      int
	showHelp    bool
	picker      *Picker
	pickerReply chan promptReply
	message     string

	dev       *device.Context
	status    Status
	listPorts func() ([]serial.PortInfo, error)
}

func New(pages map[PageID]Page, dev *device.Context, status Status, listPorts func() ([]serial.PortInfo, error)) Model {
	return Model{
		pages:     pages,
		dev:       dev,
		status:    status,
		listPorts: listPorts,
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, p := range m.pages {
		if cmd := p.Init(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) contentSize() (int, int) {
	return m.width - sidebarWidth, m.height - 2 - 1 // status bar + device bar
}

func (m *Model) openPicker(id, title, message string, items []PickerItem) {
	m.picker = NewPicker(id, title)
	m.picker.SetMessage(message)
	m.picker.SetItems(items)
	m.picker.SetSize(m.contentSize())
}

// answerPrompt replies to a pending prompt, if any.
func (m *Model) answerPrompt(value string, ok bool) {
	if m.pickerReply == nil {
		return
	}
	m.pickerReply <- promptReply{value: value, ok: ok}
	m.pickerReply = nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentWidth, contentHeight := m.contentSize()
		for _, p := range m.pages {
			p.SetSize(contentWidth, contentHeight)
		}
		return m, nil

	case promptMsg:
		if m.pickerReply != nil {
			// one prompt at a time
			msg.reply <- promptReply{}
			return m, nil
		}
		m.openPicker(promptPickerID, msg.title, msg.message, Items(msg.items))
		m.pickerReply = msg.reply
		return m, nil

	case OpenPickerMsg:
		// A pending prompt keeps the overlay. Pages still see the request so
		// they can stop waiting for it.
		if m.pickerReply == nil {
			m.openPicker(msg.ID, msg.Title, msg.Message, msg.Items)
		}
		return m.broadcast(msg)

	case portsListedMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Error listing ports: %v", msg.err)
			return m, nil
		}
		if len(msg.ports) == 0 {
			m.message = "No serial port is available."
			return m, nil
		}
		items := make([]PickerItem, len(msg.ports))
		for i, p := range msg.ports {
			items[i] = PickerItem{Label: p.Name, Value: p.Name, Desc: p.Product}
		}
		return m, func() tea.Msg {
			return OpenPickerMsg{ID: portPickerID, Title: "Select Serial Port", Items: items}
		}

	case PickerSelectedMsg:
		m.picker = nil
		switch msg.ID {
		case promptPickerID:
			m.answerPrompt(msg.Value, true)
			return m, nil
		case portPickerID:
			if err := m.dev.SetPort(msg.Value); err != nil {
				m.message = fmt.Sprintf("Error saving port: %v", err)
			}
			return m, nil
		}
		return m.broadcast(msg)

	case PickerClosedMsg:
		m.picker = nil
		if msg.ID == promptPickerID {
			m.answerPrompt("", false)
			return m, nil
		}
		return m.broadcast(msg)

	case tea.KeyMsg:
		// When picker is open, forward all keys to picker
		if m.picker != nil {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}

		// When a page has an active text input, forward all keys
		// directly to the page. Only ctrl+c still quits.
		if m.focus == FocusContent {
			if ic, ok := m.pages[m.activePage].(InputCapturer); ok && ic.InputCaptured() {
				if msg.String() == "ctrl+c" {
					return m, tea.Quit
				}
				page := m.pages[m.activePage]
				newPage, cmd := page.Update(msg)
				m.pages[m.activePage] = newPage
				return m, cmd
			}
		}

		switch {
		case key.Matches(msg, GlobalKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, GlobalKeys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, GlobalKeys.ToggleFocus):
			if m.focus == FocusSidebar {
				m.focus = FocusContent
				return m, nil
			}
			// When content focused, fall through to page handler
		}

		if m.focus == FocusSidebar {
			if key.Matches(msg, GlobalKeys.PortPicker) && m.listPorts != nil {
				m.message = ""
				list := m.listPorts
				return m, func() tea.Msg {
					ports, err := list()
					return portsListedMsg{ports: ports, err: err}
				}
			}
			switch msg.String() {
			case "up":
				m.prevPage()
				return m, nil
			case "down":
				m.nextPage()
				return m, nil
			case "enter", "right":
				m.focus = FocusContent
				return m, nil
			}
			return m, nil
		}

		if msg.String() == "left" {
			m.focus = FocusSidebar
			return m, nil
		}
		page := m.pages[m.activePage]
		newPage, cmd := page.Update(msg)
		m.pages[m.activePage] = newPage
		return m, cmd
	}

	// Non-key messages (command results, channel output, device changes):
	// forward to all pages so responses reach the page that started them
	return m.broadcast(msg)
}

func (m Model) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for id, page := range m.pages {
		newPage, cmd := page.Update(msg)
		m.pages[id] = newPage
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	contentWidth, contentHeight := m.contentSize()
	page := m.pages[m.activePage]

	var settings device.Settings
	if m.dev != nil {
		settings = m.dev.Settings()
	}
	deviceBar := renderDeviceBar(settings, m.status, m.message, m.width, m.focus == FocusSidebar)
	sidebar := renderSidebar(PageOrder, m.activePage, m.pages, contentHeight, m.focus == FocusSidebar)
	content := ui.ContentStyle.
		Width(contentWidth).
		Height(contentHeight).
		Render(page.View())

	if m.picker != nil {
		m.picker.SetSize(contentWidth, contentHeight)
		content = lipgloss.Place(
			contentWidth, contentHeight,
			lipgloss.Center, lipgloss.Center,
			m.picker.View(),
		)
	} else if m.showHelp {
		content = lipgloss.Place(
			contentWidth, contentHeight,
			lipgloss.Center, lipgloss.Center,
			renderHelp(page.ShortHelp()),
		)
	}

	statusBar := renderStatusBar(page.ShortHelp(), m.width, m.focus)

	return renderLayout(deviceBar, sidebar, content, statusBar)
}

func (m *Model) nextPage() {
	for i, id := range PageOrder {
		if id == m.activePage {
			m.activePage = PageOrder[(i+1)%len(PageOrder)]
			return
		}
	}
}

func (m *Model) prevPage() {
	for i, id := range PageOrder {
		if id == m.activePage {
			m.activePage = PageOrder[(i-1+len(PageOrder))%len(PageOrder)]
			return
		}
	}
}
