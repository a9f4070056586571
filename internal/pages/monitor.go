package pages

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wrap"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/serial"
	"github.com/buckleypaul/ardu/internal/store"
	"github.com/buckleypaul/ardu/internal/ui"
)

// SerialConn is the serial monitor connection. *serial.Monitor implements it.
type SerialConn interface {
	Connect(portName string, baudRate int) error
	Disconnect()
	Write(data []byte) error
	DataChan() <-chan string
	Connected() bool
}

type monitorState int

const (
	monitorStatePortSelect monitorState = iota
	monitorStateConnected
)

var baudRates = []int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

const maxMonitorLines = 2000

type monitorConnectedMsg struct {
	portName string
	baudRate int
	err      error
}

type monitorPortsMsg struct {
	ports []serial.PortInfo
	err   error
}

type serialDataMsg string

type MonitorPage struct {
	mon       SerialConn
	listPorts func() ([]serial.PortInfo, error)
	store     *store.Store

	state     monitorState
	ports     []serial.PortInfo
	cursor    int
	baudRate  int
	portName  string
	listening bool

	lines    []string
	partial  string
	viewport viewport.Model
	input    textinput.Model

	width, height int
	message       string
}

func NewMonitorPage(mon SerialConn, baudRate int) *MonitorPage {
	ti := textinput.New()
	ti.Placeholder = "send to device..."
	ti.Prompt = "> "
	ti.CharLimit = 256
	if baudRate <= 0 {
		baudRate = 115200
	}
	return &MonitorPage{
		mon:      mon,
		baudRate: baudRate,
		viewport: viewport.New(0, 0),
		input:    ti,
	}
}

// WithPorts sets the port enumerator used for the port list.
func (p *MonitorPage) WithPorts(list func() ([]serial.PortInfo, error)) *MonitorPage {
	p.listPorts = list
	return p
}

// WithStore records every connection in the history store.
func (p *MonitorPage) WithStore(st *store.Store) *MonitorPage {
	p.store = st
	return p
}

func (p *MonitorPage) Init() tea.Cmd { return p.refreshPorts() }

func (p *MonitorPage) refreshPorts() tea.Cmd {
	list := p.listPorts
	if list == nil {
		return nil
	}
	return func() tea.Msg {
		ports, err := list()
		return monitorPortsMsg{ports: ports, err: err}
	}
}

func (p *MonitorPage) connect(portName string, baudRate int) tea.Cmd {
	mon := p.mon
	if mon == nil {
		return nil
	}
	return func() tea.Msg {
		err := mon.Connect(portName, baudRate)
		return monitorConnectedMsg{portName: portName, baudRate: baudRate, err: err}
	}
}

func (p *MonitorPage) waitForData() tea.Cmd {
	if p.mon == nil || p.listening {
		return nil
	}
	p.listening = true
	ch := p.mon.DataChan()
	return func() tea.Msg {
		return serialDataMsg(<-ch)
	}
}

func (p *MonitorPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case monitorPortsMsg:
		if msg.err != nil {
			p.message = fmt.Sprintf("Error listing ports: %v", msg.err)
			return p, nil
		}
		p.ports = msg.ports
		if p.cursor >= len(p.ports) {
			p.cursor = max(len(p.ports)-1, 0)
		}
		return p, nil

	case app.USBMsg:
		return p, p.refreshPorts()

	case monitorConnectedMsg:
		if msg.err != nil {
			p.message = fmt.Sprintf("Failed to connect: %v", msg.err)
			return p, nil
		}
		p.state = monitorStateConnected
		p.portName = msg.portName
		p.baudRate = msg.baudRate
		p.message = fmt.Sprintf("Connected to %s @ %d", msg.portName, msg.baudRate)
		p.record()
		cmds := []tea.Cmd{p.input.Focus(), textinput.Blink}
		if cmd := p.waitForData(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return p, tea.Batch(cmds...)

	case serialDataMsg:
		p.listening = false
		p.appendData(string(msg))
		return p, p.waitForData()

	case tea.KeyMsg:
		if p.state == monitorStateConnected {
			return p.updateConnected(msg)
		}
		return p.updatePortSelect(msg)
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *MonitorPage) updatePortSelect(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	switch msg.String() {
	case "down":
		if p.cursor < len(p.ports)-1 {
			p.cursor++
		}
	case "up":
		if p.cursor > 0 {
			p.cursor--
		}
	case "b":
		p.baudRate = nextBaud(p.baudRate)
	case "r":
		return p, p.refreshPorts()
	case "enter":
		if p.cursor < len(p.ports) {
			name := p.ports[p.cursor].Name
			p.message = fmt.Sprintf("Connecting to %s...", name)
			return p, p.connect(name, p.baudRate)
		}
	}
	return p, nil
}

func (p *MonitorPage) updateConnected(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if p.mon != nil {
			p.mon.Disconnect()
		}
		p.state = monitorStatePortSelect
		p.input.Blur()
		p.message = fmt.Sprintf("Disconnected from %s", p.portName)
		return p, nil
	case "enter":
		text := p.input.Value()
		p.input.SetValue("")
		if p.mon == nil {
			return p, nil
		}
		if err := p.mon.Write([]byte(text + "\n")); err != nil {
			p.message = fmt.Sprintf("Write failed: %v", err)
		}
		return p, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return p, cmd
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *MonitorPage) record() {
	if p.store == nil {
		return
	}
	_ = p.store.AddSerialLog(store.SerialLog{
		ID:        uuid.NewString(),
		Port:      p.portName,
		BaudRate:  p.baudRate,
		Timestamp: time.Now(),
	})
}

// appendData splits incoming chunks into lines. A trailing fragment is held
// until its line ending arrives.
func (p *MonitorPage) appendData(data string) {
	atBottom := p.viewport.AtBottom()
	data = strings.ReplaceAll(p.partial+data, "\r\n", "\n")
	parts := strings.Split(data, "\n")
	p.partial = parts[len(parts)-1]
	p.lines = append(p.lines, parts[:len(parts)-1]...)
	if n := len(p.lines) - maxMonitorLines; n > 0 {
		p.lines = p.lines[n:]
	}
	p.updateViewportContent()
	if atBottom {
		p.viewport.GotoBottom()
	}
}

func (p *MonitorPage) updateViewportContent() {
	content := strings.Join(append(p.lines[:len(p.lines):len(p.lines)], p.partial), "\n")
	if p.viewport.Width > 0 {
		content = wrap.String(content, p.viewport.Width)
	}
	p.viewport.SetContent(content)
}

func nextBaud(cur int) int {
	for i, b := range baudRates {
		if b == cur {
			return baudRates[(i+1)%len(baudRates)]
		}
	}
	return baudRates[0]
}

func (p *MonitorPage) View() string {
	if p.state == monitorStateConnected {
		return p.viewConnected()
	}

	var inner strings.Builder
	inner.WriteString(fmt.Sprintf("Baud rate: %s\n\n", ui.Value(fmt.Sprint(p.baudRate))))
	if len(p.ports) == 0 {
		inner.WriteString(ui.DimStyle.Render("No serial ports found"))
		inner.WriteString("\n")
	}
	for i, port := range p.ports {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("> ")
		}
		inner.WriteString(cursor + port.Label() + "\n")
	}
	if p.message != "" {
		inner.WriteString("\n" + p.message)
	}
	return ui.Panel("Serial Monitor", inner.String(), p.width, 0, false)
}

func (p *MonitorPage) viewConnected() string {
	status := ui.Badge("connected", ui.Success)
	if p.mon != nil && !p.mon.Connected() {
		// An upload closes the port and reopens it when done.
		status = ui.Badge("paused", ui.Warning)
	}
	header := fmt.Sprintf("%s %s @ %d", status, p.portName, p.baudRate)

	height := p.height - 4
	if height < 3 {
		height = 3
	}
	width := p.width - 2
	if width < 10 {
		width = 10
	}
	if p.viewport.Width != width {
		p.viewport.Width = width
		p.updateViewportContent()
	}
	p.viewport.Height = height

	body := p.viewport.View()
	if len(p.lines) == 0 && p.partial == "" {
		body = ui.DimStyle.Render("Waiting for data...")
	}
	box := lipgloss.NewStyle().
		Width(p.width).
		Height(height).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderTop(true).
		BorderForeground(ui.Surface).
		Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, box, p.input.View())
}

func (p *MonitorPage) Name() string { return "Monitor" }

func (p *MonitorPage) ShortHelp() []key.Binding {
	if p.state == monitorStateConnected {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
			key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "disconnect")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
		key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "baud rate")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

// InputCaptured keeps typed text out of the global shortcuts while
// connected.
func (p *MonitorPage) InputCaptured() bool {
	return p.state == monitorStateConnected
}

func (p *MonitorPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
