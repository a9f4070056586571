package pages

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/serial"
	"github.com/buckleypaul/ardu/internal/store"
	"github.com/buckleypaul/ardu/internal/usb"
)

type fakeConn struct {
	connected bool
	port      string
	baud      int
	written   []string
	data      chan string
	err       error
}

func newFakeConn() *fakeConn { return &fakeConn{data: make(chan string, 4)} }

func (c *fakeConn) Connect(port string, baud int) error {
	if c.err != nil {
		return c.err
	}
	c.connected, c.port, c.baud = true, port, baud
	return nil
}

func (c *fakeConn) Disconnect()             { c.connected = false }
func (c *fakeConn) DataChan() <-chan string { return c.data }
func (c *fakeConn) Connected() bool         { return c.connected }

func (c *fakeConn) Write(b []byte) error {
	c.written = append(c.written, string(b))
	return nil
}

func TestMonitorPageAppliesConnectedStateFromMessage(t *testing.T) {
	p := NewMonitorPage(nil, 115200)

	page, cmd := p.Update(monitorConnectedMsg{
		portName: "tty.usbmodem123",
		baudRate: 115200,
	})
	updated := page.(*MonitorPage)

	if updated.state != monitorStateConnected {
		t.Fatalf("expected connected state, got %v", updated.state)
	}
	if !updated.input.Focused() {
		t.Fatal("expected input to be focused")
	}
	if !strings.Contains(updated.message, "Connected to tty.usbmodem123 @ 115200") {
		t.Fatalf("unexpected status message: %q", updated.message)
	}
	if cmd == nil {
		t.Fatal("expected follow-up command to be scheduled")
	}
}

func TestMonitorPageConnectErrorUpdatesMessage(t *testing.T) {
	p := NewMonitorPage(nil, 115200)

	page, _ := p.Update(monitorConnectedMsg{err: errors.New("permission denied")})
	updated := page.(*MonitorPage)

	if updated.state != monitorStatePortSelect {
		t.Fatalf("expected to remain in port select state, got %v", updated.state)
	}
	if !strings.Contains(updated.message, "Failed to connect: permission denied") {
		t.Fatalf("unexpected status message: %q", updated.message)
	}
}

func TestMonitorPageConnectsToSelectedPort(t *testing.T) {
	conn := newFakeConn()
	st := store.New(t.TempDir())
	p := NewMonitorPage(conn, 9600).WithStore(st)
	p.Update(monitorPortsMsg{ports: []serial.PortInfo{{Name: "/dev/ttyS0"}, {Name: "/dev/ttyACM0"}}})

	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a connect command")
	}
	msg := cmd()
	p.Update(msg)

	if conn.port != "/dev/ttyACM0" || conn.baud != 9600 {
		t.Fatalf("connected to %s @ %d", conn.port, conn.baud)
	}
	if p.state != monitorStateConnected {
		t.Fatal("expected connected state")
	}

	logs, err := st.SerialLogs()
	if err != nil {
		t.Fatalf("SerialLogs() error: %v", err)
	}
	if len(logs) != 1 || logs[0].Port != "/dev/ttyACM0" || logs[0].BaudRate != 9600 {
		t.Fatalf("unexpected serial logs: %+v", logs)
	}
}

func TestMonitorPageBuffersPartialLines(t *testing.T) {
	conn := newFakeConn()
	p := NewMonitorPage(conn, 115200)
	p.Update(monitorConnectedMsg{portName: "COM3", baudRate: 115200})

	p.Update(serialDataMsg("hel"))
	p.Update(serialDataMsg("lo\r\nwor"))

	if len(p.lines) != 1 || p.lines[0] != "hello" {
		t.Fatalf("lines = %q", p.lines)
	}
	if p.partial != "wor" {
		t.Fatalf("partial = %q", p.partial)
	}
}

func TestMonitorPageSendAndDisconnect(t *testing.T) {
	conn := newFakeConn()
	p := NewMonitorPage(conn, 115200)
	conn.connected = true
	p.Update(monitorConnectedMsg{portName: "COM3", baudRate: 115200})

	p.input.SetValue("ping")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(conn.written) != 1 || conn.written[0] != "ping\n" {
		t.Fatalf("written = %q", conn.written)
	}
	if p.input.Value() != "" {
		t.Fatal("expected input to be cleared after sending")
	}

	p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if conn.connected {
		t.Fatal("expected connection to be closed")
	}
	if p.state != monitorStatePortSelect || p.InputCaptured() {
		t.Fatal("expected to return to port selection")
	}
}

func TestMonitorPageCyclesBaudRate(t *testing.T) {
	p := NewMonitorPage(nil, 115200)
	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	if p.baudRate != 230400 {
		t.Fatalf("baud = %d", p.baudRate)
	}

	p.baudRate = 921600
	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	if p.baudRate != 9600 {
		t.Fatalf("expected wrap to 9600, got %d", p.baudRate)
	}
}

func TestMonitorPageRefreshesPortsOnUSBEvent(t *testing.T) {
	calls := 0
	list := func() ([]serial.PortInfo, error) {
		calls++
		return []serial.PortInfo{{Name: "/dev/ttyUSB0"}}, nil
	}
	p := NewMonitorPage(nil, 115200).WithPorts(list)

	_, cmd := p.Update(app.USBMsg{Event: usb.Event{Kind: usb.Added, Port: serial.PortInfo{Name: "/dev/ttyUSB0"}}})
	if cmd == nil {
		t.Fatal("expected a refresh command")
	}
	p.Update(cmd())

	if calls != 1 || len(p.ports) != 1 {
		t.Fatalf("calls=%d ports=%v", calls, p.ports)
	}
}
