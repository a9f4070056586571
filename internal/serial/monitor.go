package serial

import (
	"io"
	"sync"

	"go.bug.st/serial"
)

// Opener opens a serial port. Tests replace it with an in-memory port.
type Opener func(name string, mode *serial.Mode) (serial.Port, error)

// Monitor manages the serial monitor connection. The build orchestrator
// closes it before an upload and reopens it afterwards.
type Monitor struct {
	open Opener

	mu       sync.Mutex
	port     serial.Port
	portName string
	baudRate int
	running  bool
	dataCh   chan string
	done     chan struct{}
}

// NewMonitor creates a serial monitor backed by go.bug.st/serial.
func NewMonitor() *Monitor {
	return NewMonitorWithOpener(serial.Open)
}

func NewMonitorWithOpener(open Opener) *Monitor {
	return &Monitor{
		open:   open,
		dataCh: make(chan string, 64),
		done:   make(chan struct{}),
	}
}

// Connect opens portName at baudRate, 8N1. An open connection is closed
// first.
func (m *Monitor) Connect(portName string, baudRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(portName, baudRate)
}

func (m *Monitor) connectLocked(portName string, baudRate int) error {
	if m.running {
		m.disconnectLocked()
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := m.open(portName, mode)
	if err != nil {
		return err
	}

	m.port = port
	m.portName = portName
	m.baudRate = baudRate
	m.running = true
	m.done = make(chan struct{})

	go m.readLoop(port, m.done)
	return nil
}

// Disconnect closes the serial port.
func (m *Monitor) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked()
}

func (m *Monitor) disconnectLocked() {
	if !m.running {
		return
	}
	m.running = false
	close(m.done)
	if m.port != nil {
		m.port.Close()
		m.port = nil
	}
}

// Close disconnects if the monitor is open on port (or on any port when
// port is empty) and reports whether it was open.
func (m *Monitor) Close(port string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return false, nil
	}
	if port != "" && port != m.portName {
		return false, nil
	}
	m.disconnectLocked()
	return true, nil
}

// Reopen connects again with the last used port and baud rate.
func (m *Monitor) Reopen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.portName == "" {
		return io.ErrClosedPipe
	}
	return m.connectLocked(m.portName, m.baudRate)
}

// Write sends data to the serial port.
func (m *Monitor) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.port == nil {
		return io.ErrClosedPipe
	}
	_, err := m.port.Write(data)
	return err
}

// DataChan returns the channel that receives serial data.
func (m *Monitor) DataChan() <-chan string {
	return m.dataCh
}

// Connected returns whether the monitor is connected.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// PortName returns the last connected port.
func (m *Monitor) PortName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portName
}

func (m *Monitor) readLoop(port serial.Port, done chan struct{}) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			select {
			case m.dataCh <- string(buf[:n]):
			default:
				// Drop data if channel is full
			}
		}
	}
}
