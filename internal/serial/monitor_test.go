package serial

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort implements the parts of serial.Port the monitor uses.
type fakePort struct {
	serial.Port

	mu      sync.Mutex
	written []byte
	closed  chan struct{}
	once    sync.Once
	data    chan []byte
}

func newFakePort() *fakePort {
	return &fakePort{closed: make(chan struct{}), data: make(chan []byte, 4)}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case d := <-p.data:
		return copy(b, d), nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

type opener struct {
	ports []*fakePort
	modes []*serial.Mode
	names []string
	err   error
}

func (o *opener) open(name string, mode *serial.Mode) (serial.Port, error) {
	if o.err != nil {
		return nil, o.err
	}
	p := newFakePort()
	o.ports = append(o.ports, p)
	o.modes = append(o.modes, mode)
	o.names = append(o.names, name)
	return p, nil
}

func TestConnectReadWrite(t *testing.T) {
	o := &opener{}
	m := NewMonitorWithOpener(o.open)

	require.NoError(t, m.Connect("/dev/ttyACM0", 9600))
	assert.True(t, m.Connected())
	assert.Equal(t, 9600, o.modes[0].BaudRate)

	o.ports[0].data <- []byte("hello\n")
	select {
	case got := <-m.DataChan():
		assert.Equal(t, "hello\n", got)
	case <-time.After(time.Second):
		t.Fatal("no data received")
	}

	require.NoError(t, m.Write([]byte("ping")))
	assert.Equal(t, "ping", string(o.ports[0].written))

	m.Disconnect()
	assert.False(t, m.Connected())
	assert.ErrorIs(t, m.Write([]byte("x")), io.ErrClosedPipe)
}

func TestCloseOnlyMatchingPort(t *testing.T) {
	o := &opener{}
	m := NewMonitorWithOpener(o.open)
	require.NoError(t, m.Connect("COM3", 115200))

	wasOpen, err := m.Close("COM4")
	require.NoError(t, err)
	assert.False(t, wasOpen)
	assert.True(t, m.Connected())

	wasOpen, err = m.Close("COM3")
	require.NoError(t, err)
	assert.True(t, wasOpen)
	assert.False(t, m.Connected())

	wasOpen, _ = m.Close("COM3")
	assert.False(t, wasOpen, "already closed")
}

func TestReopenUsesLastSettings(t *testing.T) {
	o := &opener{}
	m := NewMonitorWithOpener(o.open)
	assert.Error(t, m.Reopen(), "nothing to reopen yet")

	require.NoError(t, m.Connect("COM3", 57600))
	_, _ = m.Close("")
	require.NoError(t, m.Reopen())

	assert.True(t, m.Connected())
	assert.Equal(t, []string{"COM3", "COM3"}, o.names)
	assert.Equal(t, 57600, o.modes[1].BaudRate)
}

func TestConnectError(t *testing.T) {
	m := NewMonitorWithOpener((&opener{err: errors.New("busy")}).open)
	assert.Error(t, m.Connect("COM1", 9600))
	assert.False(t, m.Connected())
}

func TestPortInfoLabel(t *testing.T) {
	assert.Equal(t, "COM3 (Arduino Uno)", PortInfo{Name: "COM3", Product: "Arduino Uno"}.Label())
	assert.Equal(t, "/dev/ttyUSB0 (USB 1a86:7523)", PortInfo{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1a86", PID: "7523"}.Label())
	assert.Equal(t, "/dev/ttyS0", PortInfo{Name: "/dev/ttyS0"}.Label())
}
