package pages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/board"
	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/serial"
)

type fakeBoards struct {
	boards []board.Board
	err    error
}

func (f fakeBoards) ListAll(context.Context) ([]board.Board, error) { return f.boards, f.err }

type fakeProgrammers struct {
	fqbn string
}

func (f *fakeProgrammers) List(_ context.Context, fqbn string) ([]board.Programmer, error) {
	f.fqbn = fqbn
	return []board.Programmer{{ID: "usbasp", Name: "USBasp"}}, nil
}

func newDevicePage(t *testing.T, boards BoardLister, programmers ProgrammerLister) (*DevicePage, *device.Context) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "blink.ino"), []byte("void setup(){}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dev, err := device.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ports := func() ([]serial.PortInfo, error) {
		return []serial.PortInfo{{Name: "/dev/ttyACM0", Product: "Uno"}}, nil
	}
	return NewDevicePage(context.Background(), dev, boards, programmers, ports), dev
}

func cursorTo(p *DevicePage, id string) {
	for i, f := range deviceFields {
		if f.id == id {
			p.cursor = i
		}
	}
}

// openPicker activates the field under the cursor and returns the picker
// request it produces.
func openPicker(t *testing.T, p *DevicePage) app.OpenPickerMsg {
	t.Helper()
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(app.OpenPickerMsg)
	if !ok {
		t.Fatalf("expected OpenPickerMsg, got %T", msg)
	}
	p.Update(msg)
	return msg
}

func TestDevicePagePicksBoard(t *testing.T) {
	boards := fakeBoards{boards: []board.Board{
		{Name: "Arduino Uno", FQBN: "arduino:avr:uno"},
		{Name: "Arduino Nano", FQBN: "arduino:avr:nano"},
	}}
	p, dev := newDevicePage(t, boards, nil)
	cursorTo(p, "board")

	msg := openPicker(t, p)
	if msg.ID != "device.board" || len(msg.Items) != 2 || msg.Items[1].Value != "arduino:avr:nano" {
		t.Fatalf("unexpected picker request: %+v", msg)
	}

	p.Update(app.PickerSelectedMsg{ID: msg.ID, Value: "arduino:avr:nano"})
	if got := dev.Settings().Board; got != "arduino:avr:nano" {
		t.Fatalf("board = %q", got)
	}

	reopened, err := device.Open(dev.Root())
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Settings().Board != "arduino:avr:nano" {
		t.Fatal("expected board to be persisted")
	}
}

func TestDevicePagePicksPortAndSketch(t *testing.T) {
	p, dev := newDevicePage(t, nil, nil)

	cursorTo(p, "port")
	msg := openPicker(t, p)
	if len(msg.Items) != 1 || msg.Items[0].Label != "/dev/ttyACM0 (Uno)" {
		t.Fatalf("port items = %+v", msg.Items)
	}
	p.Update(app.PickerSelectedMsg{ID: msg.ID, Value: msg.Items[0].Value})

	cursorTo(p, "sketch")
	msg = openPicker(t, p)
	if len(msg.Items) != 1 || msg.Items[0].Value != "blink.ino" {
		t.Fatalf("sketch items = %+v", msg.Items)
	}
	p.Update(app.PickerSelectedMsg{ID: msg.ID, Value: msg.Items[0].Value})

	s := dev.Settings()
	if s.Port != "/dev/ttyACM0" || s.Sketch != "blink.ino" {
		t.Fatalf("settings = %+v", s)
	}
}

func TestDevicePageProgrammerNeedsBoard(t *testing.T) {
	progs := &fakeProgrammers{}
	p, dev := newDevicePage(t, nil, progs)
	cursorTo(p, "programmer")

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no listing without a board")
	}
	if !strings.Contains(p.message, "select the board type first") {
		t.Fatalf("message = %q", p.message)
	}

	if err := dev.SetBoard("arduino:avr:uno"); err != nil {
		t.Fatal(err)
	}
	msg := openPicker(t, p)
	if progs.fqbn != "arduino:avr:uno" || msg.Items[0].Value != "usbasp" {
		t.Fatalf("fqbn=%q items=%+v", progs.fqbn, msg.Items)
	}
}

func TestDevicePageListingError(t *testing.T) {
	p, _ := newDevicePage(t, fakeBoards{err: errors.New("arduino-cli not found")}, nil)
	cursorTo(p, "board")

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p.Update(cmd())
	if p.loading {
		t.Fatal("expected loading to finish")
	}
	if !strings.Contains(p.message, "arduino-cli not found") {
		t.Fatalf("message = %q", p.message)
	}
}

func TestDevicePageEditsTextField(t *testing.T) {
	p, dev := newDevicePage(t, nil, nil)
	cursorTo(p, "prebuild")

	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !p.InputCaptured() {
		t.Fatal("expected text input to capture keys")
	}
	p.input.SetValue("  echo hi  ")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if got := dev.Settings().Prebuild; got != "echo hi" {
		t.Fatalf("prebuild = %q", got)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if got := dev.Settings().Prebuild; got != "" {
		t.Fatalf("expected prebuild to be cleared, got %q", got)
	}
}

func TestDevicePageCyclesIntelliSense(t *testing.T) {
	p, dev := newDevicePage(t, nil, nil)
	cursorTo(p, "intellisense")

	want := []string{"enable", "disable", ""}
	for _, w := range want {
		p.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if got := dev.Settings().IntelliSenseGen; got != w {
			t.Fatalf("intelliSenseGen = %q, want %q", got, w)
		}
	}
}

func TestDevicePageIgnoresForeignPickers(t *testing.T) {
	p, dev := newDevicePage(t, nil, nil)
	p.Update(app.PickerSelectedMsg{ID: "port", Value: "/dev/ttyUSB9"})
	if dev.Settings().Port != "" {
		t.Fatal("selection for another picker must not be applied")
	}
}
