package pages

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/arduino"
	"github.com/buckleypaul/ardu/internal/output"
)

type fakeBuilder struct {
	mu       sync.Mutex
	modes    []arduino.BuildMode
	dirs     []string
	ok       bool
	building bool
}

func (b *fakeBuilder) Build(_ context.Context, mode arduino.BuildMode, dir string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modes = append(b.modes, mode)
	b.dirs = append(b.dirs, dir)
	return b.ok
}

func (b *fakeBuilder) IsBuilding() bool { return b.building }

// runBatch executes cmd and every command of a batch, skipping the spinner
// tick.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c == nil {
			continue
		}
		m := c()
		if _, tick := m.(spinner.TickMsg); tick {
			continue
		}
		out = append(out, m)
	}
	return out
}

func findFinished(msgs []tea.Msg) (buildFinishedMsg, bool) {
	for _, m := range msgs {
		if f, ok := m.(buildFinishedMsg); ok {
			return f, true
		}
	}
	return buildFinishedMsg{}, false
}

func TestBuildPageKeysStartModes(t *testing.T) {
	tests := []struct {
		key  string
		mode arduino.BuildMode
	}{
		{"v", arduino.Verify},
		{"a", arduino.Analyze},
		{"u", arduino.Upload},
		{"p", arduino.UploadProgrammer},
		{"U", arduino.CliUpload},
		{"P", arduino.CliUploadProgrammer},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			b := &fakeBuilder{ok: true}
			p := NewBuildPage(context.Background(), b, "out")

			_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})
			if p.state != buildStateRunning {
				t.Fatal("expected running state")
			}

			finished, ok := findFinished(runBatch(cmd))
			if !ok {
				t.Fatal("expected buildFinishedMsg")
			}
			if len(b.modes) != 1 || b.modes[0] != tt.mode || b.dirs[0] != "out" {
				t.Fatalf("builds = %v dirs = %v", b.modes, b.dirs)
			}

			p.Update(finished)
			if p.state != buildStateDone {
				t.Fatal("expected done state")
			}
			if !strings.Contains(p.message, tt.mode.String()+" succeeded") {
				t.Fatalf("message = %q", p.message)
			}
		})
	}
}

func TestBuildPageIgnoresKeysWhileRunning(t *testing.T) {
	b := &fakeBuilder{}
	p := NewBuildPage(context.Background(), b, "")
	p.state = buildStateRunning

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	if cmd != nil {
		runBatch(cmd)
	}
	if len(b.modes) != 0 {
		t.Fatalf("expected no build, got %v", b.modes)
	}
}

func TestBuildPageRefusesWhenAnotherBuildRuns(t *testing.T) {
	b := &fakeBuilder{building: true}
	p := NewBuildPage(context.Background(), b, "")

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	if cmd != nil {
		t.Fatal("expected no command")
	}
	if p.state != buildStateIdle {
		t.Fatalf("state = %v", p.state)
	}
	if p.message == "" {
		t.Fatal("expected a message")
	}
}

func TestBuildPageFailureMessage(t *testing.T) {
	p := NewBuildPage(context.Background(), &fakeBuilder{}, "")
	p.Update(buildFinishedMsg{mode: arduino.Upload, ok: false, elapsed: 2 * time.Second})
	if !strings.Contains(p.message, "Uploading failed in 2s") {
		t.Fatalf("message = %q", p.message)
	}
}

func TestBuildPageCollectsChannelOutput(t *testing.T) {
	p := NewBuildPage(context.Background(), &fakeBuilder{}, "")
	p.SetSize(80, 24)

	p.Update(app.ChannelMsg{Entry: output.Entry{Kind: output.KindStart, Text: "Verifying sketch 'a.ino'"}})
	p.Update(app.ChannelMsg{Entry: output.Entry{Kind: output.KindText, Text: "Sketch uses 924 bytes"}})
	p.Update(app.ChannelMsg{Entry: output.Entry{Kind: output.KindError, Text: "boom"}})

	if len(p.lines) != 3 || len(p.raw) != 3 {
		t.Fatalf("lines=%d raw=%d", len(p.lines), len(p.raw))
	}
	if p.raw[0] != "[Starting] Verifying sketch 'a.ino'" {
		t.Fatalf("raw[0] = %q", p.raw[0])
	}
	if !strings.Contains(p.View(), "Sketch uses 924 bytes") {
		t.Fatal("expected output in view")
	}

	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if len(p.lines) != 0 || len(p.raw) != 0 {
		t.Fatal("expected output to be cleared")
	}
}

func TestBuildPageBoundsOutput(t *testing.T) {
	p := NewBuildPage(context.Background(), &fakeBuilder{}, "")
	for range maxOutputLines + 10 {
		p.Update(app.ChannelMsg{Entry: output.Entry{Text: "x"}})
	}
	if len(p.lines) != maxOutputLines {
		t.Fatalf("lines = %d", len(p.lines))
	}
}
