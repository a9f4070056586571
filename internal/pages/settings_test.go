package pages

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/ardu/internal/config"
)

func newSettingsPage(t *testing.T) (*SettingsPage, *config.Shared, string) {
	t.Helper()
	wsRoot := t.TempDir()
	cfg := config.NewShared(config.Defaults())
	return NewSettingsPage(cfg, wsRoot), cfg, wsRoot
}

func moveTo(p *SettingsPage, key string) {
	for p.cursor < len(settingFields)-1 && settingFields[p.cursor].key != key {
		p.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
}

func TestSettingsArrowKeyNavigation(t *testing.T) {
	p, _, _ := newSettingsPage(t)

	if p.cursor != 0 {
		t.Fatalf("expected cursor=0, got %d", p.cursor)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	if p.cursor != 1 {
		t.Fatalf("expected cursor=1 after down, got %d", p.cursor)
	}

	for i := 0; i < len(settingFields); i++ {
		p.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if p.cursor != len(settingFields)-1 {
		t.Fatalf("expected cursor to clamp at %d, got %d", len(settingFields)-1, p.cursor)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != len(settingFields)-2 {
		t.Fatalf("expected cursor=%d after up, got %d", len(settingFields)-2, p.cursor)
	}

	p.cursor = 0
	p.Update(tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != 0 {
		t.Fatalf("expected cursor to clamp at 0, got %d", p.cursor)
	}
}

func TestSettingsEnterEditMode(t *testing.T) {
	p, _, _ := newSettingsPage(t)

	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !p.editing {
		t.Fatal("expected editing=true after Enter")
	}
	if !p.InputCaptured() {
		t.Fatal("expected input to be captured while editing")
	}

	p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.editing {
		t.Fatal("expected editing=false after Esc")
	}
}

func TestSettingsToggle(t *testing.T) {
	p, cfg, _ := newSettingsPage(t)
	moveTo(p, "use_arduino_cli")

	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if p.editing {
		t.Fatal("toggles should not open the editor")
	}
	if cfg.Get().UseCLI() {
		t.Fatal("expected arduino-cli to be switched off")
	}

	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !cfg.Get().UseCLI() {
		t.Fatal("expected arduino-cli to be switched back on")
	}
}

func TestSettingsApplyBaudRate(t *testing.T) {
	p, cfg, _ := newSettingsPage(t)
	moveTo(p, "serial_baud_rate")

	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p.input.SetValue("9600")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if got := cfg.Get().SerialBaudRate; got != 9600 {
		t.Fatalf("expected SerialBaudRate=9600, got %d", got)
	}
}

func TestSettingsRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"serial_baud_rate", "not-a-number"},
		{"analysis_delay_ms", "-5"},
		{"log_level", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			p, cfg, _ := newSettingsPage(t)
			before := cfg.Get()
			moveTo(p, tt.key)

			p.Update(tea.KeyMsg{Type: tea.KeyEnter})
			p.input.SetValue(tt.value)
			p.Update(tea.KeyMsg{Type: tea.KeyEnter})

			after := cfg.Get()
			if after.SerialBaudRate != before.SerialBaudRate ||
				after.AnalysisDelayMs != before.AnalysisDelayMs ||
				after.LogLevel != before.LogLevel {
				t.Fatalf("settings changed: %+v", after)
			}
			if p.editing {
				t.Fatal("expected editing=false after enter")
			}
		})
	}
}

func TestSettingsSaveWritesWorkspaceFile(t *testing.T) {
	p, cfg, wsRoot := newSettingsPage(t)
	cfg.Update(func(s *config.Settings) { s.CommandPath = "/opt/arduino-cli" })

	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})

	if p.message == "" {
		t.Fatal("expected message after save")
	}

	path := filepath.Join(wsRoot, ".ardu", "settings.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("expected settings file at %s, not found", path)
	}

	loaded := config.Load(wsRoot)
	if loaded.CommandPath != "/opt/arduino-cli" {
		t.Fatalf("expected CommandPath=/opt/arduino-cli, got %q", loaded.CommandPath)
	}
}
