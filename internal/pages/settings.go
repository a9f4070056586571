package pages

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/config"
	"github.com/buckleypaul/ardu/internal/ui"
)

type settingField struct {
	label  string
	key    string
	toggle bool
}

var settingFields = []settingField{
	{"Arduino Path", "arduino_path", false},
	{"Command Path", "command_path", false},
	{"Use arduino-cli", "use_arduino_cli", true},
	{"Log Level", "log_level", false},
	{"Disable IntelliSense", "disable_intellisense_autogen", true},
	{"Analyze On Open", "analyze_on_open", true},
	{"Analyze On Change", "analyze_on_setting_change", true},
	{"Analysis Delay (ms)", "analysis_delay_ms", false},
	{"Serial Baud Rate", "serial_baud_rate", false},
}

type SettingsPage struct {
	cfg           *config.Shared
	workspaceRoot string
	cursor        int
	editing       bool
	input         textinput.Model
	width, height int
	message       string
}

func NewSettingsPage(cfg *config.Shared, workspaceRoot string) *SettingsPage {
	ti := textinput.New()
	ti.CharLimit = 128
	return &SettingsPage{
		cfg:           cfg,
		workspaceRoot: workspaceRoot,
		input:         ti,
	}
}

func (p *SettingsPage) Init() tea.Cmd { return nil }

func (p *SettingsPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if p.editing {
			switch msg.String() {
			case "enter":
				p.applyValue(p.input.Value())
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
			if p.cursor < len(settingFields)-1 {
				p.cursor++
			}
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "enter", "e", " ":
			if settingFields[p.cursor].toggle {
				p.toggle()
				return p, nil
			}
			p.editing = true
			p.input.SetValue(p.getValue(p.cursor))
			return p, p.input.Focus()
		case "s":
			p.save(false)
		case "S":
			p.save(true)
		}
	}
	return p, nil
}

func (p *SettingsPage) save(global bool) {
	where := "workspace"
	if global {
		where = "global settings"
	}
	if err := config.Save(p.cfg.Get(), p.workspaceRoot, global); err != nil {
		p.message = fmt.Sprintf("Error saving: %v", err)
	} else {
		p.message = "Settings saved to " + where
	}
}

func (p *SettingsPage) View() string {
	var inner strings.Builder

	for i, f := range settingFields {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("> ")
		}

		line := fmt.Sprintf("%s%-22s %s", cursor, f.label, ui.Value(p.getValue(i)))
		inner.WriteString(line)
		inner.WriteString("\n")
	}

	if p.editing {
		inner.WriteString("\n")
		inner.WriteString(fmt.Sprintf("  Edit %s:\n", settingFields[p.cursor].label))
		inner.WriteString("  " + p.input.View())
		inner.WriteString("\n")
	}

	if p.message != "" {
		inner.WriteString("\n  " + p.message)
	}

	return ui.Panel("Settings", inner.String(), p.width, 0, false)
}

func (p *SettingsPage) Name() string { return "Settings" }

func (p *SettingsPage) ShortHelp() []key.Binding {
	if p.editing {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit/toggle")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save to workspace")),
		key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "save globally")),
	}
}

func (p *SettingsPage) InputCaptured() bool {
	return p.editing
}

func (p *SettingsPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (p *SettingsPage) getValue(idx int) string {
	cfg := p.cfg.Get()
	switch settingFields[idx].key {
	case "arduino_path":
		return cfg.ArduinoPath
	case "command_path":
		return cfg.CommandPath
	case "use_arduino_cli":
		return boolString(cfg.UseCLI())
	case "log_level":
		return cfg.LogLevel
	case "disable_intellisense_autogen":
		return boolString(cfg.IntelliSenseDisabled())
	case "analyze_on_open":
		return boolString(cfg.AnalyzeOnStartup())
	case "analyze_on_setting_change":
		return boolString(cfg.AnalyzeOnChange())
	case "analysis_delay_ms":
		return strconv.Itoa(cfg.AnalysisDelayMs)
	case "serial_baud_rate":
		return strconv.Itoa(cfg.SerialBaudRate)
	}
	return ""
}

func (p *SettingsPage) toggle() {
	f := settingFields[p.cursor]
	p.cfg.Update(func(s *config.Settings) {
		switch f.key {
		case "use_arduino_cli":
			config.SetBool(&s.UseArduinoCli, !s.UseCLI())
		case "disable_intellisense_autogen":
			config.SetBool(&s.DisableIntelliSenseAutoGen, !s.IntelliSenseDisabled())
		case "analyze_on_open":
			config.SetBool(&s.AnalyzeOnOpen, !s.AnalyzeOnStartup())
		case "analyze_on_setting_change":
			config.SetBool(&s.AnalyzeOnSettingChange, !s.AnalyzeOnChange())
		}
	})
	p.message = fmt.Sprintf("%s updated", f.label)
}

func (p *SettingsPage) applyValue(val string) {
	f := settingFields[p.cursor]
	val = strings.TrimSpace(val)
	var bad bool
	p.cfg.Update(func(s *config.Settings) {
		switch f.key {
		case "arduino_path":
			s.ArduinoPath = val
		case "command_path":
			s.CommandPath = val
		case "log_level":
			if val != config.LogLevelInfo && val != config.LogLevelVerbose {
				bad = true
				return
			}
			s.LogLevel = val
		case "analysis_delay_ms":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				bad = true
				return
			}
			s.AnalysisDelayMs = n
		case "serial_baud_rate":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				bad = true
				return
			}
			s.SerialBaudRate = n
		}
	})
	if bad {
		p.message = fmt.Sprintf("Invalid value for %s: %q", f.label, val)
		return
	}
	p.message = fmt.Sprintf("%s updated", f.label)
}
