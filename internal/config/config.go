package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaudRate      = 115200
	DefaultAnalysisDelay = 1000
	DefaultUSBPollMs     = 1000
	DefaultIDECommand    = "arduino"
	DefaultCLICommand    = "arduino-cli"
	LogLevelInfo         = "info"
	LogLevelVerbose      = "verbose"
	settingsFileName     = "settings.yaml"
	workspaceSettingsDir = ".ardu"
)

// Settings holds the tool-wide preferences. Device specific values (board,
// port, sketch) live in arduino.json, see package device.
type Settings struct {
	ArduinoPath string `yaml:"arduino_path,omitempty"`
	CommandPath string `yaml:"command_path,omitempty"`
	LogLevel    string `yaml:"log_level,omitempty"`

	UseArduinoCli              *bool `yaml:"use_arduino_cli,omitempty"`
	DisableIntelliSenseAutoGen *bool `yaml:"disable_intellisense_autogen,omitempty"`
	AnalyzeOnOpen              *bool `yaml:"analyze_on_open,omitempty"`
	AnalyzeOnSettingChange     *bool `yaml:"analyze_on_setting_change,omitempty"`

	AnalysisDelayMs   int `yaml:"analysis_delay_ms,omitempty"`
	SerialBaudRate    int `yaml:"serial_baud_rate,omitempty"`
	USBPollIntervalMs int `yaml:"usb_poll_interval_ms,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

// Defaults returns Settings with default values.
func Defaults() Settings {
	return Settings{
		LogLevel:                   LogLevelInfo,
		UseArduinoCli:              boolPtr(true),
		DisableIntelliSenseAutoGen: boolPtr(false),
		AnalyzeOnOpen:              boolPtr(true),
		AnalyzeOnSettingChange:     boolPtr(true),
		AnalysisDelayMs:            DefaultAnalysisDelay,
		SerialBaudRate:             DefaultBaudRate,
		USBPollIntervalMs:          DefaultUSBPollMs,
	}
}

// Load reads and merges global and workspace settings.
// Order: defaults → global (~/.config/ardu/settings.yaml) → workspace (.ardu/settings.yaml).
func Load(workspaceRoot string) Settings {
	cfg := Defaults()

	if dir, err := globalDir(); err == nil {
		mergeFromFile(&cfg, filepath.Join(dir, settingsFileName))
	}

	if workspaceRoot != "" {
		mergeFromFile(&cfg, filepath.Join(WorkspaceDir(workspaceRoot), settingsFileName))
	}

	return cfg
}

// WorkspaceDir is the per-workspace state directory (.ardu/).
func WorkspaceDir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, workspaceSettingsDir)
}

func globalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ardu"), nil
}

// Save writes the settings to the workspace .ardu/settings.yaml by default,
// or to the global file if global is true.
func Save(cfg Settings, workspaceRoot string, global bool) error {
	dir := WorkspaceDir(workspaceRoot)
	if global {
		var err error
		if dir, err = globalDir(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, settingsFileName), data, 0o644)
}

func mergeFromFile(cfg *Settings, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var fileCfg Settings
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return
	}

	if fileCfg.ArduinoPath != "" {
		cfg.ArduinoPath = fileCfg.ArduinoPath
	}
	if fileCfg.CommandPath != "" {
		cfg.CommandPath = fileCfg.CommandPath
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.UseArduinoCli != nil {
		cfg.UseArduinoCli = fileCfg.UseArduinoCli
	}
	if fileCfg.DisableIntelliSenseAutoGen != nil {
		cfg.DisableIntelliSenseAutoGen = fileCfg.DisableIntelliSenseAutoGen
	}
	if fileCfg.AnalyzeOnOpen != nil {
		cfg.AnalyzeOnOpen = fileCfg.AnalyzeOnOpen
	}
	if fileCfg.AnalyzeOnSettingChange != nil {
		cfg.AnalyzeOnSettingChange = fileCfg.AnalyzeOnSettingChange
	}
	if fileCfg.AnalysisDelayMs != 0 {
		cfg.AnalysisDelayMs = fileCfg.AnalysisDelayMs
	}
	if fileCfg.SerialBaudRate != 0 {
		cfg.SerialBaudRate = fileCfg.SerialBaudRate
	}
	if fileCfg.USBPollIntervalMs != 0 {
		cfg.USBPollIntervalMs = fileCfg.USBPollIntervalMs
	}
}

func isSet(b *bool) bool { return b != nil && *b }

// UseCLI reports whether arduino-cli (rather than the legacy IDE binary)
// is driven.
func (s Settings) UseCLI() bool { return isSet(s.UseArduinoCli) }

// Verbose reports whether the full compiler output should be shown.
func (s Settings) Verbose() bool { return s.LogLevel == LogLevelVerbose }

// IntelliSenseDisabled reports the global IntelliSense generation switch.
func (s Settings) IntelliSenseDisabled() bool { return isSet(s.DisableIntelliSenseAutoGen) }

func (s Settings) AnalyzeOnStartup() bool { return isSet(s.AnalyzeOnOpen) }

func (s Settings) AnalyzeOnChange() bool { return isSet(s.AnalyzeOnSettingChange) }

// SetBool is a helper for the settings page which edits tri-state fields.
func SetBool(dst **bool, v bool) { *dst = boolPtr(v) }

// CompilerPath returns the executable to invoke. An explicit arduino_path is
// joined with the command name; otherwise the command is resolved on PATH.
func (s Settings) CompilerPath() string {
	command := s.CommandPath
	if command == "" {
		command = DefaultIDECommand
		if s.UseCLI() {
			command = DefaultCLICommand
		}
	}
	if s.ArduinoPath != "" && !filepath.IsAbs(command) {
		return filepath.Join(s.ArduinoPath, command)
	}
	return command
}

// AnalysisDelay is the debounce period for background analysis.
func (s Settings) AnalysisDelay() time.Duration {
	ms := s.AnalysisDelayMs
	if ms <= 0 {
		ms = DefaultAnalysisDelay
	}
	return time.Duration(ms) * time.Millisecond
}

// USBPollInterval is how often the port list is re-enumerated.
func (s Settings) USBPollInterval() time.Duration {
	ms := s.USBPollIntervalMs
	if ms <= 0 {
		ms = DefaultUSBPollMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Shared holds settings edited by the TUI while builds read them from other
// goroutines.
type Shared struct {
	mu sync.RWMutex
	s  Settings
}

func NewShared(s Settings) *Shared {
	return &Shared{s: s}
}

// Get returns a copy of the current settings.
func (sh *Shared) Get() Settings {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.s
}

// Update applies fn to the settings under the lock.
func (sh *Shared) Update(fn func(*Settings)) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fn(&sh.s)
}
