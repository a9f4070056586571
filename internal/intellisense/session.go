package intellisense

import (
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
)

// ErrNoInvocation is returned by Conclude when the build output contained no
// usable compiler invocation.
var ErrNoInvocation = errors.New("no compiler invocation found in build output")

// Reporter receives user facing messages.
type Reporter interface {
	Info(msg string)
	Warning(msg string)
}

// usbDefine is added to every generated configuration.
const usbDefine = "USBCON"

// Session collects the output of one build. Disabled returns a session that
// ignores everything.
type Session interface {
	OnLine(line string)
	Conclude() error
	Enabled() bool
}

// Enabled decides whether IntelliSense generation runs for a project. The
// project setting "enable" or "disable" overrides the global switch.
func Enabled(projectSetting string, globalDisabled bool) bool {
	return projectSetting != "disable" && !globalDisabled || projectSetting == "enable"
}

type disabled struct {
	report Reporter
}

func (disabled) OnLine(string) {}
func (disabled) Enabled() bool { return false }

func (d disabled) Conclude() error {
	if d.report != nil {
		d.report.Info("IntelliSense auto-configuration disabled.")
	}
	return nil
}

// Disabled returns a session that ignores the build output and only tells
// report that generation is off.
func Disabled(report Reporter) Session { return disabled{report: report} }

type session struct {
	parser Parser
	root   string
	report Reporter
	log    zerolog.Logger
}

// NewSession returns a session that writes the Arduino configuration into
// root/.vscode/c_cpp_properties.json when concluded. Relative paths in the
// build output are resolved against root.
func NewSession(root string, report Reporter, log zerolog.Logger) Session {
	return &session{root: root, report: report, log: log}
}

func (s *session) OnLine(line string) { s.parser.Line(line) }

func (s *session) Enabled() bool { return true }

func (s *session) Conclude() error {
	res := s.parser.Result()
	if res == nil {
		s.report.Warning("Failed to generate IntelliSense configuration.")
		return ErrNoInvocation
	}

	res.Includes = cleanup(normalize(res.Includes, s.root))
	if !filepath.IsAbs(res.CompilerPath) && filepath.Base(res.CompilerPath) != res.CompilerPath {
		res.CompilerPath = filepath.Join(s.root, res.CompilerPath)
	}

	var forced []string
	if header := LocateArduinoHeader(res.Includes); header != "" {
		forced = []string{header}
	} else {
		s.report.Warning(`Unable to locate "Arduino.h" within IntelliSense include paths.`)
	}
	if !slices.Contains(res.Defines, usbDefine) {
		res.Defines = append(res.Defines, usbDefine)
	}

	updated, err := Merge(filepath.Join(s.root, PropertiesFile), res, forced)
	if err != nil {
		s.log.Error().Err(err).Msg("writing IntelliSense configuration failed")
		s.report.Warning("Failed to write IntelliSense configuration: " + err.Error())
		return err
	}

	s.log.Debug().Int("includes", len(res.Includes)).Bool("updated", updated).Msg("IntelliSense concluded")
	if updated {
		s.report.Info("IntelliSense configuration updated.")
	} else {
		s.report.Info("IntelliSense configuration already up to date.")
	}
	return nil
}

// normalize makes paths absolute and resolves "." and ".." elements.
func normalize(paths []string, root string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.FromSlash(p)
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// cleanup drops duplicates and directories that do not exist.
func cleanup(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// LocateArduinoHeader returns the first Arduino.h found in includes. Users
// expect Arduino symbols in the main sketch without an explicit include.
func LocateArduinoHeader(includes []string) string {
	for _, dir := range includes {
		p := filepath.Join(dir, "Arduino.h")
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
