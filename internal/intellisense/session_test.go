package intellisense

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	infos, warnings []string
}

func (r *recorder) Info(msg string)    { r.infos = append(r.infos, msg) }
func (r *recorder) Warning(msg string) { r.warnings = append(r.warnings, msg) }

func TestDisabledSessionIsInert(t *testing.T) {
	rec := &recorder{}
	s := Disabled(rec)
	s.OnLine(avrCompile)
	assert.NoError(t, s.Conclude())
	assert.False(t, s.Enabled())
	assert.Equal(t, []string{"IntelliSense auto-configuration disabled."}, rec.infos)
	assert.Empty(t, rec.warnings)
}

func TestConcludeWarnsWithoutArduinoHeader(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "include"), 0o755))

	rec := &recorder{}
	s := NewSession(root, rec, zerolog.Nop())
	s.OnLine(`avr-g++ -c -std=gnu++11 -Iinclude sketch/Blink.ino.cpp -o Blink.o`)
	require.NoError(t, s.Conclude())
	assert.Equal(t, []string{`Unable to locate "Arduino.h" within IntelliSense include paths.`}, rec.warnings)
	assert.Equal(t, []string{"IntelliSense configuration updated."}, rec.infos)
}

func TestConcludeWithoutInvocationWarns(t *testing.T) {
	rec := &recorder{}
	s := NewSession(t.TempDir(), rec, zerolog.Nop())
	s.OnLine("nothing to see")

	assert.ErrorIs(t, s.Conclude(), ErrNoInvocation)
	assert.Equal(t, []string{"Failed to generate IntelliSense configuration."}, rec.warnings)
}

func TestConcludeWritesProperties(t *testing.T) {
	root := t.TempDir()
	core := filepath.Join(root, "cores", "arduino")
	require.NoError(t, os.MkdirAll(core, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(core, "Arduino.h"), nil, 0o644))

	// An existing foreign configuration must be kept.
	propsPath := filepath.Join(root, PropertiesFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(propsPath), 0o755))
	require.NoError(t, os.WriteFile(propsPath, []byte(`{"version": 4, "configurations": [{"name": "Linux"}]}`), 0o644))

	rec := &recorder{}
	s := NewSession(root, rec, zerolog.Nop())
	s.OnLine(`avr-g++ -c -std=gnu++11 -DARDUINO=10819 -Icores/arduino -I./cores/arduino -Imissing/dir sketch/Blink.ino.cpp -o Blink.o`)
	require.NoError(t, s.Conclude())
	assert.Equal(t, []string{"IntelliSense configuration updated."}, rec.infos)

	data, err := os.ReadFile(propsPath)
	require.NoError(t, err)
	var doc struct {
		Version        int `json:"version"`
		Configurations []struct {
			Name          string   `json:"name"`
			IncludePath   []string `json:"includePath"`
			ForcedInclude []string `json:"forcedInclude"`
			Defines       []string `json:"defines"`
			CppStandard   string   `json:"cppStandard"`
		} `json:"configurations"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Configurations, 2)
	assert.Equal(t, "Linux", doc.Configurations[0].Name)

	ard := doc.Configurations[1]
	assert.Equal(t, ConfigurationName, ard.Name)
	assert.Equal(t, []string{core}, ard.IncludePath, "relative paths normalized, duplicates and missing dirs removed")
	assert.Equal(t, []string{filepath.Join(core, "Arduino.h")}, ard.ForcedInclude)
	assert.Equal(t, []string{"ARDUINO=10819", "USBCON"}, ard.Defines)
	assert.Equal(t, "gnu++11", ard.CppStandard)

	// A second identical run leaves the file untouched.
	rec2 := &recorder{}
	s2 := NewSession(root, rec2, zerolog.Nop())
	s2.OnLine(`avr-g++ -c -std=gnu++11 -DARDUINO=10819 -Icores/arduino sketch/Blink.ino.cpp -o Blink.o`)
	require.NoError(t, s2.Conclude())
	assert.Equal(t, []string{"IntelliSense configuration already up to date."}, rec2.infos)
}
