package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupWritesToFile(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	dir := filepath.Join(t.TempDir(), "logs")
	closer, err := Setup(dir, false)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	l := Component("arduino")
	l.Info().Str("mode", "Verifying").Msg("build started")
	l.Debug().Msg("hidden at info level")
	closer.Close()

	data, err := os.ReadFile(filepath.Join(dir, "ardu.log"))
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"component":"arduino"`) || !strings.Contains(out, "build started") {
		t.Errorf("unexpected log contents: %s", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Error("debug entry written at info level")
	}
}

func TestSetupVerboseEnablesDebug(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	closer, err := Setup(t.TempDir(), true)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer closer.Close()

	if log.Logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("level = %s, want debug", log.Logger.GetLevel())
	}
}
