package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlayReplacesAndAppends(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/home/me", "VSCA_SKETCH=old.ino"}

	got := Overlay(base, map[string]string{
		"VSCA_SKETCH":     "blink.ino",
		"VSCA_BUILD_MODE": "Verifying",
		"VSCA_BOARD":      "arduino:avr:uno",
	})

	assert.Equal(t, []string{
		"PATH=/usr/bin",
		"HOME=/home/me",
		"VSCA_SKETCH=blink.ino",
		"VSCA_BOARD=arduino:avr:uno",
		"VSCA_BUILD_MODE=Verifying",
	}, got)
	assert.Equal(t, "VSCA_SKETCH=old.ino", base[2], "base must not be modified")
}

func TestOverlayEmpty(t *testing.T) {
	got := Overlay(nil, nil)
	assert.Empty(t, got)
}

func TestShells(t *testing.T) {
	name, args := PosixShell{}.Command("make flash")
	assert.Equal(t, "bash", name)
	assert.Equal(t, []string{"-c", "make flash"}, args)

	name, args = WindowsShell{}.Command("flash.bat COM3")
	assert.Equal(t, "cmd", name)
	assert.Equal(t, []string{"/C", "flash.bat COM3"}, args)
}
