package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelRendersKinds(t *testing.T) {
	rec := &Recorder{}
	ch := New(rec.Write)

	ch.Start("Verifying sketch 'blink.ino'")
	ch.Append("Sketch uses 924 bytes\r\n")
	ch.Warning("slow build")
	ch.Info("IntelliSense configuration updated.")
	ch.Errorf("Verifying sketch '%s': Exit with code=%d", "blink.ino", 1)
	ch.End("Verifying sketch 'blink.ino'")

	assert.Equal(t, []string{
		"[Starting] Verifying sketch 'blink.ino'",
		"Sketch uses 924 bytes",
		"[Warning] slow build",
		"[Info] IntelliSense configuration updated.",
		"[Error] Verifying sketch 'blink.ino': Exit with code=1",
		"[Done] Verifying sketch 'blink.ino'",
	}, rec.Lines())
}

func TestNilSinkDiscards(t *testing.T) {
	ch := New(nil)
	assert.NotPanics(t, func() { ch.Info("dropped") })
}
