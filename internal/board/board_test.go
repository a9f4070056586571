package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/process"
)

type scriptedRunner struct {
	lines []string
	calls []process.Command
}

func (r *scriptedRunner) Run(_ context.Context, c process.Command) error {
	r.calls = append(r.calls, c)
	for _, l := range r.lines {
		c.Stdout(l)
	}
	return nil
}

func cliTool() Tool { return Tool{Path: "arduino-cli", UseCLI: true} }

func TestBuildConfig(t *testing.T) {
	assert.Equal(t, "uno", Board{FQBN: "uno"}.BuildConfig())
	assert.Equal(t, "arduino:avr:nano:cpu=atmega328old",
		Board{FQBN: "arduino:avr:nano", Config: "cpu=atmega328old"}.BuildConfig())
}

func TestCurrentBoardFromDevice(t *testing.T) {
	dev, err := device.Open(t.TempDir())
	require.NoError(t, err)
	m := NewManager(dev, &scriptedRunner{}, cliTool)

	_, ok := m.CurrentBoard()
	assert.False(t, ok)

	require.NoError(t, dev.SetBoard("arduino:avr:nano"))
	require.NoError(t, dev.SetConfiguration("cpu=atmega328"))
	b, ok := m.CurrentBoard()
	require.True(t, ok)
	assert.Equal(t, "arduino:avr:nano:cpu=atmega328", b.BuildConfig())
}

func TestListAllParsesTable(t *testing.T) {
	dev, err := device.Open(t.TempDir())
	require.NoError(t, err)
	r := &scriptedRunner{lines: []string{
		"Board Name                 FQBN",
		"Arduino Uno                arduino:avr:uno",
		"Arduino Nano Every         arduino:megaavr:nona4809",
		"",
	}}
	m := NewManager(dev, r, cliTool)

	boards, err := m.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Board{
		{Name: "Arduino Uno", FQBN: "arduino:avr:uno"},
		{Name: "Arduino Nano Every", FQBN: "arduino:megaavr:nona4809"},
	}, boards)
	assert.Equal(t, []string{"board", "listall"}, r.calls[0].Args)
	assert.Equal(t, dev.Root(), r.calls[0].Dir)
}

func TestListingsNeedCLI(t *testing.T) {
	dev, err := device.Open(t.TempDir())
	require.NoError(t, err)
	ide := func() Tool { return Tool{Path: "arduino"} }

	_, err = NewManager(dev, &scriptedRunner{}, ide).ListAll(context.Background())
	assert.ErrorIs(t, err, ErrNeedsCLI)
	_, err = NewProgrammers(dev, &scriptedRunner{}, ide).List(context.Background(), "arduino:avr:uno")
	assert.ErrorIs(t, err, ErrNeedsCLI)
}

func TestProgrammers(t *testing.T) {
	dev, err := device.Open(t.TempDir())
	require.NoError(t, err)
	r := &scriptedRunner{lines: []string{
		"Id           Programmer name",
		"avrisp       AVR ISP",
		"usbasp       USBasp",
	}}
	p := NewProgrammers(dev, r, cliTool)

	list, err := p.List(context.Background(), "arduino:avr:uno")
	require.NoError(t, err)
	assert.Equal(t, []Programmer{{ID: "avrisp", Name: "AVR ISP"}, {ID: "usbasp", Name: "USBasp"}}, list)
	assert.Equal(t, []string{"board", "details", "-b", "arduino:avr:uno", "--list-programmers"}, r.calls[0].Args)

	assert.Equal(t, "", p.CurrentProgrammer())
	require.NoError(t, dev.SetProgrammer("arduino:usbasp"))
	assert.Equal(t, "arduino:usbasp", p.CurrentProgrammer())
}
