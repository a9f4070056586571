package board

import (
	"context"
	"strings"

	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/process"
)

// Programmer is an ISP programmer offered by a board's platform.
type Programmer struct {
	ID   string
	Name string
}

// Programmers exposes the programmer selected in the device settings.
type Programmers struct {
	dev    *device.Context
	runner process.Runner
	tool   func() Tool
}

func NewProgrammers(dev *device.Context, runner process.Runner, tool func() Tool) *Programmers {
	return &Programmers{dev: dev, runner: runner, tool: tool}
}

// CurrentProgrammer returns the selected programmer or "".
func (p *Programmers) CurrentProgrammer() string {
	return p.dev.Settings().Programmer
}

// List runs `arduino-cli board details -b <fqbn> --list-programmers`.
func (p *Programmers) List(ctx context.Context, fqbn string) ([]Programmer, error) {
	t := p.tool()
	if !t.UseCLI {
		return nil, ErrNeedsCLI
	}
	lines, err := process.Lines(ctx, p.runner, process.Command{
		Name: t.Path,
		Args: []string{"board", "details", "-b", fqbn, "--list-programmers"},
		Dir:  p.dev.Root(),
	})
	if err != nil {
		return nil, err
	}
	return parseProgrammers(lines), nil
}

func parseProgrammers(lines []string) []Programmer {
	var out []Programmer
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] == "Id" {
			continue
		}
		prog := Programmer{ID: fields[0]}
		if len(fields) > 1 {
			prog.Name = strings.Join(fields[1:], " ")
		}
		out = append(out, prog)
	}
	return out
}
