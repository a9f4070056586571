// Package board resolves the selected board and programmer and lists the
// ones the installed cores provide.
package board

import (
	"context"
	"errors"
	"strings"

	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/process"
)

// ErrNeedsCLI is returned by listings that only arduino-cli supports.
var ErrNeedsCLI = errors.New("listing boards requires arduino-cli (set use_arduino_cli: true)")

// Board is an installed board.
type Board struct {
	Name string
	FQBN string
	// Config holds the board menu options, e.g. "cpu=atmega328old".
	Config string
}

// BuildConfig returns the descriptor passed to the compiler.
func (b Board) BuildConfig() string {
	if b.Config == "" {
		return b.FQBN
	}
	return b.FQBN + ":" + b.Config
}

// Tool describes how to invoke the compiler for listings.
type Tool struct {
	Path   string
	UseCLI bool
}

// Manager exposes the board selected in the device settings.
type Manager struct {
	dev    *device.Context
	runner process.Runner
	tool   func() Tool
}

func NewManager(dev *device.Context, runner process.Runner, tool func() Tool) *Manager {
	return &Manager{dev: dev, runner: runner, tool: tool}
}

// CurrentBoard returns the selected board, if any.
func (m *Manager) CurrentBoard() (Board, bool) {
	s := m.dev.Settings()
	if s.Board == "" {
		return Board{}, false
	}
	return Board{FQBN: s.Board, Config: s.Configuration}, true
}

// ListAll runs `arduino-cli board listall`.
func (m *Manager) ListAll(ctx context.Context) ([]Board, error) {
	t := m.tool()
	if !t.UseCLI {
		return nil, ErrNeedsCLI
	}
	lines, err := process.Lines(ctx, m.runner, process.Command{
		Name: t.Path,
		Args: []string{"board", "listall"},
		Dir:  m.dev.Root(),
	})
	if err != nil {
		return nil, err
	}
	return parseListAll(lines), nil
}

// parseListAll reads the two column "Board Name  FQBN" table. Names contain
// spaces, so the FQBN is taken from the end of the line.
func parseListAll(lines []string) []Board {
	var boards []Board
	for _, line := range lines {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		fqbn := fields[len(fields)-1]
		if strings.Count(fqbn, ":") < 2 {
			continue // header or noise
		}
		name := strings.TrimSpace(strings.TrimSuffix(line, fqbn))
		boards = append(boards, Board{Name: name, FQBN: fqbn})
	}
	return boards
}
