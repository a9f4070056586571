package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/buckleypaul/ardu/internal/arduino"
	"github.com/buckleypaul/ardu/internal/board"
	"github.com/buckleypaul/ardu/internal/config"
	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/logging"
	"github.com/buckleypaul/ardu/internal/process"
	"github.com/buckleypaul/ardu/internal/store"
)

// workspace holds everything shared by the TUI and the subcommands.
type workspace struct {
	root        string
	settings    *config.Shared
	dev         *device.Context
	runner      process.Runner
	boards      *board.Manager
	programmers *board.Programmers
	store       *store.Store
	logs        io.Closer
}

func openWorkspace(dir string) (*workspace, error) {
	root, err := device.Detect(dir)
	if err != nil {
		return nil, err
	}

	settings := config.NewShared(config.Load(root))
	stateDir := config.WorkspaceDir(root)

	logs, err := logging.Setup(filepath.Join(stateDir, "logs"), settings.Get().Verbose())
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}

	dev, err := device.Open(root)
	if err != nil {
		logs.Close()
		return nil, err
	}

	tool := func() board.Tool {
		s := settings.Get()
		return board.Tool{Path: s.CompilerPath(), UseCLI: s.UseCLI()}
	}
	runner := process.ExecRunner{}

	return &workspace{
		root:        root,
		settings:    settings,
		dev:         dev,
		runner:      runner,
		boards:      board.NewManager(dev, runner, tool),
		programmers: board.NewProgrammers(dev, runner, tool),
		store:       store.New(stateDir),
		logs:        logs,
	}, nil
}

// newApp fills in the workspace collaborators. Callers supply the output
// channel, prompter and, in the TUI, the serial monitor and USB detector.
func (w *workspace) newApp(opts arduino.Options) *arduino.App {
	opts.Settings = w.settings.Get
	opts.Device = w.dev
	opts.Boards = w.boards
	opts.Programmers = w.programmers
	opts.Runner = w.runner
	opts.History = w.store
	opts.Log = logging.Component("arduino")
	return arduino.New(opts)
}

func (w *workspace) Close() error {
	return w.logs.Close()
}
