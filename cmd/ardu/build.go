package main

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/buckleypaul/ardu/internal/arduino"
	"github.com/buckleypaul/ardu/internal/output"
	"github.com/buckleypaul/ardu/internal/ui"
)

var errBuildFailed = errors.New("build failed")

func newBuildCmd(use, short string, mode func(*cobra.Command) arduino.BuildMode) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, mode(cmd))
		},
	}
}

func newUploadCmd() *cobra.Command {
	var programmer, viaCLI bool
	cmd := newBuildCmd("upload", "Compile and upload the sketch", func(*cobra.Command) arduino.BuildMode {
		return uploadMode(programmer, viaCLI)
	})
	cmd.Flags().BoolVar(&programmer, "programmer", false, "upload using the programmer from arduino.json")
	cmd.Flags().BoolVar(&viaCLI, "cli-upload", false, "use the arduino-cli upload flow, leaving serial devices paused")
	return cmd
}

func uploadMode(programmer, viaCLI bool) arduino.BuildMode {
	switch {
	case programmer && viaCLI:
		return arduino.CliUploadProgrammer
	case programmer:
		return arduino.UploadProgrammer
	case viaCLI:
		return arduino.CliUpload
	}
	return arduino.Upload
}

func runBuild(cmd *cobra.Command, mode arduino.BuildMode) error {
	ws, err := openWorkspace(workspaceDir)
	if err != nil {
		return err
	}
	defer ws.Close()

	p := &entryPrinter{w: cmd.OutOrStdout()}
	a := ws.newApp(arduino.Options{
		Prompter: newCLIPrompter(),
		Channel:  output.New(p.print),
	})
	if !a.Build(cmd.Context(), mode, buildDir) {
		return errBuildFailed
	}
	return nil
}

// entryPrinter writes channel entries to a terminal.
type entryPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *entryPrinter) print(e output.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, ui.Entry(e))
}
