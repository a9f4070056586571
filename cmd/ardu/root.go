package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/arduino"
	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/logging"
	"github.com/buckleypaul/ardu/internal/output"
	"github.com/buckleypaul/ardu/internal/pages"
	"github.com/buckleypaul/ardu/internal/serial"
	"github.com/buckleypaul/ardu/internal/usb"
)

var (
	workspaceDir string
	buildDir     string
)

var rootCmd = &cobra.Command{
	Use:           "ardu",
	Short:         "Build, upload and monitor Arduino sketches",
	Long:          "ardu drives arduino-cli (or the legacy Arduino IDE) for the sketch workspace\nin the current directory. Without a subcommand it opens the terminal UI.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTUI(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "dir", "C", ".", "directory inside the sketch workspace")
	rootCmd.PersistentFlags().StringVar(&buildDir, "build-dir", "", "output directory, overrides \"output\" in arduino.json")

	rootCmd.AddCommand(
		newBuildCmd("verify", "Compile the sketch", func(*cobra.Command) arduino.BuildMode { return arduino.Verify }),
		newBuildCmd("analyze", "Compile the sketch and regenerate IntelliSense data", func(*cobra.Command) arduino.BuildMode { return arduino.Analyze }),
		newUploadCmd(),
		newMonitorCmd(),
		newPortsCmd(),
		newHistoryCmd(),
	)
}

func runTUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ws, err := openWorkspace(workspaceDir)
	if err != nil {
		return err
	}
	defer ws.Close()

	// program is assigned before anything below can send to it.
	var program *tea.Program
	send := func(msg tea.Msg) { program.Send(msg) }

	settings := ws.settings.Get()
	monitor := serial.NewMonitor()
	defer monitor.Disconnect()

	detector := usb.NewDetector(serial.ListPorts, settings.USBPollInterval(), func(ev usb.Event) {
		send(app.USBMsg{Event: ev})
	}, logging.Component("usb"))

	prompter := app.NewPrompter()
	a := ws.newApp(arduino.Options{
		Monitor:  monitor,
		USB:      detector,
		Prompter: prompter,
		Channel:  output.New(func(e output.Entry) { send(app.ChannelMsg{Entry: e}) }),
	})
	defer a.Close()

	// Setters run inside Update, so sending synchronously would block the
	// event loop on itself.
	unsubscribe := ws.dev.Subscribe(func(ch device.Change) {
		go send(app.DeviceChangedMsg{Change: ch})
	})
	defer unsubscribe()

	pageMap := map[app.PageID]app.Page{
		app.BuildPage:    pages.NewBuildPage(ctx, a, buildDir),
		app.DevicePage:   pages.NewDevicePage(ctx, ws.dev, ws.boards, ws.programmers, serial.ListPorts),
		app.MonitorPage:  pages.NewMonitorPage(monitor, settings.SerialBaudRate).WithPorts(serial.ListPorts).WithStore(ws.store),
		app.HistoryPage:  pages.NewHistoryPage(ws.store),
		app.SettingsPage: pages.NewSettingsPage(ws.settings, ws.root),
	}

	model := app.New(pageMap, ws.dev, a, serial.ListPorts)
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	prompter.Attach(program.Send)

	detector.Start(ctx)
	defer detector.Stop()
	a.EnableAutoAnalysis()

	mainLog := logging.Component("main")
	mainLog.Info().Str("root", ws.root).Msg("starting")
	_, err = program.Run()
	// Unblocks a build waiting on a prompt before the deferred teardown.
	cancel()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
