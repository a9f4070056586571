package arduino

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/buckleypaul/ardu/internal/analysis"
	"github.com/buckleypaul/ardu/internal/board"
	"github.com/buckleypaul/ardu/internal/config"
	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/intellisense"
	"github.com/buckleypaul/ardu/internal/output"
	"github.com/buckleypaul/ardu/internal/process"
	"github.com/buckleypaul/ardu/internal/serial"
	"github.com/buckleypaul/ardu/internal/store"
)

// User facing messages.
const (
	msgNoBoard       = "Please select the board type first."
	msgNoProgrammer  = "Please select the programmer first."
	msgNoSketch      = "No sketch file was found. Please specify the sketch in the arduino.json file"
	msgNoWorkspace   = "Workspace doesn't seem to have a folder added to it yet."
	msgInvalidOutput = "Please check the \"output\" in the sketch settings. Cannot find the output path: "
	msgNoOutput      = "Output path is not specified. Unable to reuse previously compiled files. Build will be slower."
	msgSelectSerial  = "Serial port is not specified. Do you want to select a serial port for uploading?"
)

// BoardManager supplies the selected board.
type BoardManager interface {
	CurrentBoard() (board.Board, bool)
}

// ProgrammerManager supplies the selected programmer.
type ProgrammerManager interface {
	CurrentProgrammer() string
}

// SerialMonitor is closed during uploads so the tool can use the port.
type SerialMonitor interface {
	// Close closes the monitor if it is open on port and reports whether it
	// was.
	Close(port string) (bool, error)
	Reopen() error
}

// USBListener is paused during uploads.
type USBListener interface {
	PauseListening()
	ResumeListening()
}

// Prompter asks the user questions. Implementations block until answered;
// a dismissed prompt is a "no".
type Prompter interface {
	Confirm(ctx context.Context, msg string) bool
	Pick(ctx context.Context, title string, items []string) (string, bool)
}

// History records finished compiler runs.
type History interface {
	AddBuild(store.BuildRecord) error
}

// Options configures an App. Device, Runner and Channel are required.
type Options struct {
	Settings    func() config.Settings
	Device      *device.Context
	Boards      BoardManager
	Programmers ProgrammerManager
	Runner      process.Runner
	Shell       process.Shell
	Monitor     SerialMonitor
	USB         USBListener
	Prompter    Prompter
	Channel     *output.Channel
	History     History
	Log         zerolog.Logger

	// NewSession creates the IntelliSense session for one build. It is only
	// called when generation is enabled.
	NewSession func(root string, report intellisense.Reporter) intellisense.Session
	// ListPorts lists serial ports for the port picker.
	ListPorts func() ([]serial.PortInfo, error)
	// GOOS selects platform specific output handling. Empty means runtime.GOOS.
	GOOS string
}

// App owns the build state. There is at most one build in flight.
type App struct {
	settings    func() config.Settings
	dev         *device.Context
	boards      BoardManager
	programmers ProgrammerManager
	runner      process.Runner
	shell       process.Shell
	monitor     SerialMonitor
	usb         USBListener
	prompter    Prompter
	channel     *output.Channel
	history     History
	log         zerolog.Logger
	newSession  func(string, intellisense.Reporter) intellisense.Session
	listPorts   func() ([]serial.PortInfo, error)
	windows     bool

	building atomic.Bool

	mu          sync.Mutex
	scheduler   *analysis.Scheduler
	unsubscribe func()
}

// New returns an App. Missing optional collaborators get inert defaults.
func New(opts Options) *App {
	a := &App{
		settings:    opts.Settings,
		dev:         opts.Device,
		boards:      opts.Boards,
		programmers: opts.Programmers,
		runner:      opts.Runner,
		shell:       opts.Shell,
		monitor:     opts.Monitor,
		usb:         opts.USB,
		prompter:    opts.Prompter,
		channel:     opts.Channel,
		history:     opts.History,
		log:         opts.Log,
		newSession:  opts.NewSession,
		listPorts:   opts.ListPorts,
	}
	if a.settings == nil {
		a.settings = config.Defaults
	}
	if a.shell == nil {
		a.shell = process.DefaultShell()
	}
	if a.channel == nil {
		a.channel = output.New(nil)
	}
	if a.prompter == nil {
		a.prompter = declineAll{}
	}
	if a.newSession == nil {
		log := a.log
		a.newSession = func(root string, report intellisense.Reporter) intellisense.Session {
			return intellisense.NewSession(root, report, log)
		}
	}
	if a.listPorts == nil {
		a.listPorts = serial.ListPorts
	}
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	a.windows = goos == "windows"
	return a
}

// IsBuilding reports whether a build is in flight.
func (a *App) IsBuilding() bool {
	return a.building.Load()
}

// Channel returns the output channel builds write to.
func (a *App) Channel() *output.Channel {
	return a.channel
}

// Build runs one build in the given mode and reports whether it succeeded.
// buildDir overrides the output directory from arduino.json. Build returns
// false at once, with no side effects, while another build is running.
func (a *App) Build(ctx context.Context, mode BuildMode, buildDir string) bool {
	return a.tryBuild(ctx, mode, buildDir) == nil
}

// tryBuild is Build with the reason for a false result. It returns
// analysis.ErrBusy when the guard is held by another build.
func (a *App) tryBuild(ctx context.Context, mode BuildMode, buildDir string) (err error) {
	if a.boards == nil || a.programmers == nil {
		return errNoManagers
	}
	if !a.building.CompareAndSwap(false, true) {
		return analysis.ErrBusy
	}
	defer a.building.Store(false)
	defer func() {
		if r := recover(); r != nil {
			a.notifyUserError("ArduinoApp.build", fmt.Errorf("%v", r))
			err = errBuildPanicked
		}
	}()

	if !a.build(ctx, mode, buildDir) {
		return errBuildFailed
	}
	return nil
}

func (a *App) build(ctx context.Context, mode BuildMode, buildDir string) bool {
	settings := a.settings()
	cli := settings.UseCLI()

	current, ok := a.boards.CurrentBoard()
	if !ok {
		if mode != Analyze {
			a.notifyUserError("boardManager.currentBoard", errors.New(msgNoBoard))
		}
		return false
	}
	if mode.needsCLI() && !cli {
		a.channel.Error(needsCLIMessage)
		return false
	}

	root := a.dev.Root()
	if root == "" {
		a.channel.Warning(msgNoWorkspace)
		return false
	}

	if !a.dev.SketchExists() {
		if !mode.Interactive() {
			return false
		}
		if !a.resolveMainSketch(ctx) {
			return false
		}
	}
	dc := a.dev.Settings()

	var programmer string
	if mode.usesProgrammer() {
		programmer = a.programmers.CurrentProgrammer()
		if programmer == "" {
			a.notifyUserError("getProgrammer", errors.New(msgNoProgrammer))
			return false
		}
	}
	if mode.IsUpload() && dc.Port == "" {
		// Programmer uploads always need a port; the others only when the
		// board uploads over serial.
		if mode.usesProgrammer() || needsSerialPort(dc.Configuration) {
			a.selectSerial(ctx)
			return false
		}
	}

	var buildPath string
	if dir := firstNonEmpty(buildDir, dc.Output); dir != "" {
		buildPath = dir
		if !filepath.IsAbs(buildPath) {
			buildPath = filepath.Join(root, buildPath)
		}
		if !isDir(filepath.Dir(buildPath)) {
			a.notifyUserError("InvalidOutPutPath", errors.New(msgInvalidOutput+buildPath))
			return false
		}
		a.channel.Info("Please see the build logs in output path: " + buildPath)
	} else {
		a.channel.Warning(msgNoOutput)
	}

	inv := Invocation{
		CLI:        cli,
		Board:      current.BuildConfig(),
		Port:       dc.Port,
		Programmer: programmer,
		Prefs:      dc.Prefs(),
		BuildPath:  buildPath,
		Sketch:     a.dev.SketchPath(),
		Verbose:    settings.Verbose(),
	}
	args, err := inv.Args(mode)
	if err != nil {
		a.channel.Error(needsCLIMessage)
		return false
	}

	logLevel := config.LogLevelInfo
	if settings.Verbose() {
		logLevel = config.LogLevelVerbose
	}
	env := hookEnv(mode, dc.Sketch, inv.Board, root, logLevel, dc.Port, buildPath)

	a.channel.Start(fmt.Sprintf("%s sketch '%s'", mode, dc.Sketch))

	if !a.runHook(ctx, preBuild, dc.Prebuild, env) {
		return false
	}

	return a.compile(ctx, mode, settings, dc, args, env)
}

// compile runs the compiler with the serial monitor and USB listener
// released, then finalizes.
func (a *App) compile(ctx context.Context, mode BuildMode, settings config.Settings, dc device.Settings, args []string, env map[string]string) (ok bool) {
	var reopenSerial bool
	if mode.IsUpload() {
		if a.monitor != nil {
			wasOpen, err := a.monitor.Close(dc.Port)
			if err != nil {
				a.log.Warn().Err(err).Msg("closing serial monitor")
			}
			reopenSerial = wasOpen
		}
		if a.usb != nil {
			a.usb.PauseListening()
		}
	}

	session := a.session(settings, dc)
	verbose := settings.Verbose()
	started := time.Now()

	var runErr error
	defer func() {
		if ok {
			ok = a.runHook(ctx, postBuild, dc.Postbuild, env)
		}
		if err := session.Conclude(); err != nil {
			a.log.Debug().Err(err).Msg("intellisense conclude")
		}
		if mode.restoresDevices() {
			if a.usb != nil {
				a.usb.ResumeListening()
			}
			if reopenSerial {
				if err := a.monitor.Reopen(); err != nil {
					a.log.Warn().Err(err).Msg("reopening serial monitor")
				}
			}
		}

		what := fmt.Sprintf("%s sketch '%s'", mode, dc.Sketch)
		switch {
		case runErr != nil:
			msg := runErr.Error()
			if code, has := process.ExitCode(runErr); has {
				msg = fmt.Sprintf("Exit with code=%d", code)
			}
			a.channel.Error(what + ": " + msg)
		case ok:
			a.channel.End(what)
		}
	}()

	a.log.Info().Str("mode", mode.String()).Strs("args", args).Msg("running compiler")
	runErr = a.runner.Run(ctx, process.Command{
		Name: settings.CompilerPath(),
		Args: args,
		Dir:  a.dev.Root(),
		Stdout: func(line string) {
			session.OnLine(line)
			if stdoutEcho(line, verbose) {
				a.channel.Append(line)
			}
		},
		Stderr: func(line string) {
			if text, show := stderrLine(line, verbose, a.windows); show {
				a.channel.Append(text)
			}
		},
	})
	a.record(mode, dc, env, runErr, time.Since(started))
	return runErr == nil
}

// session returns the IntelliSense session for one build.
func (a *App) session(settings config.Settings, dc device.Settings) intellisense.Session {
	if !intellisense.Enabled(dc.IntelliSenseGen, settings.IntelliSenseDisabled()) {
		return intellisense.Disabled(a.channel)
	}
	return a.newSession(a.dev.Root(), a.channel)
}

func (a *App) record(mode BuildMode, dc device.Settings, env map[string]string, runErr error, d time.Duration) {
	if a.history == nil {
		return
	}
	code, _ := process.ExitCode(runErr)
	if runErr != nil && code == 0 {
		code = -1
	}
	err := a.history.AddBuild(store.BuildRecord{
		Mode:      mode.String(),
		Sketch:    dc.Sketch,
		Board:     env[EnvBoard],
		Port:      dc.Port,
		BuildDir:  env[EnvBuildDir],
		Timestamp: time.Now(),
		Success:   runErr == nil,
		ExitCode:  code,
		Duration:  d.Round(100 * time.Millisecond).String(),
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("saving build history")
	}
}

// resolveMainSketch picks the sketch when arduino.json names none, or names
// one that does not exist.
func (a *App) resolveMainSketch(ctx context.Context) bool {
	dc := a.dev.Settings()
	if dc.Sketch != "" {
		a.channel.Error("Cannot find the sketch file: " + dc.Sketch)
	}

	candidates, err := a.dev.SketchCandidates()
	if err != nil {
		a.log.Warn().Err(err).Msg("listing sketches")
	}

	var sketch string
	switch len(candidates) {
	case 0:
	case 1:
		sketch = candidates[0]
	default:
		sketch, _ = a.prompter.Pick(ctx, "Select the main sketch file", candidates)
	}
	if sketch == "" {
		a.notifyUserError("hardware.noSketchFile", errors.New(msgNoSketch))
		return false
	}
	if err := a.dev.SetSketch(sketch); err != nil {
		a.notifyUserError("deviceContext.save", err)
		return false
	}
	return a.dev.SketchExists()
}

// selectSerial offers to pick a serial port. The current build is abandoned
// either way; the user starts it again once a port is set.
func (a *App) selectSerial(ctx context.Context) {
	if a.prompter.Confirm(ctx, msgSelectSerial) {
		a.SelectSerialPort(ctx)
	}
}

// SelectSerialPort lets the user pick a port and stores it in arduino.json.
func (a *App) SelectSerialPort(ctx context.Context) bool {
	ports, err := a.listPorts()
	if err != nil {
		a.notifyUserError("serialMonitor.listPorts", err)
		return false
	}
	if len(ports) == 0 {
		a.channel.Warning("No serial port is available.")
		return false
	}

	labels := make([]string, len(ports))
	byLabel := make(map[string]string, len(ports))
	for i, p := range ports {
		labels[i] = p.Label()
		byLabel[labels[i]] = p.Name
	}
	choice, ok := a.prompter.Pick(ctx, "Select a serial port", labels)
	if !ok {
		return false
	}
	if err := a.dev.SetPort(byLabel[choice]); err != nil {
		a.notifyUserError("deviceContext.save", err)
		return false
	}
	return true
}

// notifyUserError logs err under event and shows it in the channel.
func (a *App) notifyUserError(event string, err error) {
	a.log.Error().Str("event", event).Err(err).Msg("build error")
	a.channel.Error(err.Error())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

type declineAll struct{}

func (declineAll) Confirm(context.Context, string) bool { return false }

func (declineAll) Pick(context.Context, string, []string) (string, bool) { return "", false }
