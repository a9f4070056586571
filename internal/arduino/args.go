package arduino

import (
	"errors"

	"github.com/buckleypaul/ardu/internal/device"
)

// ErrNeedsCLI is returned for modes that only exist in arduino-cli.
var ErrNeedsCLI = errors.New("command requires arduino-cli")

const needsCLIMessage = "This command is only available when using the Arduino CLI"

// Invocation holds the values a compiler command line is built from.
type Invocation struct {
	CLI        bool
	Board      string
	Port       string
	Programmer string
	Prefs      []device.Pref
	BuildPath  string
	Sketch     string
	// Verbose adds upload progress output. The IDE needs a flag for it;
	// arduino-cli already runs with --verbose.
	Verbose bool
}

// Args returns the compiler arguments for mode. The Arduino IDE and
// arduino-cli take different flags for the same operation.
func (inv Invocation) Args(mode BuildMode) ([]string, error) {
	if mode.needsCLI() && !inv.CLI {
		return nil, ErrNeedsCLI
	}
	if inv.CLI {
		return inv.cliArgs(mode), nil
	}
	return inv.ideArgs(mode), nil
}

func (inv Invocation) ideArgs(mode BuildMode) []string {
	args := []string{"--board", inv.Board}

	switch mode {
	case Upload:
		args = append(args, "--upload")
		if inv.Port != "" {
			args = append(args, "--port", inv.Port)
		}
	case UploadProgrammer:
		args = append(args, "--upload", "--useprogrammer", "--pref", "programmer="+inv.Programmer)
		args = append(args, "--port", inv.Port)
	default:
		args = append(args, "--verify")
	}

	for _, p := range inv.Prefs {
		args = append(args, "--pref", p.Key+"="+p.Value)
	}
	args = append(args, "--verbose-build")
	if inv.Verbose {
		args = append(args, "--verbose-upload")
	}
	if inv.BuildPath != "" {
		args = append(args, "--pref", "build.path="+inv.BuildPath)
	}
	return append(args, inv.Sketch)
}

func (inv Invocation) cliArgs(mode BuildMode) []string {
	args := []string{"-b", inv.Board}

	// The verb follows the board flag except for plain compiles, where it
	// leads.
	switch mode {
	case Upload:
		args = append(args, "compile", "--upload")
		if inv.Port != "" {
			args = append(args, "--port", inv.Port)
		}
	case CliUpload:
		args = append(args, "upload")
		if inv.Port != "" {
			args = append(args, "--port", inv.Port)
		}
	case UploadProgrammer:
		args = append(args, "compile", "--upload", "--programmer", inv.Programmer, "--port", inv.Port)
	case CliUploadProgrammer:
		args = append(args, "upload", "--programmer", inv.Programmer, "--port", inv.Port)
	default:
		args = append([]string{"compile"}, args...)
	}

	for _, p := range inv.Prefs {
		args = append(args, "--build-property", p.Key+"="+p.Value)
	}
	args = append(args, "--verbose")
	if inv.BuildPath != "" {
		args = append(args, "--build-path", inv.BuildPath)
	}
	return append(args, inv.Sketch)
}
