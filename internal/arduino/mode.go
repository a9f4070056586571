// Package arduino drives the Arduino IDE command line or arduino-cli to
// verify, analyze and upload sketches. App.Build allows one build at a time.
package arduino

// BuildMode selects what a build does.
type BuildMode int

const (
	Verify BuildMode = iota
	Analyze
	Upload
	CliUpload
	UploadProgrammer
	CliUploadProgrammer
)

// Modes lists every build mode in display order.
var Modes = []BuildMode{Verify, Analyze, Upload, CliUpload, UploadProgrammer, CliUploadProgrammer}

// String returns the text used in channel messages and VSCA_BUILD_MODE.
func (m BuildMode) String() string {
	switch m {
	case Verify:
		return "Verifying"
	case Analyze:
		return "Analyzing"
	case Upload:
		return "Uploading"
	case CliUpload:
		return "Uploading (CLI)"
	case UploadProgrammer:
		return "Uploading (programmer)"
	case CliUploadProgrammer:
		return "Uploading (programmer, CLI)"
	default:
		return "Unknown"
	}
}

// IsUpload reports whether the mode writes to a device.
func (m BuildMode) IsUpload() bool {
	switch m {
	case Upload, CliUpload, UploadProgrammer, CliUploadProgrammer:
		return true
	}
	return false
}

// Interactive reports whether the mode may prompt the user.
func (m BuildMode) Interactive() bool {
	return m != Analyze
}

// needsCLI reports whether the mode only exists in the arduino-cli dialect.
func (m BuildMode) needsCLI() bool {
	return m == CliUpload || m == CliUploadProgrammer
}

// usesProgrammer reports whether the mode uploads through a programmer.
func (m BuildMode) usesProgrammer() bool {
	return m == UploadProgrammer || m == CliUploadProgrammer
}

// restoresDevices reports whether the serial monitor and USB listener are
// restored after the build. Only the plain upload modes do this; the CLI
// variants leave both paused.
func (m BuildMode) restoresDevices() bool {
	return m == Upload || m == UploadProgrammer
}
