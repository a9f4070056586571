package arduino

import (
	"regexp"
	"strings"
)

var (
	// Upload methods that do not talk to a serial port.
	stLinkUpload = regexp.MustCompile(`(?i)upload_method=[^=,]*st[^,]*link`)

	memoryUsage = regexp.MustCompile(`^(?:Sketch uses |Global variables use )`)

	// Log noise printed on stderr by the Java IDE and arduino-cli.
	stderrNoise = []*regexp.Regexp{
		regexp.MustCompile(`^Picked\sup\sJAVA_TOOL_OPTIONS:\s+`),
		regexp.MustCompile(`^\d+\d+-\d+-\d+T\d+:\d+:\d+.\d+Z\s(?:INFO|WARN)\s`),
		regexp.MustCompile(`^(?:DEBUG|TRACE|INFO)\s+`),
	}

	lineBreaks = regexp.MustCompile(`(?:\r|\r\n|\n)+`)
)

// needsSerialPort reports whether uploading with configuration requires a
// serial port.
func needsSerialPort(configuration string) bool {
	return configuration == "" || !stLinkUpload.MatchString(configuration)
}

// stdoutEcho reports whether a stdout line is shown in the channel.
func stdoutEcho(line string, verbose bool) bool {
	return verbose || memoryUsage.MatchString(line)
}

// stderrLine returns the text to show for a stderr line and whether to show
// it at all.
func stderrLine(line string, verbose, windows bool) (string, bool) {
	if windows {
		line = strings.TrimSpace(line)
		if line == "" {
			return "", false
		}
		line = lineBreaks.ReplaceAllString(line, "\r\n")
	}
	if !verbose {
		for _, re := range stderrNoise {
			if re.MatchString(line) {
				return "", false
			}
		}
	}
	return line, true
}
