package process

import "runtime"

// Shell turns a user supplied command line into an executable invocation.
type Shell interface {
	Command(cmdline string) (name string, args []string)
}

// PosixShell runs command lines with bash -c.
type PosixShell struct{}

func (PosixShell) Command(cmdline string) (string, []string) {
	return "bash", []string{"-c", cmdline}
}

// WindowsShell hands the command line to cmd.exe unchanged.
type WindowsShell struct{}

func (WindowsShell) Command(cmdline string) (string, []string) {
	return "cmd", []string{"/C", cmdline}
}

// DefaultShell returns the shell for the host platform.
func DefaultShell() Shell {
	if runtime.GOOS == "windows" {
		return WindowsShell{}
	}
	return PosixShell{}
}
