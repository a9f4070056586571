package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// maxLineSize bounds a single streamed line. Verbose compiler invocations
// with many include paths easily exceed bufio's 64K default.
const maxLineSize = 1024 * 1024

// Command describes a single external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the process environment when non-nil.
	Env []string

	// Stdout and Stderr receive output line by line, without the trailing
	// newline. Either may be nil to discard that stream.
	Stdout func(line string)
	Stderr func(line string)
}

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Name string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit code %d", e.Name, e.Code)
}

// ExitCode extracts the exit code from err, if it carries one.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, c Command) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts the command, streams both pipes to the callbacks and waits for
// it to exit. A non-zero exit is returned as *ExitError; failures to start
// are returned wrapped.
func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: stdout pipe: %w", c.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%s: stderr pipe: %w", c.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(stdout, c.Stdout, &wg)
	go streamLines(stderr, c.Stderr, &wg)
	// Pipes must be drained before Wait closes them.
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			return &ExitError{Name: c.Name, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

func streamLines(r io.Reader, fn func(string), wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if fn != nil {
			fn(scanner.Text())
		}
	}
	// Keep draining after an overlong line so the child never blocks on a
	// full pipe.
	if scanner.Err() != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}

// Lines runs c and collects its stdout. Stderr lines are appended to the
// error on failure.
func Lines(ctx context.Context, r Runner, c Command) ([]string, error) {
	var out, errOut []string
	var mu sync.Mutex
	c.Stdout = func(line string) {
		mu.Lock()
		out = append(out, line)
		mu.Unlock()
	}
	c.Stderr = func(line string) {
		mu.Lock()
		errOut = append(errOut, line)
		mu.Unlock()
	}
	if err := r.Run(ctx, c); err != nil {
		if len(errOut) > 0 {
			return out, fmt.Errorf("%w: %s", err, errOut[len(errOut)-1])
		}
		return out, err
	}
	return out, nil
}
