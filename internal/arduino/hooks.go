package arduino

import (
	"context"
	"fmt"

	"github.com/buckleypaul/ardu/internal/process"
)

// Hook environment variables.
const (
	EnvBuildMode    = "VSCA_BUILD_MODE"
	EnvSketch       = "VSCA_SKETCH"
	EnvBoard        = "VSCA_BOARD"
	EnvWorkspaceDir = "VSCA_WORKSPACE_DIR"
	EnvLogLevel     = "VSCA_LOG_LEVEL"
	EnvSerial       = "VSCA_SERIAL"
	EnvBuildDir     = "VSCA_BUILD_DIR"
)

type hookStage string

const (
	preBuild  hookStage = "pre"
	postBuild hookStage = "post"
)

// hookEnv returns the variables passed to pre and post build commands.
func hookEnv(mode BuildMode, sketch, board, root, logLevel, port, buildDir string) map[string]string {
	env := map[string]string{
		EnvBuildMode:    mode.String(),
		EnvSketch:       sketch,
		EnvBoard:        board,
		EnvWorkspaceDir: root,
		EnvLogLevel:     logLevel,
	}
	if port != "" {
		env[EnvSerial] = port
	}
	if buildDir != "" {
		env[EnvBuildDir] = buildDir
	}
	return env
}

// runHook runs a configured pre or post build command through the shell.
// An empty command succeeds. Output goes to the channel.
func (a *App) runHook(ctx context.Context, stage hookStage, cmdline string, env map[string]string) bool {
	if cmdline == "" {
		return true
	}
	a.channel.Info(fmt.Sprintf("Running %s-build command: %q", stage, cmdline))

	name, args := a.shell.Command(cmdline)
	err := a.runner.Run(ctx, process.Command{
		Name:   name,
		Args:   args,
		Dir:    a.dev.Root(),
		Env:    process.Environ(env),
		Stdout: a.channel.Append,
		Stderr: a.channel.Append,
	})
	if err == nil {
		return true
	}

	msg := err.Error()
	if code, ok := process.ExitCode(err); ok {
		msg = fmt.Sprintf("Exit code = %d", code)
	}
	a.log.Warn().Err(err).Str("stage", string(stage)).Msg("build hook failed")
	a.channel.Error(fmt.Sprintf("Running %s-build command failed: %s", stage, msg))
	return false
}
