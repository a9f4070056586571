package arduino

import (
	"context"
	"errors"

	"github.com/buckleypaul/ardu/internal/analysis"
	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/intellisense"
)

var (
	errNoManagers    = errors.New("board or programmer manager missing")
	errBuildFailed   = errors.New("build failed")
	errBuildPanicked = errors.New("build panicked")
)

// EnableAutoAnalysis starts regenerating IntelliSense data in the
// background. Board, configuration and sketch changes request an analysis
// build when analyze_on_setting_change is on, and analyze_on_open requests
// one right away. Calling it again is a no-op.
func (a *App) EnableAutoAnalysis() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scheduler != nil {
		return
	}

	settings := a.settings()
	a.scheduler = analysis.New(a.IsBuilding, a.analyze, settings.AnalysisDelay(), a.log.With().Str("component", "analysis").Logger())

	a.unsubscribe = a.dev.Subscribe(func(ch device.Change) {
		switch ch.Kind {
		case device.ChangeBoard, device.ChangeConfiguration, device.ChangeSketch:
		default:
			return
		}
		if a.settings().AnalyzeOnChange() {
			a.RequestAnalysis()
		}
	})

	if settings.AnalyzeOnStartup() {
		a.requestLocked()
	}
}

// RequestAnalysis asks for a background analysis build. It does nothing
// unless auto analysis is enabled and IntelliSense generation is on.
func (a *App) RequestAnalysis() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requestLocked()
}

func (a *App) requestLocked() {
	if a.scheduler == nil || !a.intelliSenseEnabled() {
		return
	}
	a.scheduler.RequestAnalysis()
}

// AnalysisState reports the background scheduler state.
func (a *App) AnalysisState() analysis.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scheduler == nil {
		return analysis.Idle
	}
	return a.scheduler.State()
}

// Close stops background analysis.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if a.scheduler != nil {
		a.scheduler.Close()
	}
}

func (a *App) intelliSenseEnabled() bool {
	return intellisense.Enabled(a.dev.Settings().IntelliSenseGen, a.settings().IntelliSenseDisabled())
}

func (a *App) analyze(ctx context.Context) error {
	return a.tryBuild(ctx, Analyze, "")
}
