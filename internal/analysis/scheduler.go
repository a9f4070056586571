// Package analysis debounces requests for background IntelliSense analysis
// builds. Bursts of requests collapse into one build, which is never
// started while another build is running.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWait is the debounce and polling period.
const DefaultWait = time.Second

// ErrBusy is returned by a build function that could not start because
// another build got there first. The scheduler then waits and tries again.
var ErrBusy = errors.New("another build is running")

// State of the scheduler.
type State int

const (
	Idle State = iota
	Waiting
	Analyzing
	AnalyzingWaiting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Analyzing:
		return "analyzing"
	case AnalyzingWaiting:
		return "analyzing-waiting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type event int

const (
	analysisRequest event = iota
	waitTimeout
	analysisBuildDone
)

// Scheduler is the debounce state machine.
type Scheduler struct {
	isBuilding func() bool
	doBuild    func(context.Context) error
	wait       time.Duration
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	timer  *time.Timer
	gen    uint64
	closed bool
}

// New returns an idle scheduler. isBuilding reports whether any other build
// is in flight; doBuild performs one analysis build. A wait of zero selects
// DefaultWait.
func New(isBuilding func() bool, doBuild func(context.Context) error, wait time.Duration, log zerolog.Logger) *Scheduler {
	if wait <= 0 {
		wait = DefaultWait
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		isBuilding: isBuilding,
		doBuild:    doBuild,
		wait:       wait,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RequestAnalysis asks for an analysis build. It returns immediately and may
// be called from any goroutine in any state.
func (s *Scheduler) RequestAnalysis() {
	s.update(analysisRequest, 0)
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the pending timer and cancels a running analysis build.
// Later requests are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	s.mu.Unlock()
	s.cancel()
}

func (s *Scheduler) update(ev event, gen uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	launch := false
	switch s.state {
	case Idle:
		if ev == analysisRequest {
			s.state = Waiting
			s.startTimerLocked()
		}

	case Waiting:
		switch ev {
		case analysisRequest:
			// every new request restarts the timer
			s.startTimerLocked()
		case waitTimeout:
			if gen != s.gen {
				break // superseded timer
			}
			if s.isBuilding() {
				// someone else is building; poll again later
				s.startTimerLocked()
				break
			}
			s.state = Analyzing
			launch = true
		}

	case Analyzing:
		switch ev {
		case analysisBuildDone:
			s.state = Idle
		case analysisRequest:
			s.state = AnalyzingWaiting
		}

	case AnalyzingWaiting:
		if ev == analysisBuildDone {
			// emulate Idle → Waiting
			s.state = Waiting
			s.startTimerLocked()
		}
	}
	state := s.state
	s.mu.Unlock()

	s.log.Debug().Int("event", int(ev)).Stringer("state", state).Msg("analysis transition")

	if launch {
		s.runBuild()
	}
}

// runBuild executes on the timer goroutine. Success, failure and panics all
// count as done. A build that lost the race to a user build is requested
// again.
func (s *Scheduler) runBuild() {
	defer s.update(analysisBuildDone, 0)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("analysis build panicked")
		}
	}()

	err := s.doBuild(s.ctx)
	switch {
	case errors.Is(err, ErrBusy):
		s.log.Debug().Msg("analysis build preempted, retrying")
		s.update(analysisRequest, 0)
	case err != nil:
		s.log.Debug().Err(err).Msg("analysis build failed")
	}
}

func (s *Scheduler) startTimerLocked() {
	s.stopTimerLocked()
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.wait, func() { s.update(waitTimeout, gen) })
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
