package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWait = 30 * time.Millisecond

func notBuilding() bool { return false }

func TestDebounceCollapsesBurst(t *testing.T) {
	var builds atomic.Int32
	s := New(notBuilding, func(context.Context) error {
		builds.Add(1)
		return nil
	}, testWait, zerolog.Nop())
	defer s.Close()

	for range 5 {
		s.RequestAnalysis()
		time.Sleep(testWait / 5)
	}
	assert.Equal(t, Waiting, s.State())

	require.Eventually(t, func() bool {
		return builds.Load() == 1 && s.State() == Idle
	}, time.Second, time.Millisecond)

	time.Sleep(4 * testWait)
	assert.Equal(t, int32(1), builds.Load(), "burst must produce exactly one build")
}

func TestDefersWhileAnotherBuildRuns(t *testing.T) {
	var busy atomic.Bool
	busy.Store(true)
	var builds atomic.Int32

	s := New(busy.Load, func(context.Context) error {
		builds.Add(1)
		return nil
	}, testWait, zerolog.Nop())
	defer s.Close()

	s.RequestAnalysis()
	time.Sleep(5 * testWait)
	assert.Equal(t, Waiting, s.State())
	assert.Equal(t, int32(0), builds.Load())

	busy.Store(false)
	require.Eventually(t, func() bool {
		return builds.Load() == 1 && s.State() == Idle
	}, time.Second, time.Millisecond)
}

func TestRequestWhileAnalyzingQueuesAnotherRun(t *testing.T) {
	const wait = 150 * time.Millisecond
	release := make(chan struct{})
	var builds atomic.Int32

	s := New(notBuilding, func(context.Context) error {
		if builds.Add(1) == 1 {
			<-release
		}
		return nil
	}, wait, zerolog.Nop())
	defer s.Close()

	s.RequestAnalysis()
	require.Eventually(t, func() bool { return s.State() == Analyzing }, time.Second, time.Millisecond)

	s.RequestAnalysis()
	assert.Equal(t, AnalyzingWaiting, s.State())
	s.RequestAnalysis()
	assert.Equal(t, AnalyzingWaiting, s.State())

	close(release)
	require.Eventually(t, func() bool { return s.State() == Waiting }, wait/2, time.Millisecond,
		"finishing while a request is queued must re-enter Waiting, not Idle")

	require.Eventually(t, func() bool {
		return builds.Load() == 2 && s.State() == Idle
	}, 2*time.Second, time.Millisecond)
}

func TestFailedBuildCountsAsDone(t *testing.T) {
	var builds atomic.Int32
	s := New(notBuilding, func(context.Context) error {
		builds.Add(1)
		return errors.New("compile error")
	}, testWait, zerolog.Nop())
	defer s.Close()

	s.RequestAnalysis()
	require.Eventually(t, func() bool {
		return builds.Load() == 1 && s.State() == Idle
	}, time.Second, time.Millisecond)

	s.RequestAnalysis()
	require.Eventually(t, func() bool {
		return builds.Load() == 2 && s.State() == Idle
	}, time.Second, time.Millisecond)
}

func TestBusyBuildIsRetried(t *testing.T) {
	var builds atomic.Int32
	s := New(notBuilding, func(context.Context) error {
		if builds.Add(1) == 1 {
			return fmt.Errorf("guard: %w", ErrBusy)
		}
		return nil
	}, testWait, zerolog.Nop())
	defer s.Close()

	s.RequestAnalysis()
	require.Eventually(t, func() bool {
		return builds.Load() == 2 && s.State() == Idle
	}, time.Second, time.Millisecond)

	time.Sleep(4 * testWait)
	assert.Equal(t, int32(2), builds.Load(), "a completed retry ends the cycle")
}

func TestPanickingBuildCountsAsDone(t *testing.T) {
	s := New(notBuilding, func(context.Context) error {
		panic("boom")
	}, testWait, zerolog.Nop())
	defer s.Close()

	s.RequestAnalysis()
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, time.Millisecond)
}

func TestCloseDropsPendingRequest(t *testing.T) {
	var builds atomic.Int32
	s := New(notBuilding, func(context.Context) error {
		builds.Add(1)
		return nil
	}, testWait, zerolog.Nop())

	s.RequestAnalysis()
	s.Close()
	s.RequestAnalysis()

	time.Sleep(4 * testWait)
	assert.Equal(t, int32(0), builds.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "analyzing-waiting", AnalyzingWaiting.String())
	assert.Equal(t, "State(9)", State(9).String())
}
