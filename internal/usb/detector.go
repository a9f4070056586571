// Package usb detects serial devices being plugged in and removed by
// polling the port list.
package usb

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/buckleypaul/ardu/internal/serial"
)

// EventKind tells whether a port appeared or disappeared.
type EventKind int

const (
	Added EventKind = iota
	Removed
)

func (k EventKind) String() string {
	if k == Added {
		return "added"
	}
	return "removed"
}

// Event describes one hot-plug change.
type Event struct {
	Kind EventKind
	Port serial.PortInfo
}

// Detector polls for port changes. While paused, polling is suspended and
// the baseline is refreshed silently on resume, so an upload resetting the
// board does not surface as unplug/plug events.
type Detector struct {
	list     func() ([]serial.PortInfo, error)
	interval time.Duration
	onEvent  func(Event)
	log      zerolog.Logger

	mu     sync.Mutex
	known  map[string]serial.PortInfo
	paused bool
	resync bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDetector polls list every interval and calls onEvent for each change.
// A nil list uses serial.ListPorts.
func NewDetector(list func() ([]serial.PortInfo, error), interval time.Duration, onEvent func(Event), log zerolog.Logger) *Detector {
	if list == nil {
		list = serial.ListPorts
	}
	return &Detector{
		list:     list,
		interval: interval,
		onEvent:  onEvent,
		log:      log,
	}
}

// Start takes the initial snapshot and begins polling in the background.
func (d *Detector) Start(ctx context.Context) {
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.mu.Unlock()

	d.baseline()
	go d.loop(ctx)
}

// Stop ends polling and waits for the loop to exit.
func (d *Detector) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// PauseListening suspends event delivery.
func (d *Detector) PauseListening() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
	d.log.Debug().Msg("usb listening paused")
}

// ResumeListening continues event delivery from a fresh baseline.
func (d *Detector) ResumeListening() {
	d.mu.Lock()
	d.paused = false
	d.resync = true
	d.mu.Unlock()
	d.log.Debug().Msg("usb listening resumed")
}

// Paused reports whether listening is suspended.
func (d *Detector) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

func (d *Detector) loop(ctx context.Context) {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Poll()
		}
	}
}

func (d *Detector) baseline() {
	ports, err := d.list()
	if err != nil {
		d.log.Warn().Err(err).Msg("listing serial ports failed")
		return
	}
	d.mu.Lock()
	d.known = index(ports)
	d.mu.Unlock()
}

// Poll compares the current port list with the last one and emits events.
// It is called by the background loop; tests call it directly.
func (d *Detector) Poll() {
	d.mu.Lock()
	if d.paused {
		d.mu.Unlock()
		return
	}
	resync := d.resync
	d.resync = false
	d.mu.Unlock()

	ports, err := d.list()
	if err != nil {
		d.log.Warn().Err(err).Msg("listing serial ports failed")
		return
	}
	current := index(ports)

	d.mu.Lock()
	previous := d.known
	d.known = current
	d.mu.Unlock()

	if resync || previous == nil {
		return
	}

	var events []Event
	for _, p := range ports {
		if _, ok := previous[p.Name]; !ok {
			events = append(events, Event{Kind: Added, Port: p})
		}
	}
	for name, p := range previous {
		if _, ok := current[name]; !ok {
			events = append(events, Event{Kind: Removed, Port: p})
		}
	}

	for _, ev := range events {
		d.log.Info().Stringer("kind", ev.Kind).Str("port", ev.Port.Name).Msg("usb device change")
		if d.onEvent != nil {
			d.onEvent(ev)
		}
	}
}

func index(ports []serial.PortInfo) map[string]serial.PortInfo {
	m := make(map[string]serial.PortInfo, len(ports))
	for _, p := range ports {
		m[p.Name] = p
	}
	return m
}
