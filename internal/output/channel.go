// Package output implements the build output channel shared by the
// orchestrator, build hooks and the IntelliSense generator.
package output

import (
	"fmt"
	"strings"
	"sync"
)

// Kind classifies an entry for rendering.
type Kind int

const (
	KindText Kind = iota
	KindStart
	KindDone
	KindInfo
	KindWarning
	KindError
)

// Entry is one line written to the channel.
type Entry struct {
	Kind Kind
	Text string
}

// String renders the entry the way it appears in plain text logs.
func (e Entry) String() string {
	switch e.Kind {
	case KindStart:
		return "[Starting] " + e.Text
	case KindDone:
		return "[Done] " + e.Text
	case KindInfo:
		return "[Info] " + e.Text
	case KindWarning:
		return "[Warning] " + e.Text
	case KindError:
		return "[Error] " + e.Text
	default:
		return e.Text
	}
}

// Sink receives every entry.
type Sink func(Entry)

// Channel is safe for concurrent use; stdout and stderr readers write to it
// from separate goroutines.
type Channel struct {
	mu   sync.Mutex
	sink Sink
}

// New returns a channel writing to sink. A nil sink discards everything.
func New(sink Sink) *Channel {
	return &Channel{sink: sink}
}

func (c *Channel) emit(kind Kind, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink != nil {
		c.sink(Entry{Kind: kind, Text: strings.TrimRight(text, "\r\n")})
	}
}

func (c *Channel) Start(msg string)   { c.emit(KindStart, msg) }
func (c *Channel) End(msg string)     { c.emit(KindDone, msg) }
func (c *Channel) Info(msg string)    { c.emit(KindInfo, msg) }
func (c *Channel) Warning(msg string) { c.emit(KindWarning, msg) }
func (c *Channel) Error(msg string)   { c.emit(KindError, msg) }

// Append writes raw tool output.
func (c *Channel) Append(line string) { c.emit(KindText, line) }

// Errorf is Error with formatting.
func (c *Channel) Errorf(format string, args ...any) {
	c.Error(fmt.Sprintf(format, args...))
}

// Recorder is a Sink that keeps entries in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Write(e Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Lines returns the recorded entries rendered as text.
func (r *Recorder) Lines() []string {
	entries := r.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}
