// Package device holds the per-project device settings stored in
// .vscode/arduino.json and notifies subscribers when they change.
package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the settings file, relative to the workspace root.
var FileName = filepath.Join(".vscode", "arduino.json")

// Settings mirrors the fields of arduino.json this tool understands.
type Settings struct {
	Sketch           string     `json:"sketch,omitempty"`
	Port             string     `json:"port,omitempty"`
	Board            string     `json:"board,omitempty"`
	Configuration    string     `json:"configuration,omitempty"`
	Output           string     `json:"output,omitempty"`
	Prebuild         string     `json:"prebuild,omitempty"`
	Postbuild        string     `json:"postbuild,omitempty"`
	Programmer       string     `json:"programmer,omitempty"`
	BuildPreferences [][]string `json:"buildPreferences,omitempty"`
	IntelliSenseGen  string     `json:"intelliSenseGen,omitempty"`
}

// Pref is a single build preference (key=value passed to the compiler).
type Pref struct {
	Key   string
	Value string
}

// Prefs returns the well formed build preferences in their original order.
// Entries that are not exactly a key/value pair are skipped.
func (s Settings) Prefs() []Pref {
	var prefs []Pref
	for _, p := range s.BuildPreferences {
		if len(p) != 2 {
			continue
		}
		prefs = append(prefs, Pref{Key: p[0], Value: p[1]})
	}
	return prefs
}

// ChangeKind identifies which setting changed.
type ChangeKind int

const (
	ChangeSketch ChangeKind = iota
	ChangeBoard
	ChangeConfiguration
	ChangePort
	ChangeProgrammer
	ChangeOther
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSketch:
		return "sketch"
	case ChangeBoard:
		return "board"
	case ChangeConfiguration:
		return "configuration"
	case ChangePort:
		return "port"
	case ChangeProgrammer:
		return "programmer"
	default:
		return "other"
	}
}

// Change is delivered to subscribers after a setting was persisted.
type Change struct {
	Kind     ChangeKind
	Settings Settings
}

// Context is the device settings of one workspace. It is safe for
// concurrent use.
type Context struct {
	root string

	mu     sync.RWMutex
	values Settings
	// extra keeps fields written by other tools so Save does not drop them.
	extra map[string]json.RawMessage

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// Open loads the device settings of the workspace at root. A missing
// arduino.json yields empty settings.
func Open(root string) (*Context, error) {
	c := &Context{root: root, subs: make(map[int]func(Change))}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// Root returns the workspace root directory.
func (c *Context) Root() string { return c.root }

// Path returns the absolute path of arduino.json.
func (c *Context) Path() string { return filepath.Join(c.root, FileName) }

func (c *Context) load() error {
	values, extra, err := readFile(c.Path())
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.values = values
	c.extra = extra
	c.mu.Unlock()
	return nil
}

func readFile(path string) (Settings, map[string]json.RawMessage, error) {
	var values Settings
	extra := map[string]json.RawMessage{}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, extra, nil
		}
		return values, nil, err
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return values, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return values, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, extra, nil
}

// Settings returns a copy of the current values.
func (c *Context) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.values
	s.BuildPreferences = append([][]string(nil), c.values.BuildPreferences...)
	return s
}

func (c *Context) SetSketch(v string) error {
	return c.update(ChangeSketch, func(s *Settings) *string { return &s.Sketch }, v)
}

func (c *Context) SetBoard(v string) error {
	return c.update(ChangeBoard, func(s *Settings) *string { return &s.Board }, v)
}

func (c *Context) SetConfiguration(v string) error {
	return c.update(ChangeConfiguration, func(s *Settings) *string { return &s.Configuration }, v)
}

func (c *Context) SetPort(v string) error {
	return c.update(ChangePort, func(s *Settings) *string { return &s.Port }, v)
}

func (c *Context) SetProgrammer(v string) error {
	return c.update(ChangeProgrammer, func(s *Settings) *string { return &s.Programmer }, v)
}

func (c *Context) SetOutput(v string) error {
	return c.update(ChangeOther, func(s *Settings) *string { return &s.Output }, v)
}

func (c *Context) SetPrebuild(v string) error {
	return c.update(ChangeOther, func(s *Settings) *string { return &s.Prebuild }, v)
}

func (c *Context) SetPostbuild(v string) error {
	return c.update(ChangeOther, func(s *Settings) *string { return &s.Postbuild }, v)
}

// SetIntelliSenseGen sets the per-project override: "enable", "disable" or
// empty to follow the global setting.
func (c *Context) SetIntelliSenseGen(v string) error {
	return c.update(ChangeOther, func(s *Settings) *string { return &s.IntelliSenseGen }, v)
}

// update persists a single field and notifies subscribers if it changed.
func (c *Context) update(kind ChangeKind, field func(*Settings) *string, v string) error {
	c.mu.Lock()
	p := field(&c.values)
	if *p == v {
		c.mu.Unlock()
		return nil
	}
	old := *p
	*p = v
	err := c.saveLocked()
	if err != nil {
		// memory follows what is on disk
		*p = old
	}
	snapshot := c.values
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.notify(Change{Kind: kind, Settings: snapshot})
	return nil
}

// Save writes the current values to arduino.json.
func (c *Context) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Context) saveLocked() error {
	known, err := json.Marshal(c.values)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return err
	}

	merged := make(map[string]json.RawMessage, len(c.extra)+len(fields))
	for k, v := range c.extra {
		if _, ours := knownKeys[k]; !ours {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}

	data, err := json.MarshalIndent(merged, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Path()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.Path(), append(data, '\n'), 0o644)
}

var knownKeys = map[string]struct{}{
	"sketch": {}, "port": {}, "board": {}, "configuration": {}, "output": {},
	"prebuild": {}, "postbuild": {}, "programmer": {}, "buildPreferences": {},
	"intelliSenseGen": {},
}

// Reload re-reads arduino.json, e.g. after it was edited by hand, and
// notifies subscribers of every field that changed.
func (c *Context) Reload() error {
	values, extra, err := readFile(c.Path())
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.values
	c.values = values
	c.extra = extra
	c.mu.Unlock()

	for _, kind := range diff(old, values) {
		c.notify(Change{Kind: kind, Settings: values})
	}
	return nil
}

func diff(a, b Settings) []ChangeKind {
	var kinds []ChangeKind
	if a.Sketch != b.Sketch {
		kinds = append(kinds, ChangeSketch)
	}
	if a.Board != b.Board {
		kinds = append(kinds, ChangeBoard)
	}
	if a.Configuration != b.Configuration {
		kinds = append(kinds, ChangeConfiguration)
	}
	if a.Port != b.Port {
		kinds = append(kinds, ChangePort)
	}
	if a.Programmer != b.Programmer {
		kinds = append(kinds, ChangeProgrammer)
	}
	return kinds
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription.
func (c *Context) Subscribe(fn func(Change)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Context) notify(ch Change) {
	c.subMu.Lock()
	fns := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}
