package device

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoWorkspace is returned when no sketch workspace encloses a directory.
var ErrNoWorkspace = errors.New("no Arduino workspace found (no .vscode/arduino.json or .ino file)")

// Detect walks up from startDir looking for .vscode/arduino.json. A directory
// holding an .ino file is remembered as a fallback while walking.
func Detect(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	var sketchDir string
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}

		if sketchDir == "" && hasSketch(dir) {
			sketchDir = dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if sketchDir != "" {
		return sketchDir, nil
	}
	return "", ErrNoWorkspace
}

func hasSketch(dir string) bool {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.ino"))
	return len(matches) > 0
}

// skipDirs are never searched for sketches.
var skipDirs = map[string]bool{
	"node_modules": true,
	"build":        true,
}

// SketchCandidates lists .ino files below the workspace root as slash
// separated relative paths.
func (c *Context) SketchCandidates() ([]string, error) {
	var found []string
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != c.root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".ino") {
			rel, err := filepath.Rel(c.root, path)
			if err == nil {
				found = append(found, filepath.ToSlash(rel))
			}
		}
		return nil
	})
	sort.Strings(found)
	return found, err
}

// SketchPath returns the absolute path of the configured sketch, or "" if
// none is set.
func (c *Context) SketchPath() string {
	s := c.Settings().Sketch
	if s == "" {
		return ""
	}
	if filepath.IsAbs(s) {
		return s
	}
	return filepath.Join(c.root, filepath.FromSlash(s))
}

// SketchExists reports whether the configured sketch file exists.
func (c *Context) SketchExists() bool {
	p := c.SketchPath()
	if p == "" {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
