package process

import (
	"os"
	"sort"
	"strings"
)

// Overlay returns a copy of base with vars set, replacing any existing
// entries of the same name. Added entries are appended in name order so the
// result is deterministic.
func Overlay(base []string, vars map[string]string) []string {
	result := make([]string, 0, len(base)+len(vars))
	seen := make(map[string]bool, len(vars))

	for _, e := range base {
		name, _, _ := strings.Cut(e, "=")
		if v, ok := vars[name]; ok {
			result = append(result, name+"="+v)
			seen[name] = true
			continue
		}
		result = append(result, e)
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		result = append(result, name+"="+vars[name])
	}
	return result
}

// Environ is Overlay applied to the current process environment.
func Environ(vars map[string]string) []string {
	return Overlay(os.Environ(), vars)
}
