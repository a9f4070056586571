package intellisense

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigurationName is the entry in c_cpp_properties.json owned by this tool.
const ConfigurationName = "Arduino"

// PropertiesFile is the IntelliSense file relative to the workspace root.
var PropertiesFile = filepath.Join(".vscode", "c_cpp_properties.json")

const propertiesVersion = 4

// Merge writes res into the Arduino configuration of the properties file at
// path, keeping every other configuration and unknown field. It reports
// whether the file content changed.
func Merge(path string, res *Result, forcedInclude []string) (bool, error) {
	old, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	doc := map[string]any{}
	if len(bytes.TrimSpace(old)) > 0 {
		if err := json.Unmarshal(old, &doc); err != nil {
			return false, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	configs, _ := doc["configurations"].([]any)
	var target map[string]any
	for _, c := range configs {
		if m, ok := c.(map[string]any); ok && m["name"] == ConfigurationName {
			target = m
			break
		}
	}
	if target == nil {
		target = map[string]any{"name": ConfigurationName}
		configs = append(configs, target)
	}

	target["compilerPath"] = res.CompilerPath
	target["compilerArgs"] = nonNil(res.CompilerArgs)
	target["intelliSenseMode"] = "gcc-x64"
	target["includePath"] = nonNil(res.Includes)
	target["forcedInclude"] = nonNil(forcedInclude)
	target["cStandard"] = "c11"
	target["cppStandard"] = cppStandard(res.CppStandard)
	target["defines"] = nonNil(res.Defines)

	doc["configurations"] = configs
	if _, ok := doc["version"]; !ok {
		doc["version"] = propertiesVersion
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return false, err
	}
	data = append(data, '\n')
	if bytes.Equal(data, old) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	return true, os.WriteFile(path, data, 0o644)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func cppStandard(std string) string {
	if std == "" {
		return "c++11"
	}
	return std
}
