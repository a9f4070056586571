// Package intellisense derives a C/C++ IntelliSense configuration from the
// verbose output of an Arduino build.
package intellisense

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/shlex"
)

// Result is the compiler invocation found in the build output.
type Result struct {
	CompilerPath string
	CompilerArgs []string
	Includes     []string
	Defines      []string
	CppStandard  string
}

// Parser scans build output lines for the invocation that compiles the
// sketch's generated .ino.cpp.
type Parser struct {
	mu       sync.Mutex
	result   *Result
	fallback *Result
}

var windowsPath = regexp.MustCompile(`[A-Za-z]:\\`)

// Line inspects one line of compiler output.
func (p *Parser) Line(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result != nil {
		return
	}

	// shlex treats backslashes as escapes; compilers on Windows accept
	// forward slashes just as well.
	if windowsPath.MatchString(line) {
		line = strings.ReplaceAll(line, `\`, "/")
	}

	res, preprocess := parseInvocation(line)
	if res == nil {
		return
	}
	// The preprocessor pass for the sketch runs first; keep it only in case
	// the real compile never happens (e.g. a failing build).
	if preprocess {
		if p.fallback == nil {
			p.fallback = res
		}
		return
	}
	p.result = res
}

// Result returns the best invocation seen so far, or nil.
func (p *Parser) Result() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result != nil {
		return p.result
	}
	return p.fallback
}

func isCompiler(path string) bool {
	base := strings.ToLower(filepath.Base(filepath.FromSlash(path)))
	base = strings.TrimSuffix(base, ".exe")
	return strings.HasSuffix(base, "g++")
}

func parseInvocation(line string) (*Result, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, ".ino.cpp") {
		return nil, false
	}

	tokens, err := shlex.Split(line)
	if err != nil || len(tokens) < 2 || !isCompiler(tokens[0]) {
		return nil, false
	}

	res := &Result{CompilerPath: tokens[0]}
	var compileOnly, sketchSource, preprocess bool

	args := tokens[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-c":
			compileOnly = true
		case arg == "-E":
			preprocess = true
		case arg == "-o" || arg == "-x" || arg == "-MF" || arg == "-include":
			i++ // skip operand
		case arg == "-I" || arg == "-D":
			if i+1 < len(args) {
				if arg == "-I" {
					res.Includes = append(res.Includes, args[i+1])
				} else {
					res.Defines = append(res.Defines, args[i+1])
				}
				i++
			}
		case strings.HasPrefix(arg, "-I"):
			res.Includes = append(res.Includes, arg[2:])
		case strings.HasPrefix(arg, "-D"):
			res.Defines = append(res.Defines, arg[2:])
		case strings.HasPrefix(arg, "-std="):
			res.CppStandard = strings.TrimPrefix(arg, "-std=")
		case strings.HasPrefix(arg, "-m") || strings.HasPrefix(arg, "-f"):
			res.CompilerArgs = append(res.CompilerArgs, arg)
		case strings.HasSuffix(arg, ".ino.cpp"):
			sketchSource = true
		}
	}

	if !compileOnly || !sketchSource {
		return nil, false
	}
	return res, preprocess
}
