package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Severity is the level of a compiler diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one message reported by a shader front-end, located in a source file.
type Diagnostic struct {
	// File is the file the message refers to, which may be an included file.
	File string

	// Line is the 1-based line number, or 0 when the message has no location.
	Line int

	// Column is the 1-based column number, or 0 when unknown.
	Column int

	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	switch {
	case d.Line > 0 && d.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
	case d.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Severity, d.Message)
	default:
		return fmt.Sprintf("%s: %s: %s", d.File, d.Severity, d.Message)
	}
}

// CompileError is an authoring error in the shader source. The preview keeps running the
// previous program when it is returned.
type CompileError struct {
	// Path is the shader file that was compiled.
	Path string

	// Diagnostics lists every error and warning the front-end reported.
	Diagnostics []Diagnostic

	// Output is the raw front-end output.
	Output string
}

func (e *CompileError) Error() string {
	errs := 0
	var first *Diagnostic
	for i := range e.Diagnostics {
		if e.Diagnostics[i].Severity == SeverityError {
			errs++
			if first == nil {
				first = &e.Diagnostics[i]
			}
		}
	}
	if first == nil {
		return fmt.Sprintf("compile %s: %s", e.Path, strings.TrimSpace(e.Output))
	}
	if errs == 1 {
		return fmt.Sprintf("compile %s: %s", e.Path, first)
	}
	return fmt.Sprintf("compile %s: %s (and %d more errors)", e.Path, first, errs-1)
}

// ToolchainError is a failure of the compiler itself rather than of the shader source: a
// missing executable, an unexpected exit, or malformed output.
type ToolchainError struct {
	// Op names the failed step, e.g. "glslc" or "naga".
	Op string

	Err    error
	Output string
}

func (e *ToolchainError) Error() string {
	if out := strings.TrimSpace(e.Output); out != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, out)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ToolchainError) Unwrap() error {
	return e.Err
}

// glslc writes "file:line: error: message"; file-level messages omit the line.
var glslcDiagnostic = regexp.MustCompile(`^(.*?):(?:(\d+):)? (error|warning): (.*)$`)

// ParseDiagnostics extracts the diagnostics from glslc's standard error. Lines that are not
// diagnostics, such as the trailing "1 error generated." summary, are skipped.
//
// Parameters:
//   - output: the glslc standard error text
//
// Returns:
//   - []Diagnostic: the parsed diagnostics in output order
func ParseDiagnostics(output string) []Diagnostic {
	var out []Diagnostic
	for _, line := range strings.Split(output, "\n") {
		m := glslcDiagnostic.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		d := Diagnostic{File: m[1], Severity: Severity(m[3]), Message: strings.TrimSpace(m[4])}
		if m[2] != "" {
			d.Line, _ = strconv.Atoi(m[2])
		}
		out = append(out, d)
	}
	return out
}

// naga reports "line L, column C: msg" from the parser and "L:C: msg" from later stages.
var nagaLocation = regexp.MustCompile(`(?:line (\d+), column (\d+)|(\d+):(\d+)): (.*)$`)

// nagaDiagnostic converts a naga error into a diagnostic, mapping the location in the
// expanded source back to the file and line it came from.
func nagaDiagnostic(err error, src *Source) Diagnostic {
	msg := err.Error()
	d := Diagnostic{File: src.Path, Severity: SeverityError, Message: msg}
	m := nagaLocation.FindStringSubmatch(msg)
	if m == nil {
		return d
	}
	line, col := m[1], m[2]
	if line == "" {
		line, col = m[3], m[4]
	}
	n, _ := strconv.Atoi(line)
	d.Column, _ = strconv.Atoi(col)
	d.File, d.Line = src.Origin(n)
	d.Message = m[5]
	return d
}
