package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDiagnostics(t *testing.T) {
	out := "shader.frag:12: error: 'colour' : undeclared identifier\n" +
		"lib/util.glsl:3: warning: 'x' : unused\n" +
		"shader.frag: error: #version: missing\n" +
		"2 errors generated.\n"

	diags := ParseDiagnostics(out)
	require.Len(t, diags, 3)
	assert.Equal(t, Diagnostic{File: "shader.frag", Line: 12, Severity: SeverityError, Message: "'colour' : undeclared identifier"}, diags[0])
	assert.Equal(t, Diagnostic{File: "lib/util.glsl", Line: 3, Severity: SeverityWarning, Message: "'x' : unused"}, diags[1])
	assert.Equal(t, Diagnostic{File: "shader.frag", Severity: SeverityError, Message: "#version: missing"}, diags[2])
	assert.Empty(t, ParseDiagnostics("1 error generated.\n"))
}

func TestCompileErrorMessage(t *testing.T) {
	err := &CompileError{Path: "a.frag", Diagnostics: []Diagnostic{
		{File: "a.frag", Line: 2, Severity: SeverityWarning, Message: "w"},
		{File: "a.frag", Line: 4, Severity: SeverityError, Message: "first"},
		{File: "a.frag", Line: 9, Severity: SeverityError, Message: "second"},
	}}
	assert.Equal(t, "compile a.frag: a.frag:4: error: first (and 1 more errors)", err.Error())
}

func TestNagaDiagnostic(t *testing.T) {
	src := &Source{Path: "main.wgsl", origins: []lineOrigin{{"main.wgsl", 1}, {"inc.wgsl", 1}, {"inc.wgsl", 2}}}

	d := nagaDiagnostic(errors.New("parse error: line 3, column 7: expected ';'"), src)
	assert.Equal(t, Diagnostic{File: "inc.wgsl", Line: 2, Column: 7, Severity: SeverityError, Message: "expected ';'"}, d)

	d = nagaDiagnostic(errors.New("lowering error: 1:4: unknown identifier"), src)
	assert.Equal(t, Diagnostic{File: "main.wgsl", Line: 1, Column: 4, Severity: SeverityError, Message: "unknown identifier"}, d)

	d = nagaDiagnostic(errors.New("validation failed: bad"), src)
	assert.Equal(t, Diagnostic{File: "main.wgsl", Severity: SeverityError, Message: "validation failed: bad"}, d)
}

func TestToolchainErrorUnwrap(t *testing.T) {
	inner := errors.New("exec: not found")
	err := &ToolchainError{Op: "glslc", Err: inner, Output: "  \n"}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "glslc: exec: not found", err.Error())
}
