package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// glslcFrontend runs the shaderc command-line compiler once per compile.
type glslcFrontend struct {
	exe       string
	args      []string
	targetEnv string
}

var _ Frontend = &glslcFrontend{}

func (g *glslcFrontend) Name() string {
	return "glslc"
}

func (g *glslcFrontend) CompileVertex(ctx context.Context) ([]byte, error) {
	code, err := g.run(ctx, "vertex.glsl", strings.NewReader(VertexGLSL), "-fshader-stage=vert", "-")
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, &ToolchainError{Op: "glslc vertex", Err: err, Output: ce.Output}
		}
		return nil, err
	}
	return code, nil
}

func (g *glslcFrontend) CompileFragment(ctx context.Context, path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &CompileError{
			Path:        path,
			Diagnostics: []Diagnostic{{File: path, Severity: SeverityError, Message: err.Error()}},
		}
	}
	return g.run(ctx, path, nil, "-fshader-stage=frag", "-I", filepath.Dir(path), path)
}

func (g *glslcFrontend) run(ctx context.Context, name string, stdin *strings.Reader, args ...string) ([]byte, error) {
	full := []string{"--target-env=" + g.targetEnv}
	full = append(full, g.args...)
	full = append(full, "-o", "-")
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, g.exe, full...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		if stdout.Len() == 0 {
			return nil, &ToolchainError{Op: "glslc", Err: fmt.Errorf("no output for %s", name), Output: stderr.String()}
		}
		return stdout.Bytes(), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, &ToolchainError{Op: "glslc", Err: err}
	}
	var diags []Diagnostic
	for _, d := range ParseDiagnostics(stderr.String()) {
		// Messages attributed to glslc itself are about its invocation, not the shader.
		if d.File == "glslc" {
			return nil, &ToolchainError{Op: "glslc", Err: err, Output: stderr.String()}
		}
		diags = append(diags, d)
	}
	if len(diags) == 0 {
		return nil, &ToolchainError{Op: "glslc", Err: err, Output: stderr.String()}
	}
	return nil, &CompileError{Path: name, Diagnostics: diags, Output: stderr.String()}
}
