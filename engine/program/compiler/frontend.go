package compiler

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Frontend compiles shader source to SPIR-V. Each implementation owns its toolchain and the
// matching built-in vertex stage.
type Frontend interface {
	// Name identifies the front-end in logs.
	//
	// Returns:
	//   - string: "glslc" or "naga"
	Name() string

	// CompileVertex compiles the built-in vertex stage.
	//
	// Parameters:
	//   - ctx: cancels an in-flight external compile
	//
	// Returns:
	//   - []byte: the vertex-stage SPIR-V
	//   - error: any error; the vertex source is fixed, so every failure is a toolchain failure
	CompileVertex(ctx context.Context) ([]byte, error)

	// CompileFragment compiles the fragment shader at path, resolving #include directives
	// against the file's directory.
	//
	// Parameters:
	//   - ctx: cancels an in-flight external compile
	//   - path: the fragment shader file
	//
	// Returns:
	//   - []byte: the fragment-stage SPIR-V
	//   - error: a *CompileError for authoring errors, a *ToolchainError otherwise
	CompileFragment(ctx context.Context, path string) ([]byte, error)
}

// frontendOptions collects the settings shared by both front-ends.
type frontendOptions struct {
	glslc     string
	glslcArgs []string
	targetEnv string
}

// FrontendBuilderOption is a functional option applied by NewFrontend.
type FrontendBuilderOption func(*frontendOptions)

// WithGlslc sets the glslc executable.
//
// Parameters:
//   - path: the executable name or path (default "glslc")
//
// Returns:
//   - FrontendBuilderOption: option function to apply
func WithGlslc(path string) FrontendBuilderOption {
	return func(o *frontendOptions) {
		if path != "" {
			o.glslc = path
		}
	}
}

// WithGlslcArgs appends extra glslc arguments, e.g. "-O" or "-DQUALITY=2".
//
// Parameters:
//   - args: the extra arguments
//
// Returns:
//   - FrontendBuilderOption: option function to apply
func WithGlslcArgs(args ...string) FrontendBuilderOption {
	return func(o *frontendOptions) {
		o.glslcArgs = append(o.glslcArgs, args...)
	}
}

// WithTargetEnv sets glslc's --target-env.
//
// Parameters:
//   - env: the target environment (default "vulkan1.0")
//
// Returns:
//   - FrontendBuilderOption: option function to apply
func WithTargetEnv(env string) FrontendBuilderOption {
	return func(o *frontendOptions) {
		if env != "" {
			o.targetEnv = env
		}
	}
}

// NewFrontend picks the front-end for a shader file by extension: ".wgsl" files compile
// in-process with naga, anything else is treated as GLSL and compiled with glslc.
//
// Parameters:
//   - path: the fragment shader file
//   - options: functional options applied after defaults
//
// Returns:
//   - Frontend: the front-end for the file
func NewFrontend(path string, options ...FrontendBuilderOption) Frontend {
	o := &frontendOptions{glslc: "glslc", targetEnv: "vulkan1.0"}
	for _, opt := range options {
		opt(o)
	}
	if strings.EqualFold(filepath.Ext(path), ".wgsl") {
		return &nagaFrontend{}
	}
	return &glslcFrontend{exe: o.glslc, args: o.glslcArgs, targetEnv: o.targetEnv}
}

// SplitArgs splits a shell-style argument string, honoring quotes and escapes.
//
// Parameters:
//   - s: the argument string
//
// Returns:
//   - []string: the arguments
//   - error: an error for unbalanced quotes
func SplitArgs(s string) ([]string, error) {
	return shellwords.Parse(s)
}
