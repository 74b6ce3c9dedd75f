package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"
)

// nagaFrontend compiles WGSL in-process.
type nagaFrontend struct{}

var _ Frontend = &nagaFrontend{}

func (n *nagaFrontend) Name() string {
	return "naga"
}

func (n *nagaFrontend) CompileVertex(ctx context.Context) ([]byte, error) {
	code, err := compileWGSL(VertexWGSL)
	if err != nil {
		return nil, &ToolchainError{Op: "naga vertex", Err: err}
	}
	return code, nil
}

func (n *nagaFrontend) CompileFragment(ctx context.Context, path string) ([]byte, error) {
	src, err := Expand(path)
	if err != nil {
		d := Diagnostic{File: path, Severity: SeverityError, Message: err.Error()}
		var ie *IncludeError
		if errors.As(err, &ie) {
			d = Diagnostic{File: ie.File, Line: ie.Line, Severity: SeverityError, Message: fmt.Sprintf("#include %q: %v", ie.Include, ie.Err)}
		} else if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) {
			return nil, &ToolchainError{Op: "read", Err: err}
		}
		return nil, &CompileError{Path: path, Diagnostics: []Diagnostic{d}, Output: err.Error()}
	}

	code, err := compileWGSL(src.Text)
	if err != nil {
		var te *ToolchainError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &CompileError{Path: path, Diagnostics: []Diagnostic{nagaDiagnostic(err, src)}, Output: err.Error()}
	}
	return code, nil
}

// compileWGSL runs naga's parse, lower, validate and generate stages, then names the resource
// globals from the IR. A panic inside naga is reported as a toolchain failure.
func compileWGSL(source string) (code []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			code, err = nil, &ToolchainError{Op: "naga", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("lowering error: %w", err)
	}
	verrs, err := naga.Validate(mod)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", &verrs[0])
	}

	code, err = naga.GenerateSPIRV(mod, spirv.Options{Version: spirv.Version1_3, Debug: true})
	if err != nil {
		return nil, fmt.Errorf("SPIR-V generation error: %w", err)
	}
	if code, err = nameResources(code, mod); err != nil {
		return nil, &ToolchainError{Op: "naga names", Err: err}
	}
	return code, nil
}
