package compiler

import (
	_ "embed"
)

// VertexGLSL is the fixed vertex stage paired with GLSL fragment shaders. It emits a single
// full-screen triangle with uv in [0, 2] at location 0.
//
//go:embed assets/vertex.glsl
var VertexGLSL string

// VertexWGSL is the WGSL twin of VertexGLSL, paired with WGSL fragment shaders.
//
//go:embed assets/vertex.wgsl
var VertexWGSL string
