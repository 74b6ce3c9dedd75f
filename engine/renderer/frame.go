package renderer

import (
	"github.com/Carmen-Shannon/shaderview/engine/program"
)

// FullScreenVertexCount is the number of vertices of the full-screen triangle emitted by the
// built-in vertex stage.
const FullScreenVertexCount = 3

// passEncoder is the subset of a render pass that drawing a Program needs.
type passEncoder interface {
	SetPipeline(pipeline program.Handle)
	SetBindGroup(index uint32, bindGroup program.Handle)
	SetConstants(data []byte)
	Draw(vertexCount uint32)
}

// uploadUniforms writes every dirty uniform of p through backend and marks it clean.
//
// Returns:
//   - int: the number of buffers written
func uploadUniforms(backend program.Backend, p program.Program) int {
	n := 0
	for _, g := range p.Groups() {
		for _, binding := range g.Bindings() {
			u := g.Uniforms[binding]
			if !u.Dirty() {
				continue
			}
			backend.WriteBuffer(u.Buffer(), u.Bytes())
			u.MarkClean()
			n++
		}
	}
	return n
}

// drawProgram records the full-screen draw of p: pipeline, one bind group per used group index,
// the constants block, then the triangle.
func drawProgram(pass passEncoder, p program.Program) {
	pass.SetPipeline(p.Pipeline())
	for _, g := range p.Groups() {
		pass.SetBindGroup(g.Index, g.BindGroup)
	}
	pass.SetConstants(p.Constants().Bytes())
	pass.Draw(FullScreenVertexCount)
}

// UniformSnapshot is a copy of one uniform's values taken under the active program lock.
type UniformSnapshot struct {
	Group   uint32
	Binding uint32
	Name    string
	Fields  []program.Field
}

func snapshotUniforms(p program.Program) []UniformSnapshot {
	var out []UniformSnapshot
	for _, g := range p.Groups() {
		for _, binding := range g.Bindings() {
			u := g.Uniforms[binding]
			out = append(out, UniformSnapshot{
				Group:   g.Index,
				Binding: binding,
				Name:    u.Name(),
				Fields:  u.Fields(),
			})
		}
	}
	return out
}
