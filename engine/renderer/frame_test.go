package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/Carmen-Shannon/shaderview/engine/program/programtest"
)

type recordedCall struct {
	op    string
	index uint32
	arg   any
}

type recordingPass struct {
	calls []recordedCall
}

func (p *recordingPass) SetPipeline(pipeline program.Handle) {
	p.calls = append(p.calls, recordedCall{op: "pipeline", arg: pipeline})
}

func (p *recordingPass) SetBindGroup(index uint32, bindGroup program.Handle) {
	p.calls = append(p.calls, recordedCall{op: "bindgroup", index: index, arg: bindGroup})
}

func (p *recordingPass) SetConstants(data []byte) {
	p.calls = append(p.calls, recordedCall{op: "constants", arg: data})
}

func (p *recordingPass) Draw(vertexCount uint32) {
	p.calls = append(p.calls, recordedCall{op: "draw", index: vertexCount})
}

func assembleTwoGroups(t *testing.T) (*programtest.Backend, program.Program) {
	t.Helper()
	backend := programtest.NewBackend()
	a := program.NewAssembler(backend)
	require.NoError(t, a.SetVertex(programtest.Vertex()))
	t.Cleanup(a.Release)

	p, err := a.Assemble("frame.frag#1", programtest.Fragment(
		programtest.Binding{
			Set: 0, Binding: 0, Var: "light", Struct: "Light",
			Fields: []programtest.Field{{Name: "color", Type: programtest.Vec3}, {Name: "intensity", Type: programtest.F32}},
		},
		programtest.Binding{
			Set: 3, Binding: 2, Var: "params", Struct: "Params",
			Fields: []programtest.Field{{Name: "steps", Type: programtest.I32}},
		},
	))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return backend, p
}

func TestUploadUniformsWritesOnlyDirty(t *testing.T) {
	backend, p := assembleTwoGroups(t)

	assert.Equal(t, 2, uploadUniforms(backend, p))
	light, _ := p.Uniform(0, 0)
	assert.Equal(t, light.Bytes(), backend.Written(light.Buffer()))
	assert.False(t, light.Dirty())

	assert.Equal(t, 0, uploadUniforms(backend, p))

	params, _ := p.Uniform(3, 2)
	require.NoError(t, params.Set("steps", program.Int(8)))
	assert.Equal(t, 1, uploadUniforms(backend, p))
	assert.Equal(t, program.Int(8).Bytes(), backend.Written(params.Buffer()))
}

func TestDrawProgramOrder(t *testing.T) {
	_, p := assembleTwoGroups(t)
	c := program.NewConstants()
	c.Time = 2.5
	p.SetConstants(c)

	pass := &recordingPass{}
	drawProgram(pass, p)

	g0, _ := p.Group(0)
	g3, _ := p.Group(3)
	require.Len(t, pass.calls, 5)
	assert.Equal(t, recordedCall{op: "pipeline", arg: p.Pipeline()}, pass.calls[0])
	assert.Equal(t, recordedCall{op: "bindgroup", index: 0, arg: g0.BindGroup}, pass.calls[1])
	assert.Equal(t, recordedCall{op: "bindgroup", index: 3, arg: g3.BindGroup}, pass.calls[2])
	assert.Equal(t, recordedCall{op: "constants", arg: c.Bytes()}, pass.calls[3])
	assert.Equal(t, recordedCall{op: "draw", index: FullScreenVertexCount}, pass.calls[4])
}

func TestSnapshotUniforms(t *testing.T) {
	_, p := assembleTwoGroups(t)
	light, _ := p.Uniform(0, 0)
	require.NoError(t, light.Set("intensity", program.Float(0.25)))

	snap := snapshotUniforms(p)
	require.Len(t, snap, 2)
	assert.Equal(t, "Light", snap[0].Name)
	assert.Equal(t, uint32(3), snap[1].Group)
	assert.Equal(t, uint32(2), snap[1].Binding)
	assert.Equal(t, program.Float(0.25), snap[0].Fields[1].Value)

	// The snapshot is a copy.
	require.NoError(t, light.Set("intensity", program.Float(4)))
	assert.Equal(t, program.Float(0.25), snap[0].Fields[1].Value)
}
