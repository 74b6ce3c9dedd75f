package check

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/shaderview/engine/program"
)

const lightShader = `
struct Light {
    color: vec3<f32>,
    intensity: f32,
}

@group(1) @binding(2) var<uniform> light: Light;

@fragment
fn main() -> @location(0) vec4<f32> {
    return vec4<f32>(light.color * light.intensity, 1.0);
}
`

const plainShader = `
@fragment
fn main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 1.0, 1.0);
}
`

const samplerShader = `
@group(0) @binding(0) var tex: texture_2d<f32>;

@fragment
fn main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureLoad(tex, vec2<i32>(0, 0), 0);
}
`

func writeShaders(t *testing.T, files map[string]string) map[string]string {
	t.Helper()
	dir := t.TempDir()
	paths := make(map[string]string, len(files))
	for name, src := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
		paths[name] = p
	}
	return paths
}

func TestCheckOrdersResults(t *testing.T) {
	p := writeShaders(t, map[string]string{
		"light.wgsl":   lightShader,
		"plain.wgsl":   plainShader,
		"sampler.wgsl": samplerShader,
		"broken.wgsl":  "fn main( {",
	})

	results := NewChecker(WithWorkers(2)).Check(context.Background(),
		p["light.wgsl"], p["broken.wgsl"], p["plain.wgsl"], p["sampler.wgsl"])
	require.Len(t, results, 4)

	light := results[0]
	require.NoError(t, light.Err)
	assert.Equal(t, "naga", light.Frontend)
	require.Len(t, light.Layouts, 1)
	l := light.Layouts[0]
	assert.Equal(t, uint32(1), l.Set)
	assert.Equal(t, uint32(2), l.Binding)
	assert.Equal(t, "Light", l.Name)
	require.Len(t, l.Fields, 2)
	assert.Equal(t, program.KindVec3, l.Fields[0].Kind)
	assert.Equal(t, uint64(16), l.Fields[1].Offset)

	assert.True(t, results[1].Failed())
	assert.Equal(t, p["broken.wgsl"], results[1].Path)

	require.NoError(t, results[2].Err)
	assert.Empty(t, results[2].Layouts)

	var be *program.BindingError
	assert.ErrorAs(t, results[3].Err, &be)
}

func TestCheckNoPaths(t *testing.T) {
	assert.Empty(t, NewChecker().Check(context.Background()))
}

func TestPrint(t *testing.T) {
	p := writeShaders(t, map[string]string{
		"light.wgsl":  lightShader,
		"plain.wgsl":  plainShader,
		"broken.wgsl": "fn main( {",
	})
	results := NewChecker().Check(context.Background(), p["light.wgsl"], p["plain.wgsl"], p["broken.wgsl"])

	var out bytes.Buffer
	assert.Equal(t, 1, Print(&out, results))

	s := out.String()
	assert.Contains(t, s, "ok   "+p["light.wgsl"]+" (naga)")
	assert.Contains(t, s, "GROUP")
	assert.Regexp(t, `1\s+2\s+Light\s+intensity\s+float\s+16\s+4`, s)
	assert.Contains(t, s, "no uniforms")
	assert.Contains(t, s, "FAIL "+p["broken.wgsl"])
}
