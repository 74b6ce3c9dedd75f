package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/shaderview/engine/config"
)

const solidShader = `
struct Tint {
    color: vec4<f32>,
}

@group(0) @binding(0) var<uniform> tint: Tint;

@fragment
fn main() -> @location(0) vec4<f32> {
    return tint.color;
}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootRequiresOneShader(t *testing.T) {
	out, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, out, "accepts 1 arg(s), received 0")
	assert.Contains(t, out, "Usage:")

	_, err = execute(t, "a.frag", "b.frag")
	assert.Error(t, err)
}

func TestRootRejectsMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.frag")
	out, err := execute(t, missing)
	require.Error(t, err)
	assert.Contains(t, out, "shader "+missing)

	_, err = execute(t, t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}

func TestFlagsOverrideConfig(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--present-mode", "vsync", "--glslc-args", "-O", "--no-color"}))

	cfg := config.Default()
	cfg.Watch.Backend = "fsnotify"
	f := &rootFlags{presentMode: "vsync", glslcArgs: "-O", noColor: true}
	f.apply(cmd, cfg)

	assert.Equal(t, "vsync", cfg.Render.PresentMode)
	assert.Equal(t, "-O", cfg.Compiler.GlslcArgs)
	assert.False(t, cfg.Log.Color)
	assert.Equal(t, "fsnotify", cfg.Watch.Backend)
	assert.Equal(t, "glslc", cfg.Compiler.Glslc)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "solid.wgsl")
	bad := filepath.Join(dir, "bad.wgsl")
	require.NoError(t, os.WriteFile(good, []byte(solidShader), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("fn main( {"), 0o644))

	out, err := execute(t, "check", "-q", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   "+good+" (naga)")
	assert.Regexp(t, `0\s+0\s+Tint\s+color\s+vec4\s+0\s+16`, out)

	out, err = execute(t, "check", "-q", good, bad)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL "+bad)
	assert.NotContains(t, out, "Usage:")
}

func TestCheckEntryPoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "named.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(`
@group(0) @binding(0) var<uniform> gain: f32;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(gain, gain, gain, 1.0);
}
`), 0o644))

	out, err := execute(t, "check", "-q", path)
	require.Error(t, err)
	assert.Contains(t, out, `no fragment entry point named "main"`)

	out, err = execute(t, "check", "-q", "--entry", "fs_main", path)
	require.NoError(t, err)
	assert.Regexp(t, `0\s+0\s+gain\s+gain\s+float\s+0\s+4`, out)
}

func TestCheckRequiresShader(t *testing.T) {
	out, err := execute(t, "check")
	require.Error(t, err)
	assert.Contains(t, out, "requires at least 1 arg(s)")
}
