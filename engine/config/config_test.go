package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 50*time.Millisecond, c.Debounce())
	assert.Equal(t, "mailbox", c.Render.PresentMode)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "view.toml", `
profile = true

[window]
width = 1024

[compiler]
entry_point = "fs_main"
glslc_args = '-O -DLABEL="two words"'

[watch]
backend = "fsnotify"
debounce_ms = 120
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Profile)
	assert.Equal(t, 1024, c.Window.Width)
	assert.Equal(t, 800, c.Window.Height, "unset keys keep their default")
	assert.Equal(t, "fsnotify", c.Watch.Backend)
	assert.Equal(t, 120*time.Millisecond, c.Debounce())
	assert.Equal(t, "fs_main", c.Compiler.EntryPoint)

	args, err := c.GlslcArgs()
	require.NoError(t, err)
	assert.Equal(t, []string{"-O", "-DLABEL=two words"}, args)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "view.yml", `
render:
  present_mode: vsync
  force_fallback_adapter: true
log:
  level: debug
  color: false
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "vsync", c.Render.PresentMode)
	assert.True(t, c.Render.ForceFallbackAdapter)
	assert.Equal(t, "debug", c.Log.Level)
	assert.False(t, c.Log.Color)
	assert.Equal(t, "glslc", c.Compiler.Glslc)
	assert.Equal(t, "main", c.Compiler.EntryPoint)
}

func TestLoadEmptyYAML(t *testing.T) {
	c, err := Load(writeFile(t, t.TempDir(), "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	for name, tc := range map[string]struct {
		file, content, want string
	}{
		"unknown toml key":  {"a.toml", "[window]\ndepth = 3\n", "strict mode"},
		"unknown yaml key":  {"a.yaml", "window:\n  depth: 3\n", "field depth not found"},
		"format":            {"a.json", "{}", `unsupported format ".json"`},
		"present mode":      {"b.toml", "[render]\npresent_mode = \"triple\"\n", `render.present_mode "triple"`},
		"watch backend":     {"c.toml", "[watch]\nbackend = \"poll\"\n", `watch.backend "poll"`},
		"negative debounce": {"d.toml", "[watch]\ndebounce_ms = -1\n", "watch.debounce_ms -1"},
		"log level":         {"e.toml", "[log]\nlevel = \"loud\"\n", "log.level"},
		"window size":       {"f.toml", "[window]\nwidth = 0\n", "window size 0x800"},
		"glslc args":        {"g.toml", "[compiler]\nglslc_args = '-D\"open'\n", "compiler.glslc_args"},
		"entry point":       {"h.yaml", "compiler:\n  entry_point: \"\"\n", "compiler.entry_point"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, dir, tc.file, tc.content))
			assert.ErrorContains(t, err, tc.want)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	shader := writeFile(t, dir, "plasma.frag", "void main() {}\n")

	c, from, err := Resolve(shader, "")
	require.NoError(t, err)
	assert.Empty(t, from)
	assert.Equal(t, Default(), c)

	local := writeFile(t, dir, DefaultFile, "[window]\ntitle = \"plasma\"\n")
	c, from, err = Resolve(shader, "")
	require.NoError(t, err)
	assert.Equal(t, local, from)
	assert.Equal(t, "plasma", c.Window.Title)

	explicit := writeFile(t, t.TempDir(), "other.yaml", "window:\n  title: other\n")
	c, from, err = Resolve(shader, explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, from)
	assert.Equal(t, "other", c.Window.Title)
}
