package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib/common.wgsl", "const A: f32 = 1.0;\n#include \"noise.wgsl\"")
	writeFile(t, dir, "lib/noise.wgsl", "fn noise() -> f32 { return A; }")
	root := writeFile(t, dir, "main.wgsl", "// top\n#include \"lib/common.wgsl\"\n  #include \"lib/noise.wgsl\"  \nfn main() {}")

	src, err := Expand(root)
	require.NoError(t, err)
	assert.Equal(t, "// top\nconst A: f32 = 1.0;\nfn noise() -> f32 { return A; }\nfn noise() -> f32 { return A; }\nfn main() {}", src.Text)
	assert.Equal(t, []string{root, filepath.Join(dir, "lib/common.wgsl"), filepath.Join(dir, "lib/noise.wgsl")}, src.Files)

	file, line := src.Origin(3)
	assert.Equal(t, filepath.Join(dir, "lib/noise.wgsl"), file)
	assert.Equal(t, 1, line)
	file, line = src.Origin(5)
	assert.Equal(t, root, file)
	assert.Equal(t, 4, line)
	file, line = src.Origin(99)
	assert.Equal(t, root, file)
	assert.Equal(t, 99, line)
}

func TestExpandMissingInclude(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.wgsl", "fn a() {}\n#include \"missing.wgsl\"")

	_, err := Expand(root)
	var ie *IncludeError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, root, ie.File)
	assert.Equal(t, 2, ie.Line)
	assert.Equal(t, "missing.wgsl", ie.Include)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExpandNestedMissingIncludeNamesInnerFile(t *testing.T) {
	dir := t.TempDir()
	inner := writeFile(t, dir, "a.wgsl", "#include \"gone.wgsl\"")
	root := writeFile(t, dir, "main.wgsl", "#include \"a.wgsl\"")

	_, err := Expand(root)
	var ie *IncludeError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, inner, ie.File)
	assert.Equal(t, "gone.wgsl", ie.Include)
}

func TestExpandCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.wgsl", "#include \"b.wgsl\"")
	writeFile(t, dir, "b.wgsl", "#include \"a.wgsl\"")
	root := writeFile(t, dir, "main.wgsl", "#include \"a.wgsl\"")

	_, err := Expand(root)
	assert.ErrorIs(t, err, errIncludeCycle)
}

func TestExpandMissingRoot(t *testing.T) {
	_, err := Expand(filepath.Join(t.TempDir(), "nope.wgsl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
