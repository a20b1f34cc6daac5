package publish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCopyDirCreatesDestination(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "a.md"), "a")
	write(t, filepath.Join(src, "figures", "a_1.png"), "png")

	dest := filepath.Join(t.TempDir(), "nested", "dest")
	require.NoError(t, CopyDir(src, dest))

	assert.Equal(t, "a", read(t, filepath.Join(dest, "a.md")))
	assert.Equal(t, "png", read(t, filepath.Join(dest, "figures", "a_1.png")))
}

func TestCopyDirForceOverwrites(t *testing.T) {
	src := t.TempDir()
	write(t, filepath.Join(src, "a.md"), "new version")

	dest := t.TempDir()
	write(t, filepath.Join(dest, "a.md"), "stale version")
	write(t, filepath.Join(dest, "unrelated.md"), "keep me")

	require.NoError(t, CopyDir(src, dest))

	// Colliding names take the source's content; others survive.
	assert.Equal(t, "new version", read(t, filepath.Join(dest, "a.md")))
	assert.Equal(t, "keep me", read(t, filepath.Join(dest, "unrelated.md")))
}

func TestCopyDirMissingSource(t *testing.T) {
	err := CopyDir(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accessible")
}

func TestCopyDirSourceIsFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "file.md")
	write(t, src, "x")
	err := CopyDir(src, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestCopyDirPreservesMode(t *testing.T) {
	src := t.TempDir()
	script := filepath.Join(src, "run.sh")
	write(t, script, "#!/bin/sh\n")
	require.NoError(t, os.Chmod(script, 0755))

	dest := t.TempDir()
	require.NoError(t, CopyDir(src, dest))

	info, err := os.Stat(filepath.Join(dest, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestPublishMultipleTargets(t *testing.T) {
	md := t.TempDir()
	write(t, filepath.Join(md, "cavity.md"), "rendered")
	snippets := t.TempDir()
	write(t, filepath.Join(snippets, "cavity.jl"), "code")

	root := t.TempDir()
	targets := []Target{
		{Name: "docs", Source: md, Dest: filepath.Join(root, "docs")},
		{Name: "snippets", Source: snippets, Dest: filepath.Join(root, "web")},
	}
	require.NoError(t, Publish(targets))

	assert.Equal(t, "rendered", read(t, filepath.Join(root, "docs", "cavity.md")))
	assert.Equal(t, "code", read(t, filepath.Join(root, "web", "cavity.jl")))
}

func TestPublishFailsOnMissingSource(t *testing.T) {
	err := Publish([]Target{{Name: "docs", Source: filepath.Join(t.TempDir(), "nope"), Dest: t.TempDir()}})
	assert.Error(t, err)
}
