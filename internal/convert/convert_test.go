package convert

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nbpublish/internal/notebook"
)

// writeStub creates a fake converter executable that records its arguments
// and exits with the given code. Keeps tests independent of Jupyter.
func writeStub(t *testing.T, exitCode int) (bin string, argsFile string) {
	t.Helper()
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args.txt")
	bin = filepath.Join(dir, "fake-nbconvert")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\nexit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))
	return bin, argsFile
}

func testNotebook(t *testing.T) notebook.Notebook {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cavity.ipynb")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	return notebook.Notebook{Name: "cavity", Path: path, ScriptExt: ".jl"}
}

func TestNewMissingBinary(t *testing.T) {
	_, err := New(Options{Bin: "definitely-not-a-real-converter-binary"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConverterNotFound)
}

func TestRunScriptArguments(t *testing.T) {
	bin, argsFile := writeStub(t, 0)
	c, err := New(Options{Bin: bin, Kernel: "julia-1.11", CellTimeout: 200 * time.Second})
	require.NoError(t, err)

	nb := testNotebook(t)
	outDir := t.TempDir()
	require.NoError(t, c.Run(context.Background(), nb, TargetScript, outDir))

	raw, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := strings.TrimSpace(string(raw))

	assert.Contains(t, args, "--to script")
	assert.Contains(t, args, "--ExecutePreprocessor.kernel_name=julia-1.11")
	assert.Contains(t, args, "--ExecutePreprocessor.timeout=200")
	assert.Contains(t, args, "--output-dir="+outDir)
	assert.Contains(t, args, nb.Path)
	assert.NotContains(t, args, "--execute", "script form does not execute cells")
	assert.NotContains(t, args, "--template")
}

func TestRunMarkdownArguments(t *testing.T) {
	bin, argsFile := writeStub(t, 0)
	c, err := New(Options{Bin: bin, Kernel: "julia-1.11", CellTimeout: 200 * time.Second, Template: "markdown_custom"})
	require.NoError(t, err)

	nb := testNotebook(t)
	outDir := t.TempDir()
	require.NoError(t, c.Run(context.Background(), nb, TargetMarkdown, outDir))

	raw, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := strings.TrimSpace(string(raw))

	assert.Contains(t, args, "--to markdown")
	assert.Contains(t, args, "--template markdown_custom")
	assert.Contains(t, args, "--execute")
}

func TestRunNonZeroExitIsError(t *testing.T) {
	bin, _ := writeStub(t, 3)
	c, err := New(Options{Bin: bin, Kernel: "julia-1.11", CellTimeout: time.Second})
	require.NoError(t, err)

	err = c.Run(context.Background(), testNotebook(t), TargetScript, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversion to script failed")
}

func TestRunCancelledContext(t *testing.T) {
	bin, _ := writeStub(t, 0)
	c, err := New(Options{Bin: bin, Kernel: "julia-1.11", CellTimeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Run(ctx, testNotebook(t), TargetScript, t.TempDir())
	assert.Error(t, err)
}
