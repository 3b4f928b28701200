package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exitErr struct{ code int }

func (e exitErr) Error() string { return "exit status" }
func (e exitErr) ExitCode() int { return e.code }

type call struct {
	env  []string
	name string
	args []string
}

type fakeRunner struct {
	calls   []call
	results map[string]error
}

func (f *fakeRunner) Run(_ context.Context, env []string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{env: env, name: name, args: args})
	return []byte("log output"), f.results[name]
}

func TestOutputPath(t *testing.T) {
	got := OutputPath(filepath.Join("data", "uploads", "report.v2.pdf"))
	assert.Equal(t, filepath.Join("data", "uploads", "processed", "report.v2_ocr.pdf"), got)
}

func TestRunProcessed(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scan.pdf")
	runner := &fakeRunner{}
	p := New(Config{}, runner)

	res := p.Run(context.Background(), input, Options{Force: true})

	require.NoError(t, res.Err)
	assert.Equal(t, StatusProcessed, res.Status)
	assert.Equal(t, OutputPath(input), res.Path)
	assert.False(t, res.Advanced)
	require.Len(t, runner.calls, 1)
	args := runner.calls[0].args
	assert.Equal(t, "ocrmypdf", runner.calls[0].name)
	assert.Contains(t, args, "--force-ocr")
	assert.Contains(t, args, "pdfa")
	assert.NotContains(t, args, "--clean")
	assert.Equal(t, []string{input, OutputPath(input)}, args[len(args)-2:])
	assert.DirExists(t, OutputDir(input))
}

func TestRunPriorTextSkips(t *testing.T) {
	input := filepath.Join(t.TempDir(), "digital.pdf")
	runner := &fakeRunner{results: map[string]error{"ocrmypdf": exitErr{code: 6}}}

	res := New(Config{}, runner).Run(context.Background(), input, Options{})

	require.NoError(t, res.Err)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, input, res.Path)
	assert.NotContains(t, runner.calls[0].args, "--force-ocr")
}

func TestRunFailure(t *testing.T) {
	input := filepath.Join(t.TempDir(), "broken.pdf")
	runner := &fakeRunner{results: map[string]error{"ocrmypdf": exitErr{code: 2}}}

	res := New(Config{}, runner).Run(context.Background(), input, Options{})

	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, res.Path)
	assert.Error(t, res.Err)
}

func TestAdvancedRequiresUnpaper(t *testing.T) {
	input := filepath.Join(t.TempDir(), "scan.pdf")

	ok := &fakeRunner{}
	res := New(Config{}, ok).Run(context.Background(), input, Options{Advanced: true})
	assert.True(t, res.Advanced)
	require.Len(t, ok.calls, 2)
	assert.Equal(t, "unpaper", ok.calls[0].name)
	assert.Equal(t, []string{"--version"}, ok.calls[0].args)
	assert.Contains(t, ok.calls[1].args, "--clean")
	assert.Contains(t, ok.calls[1].args, "--remove-background")

	missing := &fakeRunner{results: map[string]error{"unpaper": errors.New("not found")}}
	res = New(Config{}, missing).Run(context.Background(), input, Options{Advanced: true})
	assert.False(t, res.Advanced)
	assert.Equal(t, StatusProcessed, res.Status)
	assert.NotContains(t, missing.calls[1].args, "--clean")
}

func TestTesseractPathPrependsPATH(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "tesseract")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	runner := &fakeRunner{}

	New(Config{TesseractPath: bin}, runner).Run(context.Background(), filepath.Join(dir, "a.pdf"), Options{})

	require.Len(t, runner.calls[0].env, 1)
	assert.True(t, strings.HasPrefix(runner.calls[0].env[0], "PATH="+dir+string(os.PathListSeparator)))
}

func TestRemoveOutput(t *testing.T) {
	input := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.MkdirAll(OutputDir(input), 0o755))
	require.NoError(t, os.WriteFile(OutputPath(input), []byte("%PDF"), 0o644))

	require.NoError(t, RemoveOutput(input))
	assert.NoFileExists(t, OutputPath(input))
	assert.NoDirExists(t, OutputDir(input))
	require.NoError(t, RemoveOutput(input))
}
