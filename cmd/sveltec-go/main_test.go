package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sveltec-go/packages/runtime/bench"
)

const counter = `<script>
	let count = 0;
</script>

<button on:click={() => count += 1}>{count}</button>
`

func TestCompileWritesModules(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "counter.svelte")
	require.NoError(t, os.WriteFile(src, []byte(counter), 0o644))
	out := filepath.Join(dir, "out")

	cmd := compileCommand()
	err := cmd.Run(context.Background(), []string{"compile", "--out", out, "--css", "external", src})
	require.NoError(t, err)

	js, err := os.ReadFile(filepath.Join(out, "Counter.js"))
	require.NoError(t, err)
	assert.Contains(t, string(js), "create_fragment")
	assert.NoFileExists(t, filepath.Join(out, "Counter.css"), "no style block, no stylesheet")
}

func TestCompileReportsFailures(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.svelte")
	require.NoError(t, os.WriteFile(src, []byte("{#if x}<p>open"), 0o644))

	err := compileCommand().Run(context.Background(), []string{"compile", src})
	assert.EqualError(t, err, "1 components failed")
}

func TestCompileRejectsUnknownCSSMode(t *testing.T) {
	err := compileCommand().Run(context.Background(), []string{"compile", "--css", "inline", "x.svelte"})
	assert.Error(t, err)
}

func TestRenderStats(t *testing.T) {
	units := compileFiles([]string{writeComponent(t, "App.svelte", counter)}, t.TempDir(), nil)
	require.Len(t, units, 1)
	require.NoError(t, units[0].err)

	var buf bytes.Buffer
	renderStats(&buf, units)
	assert.Contains(t, buf.String(), "App")
	assert.Contains(t, buf.String(), "TOTAL")
}

func TestRenderBench(t *testing.T) {
	cfg := bench.Config{Size: 20, Iterations: 3, Seed: 1}
	results, err := bench.Run(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	renderBench(&buf, cfg, results)
	for _, sc := range bench.Scenarios {
		assert.Contains(t, buf.String(), string(sc))
	}
}

func writeComponent(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}
