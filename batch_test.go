package batchply

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportedNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunnerConvertsGoodAndReportsCorrupt(t *testing.T) {
	cfg := *testConfig(t)
	cfg.Scale = 2
	cfg.RotationZ = 90
	cfg.BaseHeight = 5
	writeBoxPly(t, cfg.ImportDir, "part_a.ply")
	writeFile(t, cfg.ImportDir, "corrupt.ply", []byte("this is not a mesh\n\x00\x01"))

	var logs bytes.Buffer
	r := NewRunner(cfg, NewLogger(&logs, true))
	report, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, []string{"part_a"}, report.Succeeded)
	assert.Equal(t, []string{filepath.Join(cfg.ExportDir, "part_a.dae")}, report.Outputs)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "corrupt", report.Failed[0].Name)
	assert.Equal(t, ImportError, report.Failed[0].Kind)
	assert.NotEmpty(t, report.Failed[0].Reason)

	assert.Equal(t, []string{"part_a.dae"}, exportedNames(t, cfg.ExportDir))
	assert.Equal(t, []string{SharedMaterialName}, report.Purged)
	assert.Equal(t, 0, r.Scene.Materials.Len())
	assert.Equal(t, 0, r.Scene.Len())

	assert.Contains(t, logs.String(), "FINISHED")
	assert.Contains(t, logs.String(), "ImportError")
}

func TestRunnerMatchesExtensionIgnoringCase(t *testing.T) {
	cfg := *testConfig(t)
	writeBoxPly(t, cfg.ImportDir, "model.PLY")
	writeFile(t, cfg.ImportDir, "model.txt", []byte("not an asset"))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.ImportDir, "nested.ply"), 0o755))

	report, err := NewRunner(cfg, nil).Run()
	require.NoError(t, err)

	assert.Equal(t, []string{"model"}, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"model.dae"}, exportedNames(t, cfg.ExportDir))
}

func TestRunnerContinuesAfterFailure(t *testing.T) {
	cfg := *testConfig(t)
	for _, name := range []string{"a.ply", "b.ply", "c.ply", "d.ply"} {
		writeBoxPly(t, cfg.ImportDir, name)
	}

	r := NewRunner(cfg, nil)
	r.Exporter = &failingExporter{next: r.Exporter, fail: map[string]bool{"b": true}}
	report, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c", "d"}, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, Failure{Name: "b", Kind: ExportError, Reason: report.Failed[0].Reason}, report.Failed[0])
	assert.Contains(t, report.Failed[0].Reason, "disk full")
	assert.Equal(t, []string{"a.dae", "c.dae", "d.dae"}, exportedNames(t, cfg.ExportDir))
	assert.Equal(t, 0, r.Scene.Len())
}

func TestRunnerCreatesSharedMaterialOnce(t *testing.T) {
	cfg := *testConfig(t)
	for _, name := range []string{"a.ply", "b.ply", "c.ply"} {
		writeBoxPly(t, cfg.ImportDir, name)
	}

	r := NewRunner(cfg, nil)
	report, err := r.Run()
	require.NoError(t, err)
	assert.Len(t, report.Succeeded, 3)
	assert.Equal(t, 1, r.Scene.Materials.Created())
}

func TestRunnerEmptyFolder(t *testing.T) {
	cfg := *testConfig(t)
	report, err := NewRunner(cfg, nil).Run()
	require.NoError(t, err)
	assert.Empty(t, report.Succeeded)
	assert.Empty(t, report.Failed)
	assert.Empty(t, report.Purged)
}

func TestRunnerRejectsBadConfig(t *testing.T) {
	good := *testConfig(t)
	cases := map[string]func(c *BatchConfig){
		"missing import":   func(c *BatchConfig) { c.ImportDir = filepath.Join(c.ImportDir, "absent") },
		"missing export":   func(c *BatchConfig) { c.ExportDir = filepath.Join(c.ExportDir, "absent") },
		"empty import":     func(c *BatchConfig) { c.ImportDir = "" },
		"zero scale":       func(c *BatchConfig) { c.Scale = 0 },
		"negative scale":   func(c *BatchConfig) { c.Scale = -1 },
		"import is a file": func(c *BatchConfig) { c.ImportDir = writeBoxPly(t, good.ImportDir, "x.ply") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := good
			mutate(&cfg)
			report, err := NewRunner(cfg, nil).Run()
			assert.Nil(t, report)
			var ce *ConfigError
			assert.ErrorAs(t, err, &ce)
			assert.Empty(t, exportedNames(t, good.ExportDir))
		})
	}
}

func TestRunnerRejectsUnknownFormat(t *testing.T) {
	cfg := *testConfig(t)
	writeBoxPly(t, cfg.ImportDir, "a.ply")

	r := NewRunner(cfg, nil)
	r.Importer = ImporterFactory("stl")
	report, err := r.Run()
	assert.Nil(t, report)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Empty(t, exportedNames(t, cfg.ExportDir))
}
