package batchply

import (
	"fmt"
	"math"
	"testing"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	src := fmt.Sprintf(`import_folder_path: %q
export_folder_path: %q
scale_factor: 2
rotation_angle_z: 90
base_z_height: 5
`, dir, dir)
	path := writeFile(t, dir, "batch.yaml", []byte(src))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ImportDir)
	assert.Equal(t, dir, cfg.ExportDir)
	assert.Equal(t, 2.0, cfg.Scale)
	assert.Equal(t, dvec3.T{0, 0, 90}, cfg.Rotation())
	assert.Equal(t, 5.0, cfg.BaseHeight)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigTOMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	src := fmt.Sprintf("import_folder_path = %q\nexport_folder_path = %q\nrotation_angle_x = 45.0\n", dir, dir)
	path := writeFile(t, dir, "batch.toml", []byte(src))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Scale)
	assert.Equal(t, 45.0, cfg.RotationX)
	assert.Equal(t, 0.0, cfg.BaseHeight)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unsupported": writeFile(t, dir, "batch.ini", []byte("scale_factor=1")),
		"bad yaml":    writeFile(t, dir, "bad.yml", []byte("scale_factor: [1, 2\n")),
		"bad toml":    writeFile(t, dir, "bad.toml", []byte("scale_factor = \"big\"\n")),
		"missing":     dir + "/absent.yaml",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(path)
			var ce *ConfigError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestValidateRejectsBadNumbers(t *testing.T) {
	cfg := *testConfig(t)
	require.NoError(t, cfg.Validate())

	cases := map[string]func(c *BatchConfig){
		"zero scale":     func(c *BatchConfig) { c.Scale = 0 },
		"infinite scale": func(c *BatchConfig) { c.Scale = math.Inf(1) },
		"nan rotation":   func(c *BatchConfig) { c.RotationY = math.NaN() },
		"infinite base":  func(c *BatchConfig) { c.BaseHeight = math.Inf(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			bad := cfg
			mutate(&bad)
			var ce *ConfigError
			assert.ErrorAs(t, bad.Validate(), &ce)
		})
	}
}
