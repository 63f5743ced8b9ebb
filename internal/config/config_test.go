package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultIsolation, cfg.Isolation)
	assert.Equal(t, DefaultListingSource, cfg.ListingSource)
	assert.Equal(t, DefaultCaseTimeout, cfg.CaseTimeout)
	assert.Equal(t, DefaultDBName, cfg.Database.Name)
	assert.False(t, cfg.Database.Enabled)

	cfg.PathsToIgnore[0] = "changed"
	assert.NotEqual(t, "changed", DefaultPathsToIgnore[0])
}

func TestConfig_Paths(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		outDir string
		marker string
	}{
		{
			name:   "relative out dir",
			config: &Config{ProjectPath: "/project", OutDir: "out", RootMarker: "suites/suites.go"},
			outDir: "/project/out",
			marker: "/project/suites/suites.go",
		},
		{
			name:   "absolute out dir",
			config: &Config{ProjectPath: "/project", OutDir: "/tmp/out", RootMarker: "go.mod"},
			outDir: "/tmp/out",
			marker: "/project/go.mod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.outDir, tt.config.GetOutDir())
			assert.Equal(t, tt.marker, tt.config.GetRootMarkerPath())
		})
	}
}

func TestConfig_GetOutputPath(t *testing.T) {
	cfg := &Config{ProjectPath: "/project", OutputJSONDir: "storage", OutputJSONFile: "r.json"}
	assert.Equal(t, "/project/storage/r.json", cfg.GetOutputPath())
}

func TestConfig_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
workers: 8
isolation: process
case_timeout: 30s
ignore: [fixtures]
database:
  enabled: true
  name: ci_results
`), 0644))

	cfg := New()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "process", cfg.Isolation)
	assert.Equal(t, 30*time.Second, cfg.CaseTimeout)
	assert.Equal(t, []string{"fixtures"}, cfg.PathsToIgnore)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "ci_results", cfg.Database.Name)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)

	t.Run("missing file", func(t *testing.T) {
		assert.NoError(t, New().LoadFile(filepath.Join(dir, "nope.yaml")))
	})

	t.Run("empty file", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(empty, nil, 0644))
		assert.NoError(t, New().LoadFile(empty))
	})

	t.Run("unknown key", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("wokers: 2\n"), 0644))
		assert.Error(t, New().LoadFile(bad))
	})
}

func TestConfig_LoadEnv(t *testing.T) {
	t.Setenv("CTS_WORKERS", "3")
	t.Setenv("CTS_DEBUG", "true")
	t.Setenv("CTS_CASE_TIMEOUT", "5s")
	t.Setenv("DB_HOST", "db.internal")

	cfg := New()
	cfg.ProjectPath = t.TempDir()
	require.NoError(t, cfg.LoadEnv())
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5*time.Second, cfg.CaseTimeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)

	t.Run("invalid values", func(t *testing.T) {
		for key, value := range map[string]string{
			"CTS_WORKERS":      "many",
			"CTS_DEBUG":        "maybe",
			"CTS_CASE_TIMEOUT": "soon",
		} {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)
				cfg := New()
				cfg.ProjectPath = t.TempDir()
				assert.ErrorContains(t, cfg.LoadEnv(), key)
			})
		}
	})
}

func TestConfig_LoadEnvFile(t *testing.T) {
	const key = "CTS_LISTING_SOURCE"
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=table\n"), 0644))

	cfg := New()
	cfg.ProjectPath = dir
	require.NoError(t, cfg.LoadEnv())
	assert.Equal(t, "table", cfg.ListingSource)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("workers: 2\nisolation: inline\n"), 0644))
	t.Setenv("CTS_WORKERS", "6")

	cfg, err := Load(Flags{ProjectPath: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ProjectPath)
	assert.Equal(t, 6, cfg.Workers, "environment overrides file")
	assert.Equal(t, "inline", cfg.Isolation)

	cfg, err = Load(Flags{ProjectPath: dir, Workers: 9, Isolation: "process", SaveDB: true})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers, "flags override environment")
	assert.Equal(t, "process", cfg.Isolation)
	assert.True(t, cfg.Database.Enabled)

	cfg, err = Load(Flags{ProjectPath: dir})
	require.NoError(t, err)
	assert.Equal(t, DefaultCaseTimeout, cfg.CaseTimeout, "unset zero keeps the default")

	cfg, err = Load(Flags{ProjectPath: dir, CaseTimeoutSet: true})
	require.NoError(t, err)
	assert.Zero(t, cfg.CaseTimeout, "explicit zero disables the limit")
}

func TestConfig_GetWorkerExecutable(t *testing.T) {
	cfg := New()
	exe, err := cfg.GetWorkerExecutable()
	require.NoError(t, err)
	assert.NotEmpty(t, exe)

	cfg.WorkerExecutable = "/usr/local/bin/cts"
	exe, err = cfg.GetWorkerExecutable()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/cts", exe)
}
