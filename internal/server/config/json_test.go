package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"database_dsn":       "catalog.db",
		"temp_dir":           "/var/tmp/pkgdepot",
		"hvif_tool_path":     "/opt/hvif2png",
		"png_optimizer_path": "/opt/optipng",
		"transfer_timeout":   "30s",
		"icon_cache_entries": 64,
		"icon_cache_ttl":     "45m",
		"s3_access_key":      "user",
		"s3_secret_key":      "password",
		"s3_region":          "region",
		"s3_base_endpoint":   "base_endpoint",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "catalog.db", cfg.DatabaseDSN)
		assert.Equal(t, "/var/tmp/pkgdepot", cfg.TempDir)
		assert.Equal(t, "/opt/hvif2png", cfg.HvifToolPath)
		assert.Equal(t, "/opt/optipng", cfg.PngOptimizerPath)
		assert.Equal(t, 30*time.Second, cfg.TransferTimeout)
		assert.Equal(t, 64, cfg.IconCacheEntries)
		assert.Equal(t, 45*time.Minute, cfg.IconCacheTTL)
		assert.Equal(t, "user", cfg.S3AccessKey)
		assert.Equal(t, "password", cfg.S3SecretKey)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
	})

	t.Run("absent keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"database_dsn": "other.db",
		})
		os.Args = []string{"testbin", "-config", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "other.db", cfg.DatabaseDSN)
		assert.Equal(t, 1*time.Minute, cfg.TransferTimeout)
		assert.Equal(t, 256, cfg.IconCacheEntries)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			DatabaseDSN:      "catalog.db",
			TempDir:          "/tmp/x",
			TransferTimeout:  2 * time.Minute,
			IconCacheEntries: 10,
		}
		parseJson(cfg)

		assert.Equal(t, "catalog.db", cfg.DatabaseDSN)
		assert.Equal(t, "/tmp/x", cfg.TempDir)
		assert.Equal(t, 2*time.Minute, cfg.TransferTimeout)
		assert.Equal(t, 10, cfg.IconCacheEntries)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
