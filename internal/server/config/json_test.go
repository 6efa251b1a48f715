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
		"http_addr":                 "www.example:9000",
		"database_dsn":              "postgres://json",
		"secret_key":                "my_secret_key",
		"session_validity_duration": "48h",
		"session_sweep_interval":    "0s",
		"s3_access_key":             "user",
		"s3_secret_key":             "password",
		"s3_bucket":                 "bucket",
		"s3_region":                 "region",
		"s3_base_endpoint":          "base_endpoint",
		"max_upload_size":           1024,
		"auth_rate_window":          float64(2 * time.Minute),
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://json", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 48*time.Hour, cfg.SessionValidityDuration)
		assert.Equal(t, time.Duration(0), cfg.SessionSweepInterval, "explicit zero disables the sweeper")
		assert.Equal(t, "user", cfg.S3AccessKey)
		assert.Equal(t, "password", cfg.S3SecretKey)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, int64(1024), cfg.MaxUploadSize)
		assert.Equal(t, 2*time.Minute, cfg.AuthRateWindow)
		assert.Equal(t, "public/temp", cfg.UploadDir, "absent keys keep defaults")
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", SessionValidityDuration: 3 * time.Minute}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, 3*time.Minute, cfg.SessionValidityDuration)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-c", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "absent.json")}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
