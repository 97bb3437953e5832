package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
data_dir: ./out
dataset:
  path: data/train.csv
pipeline:
  freeze_clip_bounds: true
watch:
  enabled: true
  check_interval: 10s
`)

	cfg, err := Load(dir, "config.yaml", "")
	require.NoError(t, err)
	assert.Equal(t, "./out", cfg.DataDir)
	assert.Equal(t, "data/train.csv", cfg.Dataset.Path)
	assert.Equal(t, 0.2, cfg.Pipeline.TestSize)
	assert.Equal(t, int64(42), cfg.Pipeline.RandomSeed)
	assert.Equal(t, 1.5, cfg.Pipeline.ClipFactor)
	assert.Equal(t, -1, *cfg.Pipeline.UnseenLabel)
	assert.True(t, cfg.Pipeline.FreezeClipBounds)
	assert.Equal(t, 10*time.Second, cfg.Watch.CheckInterval.Duration())
	assert.Equal(t, "app.log", cfg.LogName)
	assert.Contains(t, cfg.Dataset.NaNValues, "")
}

func TestLoadJSONAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{
		"email": {"server": "imap.example.com:993", "password": "from-file", "check_interval": "1m"},
		"pipeline": {"test_size": 0.25, "random_seed": 7, "unseen_label": -9},
		"log_level": "debug"
	}`)
	writeFile(t, dir, ".env", "DATAPREP_EMAIL_PASSWORD=from-dotenv\nDATAPREP_DB_DSN=postgres://u@h/db\n")
	t.Setenv(EnvDatabaseDSN, "postgres://override@h/db")

	cfg, err := Load(dir, "config.json", ".env")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Email.Password)
	assert.Equal(t, "postgres://override@h/db", cfg.Database.DSN)
	assert.Equal(t, time.Minute, cfg.Email.CheckInterval.Duration())
	assert.Equal(t, 0.25, cfg.Pipeline.TestSize)
	assert.Equal(t, int64(7), cfg.Pipeline.RandomSeed)
	assert.Equal(t, -9, *cfg.Pipeline.UnseenLabel)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{}`)

	_, err := Load(dir, "config.json", ".env")
	assert.NoError(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{"pipeline": {"test_size": 1.5, "clip_factor": -1}, "log_level": "loud"}`)

	_, err := Load(dir, "config.json", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_size")
	assert.Contains(t, err.Error(), "clip_factor")
	assert.Contains(t, err.Error(), "loud")
}

func TestLoadMissingConfig(t *testing.T) {
	_, err := Load(t.TempDir(), "config.json", "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, d, back)
	assert.Error(t, back.UnmarshalJSON([]byte(`"soon"`)))
}
