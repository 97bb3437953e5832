package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"DataPrep/src/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerWritesFileAndNotifiesSubscribers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	ch := logger.Subscribe()
	logger.Log(INFO, "dataset loaded", zap.Int("rows", 20))
	logger.Warning("one-hot leakage")

	first := <-ch
	assert.Contains(t, first, "INFO: dataset loaded")
	assert.Contains(t, <-ch, "WARNING: one-hot leakage")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "dataset loaded")
	assert.Contains(t, content, "rows")
	assert.Contains(t, content, "WARN")
}

func TestLoggerLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.SetLevel(WARNING)
	ch := logger.Subscribe()
	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Error("shown")

	assert.Contains(t, <-ch, "shown")
	select {
	case extra := <-ch:
		t.Fatalf("unexpected entry %q", extra)
	default:
	}
}

func TestCheckRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	logger.Info(strings.Repeat("x", 200))
	require.NoError(t, logger.CheckRotate(&config.Config{LogMaxSize: "10 * 10"}))
	logger.Info("after rotate")

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "app.*.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after rotate")
	assert.NotContains(t, string(data), "xxxx")
}

func TestParseLevelAndEval(t *testing.T) {
	lv, err := ParseLevel("Warn")
	require.NoError(t, err)
	assert.Equal(t, WARNING, lv)
	_, err = ParseLevel("loud")
	assert.Error(t, err)

	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(0), eval("ten"))
}
