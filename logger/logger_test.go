package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"flightsnap/config"
	"flightsnap/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestNewWithFile
func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fetcher.log")

	log, err := logger.New(config.LogConfig{
		Level:       "info",
		Format:      "json",
		Output:      "stderr",
		OutputFile:  path,
		Environment: "prod",
	})
	require.NoError(t, err)

	log.Info("snapshot published", zap.String("date", "20250618"))
	log.Debug("not written")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"snapshot published"`)
	require.Contains(t, string(data), `"date":"20250618"`)
	require.NotContains(t, string(data), "not written")
}

// go test -v --run TestNewInvalid
func TestNewInvalid(t *testing.T) {
	_, err := logger.New(config.LogConfig{Level: "loud"})
	require.Error(t, err)

	_, err = logger.New(config.LogConfig{Level: "info", Output: "printer"})
	require.Error(t, err)
}

// go test -v --run TestNewWithWriter
func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.NewWithWriter(config.LogConfig{Level: "info", Format: "console"}, &buf)
	require.NoError(t, err)

	log.Info("snapshots loaded", zap.String("date1", "20250618"))
	log.Debug("not written")
	_ = log.Sync()

	require.Contains(t, buf.String(), "snapshots loaded")
	require.Contains(t, buf.String(), "20250618")
	require.NotContains(t, buf.String(), "not written")

	_, err = logger.NewWithWriter(config.LogConfig{Level: "loud"}, &buf)
	require.Error(t, err)
}
