package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoport/internal/config"
)

func TestInitLogger_Validation(t *testing.T) {
	_, err := InitLogger(nil)
	require.Error(t, err)

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "xml", Output: "stdout"})
	require.Error(t, err)

	_, err = InitLogger(&config.LogConfig{Level: "info", Format: "json", Output: "file"})
	require.Error(t, err, "file 输出必须提供路径")
}

func TestInitLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "neoport.log")
	lm, err := InitLogger(&config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: path,
		MaxSize:  1,
	})
	require.NoError(t, err)
	defer func() { LoggerInstance = nil }()

	LogScanEvent(ScanLogEntry{Target: "127.0.0.1", ScanType: "quick", Status: "completed", TotalPorts: 29, OpenPorts: 1, ClosedPorts: 28})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "scan", line["type"])
	assert.Equal(t, "quick", line["scan_type"])
	assert.Equal(t, float64(1), line["open_ports"])
	assert.Equal(t, "Port scan completed", line["message"])
	assert.Equal(t, logrus.InfoLevel, lm.GetLogger().GetLevel())
}

func TestUpdateConfig_Level(t *testing.T) {
	lm, err := InitLogger(&config.LogConfig{Level: "info", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	defer func() { LoggerInstance = nil }()

	var buf bytes.Buffer
	lm.GetLogger().SetOutput(&buf)

	Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	require.NoError(t, lm.UpdateConfig(&config.LogConfig{Level: "debug", Format: "text", Output: "stderr"}))
	lm.GetLogger().SetOutput(&buf)
	Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Equal(t, "debug", lm.GetConfig().Level)

	assert.Error(t, lm.UpdateConfig(&config.LogConfig{Level: "loud", Format: "text", Output: "stderr"}))
}

func TestHelpers_NoopBeforeInit(t *testing.T) {
	LoggerInstance = nil
	assert.NotPanics(t, func() {
		Info("x")
		Errorf("y %d", 1)
		LogScanEvent(ScanLogEntry{Status: "failed"})
		LogSystemEvent("server", "startup", "ok", nil)
		WithField("k", "v").Info("discarded")
	})
}

func TestHelpers_WriteAfterInit(t *testing.T) {
	lm, err := InitLogger(&config.LogConfig{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	defer func() { LoggerInstance = nil }()

	var buf bytes.Buffer
	lm.GetLogger().SetOutput(&buf)

	Warn("reload failed")
	Errorf("stopped with %d errors", 2)
	WithField("request_id", "req-1").Debug("scan rejected")

	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "stopped with 2 errors")
	assert.Contains(t, out, "request_id=req-1")
}

func TestLogError_IncludesStack(t *testing.T) {
	lm, err := InitLogger(&config.LogConfig{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	defer func() { LoggerInstance = nil }()

	var buf bytes.Buffer
	lm.GetLogger().SetOutput(&buf)

	LogError(pkgerrors.New("boom"), "req-2", "/api/v1/scan/port", "POST", nil)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "boom", line["error"])
	assert.Contains(t, line["message"], "TestLogError_IncludesStack")
}
