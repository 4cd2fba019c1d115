package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stratfolio/pkg/config"
)

func newBufferLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}
	return NewWithWriter(cfg, &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew_LevelIsPerLogger(t *testing.T) {
	before := zerolog.GlobalLevel()

	debug := New(&config.Config{LogLevel: "debug", LogFormat: "json"})
	quiet := New(&config.Config{LogLevel: "warn", LogFormat: "console"})

	assert.Equal(t, "debug", debug.Level())
	assert.Equal(t, "warn", quiet.Level())
	assert.Equal(t, before, zerolog.GlobalLevel(), "global level untouched")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{LogLevel: "warn"}, &buf)

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Equal(t, "kept", decodeLine(t, &buf)["message"])
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{" Error ", zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	log, buf := newBufferLogger(t)

	tests := []struct {
		name      string
		logFunc   func()
		wantMsg   string
		wantLevel string
	}{
		{"debug", func() { log.Debug("debug message") }, "debug message", "debug"},
		{"info", func() { log.Info("info message") }, "info message", "info"},
		{"warn", func() { log.Warn("warn message") }, "warn message", "warn"},
		{"error", func() { log.Error("error message") }, "error message", "error"},
		{"infof", func() { log.Infof("paths: %d", 1000) }, "paths: 1000", "info"},
		{"warnf", func() { log.Warnf("skipped %s", "a.csv") }, "skipped a.csv", "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decodeLine(t, buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
			assert.Equal(t, "stratfolio", entry["service"])
		})
	}
}

func TestWithFieldsAndComponent(t *testing.T) {
	log, buf := newBufferLogger(t)

	log.WithComponent("montecarlo").WithFields(map[string]interface{}{
		"simulations": 500,
		"method":      "bootstrap",
	}).Info("Monte Carlo completed")

	entry := decodeLine(t, buf)
	assert.Equal(t, "montecarlo", entry["component"])
	assert.Equal(t, "bootstrap", entry["method"])
	assert.Equal(t, float64(500), entry["simulations"])
}

func TestWithError(t *testing.T) {
	log, buf := newBufferLogger(t)

	log.WithError(errors.New("scrape failed")).Warn("Using fallback margins")

	entry := decodeLine(t, buf)
	assert.Equal(t, "scrape failed", entry["error"])
	assert.Equal(t, "warn", entry["level"])
}

func TestWithRun(t *testing.T) {
	log, buf := newBufferLogger(t)

	log.WithComponent("stress").WithRun("run-1").Info("Stress test completed")

	entry := decodeLine(t, buf)
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "stress", entry["component"])
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").Info("discarded")
	})
}
