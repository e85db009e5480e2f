package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cfgpkg "rfnode-go/services/gateway/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestLoggerLevelAndFile(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "gw.log")
	log, err := newLogger(cfgpkg.LoggingConfig{
		Level:  "warn",
		Format: "json",
		File:   cfgpkg.LumberjackConfig{Filename: file, MaxSizeMB: 1},
	}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"k":"v"`)
}

func TestLineWriterSplitsNodeDiag(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := LineWriter(zap.New(core))

	_, err := w.Write([]byte("[node] started\r\n[node] phase now=awake_"))
	require.NoError(t, err)
	_, err = w.Write([]byte("listening\r\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "[node] started", entries[0].Message)
	assert.Equal(t, "[node] phase now=awake_listening", entries[1].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}
