package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaults(t *testing.T) {
	logger := NewLogger(nil)
	require.NotNil(t, logger)
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	require.Empty(t, buf.String())

	logger.Warn("this should appear")
	require.Contains(t, buf.String(), "this should appear")
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	atLogger := logger.WithComponent("atclient")
	atLogger.Info("locked transaction", "handle", 3)

	output := buf.String()
	require.Contains(t, output, "[atclient]")
	require.Contains(t, output, "handle=3")
}

func TestWithComponentSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Output: &buf})
	child := logger.WithComponent("power")

	child.Debug("hidden")
	require.Empty(t, buf.String())

	logger.SetLevel(LevelDebug)
	child.Debug("now visible")
	require.Contains(t, buf.String(), "now visible")
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("debug message", "key", "value")
	output := buf.String()
	require.True(t, strings.Contains(output, "debug message"))
	require.True(t, strings.Contains(output, "key=value"))

	buf.Reset()
	Error("error message")
	require.Contains(t, buf.String(), "error message")
}
