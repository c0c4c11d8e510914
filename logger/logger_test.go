package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newBufferLogger(format LogFormat) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewStdLogger()
	l.SetLevel(LogLevelInfo)
	l.SetOutput(buf)
	l.SetFormat(format)
	return l, buf
}

func TestStructuredLogger(t *testing.T) {
	t.Run("TextFormat", func(t *testing.T) {
		l, buf := newBufferLogger(LogFormatText)
		l.Info("hello %s", "world")

		output := buf.String()
		require.Contains(t, output, "[GPDB]")
		require.Contains(t, output, "INFO")
		require.Contains(t, output, "hello world")
	})

	t.Run("JSONFormat", func(t *testing.T) {
		l, buf := newBufferLogger(LogFormatJSON)
		l.Info("hello %s", "world")

		var data map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
		require.Equal(t, "INFO", data["level"])
		require.Equal(t, "hello world", data["msg"])
		require.Contains(t, data, "time")
	})

	t.Run("WithFields", func(t *testing.T) {
		l, buf := newBufferLogger(LogFormatJSON)
		l2 := l.WithFields(map[string]any{"host": "mdw"})
		l2.Info("connected")
		l.Info("plain")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)

		var first, second map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
		require.Equal(t, "mdw", first["host"])
		require.NotContains(t, second, "host", "WithFields must not modify the parent")
	})

	t.Run("SQLJSON", func(t *testing.T) {
		l, buf := newBufferLogger(LogFormatJSON)
		l.SQL("SELECT * FROM users", 10*time.Millisecond, 1)

		var data map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
		require.Equal(t, "SQL", data["level"])
		require.Equal(t, "SELECT * FROM users", data["sql"])
		require.Equal(t, "10ms", data["duration"])
		require.Equal(t, []any{float64(1)}, data["args"])
	})

	t.Run("SQLText", func(t *testing.T) {
		l, buf := newBufferLogger(LogFormatText)
		l.SQL("DELETE FROM users", time.Millisecond)

		output := buf.String()
		require.Contains(t, output, "SQL")
		require.Contains(t, output, ansiRed+"[1ms] DELETE FROM users | args: []")
	})

	t.Run("Level", func(t *testing.T) {
		l, buf := newBufferLogger(LogFormatText)
		l.SetLevel(LogLevelError)
		l.Info("dropped")
		l.Warn("dropped")
		l.SQL("SELECT 1", time.Millisecond)
		l.Error("kept")

		output := buf.String()
		require.NotContains(t, output, "dropped")
		require.NotContains(t, output, "SELECT 1")
		require.Contains(t, output, "kept")
	})

	t.Run("LevelOutput", func(t *testing.T) {
		l, mainBuf := newBufferLogger(LogFormatText)
		errorBuf := &bytes.Buffer{}
		l.SetLevelOutput(LogLevelError, errorBuf)

		l.Info("this is info")
		l.Error("this is error")

		require.Contains(t, mainBuf.String(), "this is info")
		require.Contains(t, mainBuf.String(), "this is error")
		require.NotContains(t, errorBuf.String(), "INFO")
		require.Contains(t, errorBuf.String(), "ERROR: this is error")
	})

	t.Run("LevelOutputOnly", func(t *testing.T) {
		errorBuf := &bytes.Buffer{}
		l := NewStdLogger()
		l.SetOutput(nil)
		l.SetLevelOutput(LogLevelError, errorBuf)

		l.Info("this is info")
		l.Error("this is error")

		require.NotContains(t, errorBuf.String(), "INFO")
		require.Contains(t, errorBuf.String(), "this is error")
	})

	t.Run("Silent", func(t *testing.T) {
		l := NewSilentLogger()
		l.Error("nothing happens")
	})
}

func TestLogLevelString(t *testing.T) {
	require.Equal(t, "ERROR", LogLevelError.String())
	require.Equal(t, "WARN", LogLevelWarn.String())
	require.Equal(t, "INFO", LogLevelInfo.String())
	require.Equal(t, "SILENT", LogLevelSilent.String())
}
