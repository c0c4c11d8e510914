package middleware

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shrek82/gpdb/core"
)

// SlowLog logs statements that take longer than the specified threshold.
type SlowLog struct {
	Threshold time.Duration
	LogPath   string
	logger    *log.Logger
	file      *os.File
}

// NewSlowLog creates a new SlowLog.
// threshold: statements taking longer than this will be logged.
// logPath: path to the log file. If empty, logs to standard output.
func NewSlowLog(threshold time.Duration, logPath string) (*SlowLog, error) {
	m := &SlowLog{
		Threshold: threshold,
		LogPath:   logPath,
	}
	if logPath == "" {
		m.SetOutput(os.Stdout)
		return m, nil
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open slow log file: %w", err)
	}
	m.file = f
	m.SetOutput(f)
	return m, nil
}

// SetOutput sets the output destination for the logger.
func (m *SlowLog) SetOutput(w io.Writer) {
	m.logger = log.New(w, "[SLOW SQL] ", log.LstdFlags)
}

// Close closes the log file, if any.
func (m *SlowLog) Close() error {
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}

func (m *SlowLog) Name() string {
	return "SlowLog"
}

func (m *SlowLog) Process(ctx context.Context, stmt *core.Statement, next core.Handler) (*core.Result, error) {
	start := time.Now()
	res, err := next(ctx, stmt)
	duration := time.Since(start)

	if duration > m.Threshold {
		var rows, affected int64
		if res != nil {
			rows, affected = int64(len(res.Rows)), res.RowsAffected
		}
		args := any(stmt.Args)
		if stmt.Kind == core.KindExecMany {
			args = stmt.Batch
		}
		m.logger.Printf("duration=%v | kind=%s | sql=%s | args=%v | rows=%d | affected=%d | err=%v",
			duration, stmt.Kind, stmt.SQL, args, rows, affected, err)
	}

	return res, err
}
