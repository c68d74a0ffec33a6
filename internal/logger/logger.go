package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	fileMaxSizeMB  = 50
	fileMaxBackups = 5
	fileMaxAgeDays = 28
)

// InitJSONLogger configures the default slog logger to write JSON to stdout.
// When logFile is set the output is also written to a size-rotated file; the
// returned func closes that file and is a no-op otherwise.
func InitJSONLogger(logFile string, debug bool) func() error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	closeFn := func() error { return nil }
	if logFile != "" {
		sink := FileSink(logFile)
		out = io.MultiWriter(os.Stdout, sink)
		closeFn = sink.Close
	}

	slog.SetDefault(New(out, level))
	return closeFn
}

// New builds a JSON logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// FileSink returns a rotating writer for path.
func FileSink(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
	}
}
