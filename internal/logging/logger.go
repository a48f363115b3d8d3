// Package logging builds the process logger and the HTTP request logging
// middleware.  Sensitive fields are redacted before anything is written.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const redacted = "[REDACTED]"

// sensitive lists attribute and JSON keys whose values never reach a log
// sink.  Keys are compared case-insensitively.
var sensitive = map[string]bool{
	"password":      true,
	"newpassword":   true,
	"accesstoken":   true,
	"refreshtoken":  true,
	"authorization": true,
}

// IsSensitive reports whether values under key must be redacted.
func IsSensitive(key string) bool {
	return sensitive[strings.ToLower(key)]
}

// ParseLevel maps a LOG_LEVEL value to a slog level; unknown values are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New creates a JSON logger writing to w at the given level.
func New(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: redactAttr,
	})
	return slog.New(h)
}

// Open creates the process logger.  With a non-empty file the output goes
// to stdout and is appended to file.  The returned close func releases the
// file and is safe to call when no file was opened.
func Open(level, file string) (*slog.Logger, func() error, error) {
	if file == "" {
		log := New(os.Stdout, level)
		slog.SetDefault(log)
		return log, func() error { return nil }, nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	log := New(io.MultiWriter(os.Stdout, f), level)
	slog.SetDefault(log)
	return log, f.Close, nil
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if IsSensitive(a.Key) {
		return slog.String(a.Key, redacted)
	}
	return a
}
