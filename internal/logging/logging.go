// Package logging builds the zerolog logger shared by QuizWhiz components.
//
// The terminal UI owns stdout, so interactive runs log to a file. CLI
// subcommands may log to stderr instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	permission     = 0o664
	defaultLogPath = "~/.local/state/quizwhiz/quizwhiz.log"
)

// Options select where log lines go. Path wins over Writer; with neither
// set the logger discards everything.
type Options struct {
	Level  string // zerolog level name, empty means info
	Path   string
	Writer io.Writer
}

// Log is a configured logger plus the file backing it, if any.
type Log struct {
	Logger zerolog.Logger
	file   *os.File
}

// DefaultPath returns the default log file location.
func DefaultPath() string {
	return defaultLogPath
}

// New opens the destination described by opts and returns a timestamped
// logger writing to it.
func New(opts Options) (*Log, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := &Log{}
	var w io.Writer = io.Discard
	if opts.Writer != nil {
		w = opts.Writer
	}
	if strings.TrimSpace(opts.Path) != "" {
		path, err := expandPath(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		out.file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.SyncWriter(out.file)
	}

	out.Logger = zerolog.New(w).Level(level).With().Timestamp().Str("app", "quizwhiz").Logger()
	return out, nil
}

// Close releases the log file. It is safe on a nil Log.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return zerolog.InfoLevel, nil
	}
	if trimmed == "warning" {
		trimmed = "warn"
	}
	level, err := zerolog.ParseLevel(trimmed)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", name, err)
	}
	return level, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
