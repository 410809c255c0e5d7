package app

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/five82/quizwhiz/internal/config"
	"github.com/five82/quizwhiz/internal/logging"
	"github.com/five82/quizwhiz/internal/logtail"
)

// Logs prints the last lines of the configured log file at or above level.
// An empty level prints everything.
func Logs(opts Options, lines int, level string, w io.Writer) error {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	floor := zerolog.TraceLevel
	if level != "" {
		if floor, err = logging.ParseLevel(level); err != nil {
			return err
		}
	}

	raw, err := logtail.Tail(cfg.LogFile, lines)
	if err != nil {
		return err
	}
	entries := logtail.Filter(raw, floor)
	if len(entries) == 0 {
		fmt.Fprintf(w, "No log entries in %s.\n", cfg.LogFile)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(w, logtail.Format(e))
	}
	return nil
}
