package cmd

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at level, with short timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// flagLevel returns the level selected by --verbose or --quiet, and false
// when neither is set.
func flagLevel(verbose, quiet bool) (log.Level, bool) {
	switch {
	case verbose:
		return log.DebugLevel, true
	case quiet:
		return log.ErrorLevel, true
	}
	return log.InfoLevel, false
}

// applyConfigLevel sets the logger to the configured level unless a flag
// already chose one.
func applyConfigLevel(l *log.Logger, configured string, verbose, quiet bool) {
	if _, set := flagLevel(verbose, quiet); set {
		return
	}
	if level, err := log.ParseLevel(configured); err == nil {
		l.SetLevel(level)
	}
}

// progress logs the elapsed time of an operation when it completes.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Replayed 12 steps (3ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
