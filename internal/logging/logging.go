// Package logging builds the diagnostic logger shared by every component.
//
// There is no package-level logger: the command creates one with New and
// hands it to each component it constructs.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/caarlos0/log"
)

// DefaultLevel matches the historical behaviour of only surfacing warnings and errors.
const DefaultLevel = "warn"

// New creates a logger writing to w at the given level.
func New(w io.Writer, level log.Level) *log.Logger {
	l := log.New(w)
	l.Level = level

	return l
}

// ParseLevel converts "debug", "info", "warn"/"warning" or "error" to a log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warn", "warning", "":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.WarnLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *log.Logger {
	return New(io.Discard, log.FatalLevel)
}
