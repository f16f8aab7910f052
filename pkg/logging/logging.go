// Package logging builds the charmbracelet/log loggers shared by the
// culler packages.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once      sync.Once
	singleton *log.Logger
)

// Options configure a logger built by New.
type Options struct {
	Prefix       string
	Level        string
	ReportCaller bool
}

// New returns a logger writing to w with timestamps and the given prefix.
// An unknown level falls back to info.
func New(w io.Writer, opts Options) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportCaller:    opts.ReportCaller,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          opts.Prefix,
	})
	l.SetLevel(ParseLevel(opts.Level))
	return l
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) log.Level {
	if s == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Discard returns a logger that drops everything. Library packages use it
// until a caller injects a real one.
func Discard() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel + 1)
	return l
}

// Default returns the process-wide logger on stderr.
func Default() *log.Logger {
	once.Do(func() {
		singleton = New(os.Stderr, Options{Prefix: "cullview"})
	})
	return singleton
}

// SetLevel changes the level of the process-wide logger.
func SetLevel(s string) {
	Default().SetLevel(ParseLevel(s))
}
