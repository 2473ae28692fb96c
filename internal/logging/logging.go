// Package logging wires the process-wide structured logger. Initialized
// once at startup (see cmd/server/main.go) and passed down as a value,
// per the "singletons, not globals" guidance for this codebase.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at the given level, JSON-formatted for
// production log aggregation.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

// WithComponent returns an entry pre-tagged with a component name, used
// to scope log lines from the worker, mirror, and queue layers.
func WithComponent(log *logrus.Logger, component string) *logrus.Entry {
	return log.WithField("component", component)
}
