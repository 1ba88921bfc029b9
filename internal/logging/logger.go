// Package logging builds the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout. Release mode logs JSON at Info;
// anything else logs human-readable text at Debug.
func New(release bool) *logrus.Logger {
	return newWithOutput(os.Stdout, release)
}

func newWithOutput(w io.Writer, release bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	logger.SetFormatter(new(logrus.JSONFormatter))
	logger.SetLevel(logrus.InfoLevel)

	if !release {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// Module scopes a logger to one component.
func Module(logger logrus.FieldLogger, name string) *logrus.Entry {
	return logger.WithField("module", name)
}

// Discard returns an entry that drops everything. Used by tests.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
