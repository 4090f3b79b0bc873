package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a logrus.Logger writing to w with the given level.
// An unparsable level falls back to info and is reported as a warning.
func NewLogger(levelStr string, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	logger.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", levelStr, err)
	} else {
		logger.SetLevel(level)
		logger.Debugf("Setting log level to: %s", level.String())
	}

	return logger
}

// Discard returns an entry whose output is thrown away.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// OrDiscard returns entry, or a discarding entry when entry is nil.
func OrDiscard(entry *logrus.Entry) *logrus.Entry {
	if entry == nil {
		return Discard()
	}
	return entry
}

// Component tags an entry with the component field used throughout urlfinder.
func Component(entry *logrus.Entry, name string) *logrus.Entry {
	return OrDiscard(entry).WithField("component", name)
}
