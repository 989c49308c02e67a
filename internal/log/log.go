// Package log provides the process-wide structured logger.
// It wraps logrus so every component logs with the same fields and format.
package log

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	once.Do(func() {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}

		l := logrus.New()
		l.SetOutput(os.Stdout)
		l.SetLevel(lvl)

		// JSON in production, text in development
		if os.Getenv("GO_ENV") == "production" {
			l.SetFormatter(&logrus.JSONFormatter{})
		} else {
			l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}

		logger = l
	})
}

// L returns the global logger instance.
func L() *logrus.Logger {
	Init("info")
	return logger
}

// With returns an entry carrying the given fields.
func With(fields logrus.Fields) *logrus.Entry {
	return L().WithFields(fields)
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return L().WithField("component", name)
}
