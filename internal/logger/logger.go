package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide structured logger. It is usable with defaults
// before Init runs, so packages may log during early startup and in tests.
var Logger = logrus.New()

// Init configures JSON output and the log level from the LOG_LEVEL
// environment variable (default info).
func Init() *logrus.Logger {
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	Logger.SetLevel(logrus.InfoLevel)
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			Logger.SetLevel(lvl)
		}
	}

	return Logger
}
