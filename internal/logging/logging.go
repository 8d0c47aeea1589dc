package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Params configures the process logger
type Params struct {
	Level     string
	File      string // rotated log file; stderr when empty
	JSON      bool
	SentryDSN string
}

// Setup configures the standard logrus logger and returns a flush func to
// call before exit.
func Setup(params Params) (func(), error) {
	return configure(logrus.StandardLogger(), params, os.Stderr)
}

func configure(logger *logrus.Logger, params Params, console io.Writer) (func(), error) {
	level, err := logrus.ParseLevel(params.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	if params.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	flush := func() {}
	if params.File == "" {
		logger.SetOutput(console)
	} else {
		rotating := &lumberjack.Logger{
			Filename:   params.File,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		logger.SetOutput(rotating)
		flush = func() { rotating.Close() }
	}

	if params.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: params.SentryDSN}); err != nil {
			return nil, fmt.Errorf("sentry.Init: %w", err)
		}
		logger.AddHook(NewSentryHook([]logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		}))
		closeFile := flush
		flush = func() {
			sentry.Flush(2 * time.Second)
			closeFile()
		}
	}

	return flush, nil
}

// WithComponent returns an entry tagged with a component name
func WithComponent(logger *logrus.Entry, component string) *logrus.Entry {
	return logger.WithField("component", component)
}
