package main

import (
	"github.com/flanksource/commons/logger"

	"github.com/goliatone/go-docexport/convert"
)

// appLogger routes convert log lines to the flanksource logger.
type appLogger struct{}

func newLogger(level string) convert.Logger {
	if level == "" {
		level = "info"
	}
	logger.Configure(logger.Flags{
		Level:       level,
		LogToStderr: true,
	})
	return appLogger{}
}

func (appLogger) Debugf(format string, args ...any) { logger.Debugf(format, args...) }
func (appLogger) Infof(format string, args ...any)  { logger.Infof(format, args...) }
func (appLogger) Errorf(format string, args ...any) { logger.Errorf(format, args...) }
