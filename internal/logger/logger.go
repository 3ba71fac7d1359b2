package logger

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yukikurage/timesheet-management-api/internal/constants"
)

// Log is the global SugaredLogger instance.
// Initialized with a no-op logger until Initialize is called.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Initialize sets up the global logger with the given log level.
func Initialize(level string, production bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	if production {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = logger.Sugar()
	return nil
}

// FromContext returns the request-scoped logger set by the logging middleware,
// falling back to the global logger.
func FromContext(c *gin.Context) *zap.SugaredLogger {
	if c != nil {
		if l, ok := c.Get(constants.ContextKeyLogger); ok {
			if sugared, ok := l.(*zap.SugaredLogger); ok {
				return sugared
			}
		}
	}
	return Log
}
