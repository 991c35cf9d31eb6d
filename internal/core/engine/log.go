package engine

import (
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

func logDebug(logger *logging.Logger, msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Debug(msg, fields...)
	}
}

func logWarn(logger *logging.Logger, msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Warn(msg, fields...)
	}
}
