package logs

import (
	"go.uber.org/zap"
)

var commonFields = []zap.Field{
	zap.String("component", "relay"),
}

var relayLogger *zap.Logger

func init() {
	relayLogger = Logger.With(commonFields...)
}

func Info(msg string, fields ...zap.Field) {
	relayLogger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	relayLogger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	relayLogger.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	relayLogger.Fatal(msg, fields...)
}
