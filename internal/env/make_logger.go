package env

import (
	zap "go.uber.org/zap"
)

// MakeLogger builds a production zap.Logger at the given level (parsed
// via zapcore's level text unmarshaling; an unrecognised level falls
// back to info).
func MakeLogger(level string) (*zap.Logger, error) {
	var zapLevel zap.AtomicLevel
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zapLevel
	logConfig.Encoding = "json"

	return logConfig.Build()
}
