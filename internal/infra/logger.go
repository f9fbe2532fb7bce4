package infra

import (
	"log"
	"strings"

	"go.uber.org/zap"
)

// InitializeLogger builds the process logger, installs it as the zap global
// and returns a cleanup that flushes it
func InitializeLogger(env string) (*zap.Logger, func(), error) {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			log.Printf("Failed to sync logger: %v\n", err)
		}
	}
	return logger, cleanup, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stderr: invalid argument") ||
		strings.Contains(msg, "sync /dev/stdout: invalid argument")
}
