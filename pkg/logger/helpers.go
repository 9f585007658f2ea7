package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// orGlobal falls back to the global logger when l is nil
func orGlobal(l Logger) Logger {
	if l == nil {
		return GetLogger()
	}
	return l
}

// LogVerification records the outcome of an admin code check. Denials are
// warnings; they are expected events, not failures of the program.
func LogVerification(l Logger, username, state string, granted bool, cause error) {
	entry := orGlobal(l).WithFields(map[string]interface{}{
		"username": username,
		"state":    state,
		"granted":  granted,
	})
	if granted {
		entry.Info("Admin code verified")
		return
	}
	entry.WithError(cause).Warn("Admin code rejected")
}

// LogStageFailure records which pipeline stage rejected a bundle
func LogStageFailure(l Logger, stage int, direction string, err error) {
	orGlobal(l).WithFields(map[string]interface{}{
		"stage":     stage,
		"direction": direction,
	}).WithError(err).Debug("Cipher stage failed")
}

// LogPurge records client files removed after a failed verification
func LogPurge(l Logger, removed []string, err error) {
	entry := orGlobal(l).WithFields(map[string]interface{}{
		"removed": removed,
		"count":   len(removed),
	})
	if err != nil {
		entry.WithError(err).Error("Failed to purge client files")
		return
	}
	entry.Warn("Client files purged")
}

// LogRequest logs HTTP request information
func LogRequest(l Logger, method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		orGlobal(l).ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		orGlobal(l).WarnWithFields("HTTP request client error", fields)
	default:
		orGlobal(l).DebugWithFields("HTTP request completed", fields)
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	logger := GetLogger().WithField("component", component)
	if len(config) > 0 {
		logger = logger.WithFields(config)
	}
	logger.Debug("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
