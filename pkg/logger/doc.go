// Package logger provides the structured logger used across scrapeguard.
//
// It wraps zerolog behind a small Logger interface so packages can accept a
// logger without importing zerolog, and tests can swap in TestLogger to
// assert on what was recorded.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("username", name).Info("Admin code generated")
//
// Console output goes to stderr so command output on stdout stays clean.
// When a log file is configured, entries are written as JSON to the file and
// mirrored to the console.
//
// Verification outcomes have dedicated helpers (LogVerification,
// LogStageFailure, LogPurge) so every caller records the same field names.
// Key material and plaintexts must never be passed as fields.
package logger
