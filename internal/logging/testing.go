// internal/logging/testing.go
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// NewTestLogger returns a Logger backed by an in-memory observer.
// Tests inspect the returned ObservedLogs to assert on emitted entries.
func NewTestLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(TraceLevel)
	return &Logger{
		zap:    zap.New(core),
		config: NewDefaultConfig(),
	}, logs
}
