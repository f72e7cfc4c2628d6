// internal/logging/levels.go
package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging.
// Value: -2 (Debug is -1, Info is 0)
//
// Use for per-chunk and per-vector details that would swamp debug output.
// Almost always filtered in production.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a string into a zapcore.Level, supporting "trace".
// Matching is case-insensitive.
func LevelFromString(level string) (zapcore.Level, error) {
	normalized := strings.ToLower(level)
	if normalized == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(normalized)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
