// internal/logging/sampling.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps a core with sampling below error level.
// Errors and above always pass so failures are never dropped; chatty
// info/debug traffic is capped at Initial entries per Tick with every
// Thereafter-th entry kept after that.
func newSampledCore(core zapcore.Core, cfg *Config) zapcore.Core {
	errorCore := &levelFilterCore{
		Core: core,
		min:  zapcore.ErrorLevel,
		max:  zapcore.FatalLevel,
	}
	sampledCore := zapcore.NewSamplerWithOptions(
		&levelFilterCore{
			Core: core,
			min:  TraceLevel,
			max:  zapcore.WarnLevel,
		},
		cfg.Sampling.Tick.Duration(),
		cfg.Sampling.Initial,
		cfg.Sampling.Thereafter,
	)
	return zapcore.NewTee(errorCore, sampledCore)
}

// levelFilterCore restricts a core to a level range. Needed because
// the sampler wraps a whole core; filtering lets errors bypass it.
type levelFilterCore struct {
	zapcore.Core
	min zapcore.Level
	max zapcore.Level
}

func (c *levelFilterCore) Enabled(level zapcore.Level) bool {
	return level >= c.min && level <= c.max && c.Core.Enabled(level)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return checked
	}
	return c.Core.Check(entry, checked)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core: c.Core.With(fields),
		min:  c.min,
		max:  c.max,
	}
}
