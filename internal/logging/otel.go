// internal/logging/otel.go
package logging

import (
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// newDualCore creates a Zap core that writes to stdout and/or an OTEL
// log provider, depending on config. At least one output is required,
// which Validate enforces before this runs.
func newDualCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 2)

	if cfg.Output.Stdout {
		encoder := newEncoder(cfg.Format)
		stdoutCore := zapcore.NewCore(
			encoder,
			zapcore.Lock(os.Stdout),
			cfg.Level,
		)
		cores = append(cores, stdoutCore)
	}

	if cfg.Output.OTEL && otelProvider != nil {
		otelCore := otelzap.NewCore(
			"docvector",
			otelzap.WithLoggerProvider(otelProvider),
		)
		cores = append(cores, otelCore)
	}

	if len(cores) == 0 {
		// OTEL requested but provider unavailable: fall back to stdout
		// so logs are never silently dropped.
		encoder := newEncoder(cfg.Format)
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), cfg.Level))
	}

	core := zapcore.NewTee(cores...)

	if cfg.Sampling.Enabled {
		core = newSampledCore(core, cfg)
	}

	return core, nil
}
