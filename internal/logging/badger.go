package logging

import (
	"context"
	"fmt"
)

// BadgerAdapter satisfies badger's Logger interface so embedded badger
// stores log through the structured logger. Badger's info-level chatter
// is demoted to debug.
type BadgerAdapter struct {
	logger *Logger
}

// NewBadgerAdapter wraps logger for use as badger.Options.Logger.
func NewBadgerAdapter(logger *Logger) *BadgerAdapter {
	if logger == nil {
		logger = NewNop()
	}
	return &BadgerAdapter{logger: logger}
}

func (a *BadgerAdapter) Errorf(msg string, args ...any) {
	a.logger.Error(context.Background(), fmt.Sprintf(msg, args...))
}

func (a *BadgerAdapter) Warningf(msg string, args ...any) {
	a.logger.Warn(context.Background(), fmt.Sprintf(msg, args...))
}

func (a *BadgerAdapter) Infof(msg string, args ...any) {
	a.logger.Debug(context.Background(), fmt.Sprintf(msg, args...))
}

func (a *BadgerAdapter) Debugf(msg string, args ...any) {
	a.logger.Debug(context.Background(), fmt.Sprintf(msg, args...))
}
