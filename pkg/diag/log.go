// Package diag provides the diagnostic sink the dms engine logs through:
// a thin wrapper over a structured logger that degrades to a no-op when
// none is configured, so the engine works standalone in tests.
package diag

import "go.uber.org/zap"

// Log is the logging collaborator accepted by dms.Open. It wraps a
// *zap.SugaredLogger, matching the injected-logger pattern of
// iamNilotpal-ignite's internal/storage.Storage.
type Log struct {
	s *zap.SugaredLogger
}

// New wraps an existing zap logger.
func New(l *zap.Logger) *Log {
	if l == nil {
		return NewNop()
	}
	return &Log{s: l.Sugar()}
}

// NewProduction builds a Log backed by zap's production configuration.
func NewProduction() (*Log, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(l), nil
}

// NewNop returns a Log that discards everything.
func NewNop() *Log {
	return &Log{s: zap.NewNop().Sugar()}
}

func (l *Log) sugared() *zap.SugaredLogger {
	if l == nil || l.s == nil {
		return zap.NewNop().Sugar()
	}
	return l.s
}

// Debugw logs at debug severity with structured key/value fields.
func (l *Log) Debugw(msg string, kv ...any) { l.sugared().Debugw(msg, kv...) }

// Infow logs at info severity with structured key/value fields.
func (l *Log) Infow(msg string, kv ...any) { l.sugared().Infow(msg, kv...) }

// Errorw logs at error severity with structured key/value fields.
func (l *Log) Errorw(msg string, kv ...any) { l.sugared().Errorw(msg, kv...) }

// Sync flushes any buffered log entries.
func (l *Log) Sync() error {
	if l == nil || l.s == nil {
		return nil
	}
	return l.s.Sync()
}
