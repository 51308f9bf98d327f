// Package log provides the structured logger used by the migration tooling.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Root is the logger used when no other logger is configured.
var Root Logger = Nop

// Logger is logger interface. The variadic arguments are key value pairs. The key must be a
// string and the value should have a meaningful string representations.
type Logger interface {
	Debug(string, ...interface{})
	Error(string, ...interface{})
	Crit(string, ...interface{})
	With(...interface{}) Logger
}

// Nop discards all messages.
var Nop Logger = NewZap(zap.NewNop())

// Zap is a logger backed by a sugared zap logger.
type Zap struct {
	*zap.SugaredLogger
}

// NewZap returns a logger writing to l.
func NewZap(l *zap.Logger) *Zap { return &Zap{l.Sugar()} }

// New returns a console logger writing to stderr. Debug messages are only logged if verbose.
func New(verbose bool) (*Zap, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

func (l *Zap) Debug(m string, kv ...interface{}) { l.Debugw(m, kv...) }
func (l *Zap) Error(m string, kv ...interface{}) { l.Errorw(m, kv...) }

// Crit logs at error level and marks the message critical.
func (l *Zap) Crit(m string, kv ...interface{}) {
	l.Errorw(m, append(kv, "crit", true)...)
}

func (l *Zap) With(kv ...interface{}) Logger {
	return &Zap{l.SugaredLogger.With(kv...)}
}
