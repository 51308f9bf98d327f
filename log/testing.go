package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Test returns a logger writing to the test log of t.
func Test(t zaptest.TestingT) Logger {
	return NewZap(zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel)))
}
