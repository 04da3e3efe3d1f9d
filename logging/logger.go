package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the sink every solve diagnostic flows through. It is a thin
// wrapper over zap.SugaredLogger: production code never reaches for
// fmt.Println, it reaches for a Logger, same as the rest of the stack this
// module is grounded on.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Named(name string) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds a Logger named name that also fans out to sink, so a
// caller can read back every line emitted during a solve.
func NewLogger(name string, sink *MemorySink) Logger {
	cores := []zapcore.Core{}
	if sink != nil {
		cores = append(cores, sink.core())
	}
	core := zapcore.NewTee(cores...)
	z := zap.New(core).Named(name)
	return &zapLogger{sugar: z.Sugar()}
}

// NewNoopLogger returns a Logger that discards everything, used by callers
// (and tests) that don't care about diagnostics.
func NewNoopLogger() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debugf(template string, args ...interface{}) { l.sugar.Debugf(template, args...) }
func (l *zapLogger) Infof(template string, args ...interface{})  { l.sugar.Infof(template, args...) }
func (l *zapLogger) Warnf(template string, args ...interface{})  { l.sugar.Warnf(template, args...) }
func (l *zapLogger) Errorf(template string, args ...interface{}) { l.sugar.Errorf(template, args...) }

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{sugar: l.sugar.Named(name)}
}

// Entry is one captured log line.
type Entry struct {
	Level   Level
	Logger  string
	Message string
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Level, e.Logger, e.Message)
}
