package logging

import (
	"sync"

	"go.uber.org/zap/zapcore"
)

// MemorySink is an append-only in-memory log buffer; consumers read it
// back after a solve. One MemorySink is created per solve and handed to
// NewLogger.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink returns an empty sink ready to be attached to a Logger.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Entries returns a snapshot of everything logged so far, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemorySink) append(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *MemorySink) core() zapcore.Core {
	return &memoryCore{sink: s, enabler: zapcore.DebugLevel}
}

type memoryCore struct {
	sink    *MemorySink
	enabler zapcore.LevelEnabler
	fields  []zapcore.Field
}

func (c *memoryCore) Enabled(level zapcore.Level) bool { return c.enabler.Enabled(level) }

func (c *memoryCore) With(fields []zapcore.Field) zapcore.Core {
	merged := append(append([]zapcore.Field{}, c.fields...), fields...)
	return &memoryCore{sink: c.sink, enabler: c.enabler, fields: merged}
}

func (c *memoryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *memoryCore) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	level := levelFromZap(ent.Level)
	c.sink.append(Entry{Level: level, Logger: ent.LoggerName, Message: ent.Message})
	return nil
}

func (c *memoryCore) Sync() error { return nil }

func levelFromZap(l zapcore.Level) Level {
	switch l {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ERROR
	default:
		return INFO
	}
}
