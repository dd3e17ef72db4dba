package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// FluentPoster is the subset of *fluent.Fluent used by FluentCore.
type FluentPoster interface {
	Post(tag string, message interface{}) error
}

// FluentCore is a zapcore.Core that forwards each entry to Fluentd.
// The level name is used as the tag suffix (the client adds its TagPrefix),
// so routing in the collector can match e.g. "listing-explorer.error".
type FluentCore struct {
	zapcore.LevelEnabler
	poster FluentPoster
	fields []zapcore.Field
}

// NewFluentCore creates a core that posts entries at or above level.
func NewFluentCore(poster FluentPoster, level zapcore.LevelEnabler) *FluentCore {
	return &FluentCore{LevelEnabler: level, poster: poster}
}

func (c *FluentCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &FluentCore{LevelEnabler: c.LevelEnabler, poster: c.poster, fields: merged}
}

func (c *FluentCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *FluentCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	record := enc.Fields
	record["level"] = ent.Level.String()
	record["message"] = ent.Message
	record["timestamp"] = ent.Time.UTC().Format(time.RFC3339Nano)
	if ent.LoggerName != "" {
		record["logger"] = ent.LoggerName
	}
	if ent.Caller.Defined {
		record["caller"] = ent.Caller.TrimmedPath()
	}

	// Logging must never fail the caller; a lost record is acceptable
	_ = c.poster.Post(ent.Level.String(), record)
	return nil
}

func (c *FluentCore) Sync() error {
	return nil
}
