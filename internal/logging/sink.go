package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// Sink receives fully formatted log lines from the bridge.
type Sink func(message string, level MessageLevel)

type sinkCore struct {
	zapcore.LevelEnabler
	sink   Sink
	fields []zapcore.Field
}

// NewSinkCore adapts sink into a zap core that accepts entries enabled by
// enab. Structured fields are appended to the message as key=value pairs.
func NewSinkCore(sink Sink, enab zapcore.LevelEnabler) zapcore.Core {
	return &sinkCore{LevelEnabler: enab, sink: sink}
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &sinkCore{LevelEnabler: c.LevelEnabler, sink: c.sink}
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return clone
}

func (c *sinkCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sinkCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	var b strings.Builder
	if ent.LoggerName != "" {
		b.WriteString(ent.LoggerName)
		b.WriteString(": ")
	}
	b.WriteString(ent.Message)

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}

	c.sink(b.String(), FromZapLevel(ent.Level))
	return nil
}

func (c *sinkCore) Sync() error {
	return nil
}

// Switch lets a running host redirect its log output without rebuilding the
// loggers already handed to its components.
type Switch struct {
	base    zapcore.Core
	current atomic.Pointer[coreRef]
}

type coreRef struct {
	core zapcore.Core
}

// NewSwitch starts out writing to base.
func NewSwitch(base zapcore.Core) *Switch {
	s := &Switch{base: base}
	s.current.Store(&coreRef{core: base})
	return s
}

// Override routes all subsequent entries to core.
func (s *Switch) Override(core zapcore.Core) {
	s.current.Store(&coreRef{core: core})
}

// Reset restores the base core.
func (s *Switch) Reset() {
	s.current.Store(&coreRef{core: s.base})
}

// Base returns the core the switch was created with. It doubles as the level
// enabler for overriding sinks.
func (s *Switch) Base() zapcore.Core {
	return s.base
}

// Core returns a zap core that always delegates to the active target.
func (s *Switch) Core() zapcore.Core {
	return &switchCore{s: s}
}

type switchCore struct {
	s      *Switch
	fields []zapcore.Field
}

func (c *switchCore) target() zapcore.Core {
	core := c.s.current.Load().core
	if len(c.fields) > 0 {
		core = core.With(c.fields)
	}
	return core
}

func (c *switchCore) Enabled(l zapcore.Level) bool {
	return c.s.current.Load().core.Enabled(l)
}

func (c *switchCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &switchCore{s: c.s, fields: merged}
}

func (c *switchCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.target().Check(ent, ce)
}

func (c *switchCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.target().Write(ent, fields)
}

func (c *switchCore) Sync() error {
	return c.s.current.Load().core.Sync()
}
