// Package logger defines the minimal structured-logging interface used
// throughout the overlay core, decoupling it from any concrete backend.
package logger

import "github.com/8xFF/decentralized-sdn/internal/domain"

// Field is a single structured key/value pair.
type Field struct {
	Key string
	Val any
}

// Logger is the minimal structured logging interface required by every
// stateful component in this module.
type Logger interface {
	Named(name string) Logger
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// F builds a Field concisely.
func F(key string, val any) Field { return Field{Key: key, Val: val} }

// FNode serializes a domain.NodeId into a readable structured field.
func FNode(key string, n domain.NodeId) Field {
	return Field{Key: key, Val: n.String()}
}

// FConn serializes a domain.ConnId into a readable structured field.
func FConn(key string, c domain.ConnId) Field {
	return Field{
		Key: key,
		Val: map[string]any{
			"dir":      c.Direction(),
			"protocol": c.Protocol(),
			"seq":      c.Sequence(),
		},
	}
}

// FMetric serializes a domain.Metric into a readable structured field.
func FMetric(key string, m domain.Metric) Field {
	hops := make([]string, len(m.Hops))
	for i, h := range m.Hops {
		hops[i] = h.String()
	}
	return Field{
		Key: key,
		Val: map[string]any{
			"latency_ms": m.LatencyMs,
			"bandwidth":  m.Bandwidth,
			"hops":       hops,
		},
	}
}

// ----------------------------------------------------------------
// NopLogger is a Logger implementation that discards everything. It is the
// default that constructors substitute when passed a nil logger.
type NopLogger struct{}

func (l *NopLogger) Named(name string) Logger          { return l }
func (l *NopLogger) With(fields ...Field) Logger       { return l }
func (l *NopLogger) Debug(msg string, fields ...Field) {}
func (l *NopLogger) Info(msg string, fields ...Field)  {}
func (l *NopLogger) Warn(msg string, fields ...Field)  {}
func (l *NopLogger) Error(msg string, fields ...Field) {}
