// Package notify carries short user-visible status messages for conditions
// that are reported but not fatal: missing files, invalid data, save failures.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity ranks a notification.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Sink accepts notifications. Implementations must not block the caller.
type Sink interface {
	Notify(message string, severity Severity)
}

// Message is one recorded notification.
type Message struct {
	Text     string
	Severity Severity
	At       time.Time
}

// Log forwards notifications to a slog logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Sink that logs each notification at the matching level.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify implements Sink.
func (l *Log) Notify(message string, severity Severity) {
	level := slog.LevelInfo
	switch severity {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	l.logger.Log(context.Background(), level, message, "notification", true)
}

// Buffer keeps the most recent notifications in memory. The TUI status line
// and the tests read from it.
type Buffer struct {
	mu   sync.Mutex
	max  int
	msgs []Message
}

// NewBuffer returns a Buffer keeping at most max messages; 0 keeps all.
func NewBuffer(max int) *Buffer {
	return &Buffer{max: max}
}

// Notify implements Sink.
func (b *Buffer) Notify(message string, severity Severity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Message{Text: message, Severity: severity, At: time.Now()})
	if b.max > 0 && len(b.msgs) > b.max {
		b.msgs = b.msgs[len(b.msgs)-b.max:]
	}
}

// Messages returns a copy of the buffered notifications, oldest first.
func (b *Buffer) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// Last returns the newest notification, if any.
func (b *Buffer) Last() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) == 0 {
		return Message{}, false
	}
	return b.msgs[len(b.msgs)-1], true
}

// Multi fans a notification out to several sinks.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(message string, severity Severity) {
	for _, s := range m {
		if s != nil {
			s.Notify(message, severity)
		}
	}
}

// Discard drops every notification.
type Discard struct{}

// Notify implements Sink.
func (Discard) Notify(string, Severity) {}
