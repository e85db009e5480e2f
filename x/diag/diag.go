// Package diag is the node's diagnostic text stream: one line per event,
//
//	[tag] message key=value key=value
//
// It exists for development visibility only; nothing reads it back to make
// control decisions. A nil *Logger discards everything.
package diag

import (
	"io"
	"sync"
)

type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	tag string
	buf []byte
}

func New(w io.Writer, tag string) *Logger {
	return &Logger{w: w, tag: tag, buf: make([]byte, 0, 96)}
}

// Print writes msg followed by key/value pairs. A trailing key without a
// value is written bare.
func (l *Logger) Print(msg string, kv ...string) {
	if l == nil || l.w == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buf[:0]
	if l.tag != "" {
		b = append(b, '[')
		b = append(b, l.tag...)
		b = append(b, "] "...)
	}
	b = append(b, msg...)
	for i := 0; i < len(kv); i += 2 {
		b = append(b, ' ')
		b = append(b, kv[i]...)
		if i+1 < len(kv) {
			b = append(b, '=')
			b = append(b, kv[i+1]...)
		}
	}
	b = append(b, '\r', '\n')
	_, _ = l.w.Write(b)
	l.buf = b
}

// With returns a logger writing to the same stream under another tag.
func (l *Logger) With(tag string) *Logger {
	if l == nil {
		return nil
	}
	return New(l.w, tag)
}
