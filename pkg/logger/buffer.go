package logger

import (
	"sync"
	"time"
)

// Level markers as they appear in retained log lines.
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

const defaultBufferSize = 1000

// Buffer keeps the most recent log lines in memory so an HTTP endpoint can
// serve them. Lines are formatted "<timestamp> - <LEVEL> - <message>" and
// the oldest lines are evicted once the capacity is reached.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
	now   func() time.Time
}

// NewBuffer creates a buffer retaining up to size lines. A non-positive
// size falls back to the default of 1000.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Buffer{
		lines: make([]string, size),
		now:   time.Now,
	}
}

// Append records one line, evicting the oldest when full.
func (b *Buffer) Append(level, msg string) {
	line := b.now().UTC().Format(time.RFC3339) + " - " + level + " - " + msg

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines[b.next] = line
	b.next++
	if b.next == len(b.lines) {
		b.next = 0
		b.full = true
	}
}

// Lines returns the retained lines oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]string, b.next)
		copy(out, b.lines[:b.next])
		return out
	}
	out := make([]string, 0, len(b.lines))
	out = append(out, b.lines[b.next:]...)
	out = append(out, b.lines[:b.next]...)
	return out
}

// Clear discards all retained lines.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = 0
	b.full = false
	for i := range b.lines {
		b.lines[i] = ""
	}
}

// Len reports the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.lines)
	}
	return b.next
}
