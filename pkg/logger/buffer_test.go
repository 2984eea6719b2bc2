package logger

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func fixedBuffer(size int) *Buffer {
	b := NewBuffer(size)
	b.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return b
}

func TestBufferLineFormat(t *testing.T) {
	b := fixedBuffer(10)
	b.Append(LevelWarning, "rate limited, retrying")

	lines := b.Lines()
	if len(lines) != 1 {
		t.Fatalf("len = %d, want 1", len(lines))
	}
	want := "2024-06-01T12:00:00Z - WARNING - rate limited, retrying"
	if lines[0] != want {
		t.Fatalf("line = %q, want %q", lines[0], want)
	}
}

func TestBufferEvictsOldestFirst(t *testing.T) {
	b := fixedBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(LevelInfo, fmt.Sprintf("msg %d", i))
	}

	lines := b.Lines()
	if len(lines) != 3 {
		t.Fatalf("len = %d, want 3", len(lines))
	}
	for i, want := range []string{"msg 2", "msg 3", "msg 4"} {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("lines[%d] = %q, want suffix %q", i, lines[i], want)
		}
	}
}

func TestBufferClear(t *testing.T) {
	b := fixedBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(LevelInfo, "x")
	}
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("Len = %d after Clear, want 0", b.Len())
	}
	if len(b.Lines()) != 0 {
		t.Fatal("Lines should be empty after Clear")
	}

	b.Append(LevelError, "fresh")
	lines := b.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "ERROR - fresh") {
		t.Fatalf("lines = %v", lines)
	}
}

func TestBufferDefaultSize(t *testing.T) {
	b := NewBuffer(0)
	if cap(b.lines) != defaultBufferSize {
		t.Fatalf("cap = %d, want %d", cap(b.lines), defaultBufferSize)
	}
}

func TestWithoutBufferSkipsRetainedLines(t *testing.T) {
	log, err := New(&Config{Level: "info", Format: "json", Output: "stderr", BufferSize: 10})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	log.WithoutBuffer().Info("http request", String("uri", "/api/results"))
	if n := log.Buffer().Len(); n != 0 {
		t.Fatalf("buffer len = %d after detached write, want 0", n)
	}

	log.Info("scan started")
	if n := log.Buffer().Len(); n != 1 {
		t.Fatalf("buffer len = %d after attached write, want 1", n)
	}
}

func TestBufferConcurrentAppend(t *testing.T) {
	b := fixedBuffer(100)
	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				b.Append(LevelInfo, "concurrent")
			}
		}()
	}
	for g := 0; g < 8; g++ {
		<-done
	}
	if b.Len() != 100 {
		t.Fatalf("Len = %d, want 100", b.Len())
	}
}
