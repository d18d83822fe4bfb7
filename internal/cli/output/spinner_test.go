package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_StartStop(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Analyzing problem...")
	s.interval = time.Millisecond
	s.Start()
	time.Sleep(10 * time.Millisecond)
	s.Stop()
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Analyzing problem...") {
		t.Errorf("output = %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Error("Stop should clear the line last")
	}
}

func TestSpinner_SuccessAndFail(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Logging solve")
	s.Start()
	s.Success("Logged")
	if !strings.HasSuffix(buf.String(), "✓ Logged\n") {
		t.Errorf("output = %q", buf.String())
	}

	var buf2 syncBuffer
	f := NewSpinner(&buf2, "Scraping")
	f.Fail("page channel unavailable")
	if !strings.HasSuffix(buf2.String(), "✗ page channel unavailable\n") {
		t.Errorf("output = %q", buf2.String())
	}
}
