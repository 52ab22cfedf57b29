package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// TraceWriter writes applied events to a JSONL file.
type TraceWriter struct {
	mu  sync.Mutex
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
	n   int
}

// NewTraceWriter creates or truncates the trace file at path.
func NewTraceWriter(path string) (*TraceWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &TraceWriter{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// RecordEvent logs a single event.
func (t *TraceWriter) RecordEvent(ev Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enc.Encode(ev); err != nil {
		return err
	}
	t.n++
	return nil
}

// Count returns the number of events written.
func (t *TraceWriter) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Close flushes and closes the file.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.buf.Flush()
	if cerr := t.f.Close(); err == nil {
		err = cerr
	}
	return err
}
