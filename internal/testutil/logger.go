// Package testutil provides test helpers shared by the kiwiq packages.
package testutil

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log at debug level.
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// Recorder is a slog handler output that keeps every record for
// assertions, and mirrors it to t.Log.
type Recorder struct {
	t   testing.TB
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewRecorder returns a debug-level logger and the recorder of its output.
func NewRecorder(t testing.TB) (*slog.Logger, *Recorder) {
	t.Helper()
	r := &Recorder{t: t}
	return slog.New(slog.NewTextHandler(r, &slog.HandlerOptions{Level: slog.LevelDebug})), r
}

func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.Log(string(p))
	return r.buf.Write(p)
}

// String returns everything logged so far.
func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}
