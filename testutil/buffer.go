package testutil

import (
	"bytes"
	"sync"
)

// SyncBuffer is a bytes.Buffer safe for one writer goroutine and one
// asserting goroutine.
type SyncBuffer struct {
	buf bytes.Buffer
	mtx sync.Mutex
}

func (s *SyncBuffer) Write(p []byte) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.buf.Write(p)
}

func (s *SyncBuffer) String() string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.buf.String()
}

// FailingWriter fails every write with Err and counts the attempts.
type FailingWriter struct {
	Err   error
	mtx   sync.Mutex
	calls int
}

func (f *FailingWriter) Write(p []byte) (int, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.calls++
	return 0, f.Err
}

func (f *FailingWriter) Calls() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.calls
}
