package ipc

import (
	"io"
	"sync/atomic"
)

type counter struct {
	count uint64
}

func (c *counter) Count() uint64 {
	return atomic.LoadUint64(&c.count)
}

func (c *counter) Reset() {
	atomic.StoreUint64(&c.count, 0)
}

func (c *counter) add(n int) {
	if n > 0 {
		atomic.AddUint64(&c.count, uint64(n))
	}
}

type CountingReader struct {
	counter
	r io.Reader
}

func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{
		r: r,
	}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.add(n)
	return n, err
}

type flusher interface {
	Flush() error
}

type CountingWriter struct {
	counter
	w io.Writer
}

func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{
		w: w,
	}
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.add(n)
	return n, err
}

// Flush flushes the underlying writer when it buffers.
func (c *CountingWriter) Flush() error {
	if f, ok := c.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
