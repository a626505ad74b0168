package transport

import (
	"bufio"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"github.com/pkg/errors"
)

type stdioConn struct {
	cancelreader.CancelReader

	wmtx sync.Mutex
	bw   *bufio.Writer
}

// Stdio uses the process's stdin and stdout. Reads can be cancelled, so
// closing the channel does not leave a goroutine parked on stdin.
func Stdio() (Conn, error) {
	return newStdioConn(os.Stdin, os.Stdout)
}

func newStdioConn(in, out *os.File) (*stdioConn, error) {
	cr, err := cancelreader.NewReader(in)
	if err != nil {
		return nil, errors.Wrap(err, "error wrapping stdin")
	}
	return &stdioConn{
		CancelReader: cr,
		bw:           bufio.NewWriter(out),
	}, nil
}

func (s *stdioConn) Write(p []byte) (int, error) {
	s.wmtx.Lock()
	defer s.wmtx.Unlock()
	return s.bw.Write(p)
}

func (s *stdioConn) Flush() error {
	s.wmtx.Lock()
	defer s.wmtx.Unlock()
	return s.bw.Flush()
}

func (s *stdioConn) Close() error {
	s.Cancel()
	flushErr := s.Flush()
	if err := s.CancelReader.Close(); err != nil {
		return err
	}
	return flushErr
}
