package wire

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

var ErrFrameTooLarge = errors.New("frame exceeded maximum size")

// FrameReader splits a byte stream into delimiter-bounded frames without
// buffering more than maxFrameSize bytes of any one frame.
type FrameReader struct {
	br           *bufio.Reader
	maxFrameSize int
}

func NewFrameReader(r io.Reader, maxFrameSize int) *FrameReader {
	return &FrameReader{
		br:           bufio.NewReader(r),
		maxFrameSize: maxFrameSize,
	}
}

// ReadFrame returns the next frame with its delimiter stripped. An
// oversized frame is consumed through its delimiter and reported as
// ErrFrameTooLarge; the reader stays usable. Bytes after the last
// delimiter are returned as a final frame before io.EOF.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var line []byte
	var discarding bool
	for {
		chunk, err := f.br.ReadSlice(Delimiter)
		content := chunk
		if err == nil {
			content = chunk[:len(chunk)-1]
		}

		if !discarding && len(line)+len(content) > f.maxFrameSize {
			discarding = true
			line = nil
		}
		if !discarding {
			line = append(line, content...)
		}

		switch {
		case err == nil:
			if discarding {
				return nil, ErrFrameTooLarge
			}
			if line == nil {
				line = []byte{}
			}
			return line, nil
		case err == bufio.ErrBufferFull:
			continue
		case discarding:
			return nil, ErrFrameTooLarge
		case err == io.EOF && len(line) > 0:
			return line, nil
		default:
			return nil, err
		}
	}
}
