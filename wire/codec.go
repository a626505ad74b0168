package wire

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

var ErrInvalidBase64 = errors.New("invalid base64 payload")

// DecodeFrame maps one line, delimiter already stripped, to a message.
// The returned message never aliases line.
func DecodeFrame(line []byte) (Message, error) {
	if len(line) == 0 {
		return Text(""), nil
	}

	switch line[0] {
	case BinarySigil:
		payload := line[1:]
		// the decoder would silently skip these
		if i := bytes.IndexAny(payload, "\r\n"); i >= 0 {
			return nil, errors.Wrapf(ErrInvalidBase64, "binary frame: illegal byte %#x at offset %d", payload[i], i)
		}
		out := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
		n, err := base64.StdEncoding.Decode(out, payload)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidBase64, "binary frame: %v", err)
		}
		return Binary(out[:n]), nil
	case ErrorSigil:
		return Error(line[1:]), nil
	default:
		return Text(line), nil
	}
}

// AppendFrame appends the encoded frame for msg, delimiter included, to
// dst. Text is not checked for embedded delimiters.
func AppendFrame(dst []byte, msg Message) []byte {
	switch m := msg.(type) {
	case Text:
		dst = append(dst, m...)
	case Binary:
		dst = append(dst, BinarySigil)
		start := len(dst)
		dst = append(dst, make([]byte, base64.StdEncoding.EncodedLen(len(m)))...)
		base64.StdEncoding.Encode(dst[start:], m)
	case Error:
		dst = append(dst, ErrorSigil)
		dst = append(dst, m...)
	default:
		panic(fmt.Sprintf("unknown message type %T", msg))
	}
	return append(dst, Delimiter)
}

// EncodeFrame writes msg as a single frame using one Write call.
func EncodeFrame(w io.Writer, msg Message) error {
	_, err := w.Write(AppendFrame(nil, msg))
	return err
}

// FrameSize is the number of bytes msg occupies on the wire.
func FrameSize(msg Message) int {
	switch m := msg.(type) {
	case Text:
		return len(m) + 1
	case Binary:
		return base64.StdEncoding.EncodedLen(len(m)) + 2
	case Error:
		return len(m) + 2
	default:
		return 0
	}
}
