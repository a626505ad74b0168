package wire

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const DefaultMaximumSize = 8192

var (
	ErrTextTooLarge   = errors.New("text message exceeded maximum size")
	ErrBinaryTooLarge = errors.New("binary message exceeded maximum size")
	ErrInvalidLimit   = errors.New("maximum size must be positive")
)

// Limits are the payload ceilings for one direction of a channel. Text
// is measured in characters (code points), binary in bytes.
type Limits struct {
	TextMaximumSize   int
	BinaryMaximumSize int
}

func DefaultLimits() Limits {
	return Limits{
		TextMaximumSize:   DefaultMaximumSize,
		BinaryMaximumSize: DefaultMaximumSize,
	}
}

func (l Limits) Validate() error {
	if l.TextMaximumSize <= 0 {
		return errors.Wrapf(ErrInvalidLimit, "text maximum size %d", l.TextMaximumSize)
	}
	if l.BinaryMaximumSize <= 0 {
		return errors.Wrapf(ErrInvalidLimit, "binary maximum size %d", l.BinaryMaximumSize)
	}
	return nil
}

func (l Limits) CheckText(s string) error {
	if len(s) <= l.TextMaximumSize {
		return nil
	}
	if n := utf8.RuneCountInString(s); n > l.TextMaximumSize {
		return errors.Wrapf(ErrTextTooLarge, "%d > %d characters", n, l.TextMaximumSize)
	}
	return nil
}

func (l Limits) CheckBinary(b []byte) error {
	if len(b) > l.BinaryMaximumSize {
		return errors.Wrapf(ErrBinaryTooLarge, "%d > %d bytes", len(b), l.BinaryMaximumSize)
	}
	return nil
}

// Check applies the ceiling for msg's kind. Error messages are only
// bounded by MaxFrameSize.
func (l Limits) Check(msg Message) error {
	switch m := msg.(type) {
	case Text:
		return l.CheckText(string(m))
	case Binary:
		return l.CheckBinary(m)
	default:
		return nil
	}
}

// MaxFrameSize is the longest line, delimiter excluded, that can carry a
// message within the ceilings. Readers use it to stop buffering a frame
// that can only end up rejected.
func (l Limits) MaxFrameSize() int {
	binary := 1 + base64.StdEncoding.EncodedLen(l.BinaryMaximumSize)
	text := 1 + l.TextMaximumSize*utf8.UTFMax
	if binary > text {
		return binary
	}
	return text
}
