package wire

import "bytes"

const (
	Delimiter   byte = '\n'
	BinarySigil byte = '#'
	ErrorSigil  byte = '!'
)

type Kind uint8

const (
	KindText Kind = iota
	KindBinary
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindBinary:
		return "Binary"
	case KindError:
		return "Error"
	default:
		return "unknown"
	}
}

// Message is one decoded frame. The concrete types are Text, Binary and
// Error.
type Message interface {
	Kind() Kind
	Equals(other Message) bool
}

// Text must not contain Delimiter.
type Text string

func (t Text) Kind() Kind {
	return KindText
}

func (t Text) Equals(other Message) bool {
	cast, ok := other.(Text)
	return ok && t == cast
}

type Binary []byte

func (b Binary) Kind() Kind {
	return KindBinary
}

func (b Binary) Equals(other Message) bool {
	cast, ok := other.(Binary)
	return ok && bytes.Equal(b, cast)
}

// Error is an out-of-band description exchanged between peers.
type Error string

func (e Error) Kind() Kind {
	return KindError
}

func (e Error) Equals(other Message) bool {
	cast, ok := other.(Error)
	return ok && e == cast
}
