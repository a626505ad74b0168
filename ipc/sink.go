package ipc

import "messagic/wire"

// TextSink receives decoded text messages. A returned error is reported
// to the error sink and to the remote peer; it does not stop decoding.
type TextSink interface {
	OnText(msg string) error
}

type BinarySink interface {
	OnBinary(msg []byte) error
}

// ErrorSink receives every error condition of a channel.
type ErrorSink interface {
	OnError(err FatalError)
}

type TextSinkFunc func(msg string) error

func (f TextSinkFunc) OnText(msg string) error {
	return f(msg)
}

type BinarySinkFunc func(msg []byte) error

func (f BinarySinkFunc) OnBinary(msg []byte) error {
	return f(msg)
}

type ErrorSinkFunc func(err FatalError)

func (f ErrorSinkFunc) OnError(err FatalError) {
	f(err)
}

// Tap observes traffic after a frame has been decoded or written. It is
// called synchronously and must not call back into the channel.
type Tap interface {
	Inbound(msg wire.Message)
	Outbound(msg wire.Message)
}
