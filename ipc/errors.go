package ipc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrChannelNotOpen  = errors.New("channel is not open")
	ErrChannelClosed   = errors.New("channel closed")
	ErrChannelOpened   = errors.New("channel already opened, configuration is frozen")
	ErrChannelReopened = errors.New("channel cannot be reopened")
	ErrNoErrorSink     = errors.New("error sink must be set before opening the channel")
	ErrDecoderStarted  = errors.New("decoder already started")
)

type ErrorKind int

const (
	// EndpointNotReachable is fatal: the channel is closed when it is
	// reported.
	EndpointNotReachable ErrorKind = iota
	DecodingFailed
	RemoteReported
	ConsumerFailed
)

func (k ErrorKind) String() string {
	switch k {
	case EndpointNotReachable:
		return "EndpointNotReachable"
	case DecodingFailed:
		return "DecodingFailed"
	case RemoteReported:
		return "RemoteReported"
	case ConsumerFailed:
		return "ConsumerFailed"
	default:
		return "unknown"
	}
}

// FatalError is delivered to the error sink.
type FatalError struct {
	Kind        ErrorKind
	Description string
}

func (e FatalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// Fatal reports whether the channel closed because of e.
func (e FatalError) Fatal() bool {
	return e.Kind == EndpointNotReachable
}

// IsKind reports whether err is, or wraps, a FatalError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe FatalError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == kind
}

func newFatalError(kind ErrorKind, format string, args ...interface{}) FatalError {
	return FatalError{
		Kind:        kind,
		Description: fmt.Sprintf(format, args...),
	}
}
