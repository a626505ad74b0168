package ipc

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"messagic/log"
	"messagic/wire"
)

type channelState int

const (
	channelNew channelState = iota
	channelOpen
	channelClosed
)

// Channel exchanges text, binary and error frames over a pair of byte
// streams. Configure it, Open it once, push messages, Close it.
type Channel struct {
	input io.Reader
	gw    *gateway
	lgr   log.Logger

	mtx         sync.Mutex
	state       channelState
	limits      wire.Limits
	textSink    TextSink
	binarySink  BinarySink
	errorSink   ErrorSink
	recvLimiter *rate.Limiter
	decoder     *Decoder

	closeOnce sync.Once
	doneCh    chan struct{}
}

// New creates a closed channel reading frames from input and writing
// them to output. If output implements Flush() error it is flushed after
// every frame.
func New(input io.Reader, output io.Writer) *Channel {
	lgr := log.WithModule("ipc")
	return &Channel{
		input:  input,
		gw:     newGateway(output, lgr),
		lgr:    lgr,
		limits: wire.DefaultLimits(),
		doneCh: make(chan struct{}),
	}
}

func (c *Channel) SetTextMaximumSize(characters int) error {
	return c.configure(func() error {
		if characters <= 0 {
			return errors.Wrapf(wire.ErrInvalidLimit, "text maximum size %d", characters)
		}
		c.limits.TextMaximumSize = characters
		return nil
	})
}

func (c *Channel) SetBinaryMaximumSize(bytes int) error {
	return c.configure(func() error {
		if bytes <= 0 {
			return errors.Wrapf(wire.ErrInvalidLimit, "binary maximum size %d", bytes)
		}
		c.limits.BinaryMaximumSize = bytes
		return nil
	})
}

func (c *Channel) SetLimits(limits wire.Limits) error {
	return c.configure(func() error {
		if err := limits.Validate(); err != nil {
			return err
		}
		c.limits = limits
		return nil
	})
}

func (c *Channel) SetTextSink(sink TextSink) error {
	return c.configure(func() error {
		c.textSink = sink
		return nil
	})
}

func (c *Channel) SetBinarySink(sink BinarySink) error {
	return c.configure(func() error {
		c.binarySink = sink
		return nil
	})
}

func (c *Channel) SetErrorSink(sink ErrorSink) error {
	return c.configure(func() error {
		c.errorSink = sink
		return nil
	})
}

// SetTap installs a traffic observer, for example a journal.
func (c *Channel) SetTap(tap Tap) error {
	return c.configure(func() error {
		c.gw.tap = tap
		return nil
	})
}

// SetRecvRateLimit caps how many frames per second are read from the
// inbound stream. A zero limit removes the cap.
func (c *Channel) SetRecvRateLimit(limit rate.Limit, burst int) error {
	return c.configure(func() error {
		if limit == 0 {
			c.recvLimiter = nil
			return nil
		}
		if limit < 0 || burst < 1 {
			return errors.Errorf("invalid receive rate limit %v/%d", limit, burst)
		}
		c.recvLimiter = rate.NewLimiter(limit, burst)
		return nil
	})
}

func (c *Channel) configure(fn func() error) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state != channelNew {
		return ErrChannelOpened
	}
	return fn()
}

func (c *Channel) Limits() wire.Limits {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.limits
}

// Open starts decoding the inbound stream. A channel can be opened once.
func (c *Channel) Open() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.state != channelNew {
		return ErrChannelReopened
	}
	if c.errorSink == nil {
		return ErrNoErrorSink
	}

	c.decoder = NewDecoder(c.input, DecoderOpts{
		Limits:       c.limits,
		TextSink:     c.textSink,
		BinarySink:   c.binarySink,
		ErrorSink:    ErrorSinkFunc(c.onDecoderError),
		ReportRemote: c.pushError,
		RecvLimiter:  c.recvLimiter,
		Tap:          c.gw.tap,
		Logger:       c.lgr.Sub("component", "decoder"),
	})
	c.state = channelOpen
	if err := c.decoder.Start(); err != nil {
		return err
	}
	c.lgr.Debug("channel opened",
		"text_maximum_size", c.limits.TextMaximumSize,
		"binary_maximum_size", c.limits.BinaryMaximumSize,
	)
	return nil
}

// Close stops the decoder and waits for it. It is idempotent and must
// not be called from inside a sink.
func (c *Channel) Close() error {
	c.mtx.Lock()
	dec := c.decoder
	c.mtx.Unlock()

	c.shutdown(nil)
	if dec != nil {
		dec.Stop()
	}
	return nil
}

// Done is closed once the channel is closed, whether by Close or by a
// fatal error.
func (c *Channel) Done() <-chan struct{} {
	return c.doneCh
}

// BandwidthUsage returns the bytes written and read so far.
func (c *Channel) BandwidthUsage() (uint64, uint64) {
	c.mtx.Lock()
	dec := c.decoder
	c.mtx.Unlock()
	var rx uint64
	if dec != nil {
		rx = dec.BytesRead()
	}
	return c.gw.w.Count(), rx
}

func (c *Channel) PushText(msg string) error {
	return c.push(wire.Text(msg))
}

func (c *Channel) PushBinary(msg []byte) error {
	return c.push(wire.Binary(msg))
}

// push is synchronous. An oversized message or a failed write is fatal:
// the error sink is told and the channel closes.
func (c *Channel) push(msg wire.Message) error {
	c.mtx.Lock()
	state := c.state
	limits := c.limits
	c.mtx.Unlock()

	switch state {
	case channelNew:
		return ErrChannelNotOpen
	case channelClosed:
		return ErrChannelClosed
	}

	if err := limits.Check(msg); err != nil {
		c.lgr.Warn("rejecting oversized push", "err", err)
		return c.fail(FatalError{
			Kind:        EndpointNotReachable,
			Description: fmt.Sprintf("payload of pushed %s message exceeded maximum size", kindName(msg.Kind())),
		})
	}

	if err := c.gw.write(msg); err != nil {
		if errors.Is(err, ErrChannelClosed) {
			return err
		}
		return c.fail(FatalError{
			Kind:        EndpointNotReachable,
			Description: err.Error(),
		})
	}
	return nil
}

func (c *Channel) pushError(description string) error {
	return c.gw.write(wire.Error(description))
}

func (c *Channel) onDecoderError(fe FatalError) {
	if fe.Fatal() {
		c.shutdown(nil)
	}
	c.deliver(fe)
}

// fail closes the channel and delivers fe. When the channel was already
// closed nothing is delivered and ErrChannelClosed is returned.
func (c *Channel) fail(fe FatalError) error {
	if !c.shutdown(func() { c.deliver(fe) }) {
		return ErrChannelClosed
	}
	return fe
}

func (c *Channel) deliver(fe FatalError) {
	c.mtx.Lock()
	sink := c.errorSink
	c.mtx.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.lgr.Error("error sink panicked", "panic", r, "err", fe)
		}
	}()
	sink.OnError(fe)
}

// shutdown closes the channel without waiting for the decoder, so it is
// safe on the decoder's own goroutine. It reports whether this call
// closed the channel. then runs before any concurrent shutdown returns.
func (c *Channel) shutdown(then func()) bool {
	closed := false
	c.closeOnce.Do(func() {
		c.mtx.Lock()
		c.state = channelClosed
		dec := c.decoder
		c.mtx.Unlock()

		c.gw.close()
		if dec != nil {
			dec.signalStop()
		}
		close(c.doneCh)
		c.lgr.Debug("channel closed")
		closed = true
		if then != nil {
			then()
		}
	})
	return closed
}

func kindName(k wire.Kind) string {
	switch k {
	case wire.KindText:
		return "text"
	case wire.KindBinary:
		return "binary"
	default:
		return "error"
	}
}
