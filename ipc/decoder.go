package ipc

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"messagic/log"
	"messagic/wire"
)

type DecoderState int

const (
	DecoderIdle DecoderState = iota
	DecoderRunning
	DecoderStopped
)

func (s DecoderState) String() string {
	switch s {
	case DecoderIdle:
		return "Idle"
	case DecoderRunning:
		return "Running"
	case DecoderStopped:
		return "Stopped"
	default:
		panic("invalid decoder state")
	}
}

type DecoderOpts struct {
	Limits     wire.Limits
	TextSink   TextSink
	BinarySink BinarySink
	ErrorSink  ErrorSink
	// ReportRemote writes an out-of-band error frame to the peer. When
	// nil, decoding failures are only reported locally.
	ReportRemote func(description string) error
	// RecvLimiter throttles how fast frames are read off the stream.
	RecvLimiter *rate.Limiter
	Tap         Tap
	Logger      log.Logger
}

// Decoder owns the inbound stream. A reader goroutine splits it into
// frames and a dispatch goroutine decodes them and invokes the sinks, so
// Stop never has to wait on a blocked Read.
type Decoder struct {
	input  io.Reader
	connR  *CountingReader
	fr     *wire.FrameReader
	opts   DecoderOpts
	lgr    log.Logger
	ctx    context.Context
	cancel context.CancelFunc

	frameCh  chan frameResult
	doneCh   chan struct{}
	stopOnce sync.Once

	stateMu sync.Mutex
	state   DecoderState
	started bool
}

type frameResult struct {
	frame []byte
	err   error
}

type readCanceler interface {
	Cancel() bool
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

func NewDecoder(input io.Reader, opts DecoderOpts) *Decoder {
	lgr := opts.Logger
	if lgr == nil {
		lgr = log.WithModule("decoder")
	}
	connR := NewCountingReader(input)
	ctx, cancel := context.WithCancel(context.Background())
	return &Decoder{
		input:   input,
		connR:   connR,
		fr:      wire.NewFrameReader(connR, opts.Limits.MaxFrameSize()),
		opts:    opts,
		lgr:     lgr,
		ctx:     ctx,
		cancel:  cancel,
		frameCh: make(chan frameResult),
		doneCh:  make(chan struct{}),
	}
}

func (d *Decoder) Start() error {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.state != DecoderIdle {
		return ErrDecoderStarted
	}
	d.state = DecoderRunning
	d.started = true
	go d.read()
	go d.dispatch()
	return nil
}

// Stop returns once no sink can be invoked anymore. It must not be
// called from inside a sink.
func (d *Decoder) Stop() {
	d.stateMu.Lock()
	started := d.started
	d.state = DecoderStopped
	d.stateMu.Unlock()

	if !started {
		// nothing is reading, leave the input untouched
		d.stopOnce.Do(d.cancel)
		return
	}
	d.signalStop()
	<-d.doneCh
}

func (d *Decoder) State() DecoderState {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.state
}

// Done is closed when the decoder has been asked to stop or hit the end
// of its stream.
func (d *Decoder) Done() <-chan struct{} {
	return d.ctx.Done()
}

func (d *Decoder) BytesRead() uint64 {
	return d.connR.Count()
}

// signalStop requests termination without waiting for it, and tries to
// unblock a pending Read on the input.
func (d *Decoder) signalStop() {
	d.stopOnce.Do(func() {
		d.cancel()
		switch in := d.input.(type) {
		case readCanceler:
			in.Cancel()
		case readDeadliner:
			if err := in.SetReadDeadline(time.Now()); err == nil {
				return
			}
			if c, ok := d.input.(io.Closer); ok {
				_ = c.Close()
			}
		case io.Closer:
			_ = in.Close()
		}
	})
}

func (d *Decoder) read() {
	for {
		if d.opts.RecvLimiter != nil {
			if err := d.opts.RecvLimiter.Wait(d.ctx); err != nil {
				return
			}
		}

		frame, err := d.fr.ReadFrame()
		select {
		case d.frameCh <- frameResult{frame: frame, err: err}:
		case <-d.ctx.Done():
			return
		}
		if err != nil && !errors.Is(err, wire.ErrFrameTooLarge) {
			return
		}
	}
}

func (d *Decoder) dispatch() {
	defer func() {
		d.stateMu.Lock()
		d.state = DecoderStopped
		d.stateMu.Unlock()
		close(d.doneCh)
	}()

	for {
		select {
		case res := <-d.frameCh:
			if d.stopping() {
				return
			}
			if !d.handle(res) {
				return
			}
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Decoder) stopping() bool {
	select {
	case <-d.ctx.Done():
		return true
	default:
		return false
	}
}

// handle returns false when the stream is finished.
func (d *Decoder) handle(res frameResult) bool {
	if res.err != nil {
		if errors.Is(res.err, wire.ErrFrameTooLarge) {
			d.report(newFatalError(DecodingFailed, "%v", res.err))
			return true
		}
		if res.err == io.EOF {
			d.fail("end of stream")
		} else {
			d.fail(res.err.Error())
		}
		return false
	}

	msg, err := wire.DecodeFrame(res.frame)
	if err != nil {
		d.report(newFatalError(DecodingFailed, "%v", err))
		return true
	}
	d.lgr.Trace("received message", "kind", msg.Kind())
	if d.opts.Tap != nil {
		d.opts.Tap.Inbound(msg)
	}
	if err := d.opts.Limits.Check(msg); err != nil {
		d.report(newFatalError(DecodingFailed, "%v", err))
		return true
	}

	switch m := msg.(type) {
	case wire.Text:
		if d.opts.TextSink == nil {
			d.lgr.Debug("dropping text message, no sink registered")
			return true
		}
		d.consume(wire.KindText, func() error {
			return d.opts.TextSink.OnText(string(m))
		})
	case wire.Binary:
		if d.opts.BinarySink == nil {
			d.lgr.Debug("dropping binary message, no sink registered")
			return true
		}
		d.consume(wire.KindBinary, func() error {
			return d.opts.BinarySink.OnBinary(m)
		})
	case wire.Error:
		d.deliver(newFatalError(RemoteReported, "%s", string(m)))
	}
	return true
}

func (d *Decoder) consume(kind wire.Kind, fn func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("%s consumer panicked: %v", kind, r)
			}
		}()
		err = fn()
	}()
	if err != nil && !d.stopping() {
		d.report(newFatalError(ConsumerFailed, "%v", err))
	}
}

// report delivers a non-fatal error locally and mirrors it to the peer.
// A failed mirror write is escalated once to EndpointNotReachable and is
// never itself mirrored.
func (d *Decoder) report(fe FatalError) {
	d.lgr.Debug("reporting error", "kind", fe.Kind, "description", fe.Description)
	d.deliver(fe)
	if d.opts.ReportRemote == nil {
		return
	}
	err := d.opts.ReportRemote(fe.Description)
	if err == nil {
		return
	}
	if errors.Is(err, ErrChannelClosed) {
		d.lgr.Debug("dropping error report, channel closed", "description", fe.Description)
		return
	}
	d.fail(errors.Wrap(err, "error reporting to remote peer").Error())
}

func (d *Decoder) fail(description string) {
	d.lgr.Info("stream decoder stopping", "reason", description)
	d.signalStop()
	d.deliver(FatalError{
		Kind:        EndpointNotReachable,
		Description: description,
	})
}

func (d *Decoder) deliver(fe FatalError) {
	if d.opts.ErrorSink == nil {
		d.lgr.Error("no error sink registered, dropping error", "err", fe)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.lgr.Error("error sink panicked", "panic", r, "err", fe)
		}
	}()
	d.opts.ErrorSink.OnError(fe)
}
