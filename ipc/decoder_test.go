package ipc

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"messagic/testutil"
	"messagic/wire"
)

type blockingReader struct {
	ch       chan struct{}
	once     sync.Once
	canceled bool
}

func newBlockingReader() *blockingReader {
	return &blockingReader{
		ch: make(chan struct{}),
	}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.ch
	return 0, errors.New("canceled")
}

func (b *blockingReader) Cancel() bool {
	b.once.Do(func() {
		b.canceled = true
		close(b.ch)
	})
	return true
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func decoderOpts(rec *recorder) DecoderOpts {
	return DecoderOpts{
		Limits:     wire.DefaultLimits(),
		TextSink:   rec,
		BinarySink: rec,
		ErrorSink:  rec,
	}
}

func TestDecoder_StateMachine(t *testing.T) {
	in := newBlockingReader()
	d := NewDecoder(in, decoderOpts(newRecorder()))
	require.Equal(t, DecoderIdle, d.State())

	require.NoError(t, d.Start())
	require.Equal(t, DecoderRunning, d.State())
	require.Equal(t, ErrDecoderStarted, d.Start())

	d.Stop()
	require.Equal(t, DecoderStopped, d.State())
	require.True(t, in.canceled)
	waitClosed(t, d.Done())

	d.Stop()
	require.Equal(t, ErrDecoderStarted, d.Start())
	require.Equal(t, "Stopped", d.State().String())
}

func TestDecoder_StopIdle(t *testing.T) {
	in := &closeRecorder{Reader: strings.NewReader("hello\n")}
	rec := newRecorder()
	d := NewDecoder(in, decoderOpts(rec))
	d.Stop()
	require.Equal(t, DecoderStopped, d.State())
	require.False(t, in.closed)
	require.Equal(t, ErrDecoderStarted, d.Start())
	rec.assertQuiet(t)
}

func TestDecoder_ClosesInputWithoutCanceler(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	in := &closeRecorder{Reader: pr}
	d := NewDecoder(in, decoderOpts(newRecorder()))
	require.NoError(t, d.Start())

	// Read is parked on the pipe and nothing ever closes it; Stop must
	// still return.
	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	waitClosed(t, stopped)
	require.True(t, in.closed)
}

func TestDecoder_TrailingPartialFrame(t *testing.T) {
	rec := newRecorder()
	d := NewDecoder(strings.NewReader("one\ntwo"), decoderOpts(rec))
	require.NoError(t, d.Start())
	defer d.Stop()

	require.Equal(t, "one", rec.nextText(t))
	require.Equal(t, "two", rec.nextText(t))
	fe := rec.nextErr(t)
	require.Equal(t, EndpointNotReachable, fe.Kind)
	require.Equal(t, "end of stream", fe.Description)
	waitClosed(t, d.Done())
}

func TestDecoder_RemoteHangup(t *testing.T) {
	client, server := testutil.NewTCPConn(t)
	require.NoError(t, client.Close())
	defer server.Close()

	rec := newRecorder()
	d := NewDecoder(server, decoderOpts(rec))
	require.NoError(t, d.Start())
	defer d.Stop()
	require.Equal(t, EndpointNotReachable, rec.nextErr(t).Kind)
	waitClosed(t, d.Done())
	require.Eventually(t, func() bool {
		return d.State() == DecoderStopped
	}, waitTimeout, 10*time.Millisecond)
}

func TestDecoder_MissingSinksDropMessages(t *testing.T) {
	rec := newRecorder()
	d := NewDecoder(strings.NewReader("text\n#AQI=\n!remote\n"), DecoderOpts{
		Limits:    wire.DefaultLimits(),
		ErrorSink: rec,
	})
	require.NoError(t, d.Start())
	defer d.Stop()

	require.Equal(t, RemoteReported, rec.nextErr(t).Kind)
	require.Equal(t, EndpointNotReachable, rec.nextErr(t).Kind)
}

func TestDecoder_ReportRemote(t *testing.T) {
	var mtx sync.Mutex
	var reported []string
	rec := newRecorder()
	opts := decoderOpts(rec)
	opts.ReportRemote = func(description string) error {
		mtx.Lock()
		defer mtx.Unlock()
		reported = append(reported, description)
		return nil
	}
	d := NewDecoder(strings.NewReader("#%%%\n!remote\n"), opts)
	require.NoError(t, d.Start())
	defer d.Stop()

	fe := rec.nextErr(t)
	require.Equal(t, DecodingFailed, fe.Kind)
	require.Equal(t, RemoteReported, rec.nextErr(t).Kind)
	require.Equal(t, EndpointNotReachable, rec.nextErr(t).Kind)

	mtx.Lock()
	defer mtx.Unlock()
	require.Equal(t, []string{fe.Description}, reported)
}

func TestDecoder_ReportRemoteOnClosedChannel(t *testing.T) {
	rec := newRecorder()
	opts := decoderOpts(rec)
	opts.ReportRemote = func(string) error {
		return ErrChannelClosed
	}
	d := NewDecoder(strings.NewReader("#%%%\nok\n"), opts)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.Equal(t, DecodingFailed, rec.nextErr(t).Kind)
	require.Equal(t, "ok", rec.nextText(t))
}

type recordingTap struct {
	mtx     sync.Mutex
	inbound []wire.Message
}

func (r *recordingTap) Inbound(msg wire.Message) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.inbound = append(r.inbound, msg)
}

func (r *recordingTap) Outbound(wire.Message) {}

func TestDecoder_TapAndRateLimit(t *testing.T) {
	rec := newRecorder()
	tap := new(recordingTap)
	opts := decoderOpts(rec)
	opts.Tap = tap
	opts.RecvLimiter = rate.NewLimiter(rate.Limit(1000), 1)
	d := NewDecoder(strings.NewReader("a\n#AQI=\n!c\n"), opts)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.Equal(t, "a", rec.nextText(t))
	require.Equal(t, []byte{1, 2}, rec.nextBinary(t))
	require.Equal(t, RemoteReported, rec.nextErr(t).Kind)
	require.Equal(t, EndpointNotReachable, rec.nextErr(t).Kind)

	tap.mtx.Lock()
	defer tap.mtx.Unlock()
	require.Len(t, tap.inbound, 3)
	require.True(t, wire.Text("a").Equals(tap.inbound[0]))
	require.True(t, wire.Error("c").Equals(tap.inbound[2]))
}

func TestDecoder_StopUnblocksRateLimitWait(t *testing.T) {
	opts := decoderOpts(newRecorder())
	opts.RecvLimiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	d := NewDecoder(strings.NewReader("a\nb\nc\n"), opts)
	require.NoError(t, d.Start())

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	waitClosed(t, stopped)
}
