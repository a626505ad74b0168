package ipc

import (
	"io"
	"sync"
	"sync/atomic"

	"messagic/log"
	"messagic/wire"
)

// gateway is the single write path to the outbound stream. Pushes and
// out-of-band error reports both go through it so frames never
// interleave.
type gateway struct {
	w      *CountingWriter
	tap    Tap
	mtx    sync.Mutex
	closed int32
	lgr    log.Logger
}

func newGateway(w io.Writer, lgr log.Logger) *gateway {
	return &gateway{
		w:   NewCountingWriter(w),
		lgr: lgr,
	}
}

func (g *gateway) write(msg wire.Message) error {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if g.isClosed() {
		return ErrChannelClosed
	}
	if err := wire.EncodeFrame(g.w, msg); err != nil {
		return err
	}
	if err := g.w.Flush(); err != nil {
		return err
	}
	g.lgr.Trace("sent message", "kind", msg.Kind())
	if g.tap != nil {
		g.tap.Outbound(msg)
	}
	return nil
}

// close does not wait for an in-flight write; it only guarantees no new
// write starts.
func (g *gateway) close() {
	atomic.StoreInt32(&g.closed, 1)
}

func (g *gateway) isClosed() bool {
	return atomic.LoadInt32(&g.closed) == 1
}
