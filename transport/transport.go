package transport

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"messagic/config"
	"messagic/log"
)

// Conn is the byte stream pair a channel runs over.
type Conn interface {
	io.ReadWriteCloser
}

const listenPrefix = "listen:"

var ErrUnknownTransport = errors.New("unknown transport")

var logger = log.WithModule("transport")

// Open builds the transport named by cfg.Kind. A tcp address of the form
// "listen:<host:port>" waits for a single inbound peer.
func Open(ctx context.Context, cfg config.TransportConfig) (Conn, error) {
	timeout := config.ConvertDuration(cfg.DialTimeoutMS, time.Millisecond)
	switch cfg.Kind {
	case "", config.TransportStdio:
		return Stdio()
	case config.TransportTCP:
		if strings.HasPrefix(cfg.Address, listenPrefix) {
			return ListenTCP(ctx, strings.TrimPrefix(cfg.Address, listenPrefix))
		}
		return DialTCP(ctx, cfg.Address, timeout)
	case config.TransportWebSocket:
		return DialWebSocket(ctx, cfg.Address, timeout)
	case config.TransportExec:
		return Exec(ctx, cfg.Command)
	default:
		return nil, errors.Wrapf(ErrUnknownTransport, "%q", cfg.Kind)
	}
}
