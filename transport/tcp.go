package transport

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

func DialTCP(ctx context.Context, address string, timeout time.Duration) (Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "error dialing %s", address)
	}
	logger.Debug("dialed peer", "addr", conn.RemoteAddr())
	return conn, nil
}

// ListenTCP accepts exactly one peer on address and stops listening.
func ListenTCP(ctx context.Context, address string) (Conn, error) {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "error listening on %s", address)
	}
	return acceptOne(ctx, lis)
}

func acceptOne(ctx context.Context, lis net.Listener) (Conn, error) {
	defer lis.Close()
	logger.Info("waiting for peer", "addr", lis.Addr())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			lis.Close()
		case <-stop:
		}
	}()

	conn, err := lis.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "error accepting peer")
	}
	logger.Info("accepted peer", "addr", conn.RemoteAddr())
	return conn, nil
}
