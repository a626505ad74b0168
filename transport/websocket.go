package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// wsConn presents a websocket as a byte stream. Every Write becomes one
// binary message; reads concatenate incoming messages.
type wsConn struct {
	conn *websocket.Conn

	rmtx sync.Mutex
	r    io.Reader

	wmtx sync.Mutex
}

func NewWebSocketConn(conn *websocket.Conn) Conn {
	return &wsConn{conn: conn}
}

func DialWebSocket(ctx context.Context, url string, timeout time.Duration) (Conn, error) {
	dialer := &websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: timeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "error dialing %s", url)
	}
	logger.Debug("dialed websocket peer", "url", url)
	return NewWebSocketConn(conn), nil
}

func (w *wsConn) Read(p []byte) (int, error) {
	w.rmtx.Lock()
	defer w.rmtx.Unlock()
	for {
		if w.r == nil {
			_, r, err := w.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			w.r = r
		}
		n, err := w.r.Read(p)
		if err == io.EOF {
			w.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (w *wsConn) Write(p []byte) (int, error) {
	w.wmtx.Lock()
	defer w.wmtx.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) SetReadDeadline(t time.Time) error {
	return w.conn.SetReadDeadline(t)
}

func (w *wsConn) RemoteAddr() net.Addr {
	return w.conn.RemoteAddr()
}

func (w *wsConn) Close() error {
	w.wmtx.Lock()
	err := w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	w.wmtx.Unlock()
	if cerr := w.conn.Close(); cerr != nil {
		return cerr
	}
	if err != nil && err != websocket.ErrCloseSent {
		return err
	}
	return nil
}
