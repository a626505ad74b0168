package testutil

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func RandFreePort(t *testing.T) int {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	require.NoError(t, err)
	l, err := net.ListenTCP("tcp", addr)
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// NewTCPConn returns both ends of a loopback TCP connection. Unlike
// net.Pipe, writes are buffered by the kernel, so a test can push frames
// without a reader standing by.
func NewTCPConn(t *testing.T) (net.Conn, net.Conn) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	serverCh := make(chan net.Conn)
	go func() {
		defer lis.Close()
		server, err := lis.Accept()
		if err != nil {
			panic(err)
		}
		serverCh <- server
	}()

	client, err := net.Dial("tcp", lis.Addr().String())
	require.NoError(t, err)
	return client, <-serverCh
}

// ReadLine reads one newline-terminated frame from conn, delimiter
// included, failing the test after a second.
func ReadLine(t *testing.T, br *bufio.Reader, conn net.Conn) string {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Time{}))
	return line
}
