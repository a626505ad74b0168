package cli

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"path"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"messagic/config"
	"messagic/ipc"
	"messagic/store"
	"messagic/testutil"
	"messagic/testutil/testfs"
	"messagic/wire"
)

func TestLoadConfig_Overrides(t *testing.T) {
	dir, done := testfs.NewTempDir(t)
	defer done()
	home := path.Join(dir, "home")
	require.NoError(t, config.InitHomeDir(home))

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String(FlagTransport, "", "")
	cmd.Flags().String(FlagAddress, "", "")
	cmd.Flags().Bool(FlagJournal, false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--transport", "tcp", "--journal"}))

	cfg, err := LoadConfig(cmd, home)
	require.NoError(t, err)
	require.Equal(t, config.TransportTCP, cfg.Transport.Kind)
	require.Equal(t, config.DefaultConfig.Transport.Address, cfg.Transport.Address)
	require.True(t, cfg.Journal.Enabled)
	require.Equal(t, config.DefaultConfig.LogLevel, cfg.LogLevel)
}

func TestOpenSession_Journaled(t *testing.T) {
	dir, done := testfs.NewTempDir(t)
	defer done()
	home := path.Join(dir, "home")
	require.NoError(t, config.InitHomeDir(home))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	peerCh := make(chan net.Conn, 1)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			panic(err)
		}
		peerCh <- conn
	}()

	cfg := config.DefaultConfig
	cfg.Transport.Kind = config.TransportTCP
	cfg.Transport.Address = lis.Addr().String()
	cfg.Journal.Enabled = true
	cfg.Limits.TextMaximumSize = 32
	cfg.Tuning.RecvRateLimit = 1000

	s, err := OpenSession(context.Background(), &cfg, home)
	require.NoError(t, err)
	require.NotNil(t, s.Journal)
	require.Equal(t, 32, s.Channel.Limits().TextMaximumSize)

	texts := make(chan string, 1)
	require.NoError(t, s.Channel.SetTextSink(ipc.TextSinkFunc(func(msg string) error {
		texts <- msg
		return nil
	})))
	require.NoError(t, s.Channel.SetErrorSink(ipc.ErrorSinkFunc(func(ipc.FatalError) {})))
	require.NoError(t, s.Channel.Open())

	peer := <-peerCh
	defer peer.Close()
	require.NoError(t, s.Channel.PushText("out"))
	require.Equal(t, "out\n", testutil.ReadLine(t, bufio.NewReader(peer), peer))
	_, err = fmt.Fprint(peer, "in\n")
	require.NoError(t, err)
	select {
	case msg := <-texts:
		require.Equal(t, "in", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for text message")
	}
	session := s.Journal.Session()
	require.NoError(t, s.Close())

	db, err := store.Open(cfg.JournalPath(home))
	require.NoError(t, err)
	defer db.Close()
	rs := store.StreamRecords(db, session)
	defer rs.Close()

	rec, err := rs.Next()
	require.NoError(t, err)
	require.Equal(t, store.Outbound, rec.Direction)
	require.True(t, wire.Text("out").Equals(rec.Message()))
	rec, err = rs.Next()
	require.NoError(t, err)
	require.Equal(t, store.Inbound, rec.Direction)
	require.True(t, wire.Text("in").Equals(rec.Message()))
}
