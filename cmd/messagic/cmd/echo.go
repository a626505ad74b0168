package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"messagic/cli"
	"messagic/ipc"
	"messagic/log"
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Pushes every received message back to the peer.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lgr := log.WithModule("echo")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)
		go func() {
			select {
			case sig := <-sigs:
				lgr.Info("shutting down", "signal", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		s, err := cli.OpenSession(ctx, cfg, configuredHomeDir)
		if err != nil {
			return err
		}
		defer s.Close()

		ch := s.Channel
		if err := serveEcho(ch, lgr); err != nil {
			return err
		}
		lgr.Info("echoing", "transport", cfg.Transport.Kind)

		select {
		case <-ch.Done():
		case <-ctx.Done():
		}
		tx, rx := ch.BandwidthUsage()
		lgr.Info("echo finished", "bytes_sent", tx, "bytes_received", rx)
		return nil
	},
}

// serveEcho wires ch to push every text and binary message back and opens
// it.
func serveEcho(ch *ipc.Channel, lgr log.Logger) error {
	if err := ch.SetTextSink(ipc.TextSinkFunc(ch.PushText)); err != nil {
		return err
	}
	if err := ch.SetBinarySink(ipc.BinarySinkFunc(ch.PushBinary)); err != nil {
		return err
	}
	if err := ch.SetErrorSink(ipc.ErrorSinkFunc(func(fe ipc.FatalError) {
		if fe.Fatal() {
			lgr.Error("channel failed", "kind", fe.Kind, "err", fe.Description)
			return
		}
		lgr.Warn("channel error", "kind", fe.Kind, "err", fe.Description)
	})); err != nil {
		return err
	}
	return ch.Open()
}

func init() {
	addTransportFlags(echoCmd)
	rootCmd.AddCommand(echoCmd)
}
