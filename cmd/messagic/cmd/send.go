package cmd

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"messagic/cli"
	"messagic/config"
	"messagic/ipc"
	"messagic/log"
	"messagic/wire"
)

const (
	flagWait   = "wait"
	flagExpect = "expect"
	flagBinary = "binary"
)

var errSendFailed = errors.New("channel failed")

var sendCmd = &cobra.Command{
	Use:   "send [text...]",
	Short: "Pushes messages to the peer and prints its replies.",
	Long: `Pushes each argument as a text message. Without arguments, each line
of stdin becomes a text message unless stdin is a terminal. With --binary
the file's contents are pushed as one binary message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		wait, _ := cmd.Flags().GetDuration(flagWait)
		expect, _ := cmd.Flags().GetInt(flagExpect)
		binPath, _ := cmd.Flags().GetString(flagBinary)

		stdio := cfg.Transport.Kind == "" || cfg.Transport.Kind == config.TransportStdio
		msgs, err := outgoingMessages(args, binPath, !stdio)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return errors.New("nothing to send")
		}

		out := io.Writer(os.Stdout)
		if stdio {
			out = os.Stderr
		}
		return runSend(context.Background(), cfg, msgs, out, wait, expect)
	},
}

func outgoingMessages(args []string, binPath string, stdinAllowed bool) ([]wire.Message, error) {
	var msgs []wire.Message
	for _, arg := range args {
		msgs = append(msgs, wire.Text(arg))
	}
	if binPath != "" {
		data, err := ioutil.ReadFile(binPath)
		if err != nil {
			return nil, errors.Wrap(err, "error reading binary file")
		}
		msgs = append(msgs, wire.Binary(data))
	}
	if len(msgs) > 0 || !stdinAllowed || isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return msgs, nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		msgs = append(msgs, wire.Text(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading stdin")
	}
	return msgs, nil
}

func runSend(ctx context.Context, cfg *config.Config, msgs []wire.Message, out io.Writer, wait time.Duration, expect int) error {
	lgr := log.WithModule("send")
	s, err := cli.OpenSession(ctx, cfg, configuredHomeDir)
	if err != nil {
		return err
	}
	defer s.Close()

	replies := make(chan wire.Message, 16)
	fatal := make(chan ipc.FatalError, 1)
	// closed once replies are no longer collected; later replies are
	// dropped so the decoder never blocks in a sink
	collectDone := make(chan struct{})
	collect := func(msg wire.Message) {
		select {
		case replies <- msg:
		case <-collectDone:
			lgr.Debug("dropping reply after collection ended", "kind", msg.Kind())
		}
	}
	ch := s.Channel
	if err := ch.SetTextSink(ipc.TextSinkFunc(func(msg string) error {
		collect(wire.Text(msg))
		return nil
	})); err != nil {
		return err
	}
	if err := ch.SetBinarySink(ipc.BinarySinkFunc(func(msg []byte) error {
		collect(wire.Binary(msg))
		return nil
	})); err != nil {
		return err
	}
	if err := ch.SetErrorSink(ipc.ErrorSinkFunc(func(fe ipc.FatalError) {
		if !fe.Fatal() {
			lgr.Warn("channel error", "kind", fe.Kind, "err", fe.Description)
			return
		}
		select {
		case fatal <- fe:
		default:
		}
	})); err != nil {
		return err
	}
	if err := ch.Open(); err != nil {
		return err
	}

	start := time.Now()
	var received int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, msg := range msgs {
			var err error
			switch m := msg.(type) {
			case wire.Text:
				err = ch.PushText(string(m))
			case wire.Binary:
				err = ch.PushBinary(m)
			}
			if err != nil {
				return errors.Wrap(err, "error pushing message")
			}
		}
		return nil
	})
	g.Go(func() error {
		defer close(collectDone)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		for expect <= 0 || received < expect {
			select {
			case msg := <-replies:
				received++
				printReply(out, msg)
			case fe := <-fatal:
				if received > 0 && expect <= 0 {
					lgr.Debug("peer went away", "err", fe)
					return nil
				}
				return errors.Wrap(errSendFailed, fe.Error())
			case <-timer.C:
				if expect > 0 {
					return errors.Errorf("timed out after %d of %d replies", received, expect)
				}
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	err = g.Wait()

	tx, rx := ch.BandwidthUsage()
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		renderStats(out, len(msgs), received, tx, rx, time.Since(start))
	}
	return err
}

func printReply(w io.Writer, msg wire.Message) {
	switch m := msg.(type) {
	case wire.Text:
		fmt.Fprintf(w, "text: %s\n", string(m))
	case wire.Binary:
		fmt.Fprintf(w, "binary: %s\n", base64.StdEncoding.EncodeToString(m))
	}
}

func renderStats(w io.Writer, sent, received int, tx, rx uint64, elapsed time.Duration) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{
		"Sent",
		"Received",
		"Bytes Sent",
		"Bytes Received",
		"Elapsed",
	})
	table.Append([]string{
		strconv.Itoa(sent),
		strconv.Itoa(received),
		strconv.FormatUint(tx, 10),
		strconv.FormatUint(rx, 10),
		elapsed.Round(time.Millisecond).String(),
	})
	table.Render()
}

func init() {
	addTransportFlags(sendCmd)
	sendCmd.Flags().Duration(flagWait, 2*time.Second, "How long to wait for replies.")
	sendCmd.Flags().Int(flagExpect, 0, "Stops after this many replies. Waiting longer than --wait is an error.")
	sendCmd.Flags().String(flagBinary, "", "Pushes the contents of this file as a binary message.")
	rootCmd.AddCommand(sendCmd)
}
