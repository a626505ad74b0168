package transport

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// execConn talks to a child process over its stdin and stdout.
type execConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	closeOnce sync.Once
	closeErr  error
}

const execCloseGrace = time.Second

// Exec starts command (split on whitespace) and returns its stdio as the
// stream pair. The child's stderr is passed through.
func Exec(ctx context.Context, command string) (Conn, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "error opening child stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "error opening child stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "error starting %s", argv[0])
	}
	logger.Debug("started child process", "cmd", argv[0], "pid", cmd.Process.Pid)
	return &execConn{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
	}, nil
}

func (e *execConn) Read(p []byte) (int, error) {
	return e.stdout.Read(p)
}

func (e *execConn) Write(p []byte) (int, error) {
	return e.stdin.Write(p)
}

func (e *execConn) SetReadDeadline(t time.Time) error {
	f, ok := e.stdout.(*os.File)
	if !ok {
		return os.ErrNoDeadline
	}
	return f.SetReadDeadline(t)
}

// Close closes the child's stdin and reaps it. A child that is still
// running after execCloseGrace is killed.
func (e *execConn) Close() error {
	e.closeOnce.Do(func() {
		_ = e.stdin.Close()
		waitCh := make(chan error, 1)
		go func() {
			waitCh <- e.cmd.Wait()
		}()

		var err error
		select {
		case err = <-waitCh:
		case <-time.After(execCloseGrace):
			_ = e.cmd.Process.Kill()
			err = <-waitCh
		}
		if _, ok := err.(*exec.ExitError); ok {
			err = nil
		}
		e.closeErr = err
	})
	return e.closeErr
}
