package ipc

import (
	"testing"
	"time"
)

const waitTimeout = 2 * time.Second

type recorder struct {
	texts    chan string
	binaries chan []byte
	errs     chan FatalError
}

func newRecorder() *recorder {
	return &recorder{
		texts:    make(chan string, 64),
		binaries: make(chan []byte, 64),
		errs:     make(chan FatalError, 64),
	}
}

func (r *recorder) OnText(msg string) error {
	r.texts <- msg
	return nil
}

func (r *recorder) OnBinary(msg []byte) error {
	r.binaries <- msg
	return nil
}

func (r *recorder) OnError(err FatalError) {
	r.errs <- err
}

func (r *recorder) nextText(t *testing.T) string {
	select {
	case msg := <-r.texts:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for text message")
		return ""
	}
}

func (r *recorder) nextBinary(t *testing.T) []byte {
	select {
	case msg := <-r.binaries:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for binary message")
		return nil
	}
}

func (r *recorder) nextErr(t *testing.T) FatalError {
	select {
	case err := <-r.errs:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for error")
		return FatalError{}
	}
}

func (r *recorder) assertQuiet(t *testing.T) {
	select {
	case msg := <-r.texts:
		t.Fatalf("unexpected text message %q", msg)
	case msg := <-r.binaries:
		t.Fatalf("unexpected binary message %v", msg)
	case err := <-r.errs:
		t.Fatalf("unexpected error %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for close")
	}
}
