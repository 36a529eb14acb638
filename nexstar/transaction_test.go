package nexstar

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// scriptPort plays back canned device replies, loading the next one on
// each write, and captures every frame written. A chunk limit forces
// replies to arrive split across reads.
type scriptPort struct {
	replies [][]byte
	chunk   int

	pending []byte
	frames  [][]byte
	writes  bytes.Buffer
	closed  bool
}

func (p *scriptPort) Write(b []byte) (int, error) {
	if p.closed {
		return 0, errors.New("write on closed port")
	}
	p.frames = append(p.frames, append([]byte(nil), b...))
	if len(p.pending) == 0 && len(p.replies) > 0 {
		p.pending = p.replies[0]
		p.replies = p.replies[1:]
	}
	return p.writes.Write(b)
}

func (p *scriptPort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		return 0, nil
	}
	if p.chunk > 0 && len(b) > p.chunk {
		b = b[:p.chunk]
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *scriptPort) Close() error { p.closed = true; return nil }
func (p *scriptPort) Flush() error { p.pending = nil; return nil }

// failPort injects transport errors.
type failPort struct {
	scriptPort
	writeErr, readErr error
}

func (p *failPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.scriptPort.Write(b)
}

func (p *failPort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	return p.scriptPort.Read(b)
}

func newTestHC(port Port) *HandControl {
	hc := New(port)
	hc.SetTimeout(50 * time.Millisecond)
	return hc
}

func TestExchange(t *testing.T) {
	port := &scriptPort{replies: [][]byte{[]byte("4000,8000#")}}
	hc := newTestHC(port)
	payload, err := hc.exchange(getRADecCmd(PrecisionLow))
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if got := string(payload); got != "4000,8000" {
		t.Errorf("payload: got %q, want %q", got, "4000,8000")
	}
	if got := port.writes.String(); got != "E" {
		t.Errorf("wrote %q, want %q", got, "E")
	}
}

// A reply split across reads reassembles into one payload.
func TestExchangeChunked(t *testing.T) {
	port := &scriptPort{replies: [][]byte{[]byte("40000000,80000000#")}, chunk: 3}
	hc := newTestHC(port)
	payload, err := hc.exchange(getRADecCmd(PrecisionHigh))
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if got := string(payload); got != "40000000,80000000" {
		t.Errorf("payload: got %q, want %q", got, "40000000,80000000")
	}
}

func TestExchangeTimeout(t *testing.T) {
	hc := newTestHC(&scriptPort{})
	_, err := hc.exchange(getRADecCmd(PrecisionLow))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", err)
	}
}

// A partial reply that never terminates is a timeout, not a short
// success.
func TestExchangePartialReply(t *testing.T) {
	hc := newTestHC(&scriptPort{replies: [][]byte{[]byte("4000")}})
	_, err := hc.exchange(getRADecCmd(PrecisionLow))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", err)
	}
}

// Serial drivers return io.EOF when a poll interval passes with no
// data. The transaction keeps waiting until its own deadline.
func TestExchangeIdleEOF(t *testing.T) {
	hc := newTestHC(&failPort{readErr: io.EOF})
	start := time.Now()
	_, err := hc.exchange(getRADecCmd(PrecisionLow))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("gave up after %v, want the full timeout", elapsed)
	}
}

func TestExchangeReadError(t *testing.T) {
	hc := newTestHC(&failPort{readErr: errors.New("device vanished")})
	_, err := hc.exchange(getRADecCmd(PrecisionLow))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("got %v, want IOError", err)
	}
	if ioErr.Op != "read" {
		t.Errorf("op: got %q, want %q", ioErr.Op, "read")
	}
}

func TestExchangeWriteError(t *testing.T) {
	hc := newTestHC(&failPort{writeErr: errors.New("device vanished")})
	_, err := hc.exchange(getRADecCmd(PrecisionLow))
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("got %v, want IOError", err)
	}
	if ioErr.Op != "write" {
		t.Errorf("op: got %q, want %q", ioErr.Op, "write")
	}
}

func TestExchangeClosed(t *testing.T) {
	hc := New(&scriptPort{})
	if err := hc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err := hc.exchange(getRADecCmd(PrecisionLow))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("got %v, want ErrClosed", err)
	}
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("got %v, want IOError", err)
	}
}

func TestPortFromConn(t *testing.T) {
	client, device := net.Pipe()
	defer device.Close()
	port := PortFromConn(client)
	defer port.Close()

	go device.Write([]byte("abc"))
	buf := make([]byte, 8)
	deadline := time.Now().Add(time.Second)
	var got []byte
	for len(got) < 3 && time.Now().Before(deadline) {
		n, err := port.Read(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "abc" {
		t.Errorf("read %q, want %q", got, "abc")
	}

	// With nothing to read the poll returns empty instead of blocking.
	n, err := port.Read(buf)
	if n != 0 || err != nil {
		t.Errorf("idle read: got (%d, %v), want (0, nil)", n, err)
	}
}
