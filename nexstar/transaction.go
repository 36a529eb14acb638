package nexstar

import (
	"bytes"
	"io"
	"net"
	"time"
)

// Baud is the only rate the hand control speaks: 9600, 8 data bits, no
// parity, one stop bit.
const Baud = 9600

// DefaultTimeout is the idle deadline for one transaction. The hand
// control documents a worst-case turnaround of 3.5 seconds.
const DefaultTimeout = 3500 * time.Millisecond

// readPoll paces the read loop when the port reports no data.
const readPoll = 2 * time.Millisecond

// Port is the serial link to the hand control. tarm/serial's *Port
// satisfies it directly; PortFromConn adapts a net.Conn.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// netPort adapts a net.Conn to Port. Reads poll with short deadlines so
// the transaction engine keeps control of the overall timeout.
type netPort struct {
	conn net.Conn
}

// PortFromConn wraps a net.Conn, such as a TCP serial bridge or the
// simulator's pipe end, as a Port.
func PortFromConn(conn net.Conn) Port {
	return &netPort{conn: conn}
}

func (p *netPort) Read(b []byte) (int, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond)); err != nil {
		return 0, err
	}
	n, err := p.conn.Read(b)
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return n, nil
	}
	return n, err
}

func (p *netPort) Write(b []byte) (int, error) { return p.conn.Write(b) }
func (p *netPort) Close() error                { return p.conn.Close() }
func (p *netPort) Flush() error                { return nil }

// exchange runs one write-then-read transaction: the whole frame goes
// out in a single write, then bytes accumulate until the terminator.
// The idle deadline resets whenever bytes arrive, so a slow but live
// device is not cut off mid-reply. Errors are the bare typed kinds;
// callers add the command name.
func (hc *HandControl) exchange(cmd command) ([]byte, error) {
	if hc.port == nil {
		return nil, &IOError{Op: "write", Err: ErrClosed}
	}
	if _, err := hc.port.Write(cmd.frame); err != nil {
		return nil, &IOError{Op: "write", Err: err}
	}
	var resp []byte
	buf := make([]byte, 64)
	deadline := time.Now().Add(hc.timeout)
	for {
		n, err := hc.port.Read(buf)
		if n > 0 {
			resp = append(resp, buf[:n]...)
			if i := bytes.IndexByte(resp, terminator); i >= 0 {
				return checkReply(cmd, resp[:i])
			}
			deadline = time.Now().Add(hc.timeout)
			continue
		}
		// Serial drivers report io.EOF when their own read timer expires
		// with nothing received; the line itself has no end of stream.
		if err != nil && err != io.EOF {
			return nil, &IOError{Op: "read", Err: err}
		}
		if !time.Now().Before(deadline) {
			return nil, ErrTimeout
		}
		if err == nil {
			time.Sleep(readPoll)
		}
	}
}
