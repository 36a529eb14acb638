package nexstar

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is wrapped into the error returned when a response
	// terminator does not arrive within the transaction timeout.
	ErrTimeout = errors.New("response timeout")
	// ErrClosed is wrapped into the error returned by operations on a
	// closed hand control.
	ErrClosed = errors.New("port closed")
)

// InvalidArgumentError reports a value outside the device-supported
// range. It is returned before any bytes reach the port.
type InvalidArgumentError struct {
	Arg    string
	Value  interface{}
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Arg, e.Value, e.Reason)
}

// IOError reports a transport failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ProtocolError reports a response whose terminator arrived but whose
// payload does not match the shape the command expects. Raw holds the
// payload bytes for diagnostics.
type ProtocolError struct {
	Cmd    string
	Raw    []byte
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s (payload % X)", e.Reason, e.Raw)
}
