// Package wireerr defines the error taxonomy shared by the transport,
// wire codec, and session layers. NetworkError and ProtocolError wrap
// an underlying error so callers can still use errors.Is/errors.As
// against it; RegisterRefused and TimeoutError carry no inner error.
package wireerr

import "fmt"

// NetworkError wraps a failure from a socket-level operation (bind,
// send, receive, close). Op names the operation that failed.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError wraps a failure to encode or decode wire data: a
// datagram that doesn't match any Message variant, or a Message that
// cannot be encoded. Op names the stage that rejected the data.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RegisterRefused is returned to a client when the server responds to
// Register with RegisterFail. Reason is the server's human-readable
// explanation (e.g. "No available ip left").
type RegisterRefused struct {
	Reason string
}

func (e *RegisterRefused) Error() string {
	return fmt.Sprintf("register refused: %s", e.Reason)
}

// TimeoutError is returned when a bounded wait (registration window,
// keepalive window) elapses without the expected reply.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timeout", e.Op)
}
