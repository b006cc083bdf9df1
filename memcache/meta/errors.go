package meta

import (
	"errors"
	"fmt"
)

// The protocol error types below exist so callers can decide a
// connection's fate without string-matching server messages.
// ShouldCloseConnection is the one question that matters: did the
// server's reply leave the framing of the stream intact, or is the next
// byte on the wire no longer predictable.

// ClientError is memcached's CLIENT_ERROR: the server rejected the
// request as malformed (bad key length, mismatched data-block size,
// conflicting flags, a non-numeric value where an arithmetic op expected
// one) before it could process it. The server's own read position may
// now disagree with what the client thinks it sent, so the connection
// is treated as unsafe to reuse.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string {
	return "CLIENT_ERROR: " + e.Message
}

func (e *ClientError) ShouldCloseConnection() bool {
	return true
}

// ServerError is memcached's SERVER_ERROR: the request was well-formed
// but the server couldn't complete it (out of memory, an internal
// fault). Framing is untouched, so the same connection can issue the
// next request.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "SERVER_ERROR: " + e.Message
}

func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// GenericError is memcached's bare ERROR line, returned for an unknown
// command or a line the server couldn't classify at all. Since the
// server never identified what it was rejecting, there's no way to
// trust subsequent framing either.
type GenericError struct {
	Message string
}

func (e *GenericError) Error() string {
	return e.Message
}

func (e *GenericError) ShouldCloseConnection() bool {
	return true
}

// InvalidKeyError is raised locally, before anything goes over the
// wire, when a key fails validation (empty, over 250 bytes, or
// containing whitespace without the base64 flag). The connection was
// never touched.
type InvalidKeyError struct {
	Message string
}

func (e *InvalidKeyError) Error() string {
	return e.Message
}

// ParseError wraps a failure to make sense of bytes already read off
// the wire: a line that doesn't match any known shape, a VA size field
// that isn't an integer, a data block that's shorter than declared.
// Whatever the server actually sent, the reader couldn't keep up with
// it, so later reads on this connection can't be trusted either.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "parse error: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError covers failures below the protocol layer entirely:
// the write or read against net.Conn itself returned an error (reset,
// timeout, EOF). A dial failure in the pool constructor is returned as
// is, not wrapped in a ConnectionError. Op records which phase failed,
// mostly for logging.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by every error type above
// except InvalidKeyError (which never touches a connection at all).
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves a connection's
// framing untrustworthy. ServerError and nil are the only cases that
// return false; any error type this package doesn't recognize is
// treated as unsafe by default.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
