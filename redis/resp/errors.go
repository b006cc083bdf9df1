package resp

import "errors"

// RedisError is a server-returned "-ERR message\r\n" reply. It is the only
// resumable error kind in the RESP2 codec: the connection's framing is
// intact and it may be reused.
type RedisError struct {
	Message string
}

func (e *RedisError) Error() string { return e.Message }

// ProtocolError means the wire framing itself was malformed: a line too
// short to hold a type prefix and one payload byte, or a bulk string
// body not followed by exactly CRLF.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

// UnexpectedTypeError means the framing parsed fine but the reply's RESP
// type doesn't match what the caller asked to decode.
type UnexpectedTypeError struct {
	Message string
}

func (e *UnexpectedTypeError) Error() string { return e.Message }

// ValueTooLargeError means a bulk string's declared length exceeds the
// caller-provided buffer.
type ValueTooLargeError struct {
	Message string
}

func (e *ValueTooLargeError) Error() string { return e.Message }

// InvalidCharacterError means an integer reply contained a non-decimal
// character.
type InvalidCharacterError struct {
	Message string
}

func (e *InvalidCharacterError) Error() string { return e.Message }

// OverflowError means an integer reply did not fit in an int64.
type OverflowError struct {
	Message string
}

func (e *OverflowError) Error() string { return e.Message }

// TooManyKeysError is a local precondition failure: more than MaxKeys keys
// were passed to DEL, EXISTS or MGET. No I/O is performed.
type TooManyKeysError struct {
	Count int
}

func (e *TooManyKeysError) Error() string {
	return "too many keys in one call"
}

// IsResumable reports whether err leaves the connection's framing intact.
// Per the RESP2 codec, that is true of exactly one kind: a server-returned
// RedisError. Every other error implies the stream may be desynchronized
// and the connection must be discarded.
func IsResumable(err error) bool {
	var redisErr *RedisError
	return errors.As(err, &redisErr)
}
