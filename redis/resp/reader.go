package resp

import (
	"bufio"
	"bytes"
	"io"
)

// readLine reads one RESP2 line with its trailing CRLF stripped. A line
// with fewer than two bytes left after stripping (a type prefix plus at
// least one payload byte) is a ProtocolError.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		line, err = r.ReadBytes('\n')
	}
	if err != nil {
		return nil, err
	}

	line = bytes.TrimSuffix(line, []byte(CRLF))
	line = bytes.TrimSuffix(line, []byte("\n"))

	if len(line) < 2 {
		return nil, &ProtocolError{Message: "response line too short"}
	}
	return line, nil
}

func parseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, &InvalidCharacterError{Message: "empty integer"}
	}

	neg := false
	i := 0
	if b[0] == '-' {
		neg = true
		i++
	}
	if i == len(b) {
		return 0, &InvalidCharacterError{Message: "integer has no digits"}
	}

	var n int64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, &InvalidCharacterError{Message: "non-decimal character in integer reply"}
		}
		digit := int64(c - '0')
		if n > (1<<63-1-digit)/10 {
			return 0, &OverflowError{Message: "integer reply overflows int64"}
		}
		n = n*10 + digit
	}
	if neg {
		n = -n
	}
	return n, nil
}

// ReadArrayHeader reads a "*N\r\n" line and returns N (or -1 for a null
// array). It is the thin slice of array framing MGET needs on top of
// ReadBulkString to decode each element.
func ReadArrayHeader(r *bufio.Reader) (int64, error) {
	line, err := readLine(r)
	if err != nil {
		return 0, err
	}

	switch line[0] {
	case ArrayPrefix:
		return parseInt(line[1:])
	case ErrorPrefix:
		return 0, &RedisError{Message: string(line[1:])}
	default:
		return 0, &UnexpectedTypeError{Message: "expected array, got: " + string(line)}
	}
}

// ReadSimpleString implements exec_simple_string's read half: +OK style
// replies decode to their payload, -ERR decodes to RedisError, anything
// else is UnexpectedType.
func ReadSimpleString(r *bufio.Reader) (string, error) {
	line, err := readLine(r)
	if err != nil {
		return "", err
	}

	switch line[0] {
	case SimpleStringPrefix:
		return string(line[1:]), nil
	case ErrorPrefix:
		return "", &RedisError{Message: string(line[1:])}
	default:
		return "", &UnexpectedTypeError{Message: "expected simple string, got: " + string(line)}
	}
}

// ReadInteger implements exec_integer's read half.
func ReadInteger(r *bufio.Reader) (int64, error) {
	line, err := readLine(r)
	if err != nil {
		return 0, err
	}

	switch line[0] {
	case IntegerPrefix:
		return parseInt(line[1:])
	case ErrorPrefix:
		return 0, &RedisError{Message: string(line[1:])}
	default:
		return 0, &UnexpectedTypeError{Message: "expected integer, got: " + string(line)}
	}
}

// ReadBulkString implements exec_bulk_string's read half. A non-nil bulk
// string is copied into buf (which must be at least as large as the
// declared length, else ValueTooLargeError) and returned as buf[:n]; a
// $-1 nil reply returns found=false with no error.
func ReadBulkString(r *bufio.Reader, buf []byte) (value []byte, found bool, err error) {
	line, err := readLine(r)
	if err != nil {
		return nil, false, err
	}

	switch line[0] {
	case BulkStringPrefix:
		n, err := parseInt(line[1:])
		if err != nil {
			return nil, false, err
		}
		if n == NilBulkLength {
			return nil, false, nil
		}
		if n > int64(len(buf)) {
			return nil, false, &ValueTooLargeError{Message: "bulk string exceeds caller buffer"}
		}
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return nil, false, err
		}
		return buf[:n], true, consumeTrailingCRLF(r)
	case ErrorPrefix:
		return nil, false, &RedisError{Message: string(line[1:])}
	default:
		return nil, false, &UnexpectedTypeError{Message: "expected bulk string, got: " + string(line)}
	}
}

// ReadOKOrNil implements exec_ok_or_nil's read half: +OK, $-1 (an NX/XX
// condition that wasn't met) and $N (SET ... GET's drained old value) are
// all success; only -ERR is an error.
func ReadOKOrNil(r *bufio.Reader) error {
	line, err := readLine(r)
	if err != nil {
		return err
	}

	switch line[0] {
	case SimpleStringPrefix:
		return nil
	case BulkStringPrefix:
		n, err := parseInt(line[1:])
		if err != nil {
			return err
		}
		if n == NilBulkLength {
			return nil
		}
		if _, err := io.CopyN(io.Discard, r, n); err != nil {
			return err
		}
		return consumeTrailingCRLF(r)
	case ErrorPrefix:
		return &RedisError{Message: string(line[1:])}
	default:
		return &UnexpectedTypeError{Message: "expected OK or nil, got: " + string(line)}
	}
}

func consumeTrailingCRLF(r *bufio.Reader) error {
	var trailer [2]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return err
	}
	if trailer[0] != '\r' || trailer[1] != '\n' {
		return &ProtocolError{Message: "bulk string body missing CRLF terminator"}
	}
	return nil
}
