package redis

import (
	"bufio"
	"net"
	"time"

	"github.com/cachewire/cachewire/redis/resp"
)

// ConnectionOptions configures buffer sizes and per-operation timeouts for
// a Connection. Timeouts are reapplied before every write/read, since
// net.Conn deadlines do not persist across calls.
type ConnectionOptions struct {
	ReadBufferSize  int
	WriteBufferSize int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// DefaultConnectionOptions returns the options used when a pool's
// constructor does not specify any: 4096-byte buffers and no read or
// write timeout.
func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
}

// ConnectionError wraps an I/O failure that occurred while talking to a
// Redis server, stashing the op (write, flush, read, or setting a
// deadline) alongside the concrete cause. A dial failure in the pool
// constructor is returned as is, not wrapped. It is never resumable: the stream's framing cannot be
// trusted once a read or write fails mid-command.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string { return "redis: " + e.Op + ": " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

// Connection owns one TCP stream to a Redis server and the buffered
// reader/writer pair used to frame RESP2 requests and responses.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConnection wraps an already-dialed net.Conn. Dial timeouts are the
// caller's responsibility (the pool constructor applies them via
// net.Dialer.DialContext).
func NewConnection(conn net.Conn, opts ConnectionOptions) *Connection {
	return &Connection{
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, opts.ReadBufferSize),
		writer:       bufio.NewWriterSize(conn, opts.WriteBufferSize),
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
	}
}

// WriteCommand stages a command on the buffered writer without flushing,
// so a Pipeline can batch many commands behind a single write. Single-shot
// callers should use one of the Exec* methods instead.
func (c *Connection) WriteCommand(args ...string) error {
	if err := resp.WriteCommand(c.writer, args...); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

// Flush pushes everything staged by WriteCommand onto the wire.
func (c *Connection) Flush() error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return &ConnectionError{Op: "set write deadline", Err: err}
		}
	}
	if err := c.writer.Flush(); err != nil {
		return &ConnectionError{Op: "flush", Err: err}
	}
	return nil
}

func (c *Connection) applyReadDeadline() error {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return &ConnectionError{Op: "set read deadline", Err: err}
		}
	}
	return nil
}

// wrapReadErr substitutes the codec's generic read failure with the
// stashed concrete I/O cause; ProtocolError, UnexpectedTypeError and the
// other codec-level parse errors pass through unchanged, same as
// RedisError.
func wrapReadErr(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *resp.RedisError, *resp.ProtocolError, *resp.UnexpectedTypeError,
		*resp.ValueTooLargeError, *resp.InvalidCharacterError, *resp.OverflowError:
		return err
	default:
		return &ConnectionError{Op: "read", Err: err}
	}
}

// ReadSimpleString reads the next queued reply as a simple string.
func (c *Connection) ReadSimpleString() (string, error) {
	if err := c.applyReadDeadline(); err != nil {
		return "", err
	}
	s, err := resp.ReadSimpleString(c.reader)
	return s, wrapReadErr(err)
}

// ReadInteger reads the next queued reply as an integer.
func (c *Connection) ReadInteger() (int64, error) {
	if err := c.applyReadDeadline(); err != nil {
		return 0, err
	}
	n, err := resp.ReadInteger(c.reader)
	return n, wrapReadErr(err)
}

// ReadBulkString reads the next queued reply as a bulk string into buf.
func (c *Connection) ReadBulkString(buf []byte) ([]byte, bool, error) {
	if err := c.applyReadDeadline(); err != nil {
		return nil, false, err
	}
	v, found, err := resp.ReadBulkString(c.reader, buf)
	return v, found, wrapReadErr(err)
}

// ReadOKOrNil reads the next queued reply as an OK-or-nil.
func (c *Connection) ReadOKOrNil() error {
	if err := c.applyReadDeadline(); err != nil {
		return err
	}
	return wrapReadErr(resp.ReadOKOrNil(c.reader))
}

// ReadArrayHeader reads the "*N\r\n" line that precedes an array reply
// such as MGET's.
func (c *Connection) ReadArrayHeader() (int64, error) {
	if err := c.applyReadDeadline(); err != nil {
		return 0, err
	}
	n, err := resp.ReadArrayHeader(c.reader)
	return n, wrapReadErr(err)
}

// ExecSimpleString writes args and reads back a simple-string reply in one
// round trip.
func (c *Connection) ExecSimpleString(args ...string) (string, error) {
	if err := c.WriteCommand(args...); err != nil {
		return "", err
	}
	if err := c.Flush(); err != nil {
		return "", err
	}
	return c.ReadSimpleString()
}

// ExecInteger writes args and reads back an integer reply in one round
// trip.
func (c *Connection) ExecInteger(args ...string) (int64, error) {
	if err := c.WriteCommand(args...); err != nil {
		return 0, err
	}
	if err := c.Flush(); err != nil {
		return 0, err
	}
	return c.ReadInteger()
}

// ExecBulkString writes args and reads back a bulk-string reply in one
// round trip.
func (c *Connection) ExecBulkString(buf []byte, args ...string) ([]byte, bool, error) {
	if err := c.WriteCommand(args...); err != nil {
		return nil, false, err
	}
	if err := c.Flush(); err != nil {
		return nil, false, err
	}
	return c.ReadBulkString(buf)
}

// ExecOKOrNil writes args and reads back an OK-or-nil reply in one round
// trip.
func (c *Connection) ExecOKOrNil(args ...string) error {
	if err := c.WriteCommand(args...); err != nil {
		return err
	}
	if err := c.Flush(); err != nil {
		return err
	}
	return c.ReadOKOrNil()
}

// Close closes the underlying network connection without flushing; callers
// that care about in-flight writes flush explicitly as part of Exec*.
func (c *Connection) Close() error {
	return c.conn.Close()
}
