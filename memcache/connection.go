package memcache

import (
	"bufio"
	"net"
	"time"

	"github.com/cachewire/cachewire/memcache/meta"
)

// ConnectionOptions configures buffer sizes and per-operation timeouts for
// a Connection. Timeouts are reapplied before every Send, since net.Conn
// deadlines do not persist across calls.
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

// Connection owns one TCP stream to a memcache server and the buffered
// reader/writer pair used to frame meta-protocol requests and responses.
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

// Send writes req and reads back a single response.
//
// A non-nil error always means the connection is broken or its framing is
// no longer trustworthy and the connection must be destroyed, not
// released back to the pool. Every reply the server sends comes back as a
// non-nil Response and a nil Go error: status replies such as NS or EX in
// Response.Status, and error lines (CLIENT_ERROR, SERVER_ERROR, ERROR) in
// Response.Error. Callers decide the connection's fate with
// meta.ShouldCloseConnection(resp.Error), which keeps it only for
// SERVER_ERROR.
func (c *Connection) Send(req *meta.Request) (*meta.Response, error) {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return nil, &meta.ConnectionError{Op: "set write deadline", Err: err}
		}
	}

	if _, err := meta.WriteRequest(c.writer, req); err != nil {
		// Client-side validation failure (e.g. InvalidKeyError); nothing
		// was sent over the wire.
		return nil, err
	}
	if err := c.writer.Flush(); err != nil {
		return nil, &meta.ConnectionError{Op: "write", Err: err}
	}

	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, &meta.ConnectionError{Op: "set read deadline", Err: err}
		}
	}

	resp, err := meta.ReadResponse(c.reader)
	if err != nil {
		if _, ok := err.(*meta.ParseError); ok {
			return nil, err
		}
		return nil, &meta.ConnectionError{Op: "read", Err: err}
	}

	return resp, nil
}

// SendBatch writes reqs followed by a no-op marker and drains responses up
// to (but not including) the marker, relying on memcached's FIFO ordering
// guarantee to pipeline multiple requests over one round trip.
func (c *Connection) SendBatch(reqs []*meta.Request) ([]*meta.Response, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return nil, &meta.ConnectionError{Op: "set write deadline", Err: err}
		}
	}

	for _, req := range reqs {
		if _, err := meta.WriteRequest(c.writer, req); err != nil {
			return nil, err
		}
	}
	noop := meta.NewRequest(meta.CmdNoOp, "", nil)
	if _, err := meta.WriteRequest(c.writer, noop); err != nil {
		return nil, err
	}
	if err := c.writer.Flush(); err != nil {
		return nil, &meta.ConnectionError{Op: "write", Err: err}
	}

	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, &meta.ConnectionError{Op: "set read deadline", Err: err}
		}
	}

	resps, err := meta.ReadResponseBatch(c.reader, 0, true)
	if err != nil {
		if _, ok := err.(*meta.ParseError); ok {
			return nil, err
		}
		return nil, &meta.ConnectionError{Op: "read", Err: err}
	}

	if n := len(resps); n > 0 && resps[n-1].Status == meta.StatusMN {
		resps = resps[:n-1]
	}
	return resps, nil
}

// SendLine writes a bare-verb request (flush_all, version) and reads
// back its single plain-text reply line, for commands whose response
// isn't framed as a meta status code plus flags.
func (c *Connection) SendLine(req *meta.Request) (string, error) {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return "", &meta.ConnectionError{Op: "set write deadline", Err: err}
		}
	}

	if _, err := meta.WriteRequest(c.writer, req); err != nil {
		return "", err
	}
	if err := c.writer.Flush(); err != nil {
		return "", &meta.ConnectionError{Op: "write", Err: err}
	}

	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return "", &meta.ConnectionError{Op: "set read deadline", Err: err}
		}
	}

	line, err := meta.ReadLineResponse(c.reader)
	if err != nil {
		switch err.(type) {
		case *meta.ClientError, *meta.ServerError, *meta.GenericError:
			return "", err
		default:
			return "", &meta.ConnectionError{Op: "read", Err: err}
		}
	}

	return line, nil
}

// Close closes the underlying network connection without flushing; callers
// that care about in-flight writes flush explicitly as part of Send.
func (c *Connection) Close() error {
	return c.conn.Close()
}
