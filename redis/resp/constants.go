package resp

// RESP2 type prefixes.
const (
	SimpleStringPrefix byte = '+'
	ErrorPrefix        byte = '-'
	IntegerPrefix      byte = ':'
	BulkStringPrefix   byte = '$'
	ArrayPrefix        byte = '*'
)

// CRLF terminates every RESP2 line.
const CRLF = "\r\n"

// NilBulkLength is the length field of a $-1\r\n null bulk string.
const NilBulkLength = -1

// MaxKeys bounds the number of keys accepted by DEL, EXISTS and MGET in a
// single call.
const MaxKeys = 64

// intBufSize is large enough to hold the decimal (with sign) of any int64.
const intBufSize = 32
