package meta

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Buffer pool for building requests against writers that aren't already
// buffered.
var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}

// ValidateKey checks that key is valid for the memcache protocol: 1-250
// bytes, no whitespace unless it's base64-encoded.
func ValidateKey(key string, hasBase64Flag bool) error {
	keyLen := len(key)

	if keyLen < MinKeyLength {
		return &InvalidKeyError{Message: "key is empty"}
	}

	if keyLen > MaxKeyLength {
		return &InvalidKeyError{Message: "key exceeds maximum length of 250 bytes"}
	}

	if !hasBase64Flag && strings.ContainsAny(key, " \t\r\n") {
		return &InvalidKeyError{Message: "key contains whitespace"}
	}

	return nil
}

// isBareCommand reports whether cmd is sent as a standalone verb line
// with no key, flags, or data block: mn (meta no-op) and the two legacy
// text commands that sit outside the meta protocol entirely.
func isBareCommand(cmd CmdType) bool {
	switch cmd {
	case CmdNoOp, CmdFlushAll, CmdVersion:
		return true
	default:
		return false
	}
}

// WriteRequest serializes req to wire format and writes it to w, returning
// the number of bytes written.
//
//	ms command:    ms <key> <size> <flags>*\r\n<data>\r\n
//	bare commands: <cmd>\r\n        (mn, flush_all, version)
//	other:         <cmd> <key> <flags>*\r\n
func WriteRequest(w io.Writer, req *Request) (int, error) {
	if bw, ok := w.(*bufio.Writer); ok {
		return writeRequestBuffered(bw, req)
	}
	return writeRequestUnbuffered(w, req)
}

func writeRequestBuffered(bw *bufio.Writer, req *Request) (int, error) {
	if isBareCommand(req.Command) {
		n, _ := bw.WriteString(string(req.Command) + CRLF)
		return n, bw.Flush()
	}

	hasBase64Flag := req.HasFlag(FlagBase64Key)
	if err := ValidateKey(req.Key, hasBase64Flag); err != nil {
		return 0, err
	}

	n := 0
	wn, _ := bw.WriteString(string(req.Command))
	n += wn
	wn, _ = bw.WriteString(Space)
	n += wn
	wn, _ = bw.WriteString(req.Key)
	n += wn

	if req.Command == CmdSet {
		wn, _ = bw.WriteString(Space)
		n += wn
		wn, _ = bw.WriteString(strconv.Itoa(len(req.Data)))
		n += wn
	}

	for _, flag := range req.Flags {
		wn, _ = bw.WriteString(Space)
		n += wn
		bw.WriteByte(byte(flag.Type))
		n++
		if flag.Token != "" {
			wn, _ = bw.WriteString(flag.Token)
			n += wn
		}
	}

	wn, _ = bw.WriteString(CRLF)
	n += wn

	if req.Command == CmdSet {
		if len(req.Data) > 0 {
			wn, err := bw.Write(req.Data)
			n += wn
			if err != nil {
				return n, err
			}
		}
		wn, _ = bw.WriteString(CRLF)
		n += wn
	}

	return n, bw.Flush()
}

func writeRequestUnbuffered(w io.Writer, req *Request) (int, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if isBareCommand(req.Command) {
		buf.WriteString(string(req.Command))
		buf.WriteString(CRLF)
		return w.Write(buf.Bytes())
	}

	hasBase64Flag := req.HasFlag(FlagBase64Key)
	if err := ValidateKey(req.Key, hasBase64Flag); err != nil {
		return 0, err
	}

	buf.WriteString(string(req.Command))
	buf.WriteString(Space)
	buf.WriteString(req.Key)

	if req.Command == CmdSet {
		buf.WriteString(Space)
		buf.WriteString(strconv.Itoa(len(req.Data)))
	}

	for _, flag := range req.Flags {
		buf.WriteString(Space)
		buf.WriteByte(byte(flag.Type))
		if flag.Token != "" {
			buf.WriteString(flag.Token)
		}
	}

	buf.WriteString(CRLF)

	n, err := w.Write(buf.Bytes())
	if err != nil {
		return n, err
	}

	if req.Command == CmdSet {
		if len(req.Data) > 0 {
			wn, err := w.Write(req.Data)
			n += wn
			if err != nil {
				return n, err
			}
		}
		wn, err := io.WriteString(w, CRLF)
		n += wn
		if err != nil {
			return n, err
		}
	}

	return n, nil
}
