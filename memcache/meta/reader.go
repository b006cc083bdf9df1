package meta

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Pre-allocated byte slices for comparisons, to avoid allocating on the
// hot path.
var (
	crlfBytes         = []byte(CRLF)
	errorGenericBytes = []byte(ErrorGeneric)
	clientErrorPrefix = []byte(ErrorClientPrefix + " ")
	serverErrorPrefix = []byte(ErrorServerPrefix + " ")
)

// ReadResponse reads and parses a single response from r.
//
//	<status> [<flags>*]\r\n[<data>\r\n]
//
// Protocol-level errors (CLIENT_ERROR, SERVER_ERROR, ERROR) are returned
// through Response.Error, not as a Go error; callers should check
// Response.HasError and use ShouldCloseConnection to decide how to treat
// the connection. A non-nil Go error return means the line itself
// couldn't be read or parsed, and the connection should always be closed.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		line, err = r.ReadBytes('\n')
	}
	if err != nil {
		return nil, err
	}

	line = bytes.TrimSuffix(line, crlfBytes)
	line = bytes.TrimSuffix(line, []byte("\n"))

	if bytes.HasPrefix(line, clientErrorPrefix) {
		return &Response{Error: &ClientError{Message: string(line[len(clientErrorPrefix):])}}, nil
	}
	if bytes.HasPrefix(line, serverErrorPrefix) {
		return &Response{Error: &ServerError{Message: string(line[len(serverErrorPrefix):])}}, nil
	}
	if bytes.Equal(line, errorGenericBytes) {
		return &Response{Error: &GenericError{Message: "ERROR"}}, nil
	}

	if len(line) < 2 {
		return nil, &ParseError{Message: "empty response line"}
	}

	statusEnd := bytes.IndexByte(line, ' ')
	if statusEnd == -1 {
		statusEnd = len(line)
	}

	resp := &Response{Status: StatusType(line[:statusEnd])}

	if resp.Status == StatusMN {
		return resp, nil
	}

	pos := statusEnd

	var dataSize int
	if resp.Status == StatusVA {
		pos = skipSpaces(line, pos)

		sizeEnd := bytes.IndexByte(line[pos:], ' ')
		var sizeBytes []byte
		if sizeEnd == -1 {
			sizeBytes = line[pos:]
			pos = len(line)
		} else {
			sizeBytes = line[pos : pos+sizeEnd]
			pos += sizeEnd
		}

		if len(sizeBytes) == 0 {
			return nil, &ParseError{Message: "VA response missing size"}
		}

		dataSize, err = strconv.Atoi(string(sizeBytes))
		if err != nil {
			return nil, &ParseError{Message: "invalid size in VA response", Err: err}
		}
		if dataSize < 0 {
			return nil, &ParseError{Message: "negative size in VA response"}
		}
	}

	for pos < len(line) {
		pos = skipSpaces(line, pos)
		if pos >= len(line) {
			break
		}

		flagEnd := bytes.IndexByte(line[pos:], ' ')
		var flagBytes []byte
		if flagEnd == -1 {
			flagBytes = line[pos:]
			pos = len(line)
		} else {
			flagBytes = line[pos : pos+flagEnd]
			pos += flagEnd
		}

		if len(flagBytes) == 0 {
			continue
		}

		flag := Flag{Type: FlagType(flagBytes[0])}
		if len(flagBytes) > 1 {
			flag.Token = string(flagBytes[1:])
		}

		resp.Flags = append(resp.Flags, flag)
	}

	if resp.Status == StatusVA {
		data := make([]byte, dataSize+2)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, &ParseError{Message: "failed to read data block", Err: err}
		}
		if !bytes.HasSuffix(data, crlfBytes) {
			return nil, &ParseError{Message: "invalid data block terminator"}
		}
		resp.Data = data[:dataSize]
	}

	if resp.Status == StatusME {
		parts := strings.Fields(string(line))
		if len(parts) > 2 {
			resp.Data = []byte(strings.Join(parts[2:], " "))
		}
	}

	return resp, nil
}

func skipSpaces(b []byte, idx int) int {
	for idx < len(b) && b[idx] == ' ' {
		idx++
	}
	return idx
}

// ReadResponseBatch reads a sequence of pipelined responses.
//
// If expectedCount > 0, it stops after reading that many responses. If
// stopAtNoOp is true, it also stops once it reads a response with
// StatusMN, which is excluded from the returned slice — this is the
// pattern used to delimit a batch of quiet requests with a trailing
// CmdNoOp marker. At least one of expectedCount, stopAtNoOp must bound
// the read, or it blocks until the connection produces an error.
func ReadResponseBatch(r *bufio.Reader, expectedCount int, stopAtNoOp bool) ([]*Response, error) {
	var responses []*Response

	for {
		resp, err := ReadResponse(r)
		if err != nil {
			return responses, err
		}

		if stopAtNoOp && resp.Status == StatusMN {
			return responses, nil
		}

		responses = append(responses, resp)

		if expectedCount > 0 && len(responses) >= expectedCount {
			return responses, nil
		}
	}
}

// ReadLineResponse reads a single plain-text reply line for a legacy
// command that isn't framed as flags after a status code (flush_all's
// "OK", version's "VERSION <string>"). It cannot go through
// ReadResponse, whose flag-parsing loop would treat a version string's
// spaces as bogus flag tokens; protocol-level errors are classified the
// same way ReadStatsResponse does it, by matching line prefixes
// directly rather than via the status-then-flags grammar.
func ReadLineResponse(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}

	line = strings.TrimSuffix(line, CRLF)
	line = strings.TrimSuffix(line, "\n")

	if msg, ok := strings.CutPrefix(line, ErrorClientPrefix+" "); ok {
		return "", &ClientError{Message: msg}
	}
	if msg, ok := strings.CutPrefix(line, ErrorServerPrefix+" "); ok {
		return "", &ServerError{Message: msg}
	}
	if line == ErrorGeneric {
		return "", &GenericError{Message: "ERROR"}
	}

	return line, nil
}

// ReadStatsResponse reads a stats response: a sequence of
// "STAT <name> <value>\r\n" lines terminated by "END\r\n".
func ReadStatsResponse(r *bufio.Reader) (map[string]string, error) {
	stats := make(map[string]string)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return stats, err
		}

		line = strings.TrimSuffix(line, CRLF)
		line = strings.TrimSuffix(line, "\n")

		if line == EndMarker {
			return stats, nil
		}

		if msg, ok := strings.CutPrefix(line, ErrorClientPrefix+" "); ok {
			return stats, &ClientError{Message: msg}
		}
		if msg, ok := strings.CutPrefix(line, ErrorServerPrefix+" "); ok {
			return stats, &ServerError{Message: msg}
		}
		if line == ErrorGeneric {
			return stats, &GenericError{Message: "ERROR"}
		}

		if !strings.HasPrefix(line, StatPrefix+" ") {
			return stats, &ParseError{Message: "invalid stats response line: " + line}
		}

		statLine := strings.TrimPrefix(line, StatPrefix+" ")
		parts := strings.SplitN(statLine, " ", 2)
		if len(parts) != 2 {
			return stats, &ParseError{Message: "invalid STAT line format: " + line}
		}

		stats[parts[0]] = parts[1]
	}
}
