package meta

import "strings"

// Response represents a parsed meta protocol response. It is a low-level
// container for response data without parsing logic; fields map directly
// to protocol elements.
type Response struct {
	// Status is the 2-character response code: HD, VA, EN, NF, NS, EX, MN, ME.
	Status StatusType

	// Data is the value data. Present for VA responses (the item value)
	// and ME responses (debug key=value pairs, parse with ParseDebugParams).
	Data []byte

	// Flags contains every flag returned, in wire order.
	Flags []Flag

	// Error is set for non-meta error responses: ERROR, CLIENT_ERROR,
	// SERVER_ERROR. When set, the other fields may be empty.
	Error error
}

// IsSuccess reports whether the response indicates a successful
// operation. Success statuses: HD, VA, MN, ME.
func (r *Response) IsSuccess() bool {
	switch r.Status {
	case StatusHD, StatusVA, StatusMN, StatusME:
		return true
	default:
		return false
	}
}

// IsMiss reports whether the response indicates a cache miss.
// Miss statuses: EN, NF.
func (r *Response) IsMiss() bool {
	return r.Status == StatusEN || r.Status == StatusNF
}

// IsNotStored reports whether the item was not stored. This is not an
// error: add on an existing key and replace on a missing key both
// surface this way.
func (r *Response) IsNotStored() bool {
	return r.Status == StatusNS
}

// IsCASMismatch reports whether the response indicates a CAS mismatch.
func (r *Response) IsCASMismatch() bool {
	return r.Status == StatusEX
}

// HasValue reports whether the response includes value data.
func (r *Response) HasValue() bool {
	return r.Status == StatusVA && r.Data != nil
}

// HasError reports whether the response carries a protocol error.
func (r *Response) HasError() bool {
	return r.Error != nil
}

// HasFlag reports whether the response contains a flag of the given type.
func (r *Response) HasFlag(flagType FlagType) bool {
	_, ok := r.GetFlag(flagType)
	return ok
}

// GetFlag returns the first flag of the given type.
func (r *Response) GetFlag(flagType FlagType) (Flag, bool) {
	for _, f := range r.Flags {
		if f.Type == flagType {
			return f, true
		}
	}
	return Flag{}, false
}

// GetFlagToken returns the token of the first flag of the given type, or
// "" if the flag is absent.
func (r *Response) GetFlagToken(flagType FlagType) string {
	f, _ := r.GetFlag(flagType)
	return f.Token
}

// HasWinFlag reports whether the response carries the W (win) flag: the
// client has the exclusive right to recache.
func (r *Response) HasWinFlag() bool {
	return r.HasFlag(FlagWin)
}

// HasStaleFlag reports whether the response carries the X (stale) flag.
func (r *Response) HasStaleFlag() bool {
	return r.HasFlag(FlagStale)
}

// HasAlreadyWonFlag reports whether the response carries the Z (already
// won) flag: another client already received the win flag.
func (r *Response) HasAlreadyWonFlag() bool {
	return r.HasFlag(FlagAlreadyWon)
}

// ParseDebugParams parses debug key=value pairs out of an ME response's
// Data. Malformed tokens (no '=') are silently skipped.
func ParseDebugParams(data []byte) map[string]string {
	params := make(map[string]string)
	if len(data) == 0 {
		return params
	}

	for _, part := range strings.Fields(string(data)) {
		if key, value, found := strings.Cut(part, "="); found {
			params[key] = value
		}
	}

	return params
}
