package meta

import "time"

// Request represents a meta protocol request. It is a low-level container
// for request data without serialization logic; fields map directly to
// protocol elements.
//
// See CmdGet, CmdSet, CmdDelete, CmdArithmetic, CmdDebug, and CmdNoOp for
// documentation on valid flags and typical usage patterns.
type Request struct {
	// Command is the command verb: a 2-character meta code (mg, ms, md,
	// ma, me, mn) or one of the text verbs flush_all, version and stats.
	Command CmdType

	// Key is the cache key (1-250 bytes, no whitespace unless base64
	// encoded). Empty for mn, flush_all and version.
	Key string

	// Data is the value to store, for the ms command only. Size is
	// derived from len(Data), never stored separately.
	Data []byte

	// Flags carries every flag in wire order.
	Flags []Flag
}

// NewRequest creates a new meta protocol request.
//
//	req := NewRequest(CmdGet, "mykey", nil, Flag{Type: FlagReturnValue})
//	req = NewRequest(CmdSet, "mykey", []byte("value"), Flag{Type: FlagTTL, Token: "3600"})
//	req = NewRequest(CmdDelete, "mykey", nil)
//	req = NewRequest(CmdNoOp, "", nil)
func NewRequest(cmd CmdType, key string, data []byte, flags ...Flag) *Request {
	return &Request{
		Command: cmd,
		Key:     key,
		Data:    data,
		Flags:   flags,
	}
}

// HasFlag reports whether the request carries a flag of the given type.
func (r *Request) HasFlag(flagType FlagType) bool {
	_, ok := r.GetFlag(flagType)
	return ok
}

// GetFlag returns the first flag of the given type.
func (r *Request) GetFlag(flagType FlagType) (Flag, bool) {
	for _, f := range r.Flags {
		if f.Type == flagType {
			return f, true
		}
	}
	return Flag{}, false
}

// AddFlag appends a flag and returns the request for chaining.
func (r *Request) AddFlag(f Flag) *Request {
	r.Flags = append(r.Flags, f)
	return r
}

// --- Typed flag helpers ---
// All Add* methods return *Request for fluent chaining:
//
//	req := NewRequest(CmdGet, "key", nil).AddReturnValue().AddReturnCAS()

// Universal flags (all commands)

func (r *Request) AddOpaque(token string) *Request {
	return r.AddFlag(Flag{Type: FlagOpaque, Token: token})
}
func (r *Request) AddQuiet() *Request     { return r.AddFlag(Flag{Type: FlagQuiet}) }
func (r *Request) AddBase64Key() *Request { return r.AddFlag(Flag{Type: FlagBase64Key}) }
func (r *Request) AddReturnKey() *Request { return r.AddFlag(Flag{Type: FlagReturnKey}) }

// Metadata retrieval flags (mg, ma)

func (r *Request) AddReturnValue() *Request { return r.AddFlag(Flag{Type: FlagReturnValue}) }
func (r *Request) AddReturnCAS() *Request   { return r.AddFlag(Flag{Type: FlagReturnCAS}) }
func (r *Request) AddReturnTTL() *Request   { return r.AddFlag(Flag{Type: FlagReturnTTL}) }
func (r *Request) AddReturnClientFlags() *Request {
	return r.AddFlag(Flag{Type: FlagReturnClientFlags})
}

// Modification flags

func (r *Request) AddTTL(seconds int) *Request {
	return r.AddFlag(FormatFlagInt(FlagTTL, seconds))
}
func (r *Request) AddTTLDuration(d time.Duration) *Request {
	return r.AddTTL(int(d / time.Second))
}
func (r *Request) AddCAS(value uint64) *Request {
	return r.AddFlag(FormatFlagUint64(FlagCAS, value))
}
func (r *Request) AddClientFlags(flags uint32) *Request {
	return r.AddFlag(FormatFlagInt(FlagClientFlags, int(flags)))
}

// Get-specific flags

func (r *Request) AddVivify(seconds int) *Request {
	return r.AddFlag(FormatFlagInt(FlagVivify, seconds))
}
func (r *Request) AddVivifyDuration(d time.Duration) *Request {
	return r.AddVivify(int(d / time.Second))
}

// Set-specific flags

func (r *Request) AddMode(mode string) *Request {
	return r.AddFlag(Flag{Type: FlagMode, Token: mode})
}
func (r *Request) AddModeSet() *Request     { return r.AddMode(ModeSet) }
func (r *Request) AddModeAdd() *Request     { return r.AddMode(ModeAdd) }
func (r *Request) AddModeReplace() *Request { return r.AddMode(ModeReplace) }
func (r *Request) AddModeAppend() *Request  { return r.AddMode(ModeAppend) }
func (r *Request) AddModePrepend() *Request { return r.AddMode(ModePrepend) }

// Arithmetic-specific flags

func (r *Request) AddDelta(amount uint64) *Request {
	return r.AddFlag(FormatFlagUint64(FlagDelta, amount))
}
func (r *Request) AddInitialValue(value uint64) *Request {
	return r.AddFlag(FormatFlagUint64(FlagInitialValue, value))
}
func (r *Request) AddModeIncrement() *Request { return r.AddMode(ModeIncrement) }
func (r *Request) AddModeDecrement() *Request { return r.AddMode(ModeDecrement) }
