package meta

// CmdType identifies a command by its wire-level verb: a 2-character meta
// command code (mg, ms, md, ma, me, mn), the multi-character "stats"
// verb, or one of the bare legacy text commands (flush_all, version)
// that sit alongside the meta protocol rather than inside it.
type CmdType string

// FlagType is the single-character flag identifier that follows a meta
// command and its key on the wire.
type FlagType byte

// StatusType is the 2-character status code a meta response opens with.
type StatusType string

// Protocol delimiters
const (
	// CRLF terminates every line memcached sends or expects.
	CRLF = "\r\n"

	// Space separates command tokens on the wire.
	Space = " "
)

// Command verbs. Each meta command (mg/ms/md/ma/me/mn) accepts its own
// flag vocabulary and produces its own status set; see the package-level
// flag groups below for the full list. flush_all and version are not meta
// commands — they carry no key and no flags, just a bare verb line and a
// plain-text reply. stats is not a meta command either, but WriteRequest
// writes it like a keyed command, taking its argument from Request.Key.
const (
	// CmdGet (mg) fetches an item's value and/or metadata.
	//
	// Wire: mg <key> <flags>*\r\n
	// Replies: VA <size> (hit, v flag set), HD (hit, no v flag), EN (miss)
	CmdGet CmdType = "mg"

	// CmdSet (ms) stores an item, in the mode selected by FlagMode.
	//
	// Wire: ms <key> <datalen> <flags>*\r\n<data>\r\n
	// Replies: HD (stored), NS (add/replace/append/prepend condition not
	// met), NF (CAS store on a missing key), EX (CAS mismatch)
	CmdSet CmdType = "ms"

	// CmdDelete (md) removes or invalidates an item.
	//
	// Wire: md <key> <flags>*\r\n
	// Replies: HD (deleted), NF (missing), EX (CAS mismatch)
	CmdDelete CmdType = "md"

	// CmdArithmetic (ma) increments or decrements a counter key.
	//
	// Wire: ma <key> <flags>*\r\n
	// Replies: VA <size> (v flag set), HD (no v flag), NF (missing, no
	// auto-vivify)
	CmdArithmetic CmdType = "ma"

	// CmdDebug (me) returns internal per-item metadata as free-form
	// key=value pairs, for diagnostics rather than application reads.
	//
	// Wire: me <key>\r\n
	// Reply: ME <key> <k>=<v>*
	CmdDebug CmdType = "me"

	// CmdNoOp (mn) always returns MN. It carries no key and no flags;
	// used to mark the tail of a pipelined, quiet-mode request batch so
	// the reader knows where the batch ends.
	//
	// Wire: mn\r\n
	// Reply: MN
	CmdNoOp CmdType = "mn"

	// CmdFlushAll invalidates every item on the server. It is a legacy
	// text command, not a meta command: no key, no flags.
	//
	// Wire: flush_all\r\n
	// Reply: OK
	CmdFlushAll CmdType = "flush_all"

	// CmdVersion asks the server to identify itself. Also a legacy text
	// command: no key, no flags.
	//
	// Wire: version\r\n
	// Reply: VERSION <string>
	CmdVersion CmdType = "version"

	// CmdStats requests server statistics in the legacy text protocol's
	// "STAT name value" line format, terminated by END.
	//
	// Wire: stats <arg>\r\n, the argument taken from Request.Key;
	// WriteRequest rejects an empty Key, so a bare "stats" is not sent.
	CmdStats CmdType = "stats"
)

// Response status codes.
const (
	StatusHD StatusType = "HD" // stored/deleted/hit, no value body
	StatusVA StatusType = "VA" // hit, value body follows
	StatusEN StatusType = "EN" // mg miss
	StatusNF StatusType = "NF" // md/ms miss on a key that must exist
	StatusNS StatusType = "NS" // ms: add/replace/append/prepend condition not satisfied, not an error
	StatusEX StatusType = "EX" // CAS token did not match
	StatusMN StatusType = "MN" // mn reply
	StatusME StatusType = "ME" // me reply
	StatusOK StatusType = "OK" // flush_all reply
)

// Legacy (non-meta) error lines. These share the same framing as meta
// status codes but come from commands outside the meta family, or from
// malformed meta requests the server rejected before it could even
// determine which command was meant.
const (
	ErrorGeneric      = "ERROR"
	ErrorClientPrefix = "CLIENT_ERROR"
	ErrorServerPrefix = "SERVER_ERROR"
)

// Stats response framing (legacy text protocol).
const (
	StatPrefix = "STAT"
	EndMarker  = "END"
)

// Universal flags, valid on every meta command.
const (
	FlagBase64Key FlagType = 'b' // key is base64-encoded
	FlagReturnKey FlagType = 'k' // echo the key back in the response
	FlagOpaque    FlagType = 'O' // O<token>: echoed back for request matching
	FlagQuiet     FlagType = 'q' // suppress the nominal reply (HD/EN/NF); errors still come back
)

// Flags that ask mg/ma to return a piece of metadata alongside the
// status line.
const (
	FlagReturnCAS         FlagType = 'c' // CAS token
	FlagReturnClientFlags FlagType = 'f' // client flags (uint32)
	FlagReturnSize        FlagType = 's' // value size in bytes
	FlagReturnTTL         FlagType = 't' // seconds remaining, -1 if none
	FlagReturnValue       FlagType = 'v' // include the value body (HD becomes VA)
	FlagReturnHit         FlagType = 'h' // whether the item had been fetched before
	FlagReturnLastAccess  FlagType = 'l' // seconds since last access
)

// Flags that modify how ms/md store or remove an item.
const (
	FlagCAS         FlagType = 'C' // C<token>: only apply if the stored CAS still matches
	FlagExplicitCAS FlagType = 'E' // E<token>: set the stored CAS to an explicit value
	FlagTTL         FlagType = 'T' // T<seconds>: 0 or omitted means no expiry
	FlagClientFlags FlagType = 'F' // F<uint32>: opaque client flags to store
)

// mg-specific flags.
const (
	FlagNoLRUBump FlagType = 'u' // don't bump LRU / access time for this fetch
	FlagRecache   FlagType = 'R' // R<seconds>: grant W if TTL is below this threshold
	FlagVivify    FlagType = 'N' // N<seconds>: create a stub on miss instead of EN, grants W
)

// ms-specific flags.
const (
	FlagMode       FlagType = 'M' // M<mode>: one of the Mode* constants below
	FlagInvalidate FlagType = 'I' // mark stale instead of storing/deleting
)

// Storage modes, set via FlagMode on ms.
const (
	ModeSet     = "S" // unconditional store (default)
	ModeAdd     = "E" // only if the key is absent; NS otherwise
	ModeReplace = "R" // only if the key is present; NS otherwise
	ModeAppend  = "A" // append to the existing value; NS if absent
	ModePrepend = "P" // prepend to the existing value; NS if absent
)

// ma-specific flags.
const (
	FlagDelta        FlagType = 'D' // D<uint64>: amount to add/subtract, default 1
	FlagInitialValue FlagType = 'J' // J<uint64>: seed value when auto-vivifying
)

// Arithmetic modes, set via FlagMode on ma.
const (
	ModeIncrement    = "I"
	ModeIncrementAlt = "+"
	ModeDecrement    = "D" // clamps at 0, never underflows
	ModeDecrementAlt = "-"
)

// md-specific flag.
const (
	FlagRemoveValue FlagType = 'x' // drop the value but keep the item's metadata
)

// Flags the server attaches to a response on its own; clients never send
// these.
const (
	FlagWin        FlagType = 'W' // this client won the right to recache
	FlagStale      FlagType = 'X' // item is marked stale
	FlagAlreadyWon FlagType = 'Z' // another client already holds the recache win
)

// Protocol limits.
const (
	MaxKeyLength    = 250
	MinKeyLength    = 1
	MaxOpaqueLength = 32
	MaxValueSize    = 1024 * 1024 // default; servers may configure a different ceiling
)
