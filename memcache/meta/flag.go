package meta

import "strconv"

// Flag is a single meta protocol flag: a one-character type optionally
// followed by a token. Tokens are carried as strings since every token
// defined by the protocol (TTL, CAS value, opaque, mode) is ASCII text.
type Flag struct {
	Type  FlagType
	Token string
}

// FormatFlagInt builds a Flag whose token is the base-10 rendering of
// value, reusing cachedInts for the handful of durations seen constantly
// on the hot path (TTLs).
func FormatFlagInt(flagType FlagType, value int) Flag {
	if cached, ok := cachedInts[value]; ok {
		return Flag{Type: flagType, Token: cached}
	}
	return Flag{Type: flagType, Token: strconv.Itoa(value)}
}

// FormatFlagUint64 builds a Flag whose token is the base-10 rendering of
// value. Used for CAS tokens and deltas, which are unsigned on the wire.
func FormatFlagUint64(flagType FlagType, value uint64) Flag {
	return Flag{Type: flagType, Token: strconv.FormatUint(value, 10)}
}

// Common TTL values cached to reduce allocations. strconv.Itoa already
// caches 0-99 internally, so only larger, still-common values are kept
// here.
var cachedInts = map[int]string{
	300:    "300",    // 5 minutes
	600:    "600",    // 10 minutes
	1800:   "1800",   // 30 minutes
	3600:   "3600",   // 1 hour
	7200:   "7200",   // 2 hours
	86400:  "86400",  // 1 day
	604800: "604800", // 1 week
}
