// Package resp implements the RESP2 wire codec: encoding commands as
// arrays of bulk strings, and decoding the reply shapes a curated Redis
// command surface needs (simple string, integer, bulk string, OK-or-nil,
// and the array header MGET replies with). It does not flush on every write and does not itself own a
// net.Conn; redis.Connection composes WriteCommand/ReadXxx into per-command
// operations and owns the buffered reader/writer and their timeouts.
package resp
