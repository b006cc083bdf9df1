// Package meta implements the wire protocol for the memcached Meta
// Protocol (memcached 1.6+): request serialization, response parsing,
// and the error taxonomy that distinguishes a corrupted connection from
// a server-side failure.
//
// Request and Response are plain data containers; all protocol logic
// lives in WriteRequest and ReadResponse.
//
//	req := meta.NewRequest(meta.CmdGet, "mykey", nil, meta.Flag{Type: meta.FlagReturnValue})
//	if _, err := meta.WriteRequest(conn, req); err != nil {
//		return err
//	}
//
//	resp, err := meta.ReadResponse(bufio.NewReader(conn))
//	if err != nil {
//		conn.Close()
//		return err
//	}
//	if resp.HasError() {
//		if meta.ShouldCloseConnection(resp.Error) {
//			conn.Close()
//		}
//		return resp.Error
//	}
//
// # Pipelining
//
// Quiet requests (FlagQuiet) suppress their nominal response, so a batch
// is terminated with a CmdNoOp request and read with ReadResponseBatch
// using stopAtNoOp:
//
//	for _, req := range reqs {
//		meta.WriteRequest(conn, req)
//	}
//	meta.WriteRequest(conn, meta.NewRequest(meta.CmdNoOp, "", nil))
//	resps, err := meta.ReadResponseBatch(bufio.NewReader(conn), 0, true)
//
// # Error handling
//
// ClientError, GenericError, ParseError, and ConnectionError all indicate
// a connection whose framing state cannot be trusted and must be closed.
// ServerError means the operation failed but the connection's framing is
// intact and it can be reused. ShouldCloseConnection centralizes that
// decision.
package meta
