package redis

import (
	"fmt"

	"github.com/cachewire/cachewire/redis/resp"
)

// MaxPipelineCommands bounds how many commands a single Pipeline batch may
// queue before exec.
const MaxPipelineCommands = 64

// pipelineBulkBufSize bounds how many bytes Exec reserves in the arena per
// pending bulk-string reply; a value beyond this surfaces
// resp.ValueTooLargeError rather than growing the arena unbounded.
const pipelineBulkBufSize = 64 * 1024

// pipelineState is the Pipeline's {building -> executing -> exhausted}
// state machine. exec drives executing -> exhausted; Reset drives
// exhausted -> building so the same Pipeline can build a new batch.
type pipelineState int

const (
	pipelineBuilding pipelineState = iota
	pipelineExecuting
	pipelineExhausted
)

// responseType tags a pending command with the RESP2 reply shape exec
// should decode it as.
type responseType int

const (
	responseSimpleString responseType = iota
	responseInteger
	responseBulkString
	responseOKOrNil
)

// Result is one pipelined command's outcome. Exactly one of Simple,
// Integer, Bulk (when BulkFound) or Err is meaningful, selected by the
// command that produced it.
type Result struct {
	Simple    string
	Integer   int64
	Bulk      []byte
	BulkFound bool
	Err       error
}

// Pipeline borrows an acquired Connection (and, optionally, the Resource
// it was acquired as, so Close can release or destroy it) to batch up to
// MaxPipelineCommands commands behind a single flush.
type Pipeline struct {
	conn     *Connection
	pool     Pool
	resource Resource

	state   pipelineState
	pending []responseType
	healthy bool

	arena []byte
}

// NewPipeline wraps an already-acquired Connection. resource may be nil if
// the caller manages the connection's lifecycle itself; when non-nil,
// Close releases or destroys it depending on whether the batch stayed
// healthy.
func NewPipeline(conn *Connection, pool Pool, resource Resource) *Pipeline {
	return &Pipeline{
		conn:     conn,
		pool:     pool,
		resource: resource,
		healthy:  true,
	}
}

func (p *Pipeline) queue(rt responseType, args ...string) error {
	if p.state == pipelineExecuting {
		return fmt.Errorf("redis: pipeline is mid-exec")
	}
	p.state = pipelineBuilding
	if len(p.pending) >= MaxPipelineCommands {
		return fmt.Errorf("redis: pipeline exceeds %d pending commands", MaxPipelineCommands)
	}

	if err := p.conn.WriteCommand(args...); err != nil {
		p.healthy = false
		return err
	}
	p.pending = append(p.pending, rt)
	return nil
}

// Get queues a GET.
func (p *Pipeline) Get(key string) error {
	return p.queue(responseBulkString, "GET", key)
}

// Set queues a SET.
func (p *Pipeline) Set(key, value string) error {
	return p.queue(responseOKOrNil, "SET", key, value)
}

// Del queues a DEL.
func (p *Pipeline) Del(keys ...string) error {
	if err := validateKeyCount(keys); err != nil {
		return err
	}
	return p.queue(responseInteger, append([]string{"DEL"}, keys...)...)
}

// Incr queues an INCR.
func (p *Pipeline) Incr(key string) error {
	return p.queue(responseInteger, "INCR", key)
}

// IncrBy queues an INCRBY.
func (p *Pipeline) IncrBy(key string, delta int64) error {
	return p.queue(responseInteger, "INCRBY", key, resp.FormatInt(delta))
}

// Ping queues a no-argument PING.
func (p *Pipeline) Ping() error {
	return p.queue(responseSimpleString, "PING")
}

// Pending reports how many commands are queued for the next exec.
func (p *Pipeline) Pending() int {
	return len(p.pending)
}

// Exec flushes the writer once and reads exactly one response per pending
// command, arena-backed so the whole batch's bulk-string payloads can be
// freed in a single step by discarding the Pipeline (or calling Reset).
//
// A RedisError on any individual read becomes that slot's Result.Err
// without marking the Pipeline unhealthy, since the connection's framing
// survives a protocol-level error. Any other read error marks the
// Pipeline unhealthy; Close then releases the underlying connection with
// ok=false instead of returning it to the pool.
func (p *Pipeline) Exec() ([]Result, error) {
	if p.state == pipelineExhausted {
		return nil, fmt.Errorf("redis: pipeline already executed; call Reset first")
	}
	pending := p.pending
	p.state = pipelineExecuting

	if !p.healthy {
		p.state = pipelineExhausted
		p.pending = nil
		return nil, fmt.Errorf("redis: pipeline is unhealthy, a prior write failed")
	}

	if err := p.conn.Flush(); err != nil {
		p.healthy = false
		p.state = pipelineExhausted
		p.pending = nil
		return nil, err
	}

	p.arena = p.arena[:0]
	results := make([]Result, len(pending))

	for i, rt := range pending {
		results[i] = p.readOne(rt)
		if results[i].Err != nil && !resp.IsResumable(results[i].Err) {
			p.healthy = false
			// The stream is desynchronized; stop reading the rest of the
			// batch rather than produce garbage for trailing slots.
			for j := i + 1; j < len(results); j++ {
				results[j] = Result{Err: results[i].Err}
			}
			break
		}
	}

	p.state = pipelineExhausted
	p.pending = nil
	return results, nil
}

func (p *Pipeline) readOne(rt responseType) Result {
	switch rt {
	case responseSimpleString:
		s, err := p.conn.ReadSimpleString()
		return Result{Simple: s, Err: err}
	case responseInteger:
		n, err := p.conn.ReadInteger()
		return Result{Integer: n, Err: err}
	case responseBulkString:
		start := len(p.arena)
		// grow the arena speculatively; ReadBulkString rejects anything
		// past what's left so a too-large reply still surfaces
		// ValueTooLargeError instead of corrupting a neighbor's slot.
		p.arena = append(p.arena, make([]byte, pipelineBulkBufSize)...)
		v, found, err := p.conn.ReadBulkString(p.arena[start:])
		if err != nil || !found {
			p.arena = p.arena[:start]
			return Result{Err: err}
		}
		n := len(v)
		p.arena = p.arena[:start+n]
		return Result{Bulk: p.arena[start : start+n], BulkFound: true}
	case responseOKOrNil:
		return Result{Err: p.conn.ReadOKOrNil()}
	default:
		return Result{Err: fmt.Errorf("redis: unknown pending response type")}
	}
}

// Reset discards any exhausted batch's bookkeeping so the Pipeline can
// build a new one. It is a no-op while the Pipeline is still building or
// mid-exec.
func (p *Pipeline) Reset() {
	if p.state != pipelineExhausted {
		return
	}
	p.state = pipelineBuilding
	p.arena = p.arena[:0]
}

// Close releases the borrowed connection: healthy back to the pool,
// unhealthy destroyed. It is the Go idiomatic stand-in for the borrowed
// connection's destructor.
func (p *Pipeline) Close() {
	if p.resource == nil {
		return
	}
	if p.healthy {
		p.resource.Release()
	} else {
		p.resource.Destroy()
	}
}
