package redis

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
)

// NewPuddlePool builds a Pool backed by github.com/jackc/puddle/v2,
// trading the channel pool's minimal overhead for puddle's battle-tested
// acquire/destroy bookkeeping. It fills the same PoolStats fields as the
// channel pool; no wait-time histogram is kept.
func NewPuddlePool(constructor ConnConstructor, maxSize int32) (Pool, error) {
	p := &puddlePool{}

	cfg := &puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			conn, err := constructor(ctx)
			if err == nil {
				p.createdConns.Add(1)
			}
			return conn, err
		},
		Destructor: func(c *Connection) {
			p.destroyedConns.Add(1)
			_ = c.Close()
		},
		MaxSize: maxSize,
	}

	pool, err := puddle.NewPool(cfg)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

type puddlePool struct {
	pool           *puddle.Pool[*Connection]
	createdConns   atomic.Int64
	destroyedConns atomic.Int64
}

func (p *puddlePool) Acquire(ctx context.Context) (Resource, error) {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &puddleAdapter{res: res}, nil
}

func (p *puddlePool) AcquireAllIdle() []Resource {
	res := p.pool.AcquireAllIdle()
	out := make([]Resource, len(res))
	for i, r := range res {
		out[i] = &puddleAdapter{res: r}
	}
	return out
}

func (p *puddlePool) Close() {
	p.pool.Close()
}

func (p *puddlePool) Stats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedConns:      uint64(p.createdConns.Load()),
		DestroyedConns:    uint64(p.destroyedConns.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}

// puddleAdapter adapts *puddle.Resource[*Connection] to Resource. puddle
// has no ReleaseUnused distinct from Release; a health-check sweep that
// decides to keep a connection just releases it normally.
type puddleAdapter struct {
	res *puddle.Resource[*Connection]
}

func (a *puddleAdapter) Value() *Connection         { return a.res.Value() }
func (a *puddleAdapter) Release()                   { a.res.Release() }
func (a *puddleAdapter) ReleaseUnused()              { a.res.Release() }
func (a *puddleAdapter) Destroy()                    { a.res.Destroy() }
func (a *puddleAdapter) CreationTime() time.Time     { return a.res.CreationTime() }
func (a *puddleAdapter) IdleDuration() time.Duration { return a.res.IdleDuration() }
