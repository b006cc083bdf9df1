package memcache

import (
	"context"
	"time"
)

// Pool manages the idle connections for a single memcache server.
// Both the channel-backed and puddle-backed implementations satisfy it.
type Pool interface {
	Acquire(ctx context.Context) (Resource, error)
	AcquireAllIdle() []Resource
	Stats() PoolStats
	Close()
}

// Resource is an acquired Connection plus lifecycle bookkeeping. Exactly
// one of Release, ReleaseUnused or Destroy must be called per acquisition.
type Resource interface {
	Value() *Connection
	Release()
	ReleaseUnused()
	Destroy()
	CreationTime() time.Time
	IdleDuration() time.Duration
}

// ConnConstructor dials and wraps a new Connection to a single server.
type ConnConstructor func(ctx context.Context) (*Connection, error)

// PoolFactory builds a Pool for one server given its connection
// constructor and the maximum number of connections to hold.
type PoolFactory func(constructor ConnConstructor, maxSize int32) (Pool, error)
