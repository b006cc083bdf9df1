package memcache

import (
	"sync/atomic"
	"time"
)

// PoolStats contains statistics about a single server's connection pool.
// All fields are safe for concurrent access.
type PoolStats struct {
	AcquireCount      uint64
	AcquireWaitCount  uint64
	CreatedConns      uint64
	DestroyedConns    uint64
	AcquireErrors     uint64
	AcquireWaitTimeNs uint64

	TotalConns  int32
	IdleConns   int32
	ActiveConns int32
}

// ClientStats contains statistics about client operations, aggregated
// across all servers.
type ClientStats struct {
	Gets       uint64
	Sets       uint64
	Adds       uint64
	Replaces   uint64
	Appends    uint64
	Prepends   uint64
	Deletes    uint64
	Increments uint64
	FlushAlls  uint64
	Versions   uint64
	GetHits    uint64
	Errors     uint64
}

// poolStatsCollector provides internal methods for updating pool stats.
// Not exported; only the channel pool updates its own stats this way
// (the puddle pool derives PoolStats from puddle.Pool.Stat() directly).
type poolStatsCollector struct {
	stats PoolStats
}

func (c *poolStatsCollector) recordAcquire() {
	atomic.AddUint64(&c.stats.AcquireCount, 1)
}

func (c *poolStatsCollector) recordAcquireWait(d time.Duration) {
	atomic.AddUint64(&c.stats.AcquireWaitCount, 1)
	atomic.AddUint64(&c.stats.AcquireWaitTimeNs, uint64(d.Nanoseconds()))
}

func (c *poolStatsCollector) recordCreate() {
	atomic.AddUint64(&c.stats.CreatedConns, 1)
	atomic.AddInt32(&c.stats.TotalConns, 1)
}

func (c *poolStatsCollector) recordDestroy() {
	atomic.AddUint64(&c.stats.DestroyedConns, 1)
	atomic.AddInt32(&c.stats.TotalConns, -1)
}

func (c *poolStatsCollector) recordAcquireError() {
	atomic.AddUint64(&c.stats.AcquireErrors, 1)
}

func (c *poolStatsCollector) recordAcquireFromIdle() {
	atomic.AddInt32(&c.stats.IdleConns, -1)
	atomic.AddInt32(&c.stats.ActiveConns, 1)
}

func (c *poolStatsCollector) recordActivate() {
	atomic.AddInt32(&c.stats.ActiveConns, 1)
}

func (c *poolStatsCollector) recordRelease() {
	atomic.AddInt32(&c.stats.IdleConns, 1)
	atomic.AddInt32(&c.stats.ActiveConns, -1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		TotalConns:        atomic.LoadInt32(&c.stats.TotalConns),
		IdleConns:         atomic.LoadInt32(&c.stats.IdleConns),
		ActiveConns:       atomic.LoadInt32(&c.stats.ActiveConns),
		AcquireCount:      atomic.LoadUint64(&c.stats.AcquireCount),
		AcquireWaitCount:  atomic.LoadUint64(&c.stats.AcquireWaitCount),
		CreatedConns:      atomic.LoadUint64(&c.stats.CreatedConns),
		DestroyedConns:    atomic.LoadUint64(&c.stats.DestroyedConns),
		AcquireErrors:     atomic.LoadUint64(&c.stats.AcquireErrors),
		AcquireWaitTimeNs: atomic.LoadUint64(&c.stats.AcquireWaitTimeNs),
	}
}

// clientStatsCollector provides internal methods for updating client
// operation stats. Not exported; Client updates its own stats.
type clientStatsCollector struct {
	stats ClientStats
}

func (c *clientStatsCollector) recordGet(found bool) {
	atomic.AddUint64(&c.stats.Gets, 1)
	if found {
		atomic.AddUint64(&c.stats.GetHits, 1)
	}
}

func (c *clientStatsCollector) recordSet()       { atomic.AddUint64(&c.stats.Sets, 1) }
func (c *clientStatsCollector) recordAdd()       { atomic.AddUint64(&c.stats.Adds, 1) }
func (c *clientStatsCollector) recordReplace()   { atomic.AddUint64(&c.stats.Replaces, 1) }
func (c *clientStatsCollector) recordAppend()    { atomic.AddUint64(&c.stats.Appends, 1) }
func (c *clientStatsCollector) recordPrepend()   { atomic.AddUint64(&c.stats.Prepends, 1) }
func (c *clientStatsCollector) recordDelete()    { atomic.AddUint64(&c.stats.Deletes, 1) }
func (c *clientStatsCollector) recordIncrement() { atomic.AddUint64(&c.stats.Increments, 1) }
func (c *clientStatsCollector) recordFlushAll()  { atomic.AddUint64(&c.stats.FlushAlls, 1) }
func (c *clientStatsCollector) recordVersion()   { atomic.AddUint64(&c.stats.Versions, 1) }
func (c *clientStatsCollector) recordError()     { atomic.AddUint64(&c.stats.Errors, 1) }

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:       atomic.LoadUint64(&c.stats.Gets),
		Sets:       atomic.LoadUint64(&c.stats.Sets),
		Adds:       atomic.LoadUint64(&c.stats.Adds),
		Replaces:   atomic.LoadUint64(&c.stats.Replaces),
		Appends:    atomic.LoadUint64(&c.stats.Appends),
		Prepends:   atomic.LoadUint64(&c.stats.Prepends),
		Deletes:    atomic.LoadUint64(&c.stats.Deletes),
		Increments: atomic.LoadUint64(&c.stats.Increments),
		FlushAlls:  atomic.LoadUint64(&c.stats.FlushAlls),
		Versions:   atomic.LoadUint64(&c.stats.Versions),
		GetHits:    atomic.LoadUint64(&c.stats.GetHits),
		Errors:     atomic.LoadUint64(&c.stats.Errors),
	}
}
