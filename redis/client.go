package redis

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	addrpkg "github.com/cachewire/cachewire/internal/addr"
	"github.com/cachewire/cachewire/redis/resp"
	"github.com/sony/gobreaker/v2"
)

// defaultBulkBufferSize bounds how large a single bulk-string reply Get,
// GetSet and MGet will accept before returning resp.ValueTooLargeError.
// Ping(message) reads its echo into its own 4096-byte buffer.
const defaultBulkBufferSize = 64 * 1024

// SetOptions configures a conditional SET. If both NX and XX are set, NX
// wins and XX is skipped.
type SetOptions struct {
	EX  uint32 // seconds; zero means no expiry requested
	NX  bool
	XX  bool
	GET bool
}

// Querier is the curated command surface a Client implements.
type Querier interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key, value string, opts SetOptions) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	DecrBy(ctx context.Context, key string, delta int64) (int64, error)
	Expire(ctx context.Context, key string, seconds int64) (bool, error)
	TTL(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Ping(ctx context.Context, message string) (string, error)
	FlushDB(ctx context.Context) error
	DBSize(ctx context.Context) (int64, error)
}

// Config holds the settings a Client applies to its single server pool.
type Config struct {
	// MaxSize is the maximum number of connections in the pool. If zero, 2.
	MaxSize int32

	// MaxConnLifetime bounds how long a connection may be reused before a
	// health check recycles it. Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime bounds how long a connection may sit idle before a
	// health check recycles it. Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often idle connections are swept for
	// lifecycle limits and pinged. Zero disables the sweep.
	HealthCheckInterval time.Duration

	// Dialer creates the TCP connection for each new pool member. If nil,
	// a zero-value net.Dialer is used.
	Dialer *net.Dialer

	// Pool selects the pool implementation. If nil, NewChannelPool.
	Pool PoolFactory

	// NewCircuitBreaker builds a circuit breaker for this client's single
	// server, called once at construction. If nil, no circuit breaker
	// wraps requests.
	NewCircuitBreaker func() *gobreaker.CircuitBreaker[any]

	// RetryAttempts bounds how many times a non-resumable failure is
	// retried before the last error is surfaced.
	RetryAttempts int

	// RetryInterval is slept between retry attempts.
	RetryInterval time.Duration

	// ConnectionOptions configures buffer sizes and I/O timeouts for every
	// Connection this client's pool creates.
	ConnectionOptions ConnectionOptions

	// constructor overrides Dialer when non-nil. Used by tests to splice
	// in a mock net.Conn without a real listener.
	constructor ConnConstructor
}

func (c Config) withDefaults() Config {
	if c.MaxSize == 0 {
		c.MaxSize = 2
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 2
	}
	if c.Pool == nil {
		c.Pool = NewChannelPool
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.ConnectionOptions == (ConnectionOptions{}) {
		c.ConnectionOptions = DefaultConnectionOptions()
	}
	return c
}

// Client is a single-server RESP2 client: one connection pool, bounded
// retry, and an optional circuit breaker.
type Client struct {
	addr   string
	pool   Pool
	config Config

	breaker *gobreaker.CircuitBreaker[any]

	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once

	stats clientStatsCollector
}

var _ Querier = (*Client)(nil)

// NewClient creates a Client for the given "host:port" address. The pool
// is not populated eagerly; the first command dials the first connection.
func NewClient(addr string, config Config) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis: no server address provided")
	}
	if _, _, err := addrpkg.Parse(addr); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	constructor := config.constructor
	if constructor == nil {
		constructor = func(ctx context.Context) (*Connection, error) {
			netConn, err := config.Dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, err
			}
			return NewConnection(netConn, config.ConnectionOptions), nil
		}
	}

	pool, err := config.Pool(constructor, config.MaxSize)
	if err != nil {
		return nil, err
	}

	c := &Client{
		addr:            addr,
		pool:            pool,
		config:          config,
		stopHealthCheck: make(chan struct{}),
	}
	if config.NewCircuitBreaker != nil {
		c.breaker = config.NewCircuitBreaker()
	}

	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	}

	return c, nil
}

// Close stops the health-check loop and closes the pool.
func (c *Client) Close() {
	c.healthCheckOnce.Do(func() { close(c.stopHealthCheck) })
	c.pool.Close()
}

// Stats returns a snapshot of aggregated client operation counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// PoolStats returns the pool's current statistics.
func (c *Client) PoolStats() PoolStats {
	return c.pool.Stats()
}

// CircuitBreakerState reports the circuit breaker's current state, or the
// zero state if no breaker is configured.
func (c *Client) CircuitBreakerState() gobreaker.State {
	if c.breaker == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}

// withConnection implements the retry loop exactly as the memcache Client
// does (resumable error surfaces immediately with the connection released
// healthy; non-resumable error destroys the connection and retries up to
// config.RetryAttempts), generalized over the heterogeneous result types
// RESP2's public codec operations return (string, int64, []byte, nothing)
// via a type parameter, since redis has no single envelope type the way
// meta.Response is for memcache.
func withConnection[T any](ctx context.Context, c *Client, fn func(*Connection) (T, error)) (T, error) {
	var zero T

	direct := func() (any, error) {
		resource, err := c.pool.Acquire(ctx)
		if err != nil {
			return zero, err
		}

		value, err := fn(resource.Value())
		if err != nil {
			if resp.IsResumable(err) {
				resource.Release()
			} else {
				resource.Destroy()
			}
			return value, err
		}

		resource.Release()
		return value, nil
	}

	call := direct
	if c.breaker != nil {
		call = func() (any, error) { return c.breaker.Execute(direct) }
	}

	for attempt := 0; ; attempt++ {
		v, err := call()
		typed, _ := v.(T)

		if err == nil {
			return typed, nil
		}
		if resp.IsResumable(err) {
			return typed, err
		}
		if attempt < c.config.RetryAttempts {
			time.Sleep(c.config.RetryInterval)
			continue
		}
		return typed, err
	}
}

func validateKeyCount(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("redis: at least one key required")
	}
	if len(keys) > resp.MaxKeys {
		return &resp.TooManyKeysError{Count: len(keys)}
	}
	return nil
}

// Get retrieves the value of key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		value []byte
		found bool
	}
	r, err := withConnection(ctx, c, func(conn *Connection) (result, error) {
		buf := make([]byte, defaultBulkBufferSize)
		value, found, err := conn.ExecBulkString(buf, "GET", key)
		if !found || err != nil {
			return result{found: found}, err
		}
		return result{value: append([]byte(nil), value...), found: true}, nil
	})
	if err != nil {
		c.stats.recordError()
		return nil, false, err
	}
	c.stats.recordGet(r.found)
	return r.value, r.found, nil
}

// Set stores key unconditionally, or conditionally per opts. NX wins over
// XX when both are set. opts.GET asks Redis to return the prior value,
// whose presence or absence is swallowed, not surfaced — callers who need
// to distinguish "not set" from "set" under NX/XX must re-GET.
func (c *Client) Set(ctx context.Context, key, value string, opts SetOptions) error {
	args := []string{"SET", key, value}
	if opts.EX > 0 {
		args = append(args, "EX", resp.FormatInt(int64(opts.EX)))
	}
	switch {
	case opts.NX:
		args = append(args, "NX")
	case opts.XX:
		args = append(args, "XX")
	}
	if opts.GET {
		args = append(args, "GET")
	}

	_, err := withConnection(ctx, c, func(conn *Connection) (struct{}, error) {
		return struct{}{}, conn.ExecOKOrNil(args...)
	})
	if err != nil {
		c.stats.recordError()
		return err
	}
	c.stats.recordSet()
	return nil
}

// Del deletes up to resp.MaxKeys keys, returning the count actually
// removed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := validateKeyCount(keys); err != nil {
		return 0, err
	}
	n, err := withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger(append([]string{"DEL"}, keys...)...)
	})
	if err != nil {
		c.stats.recordError()
		return 0, err
	}
	c.stats.recordDelete()
	return n, nil
}

// Incr increments key by 1.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.incrBy(ctx, "INCR", key, 0, false)
}

// IncrBy increments key by delta.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return c.incrBy(ctx, "INCRBY", key, delta, true)
}

// Decr decrements key by 1.
func (c *Client) Decr(ctx context.Context, key string) (int64, error) {
	return c.incrBy(ctx, "DECR", key, 0, false)
}

// DecrBy decrements key by delta.
func (c *Client) DecrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return c.incrBy(ctx, "DECRBY", key, delta, true)
}

func (c *Client) incrBy(ctx context.Context, cmd, key string, delta int64, withDelta bool) (int64, error) {
	args := []string{cmd, key}
	if withDelta {
		args = append(args, resp.FormatInt(delta))
	}
	n, err := withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger(args...)
	})
	if err != nil {
		c.stats.recordError()
		return 0, err
	}
	c.stats.recordIncrement()
	return n, nil
}

// Expire sets key's TTL to seconds, returning whether the key existed.
func (c *Client) Expire(ctx context.Context, key string, seconds int64) (bool, error) {
	n, err := withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger("EXPIRE", key, resp.FormatInt(seconds))
	})
	if err != nil {
		c.stats.recordError()
		return false, err
	}
	return n == 1, nil
}

// TTL returns key's remaining seconds to live, -1 if it has none, or -2 if
// the key does not exist.
func (c *Client) TTL(ctx context.Context, key string) (int64, error) {
	return withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger("TTL", key)
	})
}

// Exists counts how many of keys are present.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	if err := validateKeyCount(keys); err != nil {
		return 0, err
	}
	return withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger(append([]string{"EXISTS"}, keys...)...)
	})
}

// Ping checks liveness. With no message it expects a simple-string PONG;
// with one, Redis echoes it back as a bulk string.
func (c *Client) Ping(ctx context.Context, message string) (string, error) {
	if message == "" {
		return withConnection(ctx, c, func(conn *Connection) (string, error) {
			return conn.ExecSimpleString("PING")
		})
	}
	return withConnection(ctx, c, func(conn *Connection) (string, error) {
		buf := make([]byte, 4096)
		value, _, err := conn.ExecBulkString(buf, "PING", message)
		return string(value), err
	})
}

// FlushDB removes every key in the current database.
func (c *Client) FlushDB(ctx context.Context) error {
	_, err := withConnection(ctx, c, func(conn *Connection) (string, error) {
		return conn.ExecSimpleString("FLUSHDB")
	})
	return err
}

// DBSize returns the number of keys in the current database.
func (c *Client) DBSize(ctx context.Context) (int64, error) {
	return withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger("DBSIZE")
	})
}

// Append appends value to the string stored at key (creating it if
// missing) and returns the resulting length.
func (c *Client) Append(ctx context.Context, key, value string) (int64, error) {
	return withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger("APPEND", key, value)
	})
}

// StrLen returns the length of the string stored at key, or 0 if it does
// not exist.
func (c *Client) StrLen(ctx context.Context, key string) (int64, error) {
	return withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger("STRLEN", key)
	})
}

// GetSet atomically sets key to value and returns its previous value.
func (c *Client) GetSet(ctx context.Context, key, value string) ([]byte, bool, error) {
	type result struct {
		value []byte
		found bool
	}
	r, err := withConnection(ctx, c, func(conn *Connection) (result, error) {
		buf := make([]byte, defaultBulkBufferSize)
		old, found, err := conn.ExecBulkString(buf, "GETSET", key, value)
		if !found || err != nil {
			return result{found: found}, err
		}
		return result{value: append([]byte(nil), old...), found: true}, nil
	})
	return r.value, r.found, err
}

// SetNX sets key to value only if it does not already exist, returning
// whether it was set.
func (c *Client) SetNX(ctx context.Context, key, value string) (bool, error) {
	n, err := withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger("SETNX", key, value)
	})
	return n == 1, err
}

// MGet fetches several keys in one round trip, bounded at resp.MaxKeys.
// Missing keys come back with found=false at their index.
func (c *Client) MGet(ctx context.Context, keys ...string) ([][]byte, []bool, error) {
	if err := validateKeyCount(keys); err != nil {
		return nil, nil, err
	}

	type result struct {
		values [][]byte
		found  []bool
	}
	r, err := withConnection(ctx, c, func(conn *Connection) (result, error) {
		if err := conn.WriteCommand(append([]string{"MGET"}, keys...)...); err != nil {
			return result{}, err
		}
		if err := conn.Flush(); err != nil {
			return result{}, err
		}

		n, err := conn.ReadArrayHeader()
		if err != nil {
			return result{}, err
		}

		values := make([][]byte, n)
		found := make([]bool, n)
		buf := make([]byte, defaultBulkBufferSize)
		for i := int64(0); i < n; i++ {
			v, ok, err := conn.ReadBulkString(buf)
			if err != nil {
				return result{values: values, found: found}, err
			}
			if ok {
				values[i] = append([]byte(nil), v...)
				found[i] = true
			}
		}
		return result{values: values, found: found}, nil
	})
	if err != nil {
		c.stats.recordError()
		return nil, nil, err
	}
	return r.values, r.found, nil
}

// Persist removes key's TTL, returning whether it had one to remove.
func (c *Client) Persist(ctx context.Context, key string) (bool, error) {
	n, err := withConnection(ctx, c, func(conn *Connection) (int64, error) {
		return conn.ExecInteger("PERSIST", key)
	})
	return n == 1, err
}

// Rename moves the value at src to dst, overwriting dst. It fails with a
// RedisError if src does not exist.
func (c *Client) Rename(ctx context.Context, src, dst string) error {
	_, err := withConnection(ctx, c, func(conn *Connection) (string, error) {
		return conn.ExecSimpleString("RENAME", src, dst)
	})
	return err
}

// Type returns the Redis type name stored at key ("string", "none", ...).
func (c *Client) Type(ctx context.Context, key string) (string, error) {
	return withConnection(ctx, c, func(conn *Connection) (string, error) {
		return conn.ExecSimpleString("TYPE", key)
	})
}

func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkConnections()
		}
	}
}

func (c *Client) checkConnections() {
	now := time.Now()

	for _, res := range c.pool.AcquireAllIdle() {
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			res.Destroy()
			continue
		}
		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			res.Destroy()
			continue
		}

		if _, err := res.Value().ExecSimpleString("PING"); err != nil {
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}
