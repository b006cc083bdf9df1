package memcache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cachewire/cachewire/internal/addr"
	"github.com/cachewire/cachewire/memcache/meta"
	"github.com/sony/gobreaker/v2"
)

// NoTTL represents an infinite TTL (no expiration).
const NoTTL = 0

// Item is a single cached value. Cas is populated by Get when the
// server returns one and may be set before a store to make it
// conditional: the store fails with *ExistsError if the key's current
// CAS token no longer matches. Flags is an opaque uint32 the
// application may use however it likes; memcache never interprets it.
type Item struct {
	Key   string
	Value []byte
	TTL   time.Duration
	Cas   *uint64
	Flags uint32
	Found bool
}

// Querier is the curated command surface a Client implements.
type Querier interface {
	Get(ctx context.Context, key string) (Item, error)
	Set(ctx context.Context, item Item) error
	Add(ctx context.Context, item Item) error
	Replace(ctx context.Context, item Item) error
	Append(ctx context.Context, item Item) error
	Prepend(ctx context.Context, item Item) error
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	Touch(ctx context.Context, key string, ttl time.Duration) error
	FlushAll(ctx context.Context) error
	Version(ctx context.Context) (string, error)
}

// Config holds the settings a Client applies uniformly to every server
// pool it creates.
type Config struct {
	// MaxSize is the maximum number of connections per server pool. If
	// zero, 2.
	MaxSize int32

	// MaxConnLifetime bounds how long a connection may be reused before a
	// health check recycles it. Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime bounds how long a connection may sit idle before a
	// health check recycles it. Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often idle connections are swept for
	// lifecycle limits and pinged with a no-op. Zero disables the sweep.
	HealthCheckInterval time.Duration

	// Dialer creates the TCP connection for each new pool member. If nil,
	// a zero-value net.Dialer is used.
	Dialer *net.Dialer

	// Pool selects the pool implementation. If nil, NewChannelPool.
	Pool PoolFactory

	// Hasher distributes keys across servers. If nil, &NoneHasher{}.
	Hasher Hasher

	// NewCircuitBreaker builds a circuit breaker for one server address,
	// called once per address when its pool is created. If nil, no
	// circuit breaker wraps that server's requests.
	NewCircuitBreaker func(addr string) *gobreaker.CircuitBreaker[*meta.Response]

	// RetryAttempts bounds how many times a non-resumable failure is
	// retried before the last error is surfaced.
	RetryAttempts int

	// RetryInterval is slept between retry attempts.
	RetryInterval time.Duration

	// ConnectionOptions configures buffer sizes and I/O timeouts for
	// every Connection created by this client's pools.
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
	if c.Hasher == nil {
		c.Hasher = &NoneHasher{}
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.ConnectionOptions == (ConnectionOptions{}) {
		c.ConnectionOptions = DefaultConnectionOptions()
	}
	return c
}

// Client is a memcache client distributing keys across one or more
// servers via a pluggable Hasher, with per-server connection pooling,
// bounded retry, and optional per-server circuit breaking.
type Client struct {
	servers []*server
	hasher  Hasher
	config  Config

	breakers map[string]*gobreaker.CircuitBreaker[*meta.Response]

	// keylessCounter round-robins server selection for commands with no
	// key to route on (FlushAll, Version), independent of the
	// configured Hasher — a Hasher other than NoneHasher would otherwise
	// hash the same empty key to the same server every time.
	keylessCounter atomic.Uint64

	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once

	stats clientStatsCollector
}

var _ Querier = (*Client)(nil)

// NewClient creates a Client for the given "host:port" addresses, with one
// pool per address. Every address is validated here, but no connection is
// dialed until a command is routed to its server, so a dead server is
// discovered on first use rather than at construction.
func NewClient(addrs []string, config Config) (*Client, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("memcache: no servers provided")
	}
	config = config.withDefaults()

	c := &Client{
		hasher:          config.Hasher,
		config:          config,
		breakers:        make(map[string]*gobreaker.CircuitBreaker[*meta.Response]),
		stopHealthCheck: make(chan struct{}),
	}

	for _, a := range addrs {
		if _, _, err := addr.Parse(a); err != nil {
			c.Close()
			return nil, err
		}

		a := a
		constructor := config.constructor
		if constructor == nil {
			constructor = func(ctx context.Context) (*Connection, error) {
				netConn, err := config.Dialer.DialContext(ctx, "tcp", a)
				if err != nil {
					return nil, err
				}
				return NewConnection(netConn, config.ConnectionOptions), nil
			}
		}

		pool, err := config.Pool(constructor, config.MaxSize)
		if err != nil {
			c.Close()
			return nil, err
		}

		c.servers = append(c.servers, newServer(a, pool))
		if config.NewCircuitBreaker != nil {
			c.breakers[a] = config.NewCircuitBreaker(a)
		}
	}

	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	}

	return c, nil
}

// Close stops the health-check loop and closes every server's pool.
func (c *Client) Close() {
	c.healthCheckOnce.Do(func() { close(c.stopHealthCheck) })
	for _, srv := range c.servers {
		srv.pool.Close()
	}
}

// pickServer selects the server that owns key. For a single server it
// always returns that server without consulting the Hasher.
func (c *Client) pickServer(key string) *server {
	if len(c.servers) == 1 {
		return c.servers[0]
	}
	return c.servers[c.hasher.Pick(c.servers, key)]
}

// pickServerRoundRobin selects a server for a keyless command, cycling
// through every configured server in turn the same way NoneHasher does
// for keyed lookups.
func (c *Client) pickServerRoundRobin() *server {
	if len(c.servers) == 1 {
		return c.servers[0]
	}
	n := uint64(len(c.servers))
	return c.servers[c.keylessCounter.Add(1)%n]
}

// withConnection implements the retry loop: a resumable error (no error,
// or a ServerError-class protocol error) is surfaced immediately with the
// connection released healthy; a non-resumable error (I/O failure, or a
// ClientError/GenericError/ParseError-class protocol error) destroys the
// connection and retries up to config.RetryAttempts times.
func (c *Client) withConnection(ctx context.Context, srv *server, fn func(*Connection) (*meta.Response, error)) (*meta.Response, error) {
	breaker := c.breakers[srv.addr]

	direct := func() (*meta.Response, error) {
		resource, err := srv.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := fn(resource.Value())
		if err != nil {
			resource.Destroy()
			return nil, err
		}

		if resp.HasError() && meta.ShouldCloseConnection(resp.Error) {
			resource.Destroy()
			return resp, errNonResumable{resp.Error}
		}

		resource.Release()
		return resp, nil
	}

	call := direct
	if breaker != nil {
		call = func() (*meta.Response, error) {
			return breaker.Execute(direct)
		}
	}

	for attempt := 0; ; attempt++ {
		resp, err := call()
		if err == nil {
			return resp, nil
		}

		if nr, ok := err.(errNonResumable); ok {
			if attempt < c.config.RetryAttempts {
				time.Sleep(c.config.RetryInterval)
				continue
			}
			return resp, nr.err
		}

		// Acquire failure or non-resumable I/O error from fn itself.
		if attempt < c.config.RetryAttempts {
			time.Sleep(c.config.RetryInterval)
			continue
		}
		return nil, err
	}
}

// errNonResumable marks a protocol-level error that destroyed the
// connection, carrying the original error to surface after retries are
// exhausted, while still letting withConnection distinguish it from an
// acquire/I/O failure (which never has a partial Response to return).
type errNonResumable struct{ err error }

func (e errNonResumable) Error() string { return e.err.Error() }

// withConnectionLine is withConnection's counterpart for bare-verb
// commands (flush_all, version) whose reply is a plain string rather
// than a *meta.Response: same acquire/classify/retry shape, minus the
// circuit breaker, since these are infrequent admin operations rather
// than the per-key traffic the breaker exists to protect.
func (c *Client) withConnectionLine(ctx context.Context, srv *server, fn func(*Connection) (string, error)) (string, error) {
	for attempt := 0; ; attempt++ {
		resource, err := srv.pool.Acquire(ctx)
		if err != nil {
			if attempt < c.config.RetryAttempts {
				time.Sleep(c.config.RetryInterval)
				continue
			}
			return "", err
		}

		line, err := fn(resource.Value())
		if err == nil {
			resource.Release()
			return line, nil
		}

		if !meta.ShouldCloseConnection(err) {
			resource.Release()
			return "", err
		}

		resource.Destroy()
		if attempt < c.config.RetryAttempts {
			time.Sleep(c.config.RetryInterval)
			continue
		}
		return "", err
	}
}

// Get retrieves a single item, along with its CAS token and client
// flags if the server returns them.
func (c *Client) Get(ctx context.Context, key string) (Item, error) {
	srv := c.pickServer(key)
	resp, err := c.withConnection(ctx, srv, func(conn *Connection) (*meta.Response, error) {
		return conn.Send(meta.NewRequest(meta.CmdGet, key, nil,
			meta.Flag{Type: meta.FlagReturnValue},
			meta.Flag{Type: meta.FlagReturnCAS},
			meta.Flag{Type: meta.FlagReturnClientFlags},
		))
	})
	if err != nil {
		c.stats.recordError()
		return Item{}, err
	}

	if resp.IsMiss() {
		c.stats.recordGet(false)
		return Item{Key: key, Found: false}, nil
	}
	if resp.HasError() {
		c.stats.recordError()
		return Item{}, resp.Error
	}
	if !resp.IsSuccess() {
		c.stats.recordError()
		return Item{}, fmt.Errorf("memcache: unexpected get status %s", resp.Status)
	}

	item := Item{Key: key, Value: resp.Data, Found: true}
	if tok := resp.GetFlagToken(meta.FlagReturnCAS); tok != "" {
		if cas, err := strconv.ParseUint(tok, 10, 64); err == nil {
			item.Cas = &cas
		}
	}
	if tok := resp.GetFlagToken(meta.FlagReturnClientFlags); tok != "" {
		if flags, err := strconv.ParseUint(tok, 10, 32); err == nil {
			item.Flags = uint32(flags)
		}
	}

	c.stats.recordGet(true)
	return item, nil
}

// store issues an ms request in the given mode, the shared path behind
// Set/Add/Replace/Append/Prepend. item.Cas, when set, makes the store
// conditional: it fails with *ExistsError if the key's stored CAS no
// longer matches.
func (c *Client) store(ctx context.Context, mode string, item Item) error {
	srv := c.pickServer(item.Key)

	var flags []meta.Flag
	if mode != meta.ModeSet {
		flags = append(flags, meta.Flag{Type: meta.FlagMode, Token: mode})
	}
	if item.TTL > 0 {
		flags = append(flags, meta.FormatFlagInt(meta.FlagTTL, int(item.TTL.Seconds())))
	}
	if item.Flags != 0 {
		flags = append(flags, meta.FormatFlagInt(meta.FlagClientFlags, int(item.Flags)))
	}
	if item.Cas != nil {
		flags = append(flags, meta.FormatFlagUint64(meta.FlagCAS, *item.Cas))
	}

	resp, err := c.withConnection(ctx, srv, func(conn *Connection) (*meta.Response, error) {
		return conn.Send(meta.NewRequest(meta.CmdSet, item.Key, item.Value, flags...))
	})
	if err != nil {
		c.stats.recordError()
		return err
	}
	if resp.HasError() {
		c.stats.recordError()
		return resp.Error
	}
	if resp.IsCASMismatch() {
		c.stats.recordError()
		return &ExistsError{Key: item.Key}
	}
	if resp.IsNotStored() {
		c.stats.recordError()
		return &NotStoredError{Key: item.Key}
	}
	if !resp.IsSuccess() {
		c.stats.recordError()
		return fmt.Errorf("memcache: store failed with status %s", resp.Status)
	}

	return nil
}

// Set stores an item unconditionally, or conditionally on its CAS token
// if item.Cas is set.
func (c *Client) Set(ctx context.Context, item Item) error {
	if err := c.store(ctx, meta.ModeSet, item); err != nil {
		return err
	}
	c.stats.recordSet()
	return nil
}

// Add stores an item only if the key does not already exist, returning
// *NotStoredError otherwise.
func (c *Client) Add(ctx context.Context, item Item) error {
	if err := c.store(ctx, meta.ModeAdd, item); err != nil {
		return err
	}
	c.stats.recordAdd()
	return nil
}

// Replace stores an item only if the key already exists, returning
// *NotStoredError otherwise.
func (c *Client) Replace(ctx context.Context, item Item) error {
	if err := c.store(ctx, meta.ModeReplace, item); err != nil {
		return err
	}
	c.stats.recordReplace()
	return nil
}

// Append adds item.Value to the end of the existing value, returning
// *NotStoredError if the key is missing.
func (c *Client) Append(ctx context.Context, item Item) error {
	if err := c.store(ctx, meta.ModeAppend, item); err != nil {
		return err
	}
	c.stats.recordAppend()
	return nil
}

// Prepend adds item.Value to the start of the existing value, returning
// *NotStoredError if the key is missing.
func (c *Client) Prepend(ctx context.Context, item Item) error {
	if err := c.store(ctx, meta.ModePrepend, item); err != nil {
		return err
	}
	c.stats.recordPrepend()
	return nil
}

// Delete removes an item. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	srv := c.pickServer(key)
	resp, err := c.withConnection(ctx, srv, func(conn *Connection) (*meta.Response, error) {
		return conn.Send(meta.NewRequest(meta.CmdDelete, key, nil))
	})
	if err != nil {
		c.stats.recordError()
		return err
	}
	if resp.HasError() {
		c.stats.recordError()
		return resp.Error
	}
	if resp.Status != meta.StatusHD && resp.Status != meta.StatusNF {
		c.stats.recordError()
		return fmt.Errorf("memcache: delete failed with status %s", resp.Status)
	}

	c.stats.recordDelete()
	return nil
}

// Touch updates a key's TTL without altering its value, expressed as the
// meta protocol intends: a get request with no return flags and only the
// T flag set.
func (c *Client) Touch(ctx context.Context, key string, ttl time.Duration) error {
	srv := c.pickServer(key)
	resp, err := c.withConnection(ctx, srv, func(conn *Connection) (*meta.Response, error) {
		return conn.Send(meta.NewRequest(meta.CmdGet, key, nil, meta.FormatFlagInt(meta.FlagTTL, int(ttl.Seconds()))))
	})
	if err != nil {
		c.stats.recordError()
		return err
	}
	if resp.HasError() {
		c.stats.recordError()
		return resp.Error
	}
	if resp.IsMiss() {
		c.stats.recordError()
		return &NotFoundError{Key: key}
	}
	if !resp.IsSuccess() {
		c.stats.recordError()
		return fmt.Errorf("memcache: touch failed with status %s", resp.Status)
	}
	return nil
}

// Increment adds delta to a counter key, auto-vivifying it with an
// initial value equal to the delta (so the returned value is correct
// even on the first call) if it does not already exist. A negative delta
// decrements by its absolute value. ttl of zero means no expiration.
func (c *Client) Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	srv := c.pickServer(key)

	ttlSeconds := int64(0)
	if ttl > 0 {
		ttlSeconds = int64(ttl.Seconds())
	}

	var flags []meta.Flag
	if delta >= 0 {
		flags = []meta.Flag{
			{Type: meta.FlagReturnValue},
			{Type: meta.FlagDelta, Token: strconv.FormatInt(delta, 10)},
			{Type: meta.FlagInitialValue, Token: strconv.FormatInt(delta, 10)},
			{Type: meta.FlagVivify, Token: strconv.FormatInt(ttlSeconds, 10)},
		}
	} else {
		flags = []meta.Flag{
			{Type: meta.FlagReturnValue},
			{Type: meta.FlagDelta, Token: strconv.FormatInt(-delta, 10)},
			{Type: meta.FlagMode, Token: meta.ModeDecrement},
			{Type: meta.FlagInitialValue, Token: "0"},
			{Type: meta.FlagVivify, Token: strconv.FormatInt(ttlSeconds, 10)},
		}
	}
	if ttl > 0 {
		flags = append(flags, meta.FormatFlagInt(meta.FlagTTL, int(ttlSeconds)))
	}

	resp, err := c.withConnection(ctx, srv, func(conn *Connection) (*meta.Response, error) {
		return conn.Send(meta.NewRequest(meta.CmdArithmetic, key, nil, flags...))
	})
	if err != nil {
		c.stats.recordError()
		return 0, err
	}
	if resp.HasError() {
		c.stats.recordError()
		return 0, resp.Error
	}
	if !resp.IsSuccess() || !resp.HasValue() {
		c.stats.recordError()
		return 0, fmt.Errorf("memcache: increment failed with status %s", resp.Status)
	}

	value, err := strconv.ParseInt(string(resp.Data), 10, 64)
	if err != nil {
		c.stats.recordError()
		return 0, fmt.Errorf("memcache: parsing increment result: %w", err)
	}

	c.stats.recordIncrement()
	return value, nil
}

// Debug fetches the meta-protocol debug line (`me`) for key, used for
// diagnostics (last-access time, fetch count, …) rather than normal
// application reads.
func (c *Client) Debug(ctx context.Context, key string) (map[string]string, error) {
	srv := c.pickServer(key)
	resp, err := c.withConnection(ctx, srv, func(conn *Connection) (*meta.Response, error) {
		return conn.Send(meta.NewRequest(meta.CmdDebug, key, nil))
	})
	if err != nil {
		return nil, err
	}
	if resp.HasError() {
		return nil, resp.Error
	}
	return meta.ParseDebugParams(resp.Data), nil
}

// FlushAll invalidates every item on one server. flush_all carries no
// key, so the target server is chosen by round robin rather than the
// Hasher.
func (c *Client) FlushAll(ctx context.Context) error {
	srv := c.pickServerRoundRobin()
	line, err := c.withConnectionLine(ctx, srv, func(conn *Connection) (string, error) {
		return conn.SendLine(meta.NewRequest(meta.CmdFlushAll, "", nil))
	})
	if err != nil {
		c.stats.recordError()
		return err
	}
	if line != string(meta.StatusOK) {
		c.stats.recordError()
		return fmt.Errorf("memcache: flush_all failed with reply %q", line)
	}

	c.stats.recordFlushAll()
	return nil
}

// Version reports a server's version string, from a server chosen by
// round robin.
func (c *Client) Version(ctx context.Context) (string, error) {
	srv := c.pickServerRoundRobin()
	line, err := c.withConnectionLine(ctx, srv, func(conn *Connection) (string, error) {
		return conn.SendLine(meta.NewRequest(meta.CmdVersion, "", nil))
	})
	if err != nil {
		c.stats.recordError()
		return "", err
	}

	version, ok := strings.CutPrefix(line, "VERSION ")
	if !ok {
		c.stats.recordError()
		return "", fmt.Errorf("memcache: unexpected version reply %q", line)
	}

	c.stats.recordVersion()
	return version, nil
}

// Stats returns a snapshot of aggregated client operation counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// ServerStats pairs one server's address with its pool and circuit
// breaker state.
type ServerStats struct {
	Addr                string
	PoolStats           PoolStats
	CircuitBreakerState gobreaker.State
}

// AllServerStats returns a stats snapshot for every configured server.
func (c *Client) AllServerStats() []ServerStats {
	out := make([]ServerStats, 0, len(c.servers))
	for _, srv := range c.servers {
		s := ServerStats{Addr: srv.addr, PoolStats: srv.pool.Stats()}
		if b, ok := c.breakers[srv.addr]; ok {
			s.CircuitBreakerState = b.State()
		}
		out = append(out, s)
	}
	return out
}

func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkAllServers()
		}
	}
}

func (c *Client) checkAllServers() {
	for _, srv := range c.servers {
		c.checkServerConnections(srv)
	}
}

func (c *Client) checkServerConnections(srv *server) {
	now := time.Now()

	for _, res := range srv.pool.AcquireAllIdle() {
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			res.Destroy()
			continue
		}
		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			res.Destroy()
			continue
		}

		resp, err := res.Value().Send(meta.NewRequest(meta.CmdNoOp, "", nil))
		if err != nil || resp.Status != meta.StatusMN {
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}
