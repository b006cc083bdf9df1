package memcache

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// acceptingListener starts a TCP listener that keeps every accepted
// connection open (but silent) until the listener is closed, enough for
// exercising pool acquire/release without a real memcached.
func acceptingListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go io.Copy(io.Discard, conn) //nolint:errcheck
		}
	}()
	return ln
}

func testConstructor(addr string) ConnConstructor {
	return func(ctx context.Context) (*Connection, error) {
		netConn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return NewConnection(netConn, DefaultConnectionOptions()), nil
	}
}

func testPoolFactories() map[string]PoolFactory {
	return map[string]PoolFactory{
		"channel": NewChannelPool,
		"puddle":  NewPuddlePool,
	}
}

func TestPool_AcquireCreatesUpToMaxSize(t *testing.T) {
	ln := acceptingListener(t)
	addr := ln.Addr().String()

	for name, factory := range testPoolFactories() {
		t.Run(name, func(t *testing.T) {
			pool, err := factory(testConstructor(addr), 2)
			require.NoError(t, err)
			defer pool.Close()

			ctx := context.Background()
			r1, err := pool.Acquire(ctx)
			require.NoError(t, err)
			r2, err := pool.Acquire(ctx)
			require.NoError(t, err)

			require.NotNil(t, r1.Value())
			require.NotNil(t, r2.Value())

			stats := pool.Stats()
			require.EqualValues(t, 2, stats.TotalConns)
			require.EqualValues(t, 2, stats.ActiveConns)

			r1.Release()
			r2.Release()
		})
	}
}

func TestPool_AcquireBlocksUntilRelease(t *testing.T) {
	ln := acceptingListener(t)
	addr := ln.Addr().String()

	for name, factory := range testPoolFactories() {
		t.Run(name, func(t *testing.T) {
			pool, err := factory(testConstructor(addr), 1)
			require.NoError(t, err)
			defer pool.Close()

			ctx := context.Background()
			r1, err := pool.Acquire(ctx)
			require.NoError(t, err)

			done := make(chan struct{})
			go func() {
				r2, err := pool.Acquire(ctx)
				require.NoError(t, err)
				r2.Release()
				close(done)
			}()

			select {
			case <-done:
				t.Fatal("second acquire should have blocked while pool is at capacity")
			case <-time.After(50 * time.Millisecond):
			}

			r1.Release()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("second acquire never completed after release")
			}
		})
	}
}

func TestPool_AcquireRespectsContextCancellation(t *testing.T) {
	ln := acceptingListener(t)
	addr := ln.Addr().String()

	for name, factory := range testPoolFactories() {
		t.Run(name, func(t *testing.T) {
			pool, err := factory(testConstructor(addr), 1)
			require.NoError(t, err)
			defer pool.Close()

			ctx := context.Background()
			r1, err := pool.Acquire(ctx)
			require.NoError(t, err)
			defer r1.Release()

			cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			_, err = pool.Acquire(cancelCtx)
			require.Error(t, err)
		})
	}
}

func TestPool_DestroyDoesNotReturnToIdle(t *testing.T) {
	ln := acceptingListener(t)
	addr := ln.Addr().String()

	for name, factory := range testPoolFactories() {
		t.Run(name, func(t *testing.T) {
			pool, err := factory(testConstructor(addr), 2)
			require.NoError(t, err)
			defer pool.Close()

			ctx := context.Background()
			r, err := pool.Acquire(ctx)
			require.NoError(t, err)
			r.Destroy()

			idle := pool.AcquireAllIdle()
			require.Empty(t, idle)
		})
	}
}
