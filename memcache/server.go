package memcache

import "github.com/cachewire/cachewire/internal/hash"

// server is one memcache endpoint: its address, its connection pool, and a
// hash id precomputed once at construction so rendezvous hashing never
// rehashes the address on every lookup.
type server struct {
	addr   string
	pool   Pool
	hashID uint64
}

func newServer(addr string, pool Pool) *server {
	return &server{
		addr:   addr,
		pool:   pool,
		hashID: hash.String(addr),
	}
}

// Addr returns the "host:port" address this server was constructed with.
func (s *server) Addr() string { return s.addr }
