package memcache

import (
	"sync/atomic"

	"github.com/cachewire/cachewire/internal/hash"
)

// Hasher picks which server index should own a key. Implementations are
// stateless with respect to the key itself; none keeps its own
// round-robin cursor.
type Hasher interface {
	Pick(servers []*server, key string) int
}

// NoneHasher round-robins across servers, ignoring the key entirely.
// Grounded on the teacher's DefaultServerSelector's single-server
// fallback, generalized into its own named strategy since spec names it
// as a distinct enum value rather than a degenerate case of the others.
type NoneHasher struct {
	counter atomic.Uint64
}

func (h *NoneHasher) Pick(servers []*server, key string) int {
	n := uint64(len(servers))
	return int(h.counter.Add(1) % n)
}

// ModuloHasher hashes the key once and reduces mod the server count. Key
// distribution reshuffles completely whenever the server count changes.
type ModuloHasher struct{}

func (ModuloHasher) Pick(servers []*server, key string) int {
	return int(hash.String(key) % uint64(len(servers)))
}

// RendezvousHasher scores each server independently by hashing the key
// under that server's precomputed id and picks the highest score, with
// ties broken by lowest index. Adding or removing one server only
// reshuffles the keys that were assigned to that server, unlike modulo
// hashing — the standard highest-random-weight construction.
type RendezvousHasher struct{}

func (RendezvousHasher) Pick(servers []*server, key string) int {
	best := 0
	bestScore := hash.Seeded(servers[0].hashID, key)
	for i := 1; i < len(servers); i++ {
		score := hash.Seeded(servers[i].hashID, key)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}
