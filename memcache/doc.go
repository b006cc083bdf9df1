// Package memcache implements a client for the memcached meta protocol
// (mg/ms/md/ma), distributing keys across one or more servers via a
// pluggable Hasher.
//
// A Client owns one connection pool per server, acquiring a connection,
// issuing a request, and releasing or destroying the connection based on
// whether the resulting error (if any) leaves the protocol framing
// intact. Non-resumable failures are retried, bounded by
// Config.RetryAttempts, against the same server — the core assumption is
// per-server isolation of failures, not fail-over.
//
//	client, err := memcache.NewClient([]string{"127.0.0.1:11211"}, memcache.Config{
//		MaxSize: 10,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Set(ctx, memcache.Item{Key: "k", Value: []byte("v")}); err != nil {
//		log.Fatal(err)
//	}
//	item, err := client.Get(ctx, "k")
package memcache
