// Package redis is a connection-pooled RESP2 client: a curated command
// surface over redis/resp, a single-server connection pool (channel- or
// puddle-backed), bounded retry with optional circuit breaking, and a
// Pipeline for batching commands behind one flush.
//
// A minimal client:
//
//	client, err := redis.NewClient("127.0.0.1:6379", redis.Config{MaxSize: 8})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Set(ctx, "key", "value", redis.SetOptions{EX: 60}); err != nil {
//		log.Fatal(err)
//	}
//	value, found, err := client.Get(ctx, "key")
package redis
