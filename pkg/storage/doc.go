// Package storage holds the configuration for the audit trail's Redis-backed
// persistence layer.
//
// # Overview
//
// The audit trail keeps every event as a JSON value under a single primary
// key and maintains sorted-set indexes scored by event timestamp. This
// package defines the connection and keyspace configuration shared by the
// server and pruner binaries; the client itself lives in the redisstore
// subpackage.
//
// # Usage Example
//
//	cfg := storage.DefaultConfig()
//	cfg.RedisURL = os.Getenv("AUDIT_REDIS_URL")
//
//	store, err := redisstore.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
package storage
