// Package storage provides durable client-local key/value storage for the
// overlay. It is the Go-side stand-in for browser localStorage: small JSON
// payloads under fixed keys.
package storage

// Store is a synchronous key/value store. All calls happen on the overlay's
// update loop; implementations need not be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, and whether the key exists.
	Get(key string) ([]byte, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error
	Close() error
}
