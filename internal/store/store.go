// Package store provides the durable key-value capability the sync
// engine persists its per-conversation watermarks in. The interface is
// deliberately tiny so tests can inject an in-memory implementation.
package store

// KV is the injected persistence capability. Get reports whether the
// key existed; a missing key is not an error.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}
