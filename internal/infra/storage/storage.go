// Package storage provides durable local key-value storage.
package storage

// KV is the durable key-value port used by the settings store.
type KV interface {
	// GetItem returns the stored value for key. The second return value
	// reports whether the key was present.
	GetItem(key string) (string, bool, error)
	// SetItem durably stores value under key.
	SetItem(key, value string) error
	// MultiRemove removes all given keys as a single durable operation.
	// Either all keys are removed or none are.
	MultiRemove(keys []string) error
}
