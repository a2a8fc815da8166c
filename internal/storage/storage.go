package storage

import "regexp"

// Store is a minimal per-key blob store. Values are JSON documents owned by
// the caller; the store only guarantees that Update runs the read-modify-write
// cycle for a key under mutual exclusion.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) ([]byte, bool, error)
	// Put replaces the value for a key.
	Put(key string, value []byte) error
	// Update applies fn to the current value (nil when absent) and stores the
	// result. The whole cycle holds the key's lock.
	Update(key string, fn func(current []byte) ([]byte, error)) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error
	Close() error
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeKey strips every character outside [a-zA-Z0-9_-] from a raw chat id.
// Distinct raw ids can collide after sanitizing (e.g. "-100123" and "100123");
// this matches the historical on-disk naming and is kept for compatibility.
func SanitizeKey(raw string) string {
	return keySanitizer.ReplaceAllString(raw, "")
}
