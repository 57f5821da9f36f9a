package persist

import "context"

// Store is the key-value persistence backend contract. Values are opaque
// serialized snapshots; the engine treats the store as a best-effort
// write-through mirror of its in-memory state.
type Store interface {
	// Load returns the stored value and whether the key existed.
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
