package state

import "context"

// Store is a small key/value persistence layer. Keys are namespaced with a
// colon-separated prefix so List can enumerate one family of entries.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Close() error
}
