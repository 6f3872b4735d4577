package metadata

import (
	"context"
)

// Repository is a small key/value table holding the cached login session.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
