package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found")

// KV — абстракция над substrate'ом: атомарные операции по одному ключу,
// TTL на запись, листинг по префиксу. Порядок листинга — как отдаёт движок,
// числовую корректность вызывающий не предполагает.
type KV interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string, limit int) ([]string, error)
}
