package cache

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

const oosKey = "oos:products"

// OutOfStockIndex is the derived secondary index of products with OnHand ≤ 0.
// The optimistic applier updates membership as part of every local write.
type OutOfStockIndex interface {
	Add(ctx context.Context, productID int64) error
	Remove(ctx context.Context, productID int64) error
	List(ctx context.Context) ([]int64, error)
}

// RedisOutOfStockIndex keeps membership in a redis set so it survives
// restarts and is visible to the reporting side.
type RedisOutOfStockIndex struct{ rdb *redis.Client }

func NewRedisOutOfStockIndex(rdb *redis.Client) *RedisOutOfStockIndex {
	return &RedisOutOfStockIndex{rdb: rdb}
}

func (i *RedisOutOfStockIndex) Add(ctx context.Context, productID int64) error {
	return i.rdb.SAdd(ctx, oosKey, productID).Err()
}

func (i *RedisOutOfStockIndex) Remove(ctx context.Context, productID int64) error {
	return i.rdb.SRem(ctx, oosKey, productID).Err()
}

func (i *RedisOutOfStockIndex) List(ctx context.Context) ([]int64, error) {
	members, err := i.rdb.SMembers(ctx, oosKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids, nil
}

// MemoryOutOfStockIndex is the in-process fallback used in tests and when the
// terminal runs without redis.
type MemoryOutOfStockIndex struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewMemoryOutOfStockIndex() *MemoryOutOfStockIndex {
	return &MemoryOutOfStockIndex{ids: make(map[int64]struct{})}
}

func (i *MemoryOutOfStockIndex) Add(_ context.Context, productID int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids[productID] = struct{}{}
	return nil
}

func (i *MemoryOutOfStockIndex) Remove(_ context.Context, productID int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.ids, productID)
	return nil
}

func (i *MemoryOutOfStockIndex) List(_ context.Context) ([]int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ids := make([]int64, 0, len(i.ids))
	for id := range i.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids, nil
}
