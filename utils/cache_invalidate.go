package utils

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const (
	EventListCachePrefix = "cache:events:list:"
	EventItemCachePrefix = "cache:events:item:"
)

// EventItemCacheKey keeps the raw event id in the key so a single event can
// be purged without scanning.
func EventItemCacheKey(id string) string { return EventItemCachePrefix + id }

// CacheInvalidator drops cached event responses after writes. A nil
// invalidator or client is a no-op.
type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

func (ci *CacheInvalidator) PurgeEventsList(ctx context.Context) {
	if ci == nil || ci.rdb == nil {
		return
	}
	iter := ci.rdb.Scan(ctx, 0, EventListCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = ci.rdb.Del(ctx, keys...).Err()
	}
}

func (ci *CacheInvalidator) PurgeEventItem(ctx context.Context, id string) {
	if ci == nil || ci.rdb == nil {
		return
	}
	_ = ci.rdb.Del(ctx, EventItemCacheKey(id)).Err()
}

// PurgeEvent drops the event itself and every list that may contain it.
func (ci *CacheInvalidator) PurgeEvent(ctx context.Context, id string) {
	ci.PurgeEventsList(ctx)
	ci.PurgeEventItem(ctx, id)
}
