package duel

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
)

// cachedRating wraps a record with version metadata so a format change invalidates old entries
type cachedRating struct {
	Version string
	Record  domain.RatingRecord
}

// ratingCache is a write-through LRU of ladder records. Finalization is the only writer.
type ratingCache struct {
	lru *expirable.LRU[string, cachedRating]
}

func newRatingCache(size int, ttl time.Duration) *ratingCache {
	return &ratingCache{lru: expirable.NewLRU[string, cachedRating](size, nil, ttl)}
}

func (c *ratingCache) Get(userID string) (domain.RatingRecord, bool) {
	entry, ok := c.lru.Get(userID)
	if !ok {
		return domain.RatingRecord{}, false
	}
	if entry.Version != recordCacheSchemaVersion {
		c.lru.Remove(userID)
		return domain.RatingRecord{}, false
	}
	return entry.Record.Clone(), true
}

func (c *ratingCache) Set(rec domain.RatingRecord) {
	c.lru.Add(rec.UserID, cachedRating{Version: recordCacheSchemaVersion, Record: rec.Clone()})
}

func (c *ratingCache) Invalidate(userID string) {
	c.lru.Remove(userID)
}
