package application

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// rejoinCache keeps recently issued or verified rejoin tokens in memory so
// the verification gate can admit returning guests without a repository
// round-trip. Entries expire with the cache TTL; token validity is still
// checked against the token's own ExpiresAt on every hit.
type rejoinCache struct {
	lru *expirable.LRU[string, RejoinToken]
}

func newRejoinCache(size int, ttl time.Duration) *rejoinCache {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &rejoinCache{lru: expirable.NewLRU[string, RejoinToken](size, nil, ttl)}
}

func rejoinCacheKey(sessionID, tokenID string) string {
	return sessionID + "|" + tokenID
}

func (c *rejoinCache) Get(sessionID, tokenID string) (RejoinToken, bool) {
	if c == nil || c.lru == nil {
		return RejoinToken{}, false
	}
	return c.lru.Get(rejoinCacheKey(sessionID, tokenID))
}

func (c *rejoinCache) Store(token RejoinToken) {
	if c == nil || c.lru == nil || token.ID == "" {
		return
	}
	c.lru.Add(rejoinCacheKey(token.SessionID, token.ID), token)
}

func (c *rejoinCache) Remove(sessionID, tokenID string) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Remove(rejoinCacheKey(sessionID, tokenID))
}
