package registry

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultKeyCacheSize bounds the public key directory.
const DefaultKeyCacheSize = 10_000

// Keys remembers the last public key each user announced at registration.
// The relay never interprets the key; it only hands it back on request.
type Keys struct {
	cache *lru.Cache[string, string]
}

func NewKeys(size int) *Keys {
	if size <= 0 {
		size = DefaultKeyCacheSize
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, string](size)
	return &Keys{cache: cache}
}

func (k *Keys) Put(userID, publicKey string) {
	if publicKey == "" {
		return
	}
	k.cache.Add(userID, publicKey)
}

func (k *Keys) Get(userID string) (string, bool) {
	return k.cache.Get(userID)
}

func (k *Keys) Len() int { return k.cache.Len() }
