package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is an in memory Storage. Sessions are lost on restart and are not
// shared between replicas.
type Cache struct {
	c *gocache.Cache
}

// NewCache returns an in memory storage that drops expired keys every cleanupInterval.
func NewCache(cleanupInterval time.Duration) *Cache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	return &Cache{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns the value of key or nil.
func (c *Cache) Get(key string) ([]byte, error) {
	v, found := c.c.Get(key)
	if !found {
		return nil, nil
	}

	b, _ := v.([]byte)

	return b, nil
}

// Set stores val under key. An exp of 0 keeps the key until it is deleted.
func (c *Cache) Set(key string, val []byte, exp time.Duration) error {
	if exp <= 0 {
		exp = gocache.NoExpiration
	}

	c.c.Set(key, append([]byte(nil), val...), exp)

	return nil
}

// Delete removes key.
func (c *Cache) Delete(key string) error {
	c.c.Delete(key)
	return nil
}

// Reset removes all keys.
func (c *Cache) Reset() error {
	c.c.Flush()
	return nil
}

// Close is a no-op.
func (c *Cache) Close() error {
	return nil
}
