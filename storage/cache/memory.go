package cache

import (
	"sync"

	"github.com/trezcool/silabo/core"
)

// memoryCache is the in-process view store backing the optimistic
// controllers. Values are deep-copied on both write and read so callers
// can never mutate a cached entry in place.
type memoryCache struct {
	mutex sync.RWMutex
	table map[string]interface{}
}

func NewMemoryCache() core.Cache {
	return &memoryCache{table: make(map[string]interface{})}
}

func (c *memoryCache) Read(key string) (interface{}, error) {
	c.mutex.RLock()
	v, ok := c.table[key]
	c.mutex.RUnlock()
	if !ok {
		return nil, core.ErrCacheMiss
	}
	return core.CopyValue(v)
}

func (c *memoryCache) Write(key string, value interface{}) error {
	cp, err := core.CopyValue(value)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	c.table[key] = cp
	c.mutex.Unlock()
	return nil
}

func (c *memoryCache) Invalidate(key string) {
	c.mutex.Lock()
	delete(c.table, key)
	c.mutex.Unlock()
}
