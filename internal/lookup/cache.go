package lookup

import (
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
)

// Cache memoises parsed lookup tables for the duration of a project run.
// Several jobs of one project usually share a coordinate table.
type Cache struct {
	fs    afero.Fs
	store *cache.Cache
}

// NewCache returns a cache reading from fs. Entries never expire and no
// janitor goroutine is started.
func NewCache(fs afero.Fs) *Cache {
	return &Cache{
		fs:    fs,
		store: cache.New(cache.NoExpiration, 0),
	}
}

// MethodTable returns the parsed method table at path.
func (c *Cache) MethodTable(path string) (*MethodTable, error) {
	key := "method:" + path
	if v, ok := c.store.Get(key); ok {
		if mt, ok := v.(*MethodTable); ok {
			return mt, nil
		}
	}

	mt, err := LoadMethodTable(c.fs, path)
	if err != nil {
		return nil, err
	}
	c.store.Set(key, mt, cache.NoExpiration)
	return mt, nil
}

// CoordinateTable returns the parsed coordinate table at path.
func (c *Cache) CoordinateTable(path, keyMode string) (*CoordinateTable, error) {
	key := fmt.Sprintf("coord:%s:%s", keyMode, path)
	if v, ok := c.store.Get(key); ok {
		if ct, ok := v.(*CoordinateTable); ok {
			return ct, nil
		}
	}

	ct, err := LoadCoordinateTable(c.fs, path, keyMode)
	if err != nil {
		return nil, err
	}
	c.store.Set(key, ct, cache.NoExpiration)
	return ct, nil
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// Flush drops every cached table.
func (c *Cache) Flush() {
	c.store.Flush()
}
