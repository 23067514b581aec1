package storage

import "errors"

var errCacheClosed = errors.New("storage: cache already written or discarded")

// CacheDB buffers writes on top of a parent database. Reads fall through to the
// parent for keys the cache has not touched. Nothing reaches the parent until
// Write is called; Discard drops the buffered changes.
//
// CacheDB is not safe for concurrent use.
type CacheDB struct {
	parent  Database
	puts    map[string][]byte
	deletes map[string]struct{}
	closed  bool
}

// NewCacheDB wraps parent in a write-buffering overlay.
func NewCacheDB(parent Database) *CacheDB {
	return &CacheDB{
		parent:  parent,
		puts:    make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (c *CacheDB) Put(key []byte, value []byte) error {
	if c.closed {
		return errCacheClosed
	}
	k := string(key)
	delete(c.deletes, k)
	c.puts[k] = append([]byte(nil), value...)
	return nil
}

func (c *CacheDB) Get(key []byte) ([]byte, error) {
	if c.closed {
		return nil, errCacheClosed
	}
	k := string(key)
	if value, ok := c.puts[k]; ok {
		return append([]byte(nil), value...), nil
	}
	if _, ok := c.deletes[k]; ok {
		return nil, ErrNotFound
	}
	return c.parent.Get(key)
}

func (c *CacheDB) Delete(key []byte) error {
	if c.closed {
		return errCacheClosed
	}
	k := string(key)
	delete(c.puts, k)
	c.deletes[k] = struct{}{}
	return nil
}

// Dirty reports whether the cache holds buffered changes.
func (c *CacheDB) Dirty() bool {
	return len(c.puts) > 0 || len(c.deletes) > 0
}

// Write flushes the buffered changes into the parent. When the parent
// implements Batcher the flush is atomic; otherwise keys are applied in sorted
// order so the result is deterministic.
func (c *CacheDB) Write() error {
	if c.closed {
		return errCacheClosed
	}
	c.closed = true
	if !c.Dirty() {
		return nil
	}
	if batcher, ok := c.parent.(Batcher); ok {
		return batcher.WriteBatch(c.puts, c.deletes)
	}
	for _, key := range sortedKeys(c.deletes) {
		if err := c.parent.Delete([]byte(key)); err != nil {
			return err
		}
	}
	for _, key := range sortedKeys(c.puts) {
		if err := c.parent.Put([]byte(key), c.puts[key]); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every buffered change.
func (c *CacheDB) Discard() {
	c.closed = true
	c.puts = nil
	c.deletes = nil
}

// WriteBatch lets a CacheDB act as the parent of another CacheDB.
func (c *CacheDB) WriteBatch(puts map[string][]byte, deletes map[string]struct{}) error {
	for key := range deletes {
		if err := c.Delete([]byte(key)); err != nil {
			return err
		}
	}
	for key, value := range puts {
		if err := c.Put([]byte(key), value); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the parent owns the underlying resources.
func (c *CacheDB) Close() {}
