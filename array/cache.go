package array

import (
	"container/list"

	"github.com/arloliu/tetra/codec"
)

// cacheEntry is one decompressed block. A dirty entry has been modified since
// it was decoded and must be re-encoded into the compressed stream before it
// can be discarded.
type cacheEntry[T codec.Scalar] struct {
	block int
	data  []T
	dirty bool
}

// blockCache is a bounded LRU cache of decompressed blocks. Eviction writes
// dirty entries back through the owner's encode callback; clean entries are
// simply dropped, since the compressed stream still holds their bits.
type blockCache[T codec.Scalar] struct {
	capacity  int // in blocks, always >= 1
	entries   map[int]*list.Element
	lru       *list.List // front is most recently used
	writeBack func(block int, data []T) error
}

func newBlockCache[T codec.Scalar](capacity int, writeBack func(int, []T) error) *blockCache[T] {
	return &blockCache[T]{
		capacity:  capacity,
		entries:   make(map[int]*list.Element, capacity),
		lru:       list.New(),
		writeBack: writeBack,
	}
}

// lookup returns the cached entry for block, refreshing its recency, or nil.
func (c *blockCache[T]) lookup(block int) *cacheEntry[T] {
	el, ok := c.entries[block]
	if !ok {
		return nil
	}
	c.lru.MoveToFront(el)

	return el.Value.(*cacheEntry[T])
}

// insert adds a decompressed block to the cache, evicting the least recently
// used entry if the cache is full.
func (c *blockCache[T]) insert(block int, data []T) (*cacheEntry[T], error) {
	for c.lru.Len() >= c.capacity {
		if err := c.evictOldest(); err != nil {
			return nil, err
		}
	}

	e := &cacheEntry[T]{block: block, data: data}
	c.entries[block] = c.lru.PushFront(e)

	return e, nil
}

func (c *blockCache[T]) evictOldest() error {
	el := c.lru.Back()
	if el == nil {
		return nil
	}
	e := el.Value.(*cacheEntry[T])
	if e.dirty {
		if err := c.writeBack(e.block, e.data); err != nil {
			return err
		}
	}
	c.lru.Remove(el)
	delete(c.entries, e.block)

	return nil
}

// flush writes every dirty entry back and marks the cache clean. Entries stay
// resident.
func (c *blockCache[T]) flush() error {
	for el := c.lru.Front(); el != nil; el = el.Next() {
		e := el.Value.(*cacheEntry[T])
		if !e.dirty {
			continue
		}
		if err := c.writeBack(e.block, e.data); err != nil {
			return err
		}
		e.dirty = false
	}

	return nil
}

// drop empties the cache without writing anything back. Used when the
// compressed stream is replaced wholesale and cached contents are stale.
func (c *blockCache[T]) drop() {
	c.lru.Init()
	c.entries = make(map[int]*list.Element, c.capacity)
}

// resize changes the capacity, evicting down to the new bound.
func (c *blockCache[T]) resize(capacity int) error {
	c.capacity = capacity
	for c.lru.Len() > c.capacity {
		if err := c.evictOldest(); err != nil {
			return err
		}
	}

	return nil
}

func (c *blockCache[T]) len() int {
	return c.lru.Len()
}
