package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// entry 是链表节点中保存的数据。
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// LRUCache 是一个支持泛型、带过期时间且线程安全的 LRU 缓存。
type LRUCache[K comparable, V any] struct {
	capacity int
	ttl      time.Duration // 0 表示永不过期
	now      func() time.Time

	mu    sync.Mutex
	ll    *list.List
	items map[K]*list.Element
}

// NewLRU 创建一个容量为 capacity、条目存活 ttl 的缓存。
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("lru capacity must be positive, got %d", capacity)
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		ll:       list.New(),
		items:    make(map[K]*list.Element),
	}, nil
}

// SetClock 替换时间源，测试中使用。
func (c *LRUCache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get 返回 key 对应的值；过期条目在读取时被移除。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.expired(e) {
		c.remove(el)
		return zero, false
	}
	c.ll.MoveToFront(el)
	return e.value, true
}

// Put 添加或覆盖一个条目，并刷新其过期时间。
func (c *LRUCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = expiresAt
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	for c.ll.Len() > c.capacity {
		c.remove(c.ll.Back())
	}
}

// Delete 移除一个条目，返回它是否存在。
func (c *LRUCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(el)
	return true
}

// Len 返回当前条目数量（包括尚未被清理的过期条目）。
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *LRUCache[K, V]) expired(e *entry[K, V]) bool {
	return c.ttl > 0 && !c.now().Before(e.expiresAt)
}

// 调用方需持有锁
func (c *LRUCache[K, V]) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
