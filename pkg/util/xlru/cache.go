package xlru

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// maxSize 缓存最大条目数上限。
const maxSize = 1 << 24 // 16,777,216

// Config 定义缓存配置。
type Config struct {
	// Size 缓存最大条目数。
	// 必须大于 0 且不超过 16,777,216。
	Size int

	// TTL 条目过期时间。
	// 0 表示永不过期，不允许负值。
	TTL time.Duration
}

// Option 定义缓存可选配置函数类型。
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 替换时间源，用于测试 TTL 行为。nil 被忽略。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache 是带惰性 TTL 的 LRU 缓存。
// 必须通过 [New] 创建，零值不可用。
type Cache[K comparable, V any] struct {
	lru *lru.Cache[K, entry[V]]
	ttl time.Duration
	now func() time.Time
}

// New 创建新的 LRU 缓存。
// 如果 cfg.Size <= 0，返回 ErrInvalidSize。
// 如果 cfg.Size > maxSize，返回 ErrSizeExceedsMax。
// 如果 cfg.TTL < 0，返回 ErrInvalidTTL。
func New[K comparable, V any](cfg Config, opts ...Option) (*Cache[K, V], error) {
	if cfg.Size <= 0 {
		return nil, ErrInvalidSize
	}
	if cfg.Size > maxSize {
		return nil, ErrSizeExceedsMax
	}
	if cfg.TTL < 0 {
		return nil, ErrInvalidTTL
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	l, err := lru.New[K, entry[V]](cfg.Size)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{lru: l, ttl: cfg.TTL, now: o.now}, nil
}

// Get 获取缓存值。键不存在或已过期时返回零值和 false，过期条目顺带删除。
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return value, false
	}
	if c.expired(e) {
		c.lru.Remove(key)
		return value, false
	}
	return e.value, true
}

// Set 设置缓存值。返回值表示是否触发了淘汰。
func (c *Cache[K, V]) Set(key K, value V) bool {
	e := entry[V]{value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	return c.lru.Add(key, e)
}

// Delete 删除缓存条目，键存在时返回 true。
func (c *Cache[K, V]) Delete(key K) bool {
	return c.lru.Remove(key)
}

// Purge 清空所有条目。
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}

// Len 返回当前条目数，可能包含尚未被读取淘汰的过期条目。
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

func (c *Cache[K, V]) expired(e entry[V]) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}
