package quote

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"liquidityDesk/internal/metrics"
)

const (
	DefaultCacheTTL  = 30 * time.Second
	defaultCacheSize = 256
)

type cacheKey struct {
	tokenIn   common.Address
	tokenOut  common.Address
	amount    string
	fee       uint32
	direction Direction
}

// entry is the oracle answer before slippage is applied, so one entry serves
// any tolerance. spot is zero when no mid price was available.
type entry struct {
	derived   *big.Int
	spot      float64
	sameToken bool
}

// Cache holds resolved quotes for a bounded time. Expired entries read as a miss.
type Cache struct {
	lru *expirable.LRU[cacheKey, entry]
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[cacheKey, entry](defaultCacheSize, nil, ttl)}
}

func (c *Cache) get(k cacheKey) (entry, bool) {
	e, ok := c.lru.Get(k)
	if ok {
		metrics.QuoteCache.WithLabelValues("hit").Inc()
	} else {
		metrics.QuoteCache.WithLabelValues("miss").Inc()
	}
	return e, ok
}

func (c *Cache) add(k cacheKey, e entry) {
	c.lru.Add(k, e)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
