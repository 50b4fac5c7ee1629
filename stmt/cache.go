package stmt

import (
	"sync"

	glist "github.com/bahlo/generic-list-go"
)

// Cache is an LRU of prepared statements keyed by exact SQL text, bounded
// by capacity (0 disables caching entirely). It is refcount-aware: an
// entry evicted from the LRU while still referenced by an in-flight
// executor stays alive until every Handle on it is released, at which
// point OnEvict fires so the caller can issue the deferred COM_STMT_CLOSE.
//
// Grounded on the connection-pool LRU in the retrieval pack's
// balance/router package (github.com/bahlo/generic-list-go backing an
// intrusive doubly-linked list of pooled entries), adapted from pooled
// connections to pooled prepared statements.
type Cache struct {
	mu       sync.Mutex
	capacity int
	onEvict  func(*ServerPrepareResult)
	list     *glist.List[*cacheEntry]
	index    map[string]*glist.Element[*cacheEntry]
}

type cacheEntry struct {
	sql     string
	result  *ServerPrepareResult
	refs    int
	evicted bool
}

// Handle is an opaque reference-counted lease on a cached prepare result;
// callers must call Cache.Release exactly once per Handle they acquire.
type Handle struct {
	entry *cacheEntry
}

// Result returns the prepared statement this handle leases.
func (h *Handle) Result() *ServerPrepareResult { return h.entry.result }

// NewCache builds a cache with the given capacity. onEvict is invoked
// exactly once per prepared statement, when its refcount reaches zero
// after it has fallen out of the LRU window (or immediately, for a
// disabled cache).
func NewCache(capacity int, onEvict func(*ServerPrepareResult)) *Cache {
	return &Cache{
		capacity: capacity,
		onEvict:  onEvict,
		list:     glist.New[*cacheEntry](),
		index:    make(map[string]*glist.Element[*cacheEntry]),
	}
}

// Get looks up sql, incrementing its reference count and promoting it to
// most-recently-used on a hit.
func (c *Cache) Get(sql string) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[sql]
	if !ok {
		return nil, false
	}
	el.Value.refs++
	c.list.MoveToFront(el)
	return &Handle{entry: el.Value}, true
}

// Insert adds a freshly prepared statement to the cache with an initial
// refcount of one and returns a Handle for the caller's own lease. If the
// cache is disabled (capacity <= 0), the entry is never reachable by a
// future Get and is marked evicted immediately, so releasing the
// returned handle triggers onEvict as soon as the caller is done with it.
func (c *Cache) Insert(result *ServerPrepareResult) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{sql: result.SQL, result: result, refs: 1}
	if c.capacity <= 0 {
		entry.evicted = true
		return &Handle{entry: entry}
	}
	el := c.list.PushFront(entry)
	c.index[result.SQL] = el
	c.evictLocked()
	return &Handle{entry: entry}
}

// evictLocked drops least-recently-used entries from the index until the
// cache is back within capacity. Dropping an entry only removes it from
// future lookup; the underlying statement is closed via onEvict once its
// refcount reaches zero (possibly immediately, if nothing holds it).
func (c *Cache) evictLocked() {
	for c.list.Len() > c.capacity {
		back := c.list.Back()
		if back == nil {
			return
		}
		c.list.Remove(back)
		delete(c.index, back.Value.sql)
		back.Value.evicted = true
		if back.Value.refs == 0 && c.onEvict != nil {
			c.onEvict(back.Value.result)
		}
	}
}

// Release drops a lease acquired from Get or Insert. If the entry has
// since fallen out of the cache and this was the last outstanding lease,
// onEvict fires for the deferred COM_STMT_CLOSE.
func (c *Cache) Release(h *Handle) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e := h.entry
	e.refs--
	if e.refs <= 0 && e.evicted && c.onEvict != nil {
		c.onEvict(e.result)
	}
}

// Len reports the number of statements currently reachable by Get.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}
