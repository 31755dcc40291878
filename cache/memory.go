package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"
)

// EvictionPolicy selects how a full memory tier makes room for a new key.
type EvictionPolicy int

const (
	// FIFO evicts the oldest inserted key. Overwrites keep their position
	// and never evict, even when the tier is full; only a new key makes room.
	FIFO EvictionPolicy = iota
	// LRU evicts the least recently read or written key.
	LRU
	// TinyLFU admits and evicts by estimated access frequency (ristretto).
	TinyLFU
)

func (p EvictionPolicy) String() string {
	switch p {
	case FIFO:
		return "fifo"
	case LRU:
		return "lru"
	case TinyLFU:
		return "tinylfu"
	default:
		return fmt.Sprintf("EvictionPolicy(%d)", int(p))
	}
}

// ParseEvictionPolicy maps "fifo", "lru" or "tinylfu" to a policy.
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fifo":
		return FIFO, nil
	case "lru":
		return LRU, nil
	case "tinylfu", "lfu":
		return TinyLFU, nil
	}
	return FIFO, fmt.Errorf("cache: unknown eviction policy %q", s)
}

// UnmarshalText lets env and flag parsers fill an EvictionPolicy.
func (p *EvictionPolicy) UnmarshalText(b []byte) error {
	v, err := ParseEvictionPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// memoryTier is the in-process level of the cache. Implementations are safe
// for concurrent use and never inspect Data.
type memoryTier interface {
	// lookup returns the live entry for key. An expired entry is removed and
	// reported through expired.
	lookup(key string, now time.Time) (e Entry, ok, expired bool)
	store(key string, e Entry)
	remove(key string)
	removeMatching(match func(string) bool) int
	sweep(now time.Time) int
	len() int
	clear()
	close()
}

func newMemoryTier(policy EvictionPolicy, limit int, onEvict func()) (memoryTier, error) {
	if onEvict == nil {
		onEvict = func() {}
	}
	switch policy {
	case FIFO, LRU:
		return newOrderedTier(limit, policy == LRU, onEvict), nil
	case TinyLFU:
		return newTinyLFUTier(limit, onEvict)
	default:
		return nil, fmt.Errorf("cache: unknown eviction policy %d", int(policy))
	}
}

// orderedTier is a map plus an insertion (or recency) ordered list.
type orderedTier struct {
	mu      sync.Mutex
	limit   int
	lru     bool
	items   map[string]*list.Element
	order   *list.List // of *orderedItem, oldest at the front
	onEvict func()
}

type orderedItem struct {
	key   string
	entry Entry
}

func newOrderedTier(limit int, lru bool, onEvict func()) *orderedTier {
	return &orderedTier{
		limit:   limit,
		lru:     lru,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		onEvict: onEvict,
	}
}

func (o *orderedTier) lookup(key string, now time.Time) (Entry, bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	el, ok := o.items[key]
	if !ok {
		return Entry{}, false, false
	}
	it := el.Value.(*orderedItem)
	if !it.entry.Live(now) {
		o.unlink(el)
		return Entry{}, false, true
	}
	if o.lru {
		o.order.MoveToBack(el)
	}
	return it.entry, true, false
}

func (o *orderedTier) store(key string, e Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if el, ok := o.items[key]; ok {
		el.Value.(*orderedItem).entry = e
		if o.lru {
			o.order.MoveToBack(el)
		}
		return
	}
	if o.limit > 0 && len(o.items) >= o.limit {
		if oldest := o.order.Front(); oldest != nil {
			o.unlink(oldest)
			o.onEvict()
		}
	}
	o.items[key] = o.order.PushBack(&orderedItem{key: key, entry: e})
}

func (o *orderedTier) remove(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if el, ok := o.items[key]; ok {
		o.unlink(el)
	}
}

func (o *orderedTier) removeMatching(match func(string) bool) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for el := o.order.Front(); el != nil; {
		next := el.Next()
		if match(el.Value.(*orderedItem).key) {
			o.unlink(el)
			n++
		}
		el = next
	}
	return n
}

func (o *orderedTier) sweep(now time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for el := o.order.Front(); el != nil; {
		next := el.Next()
		if !el.Value.(*orderedItem).entry.Live(now) {
			o.unlink(el)
			n++
		}
		el = next
	}
	return n
}

func (o *orderedTier) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

func (o *orderedTier) clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = make(map[string]*list.Element)
	o.order.Init()
}

func (o *orderedTier) close() { o.clear() }

// unlink must be called with o.mu held.
func (o *orderedTier) unlink(el *list.Element) {
	delete(o.items, el.Value.(*orderedItem).key)
	o.order.Remove(el)
}
