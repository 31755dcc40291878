package cache

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// tinyLFUTier is a memory tier backed by ristretto. Ristretto only keeps key
// hashes, so a key index is maintained alongside it for pattern removal and
// sweeping. The index is authoritative for membership.
type tinyLFUTier struct {
	rc *ristretto.Cache[string, *slot]

	mu      sync.Mutex
	index   map[string]*slot
	onEvict func()
}

// slot is the value stored in ristretto. Pointer identity tells a stale
// eviction callback apart from a newer write to the same key.
type slot struct {
	key   string
	entry Entry
}

func newTinyLFUTier(limit int, onEvict func()) (*tinyLFUTier, error) {
	if limit <= 0 {
		limit = DefaultMaxEntries
	}
	t := &tinyLFUTier{
		index:   make(map[string]*slot),
		onEvict: onEvict,
	}
	rc, err := ristretto.NewCache(&ristretto.Config[string, *slot]{
		NumCounters:        int64(limit) * 10,
		MaxCost:            int64(limit),
		BufferItems:        64,
		IgnoreInternalCost: true,
		OnEvict: func(item *ristretto.Item[*slot]) {
			if t.forget(item.Value) {
				t.onEvict()
			}
		},
		OnReject: func(item *ristretto.Item[*slot]) {
			t.forget(item.Value)
		},
	})
	if err != nil {
		return nil, err
	}
	t.rc = rc
	return t, nil
}

// forget drops s from the index if it is still the current slot for its key.
func (t *tinyLFUTier) forget(s *slot) bool {
	if s == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.index[s.key] != s {
		return false
	}
	delete(t.index, s.key)
	return true
}

func (t *tinyLFUTier) lookup(key string, now time.Time) (Entry, bool, bool) {
	s, ok := t.rc.Get(key)
	if !ok || s == nil {
		return Entry{}, false, false
	}
	if !s.entry.Live(now) {
		if t.forget(s) {
			t.rc.Del(key)
		}
		return Entry{}, false, true
	}
	return s.entry, true, false
}

// store does not hold t.mu across ristretto calls: OnEvict runs on
// ristretto's policy goroutine and takes the same lock.
func (t *tinyLFUTier) store(key string, e Entry) {
	s := &slot{key: key, entry: e}
	t.mu.Lock()
	t.index[key] = s
	t.mu.Unlock()

	if !t.rc.Set(key, s, 1) {
		t.forget(s)
		return
	}
	t.rc.Wait()
}

func (t *tinyLFUTier) remove(key string) {
	t.mu.Lock()
	delete(t.index, key)
	t.mu.Unlock()
	t.rc.Del(key)
}

func (t *tinyLFUTier) removeMatching(match func(string) bool) int {
	t.mu.Lock()
	var keys []string
	for k := range t.index {
		if match(k) {
			keys = append(keys, k)
			delete(t.index, k)
		}
	}
	t.mu.Unlock()

	for _, k := range keys {
		t.rc.Del(k)
	}
	return len(keys)
}

func (t *tinyLFUTier) sweep(now time.Time) int {
	t.mu.Lock()
	var stale []string
	for k, s := range t.index {
		if !s.entry.Live(now) {
			stale = append(stale, k)
			delete(t.index, k)
		}
	}
	t.mu.Unlock()

	for _, k := range stale {
		t.rc.Del(k)
	}
	return len(stale)
}

func (t *tinyLFUTier) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.index)
}

func (t *tinyLFUTier) clear() {
	t.mu.Lock()
	t.index = make(map[string]*slot)
	t.mu.Unlock()
	t.rc.Clear()
}

func (t *tinyLFUTier) close() {
	t.clear()
	t.rc.Close()
}
