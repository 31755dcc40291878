package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Keksclan/goRawrStash/durable"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	cache *Tiered
	store *durable.Memory
	clock *clock.Mock
	stats *recordingMetrics
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithStore(t, durable.NewMemory(0), opts...)
}

func newFixtureWithStore(t *testing.T, store *durable.Memory, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: store,
		clock: clock.NewMock(),
		stats: newRecordingMetrics(),
	}
	f.clock.Set(epoch)
	f.cache = newTestCache(t, f.store, append([]Option{
		WithClock(f.clock),
		WithMetrics(f.stats),
	}, opts...)...)
	return f
}

func newTestCache(t *testing.T, store durable.Store, opts ...Option) *Tiered {
	t.Helper()
	base := []Option{
		WithJanitorInterval(0),
		WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
	}
	c, err := New(store, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// durableKeys returns the raw keys in the backing store.
func (f *fixture) durableKeys(t *testing.T) []string {
	t.Helper()
	keys, err := f.store.Keys(t.Context())
	require.NoError(t, err)
	return keys
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (m *recordingMetrics) inc(name string) {
	m.mu.Lock()
	m.counts[name]++
	m.mu.Unlock()
}

func (m *recordingMetrics) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func (m *recordingMetrics) Hit(tier Tier)            { m.inc("hit:" + string(tier)) }
func (m *recordingMetrics) Miss()                    { m.inc("miss") }
func (m *recordingMetrics) Promotion()               { m.inc("promotion") }
func (m *recordingMetrics) Eviction()                { m.inc("eviction") }
func (m *recordingMetrics) Expiration(tier Tier)     { m.inc("expired:" + string(tier)) }
func (m *recordingMetrics) DurableFailure(op string) { m.inc("fail:" + op) }

// brokenStore fails every call with err and counts calls.
type brokenStore struct {
	err   error
	calls atomic.Int32
}

func (b *brokenStore) Get(context.Context, string) (string, bool, error) {
	b.calls.Add(1)
	return "", false, b.err
}

func (b *brokenStore) Set(context.Context, string, string) error {
	b.calls.Add(1)
	return b.err
}

func (b *brokenStore) Remove(context.Context, string) error {
	b.calls.Add(1)
	return b.err
}

func (b *brokenStore) Len(context.Context) (int, error) {
	b.calls.Add(1)
	return 0, b.err
}

func (b *brokenStore) Keys(context.Context) ([]string, error) {
	b.calls.Add(1)
	return nil, b.err
}
