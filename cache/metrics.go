package cache

// Tier names a cache level in metrics and logs.
type Tier string

const (
	TierMemory  Tier = "memory"
	TierDurable Tier = "durable"
)

// Metrics receives cache events. Implementations must be safe for concurrent
// use and cheap; they are called on the hot path.
type Metrics interface {
	Hit(tier Tier)
	Miss()
	Promotion()
	Eviction()
	Expiration(tier Tier)
	DurableFailure(op string)
}

// NoopMetrics discards every event.
type NoopMetrics struct{}

func (NoopMetrics) Hit(Tier)              {}
func (NoopMetrics) Miss()                 {}
func (NoopMetrics) Promotion()            {}
func (NoopMetrics) Eviction()             {}
func (NoopMetrics) Expiration(Tier)       {}
func (NoopMetrics) DurableFailure(string) {}
