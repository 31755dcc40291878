package gorawrstash

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/Keksclan/goRawrStash/admin"
	"github.com/Keksclan/goRawrStash/auth"
	"github.com/Keksclan/goRawrStash/cache"
	"github.com/Keksclan/goRawrStash/contextx"
	"github.com/Keksclan/goRawrStash/durable"
)

// AppName names the per-user cache directory of the default disk store.
const AppName = "goRawrStash"

// Durable store kinds accepted by STASH_STORE.
const (
	StoreDisk   = "disk"
	StoreRedis  = "redis"
	StoreMemory = "memory"
	StoreNone   = "none"
)

// ByteSize is a size parsed from strings such as "64MiB" or "500 kB".
type ByteSize uint64

func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string { return humanize.IBytes(uint64(b)) }

// EnvConfig is the daemon configuration read from the environment.
type EnvConfig struct {
	Namespace         string               `env:"STASH_NAMESPACE" envDefault:"stash_"`
	MemoryEntries     int                  `env:"STASH_MEMORY_ENTRIES" envDefault:"100"`
	Eviction          cache.EvictionPolicy `env:"STASH_EVICTION" envDefault:"fifo"`
	DefaultTTL        time.Duration        `env:"STASH_DEFAULT_TTL" envDefault:"5m"`
	JanitorInterval   time.Duration        `env:"STASH_JANITOR_INTERVAL" envDefault:"1m"`
	DurableSweep      bool                 `env:"STASH_DURABLE_SWEEP" envDefault:"true"`
	CompressThreshold int                  `env:"STASH_COMPRESS_THRESHOLD" envDefault:"1024"`
	CoalesceFills     bool                 `env:"STASH_COALESCE_FILLS"`

	Store         string   `env:"STASH_STORE" envDefault:"disk"`
	DiskPath      string   `env:"STASH_DISK_PATH"`
	DiskCapacity  ByteSize `env:"STASH_DISK_CAPACITY" envDefault:"64MiB"`
	MemoryQuota   ByteSize `env:"STASH_MEMORY_QUOTA" envDefault:"5MiB"`
	RedisAddr     string   `env:"STASH_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string   `env:"STASH_REDIS_PASSWORD"`
	RedisDB       int      `env:"STASH_REDIS_DB"`
	RedisHash     string   `env:"STASH_REDIS_HASH" envDefault:"gorawrstash"`

	AdminToken    string  `env:"STASH_ADMIN_TOKEN"`
	ReadOnlyToken string  `env:"STASH_READONLY_TOKEN"`
	AdminRPS      float64 `env:"STASH_ADMIN_RPS" envDefault:"50"`
	AdminBurst    int     `env:"STASH_ADMIN_BURST" envDefault:"100"`
	Listen        string  `env:"STASH_LISTEN" envDefault:":7070"`
	MetricsListen string  `env:"STASH_METRICS_LISTEN" envDefault:":9090"`
	TraceStdout   bool    `env:"STASH_TRACE_STDOUT"`

	LogLevel zerolog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadEnv parses EnvConfig from the process environment.
func LoadEnv() (EnvConfig, error) {
	return parseEnv(env.Options{})
}

func parseEnv(opts env.Options) (EnvConfig, error) {
	cfg, err := env.ParseAsWithOptions[EnvConfig](opts)
	if err != nil {
		return EnvConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// OpenStore opens the durable store selected by Store. It returns nil for
// StoreNone.
func (e EnvConfig) OpenStore() (durable.Store, error) {
	switch strings.ToLower(e.Store) {
	case StoreDisk:
		dir := e.DiskPath
		if dir == "" {
			var err error
			if dir, err = durable.DefaultDiskPath(AppName); err != nil {
				return nil, err
			}
		}
		return durable.OpenDisk(dir, int64(e.DiskCapacity))
	case StoreRedis:
		return durable.NewRedis(e.RedisAddr, e.RedisPassword, e.RedisDB, e.RedisHash), nil
	case StoreMemory:
		return durable.NewMemory(int64(e.MemoryQuota)), nil
	case StoreNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown STASH_STORE %q", e.Store)
}

// Options translates the configuration into server options, opening the
// durable store on the way. The store is closed by [Server.Close].
func (e EnvConfig) Options() ([]Option, error) {
	store, err := e.OpenStore()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithCacheOptions(
			cache.WithNamespace(e.Namespace),
			cache.WithMaxEntries(e.MemoryEntries),
			cache.WithEvictionPolicy(e.Eviction),
			cache.WithDefaultTTL(e.DefaultTTL),
			cache.WithJanitorInterval(e.JanitorInterval),
			cache.WithDurableSweep(e.DurableSweep),
			cache.WithCompression(e.CompressThreshold),
			cache.WithCoalescedFills(e.CoalesceFills),
		),
	}
	if store != nil {
		opts = append(opts, WithStore(store))
	}
	if tokens := e.tokens(); len(tokens) > 0 {
		opts = append(opts, WithAuth(auth.Public(auth.BearerTokens(tokens...), admin.FullMethod("Ping"))))
	}
	if e.AdminRPS > 0 {
		opts = append(opts, WithRateLimitGlobal(e.AdminRPS, e.AdminBurst))
	}
	return opts, nil
}

func (e EnvConfig) tokens() []auth.Token {
	var tokens []auth.Token
	if e.AdminToken != "" {
		tokens = append(tokens, auth.Token{
			Secret: e.AdminToken,
			Actor:  contextx.Actor{Subject: "admin", Scopes: []string{admin.ScopeRead, admin.ScopeWrite}},
		})
	}
	if e.ReadOnlyToken != "" {
		tokens = append(tokens, auth.Token{
			Secret: e.ReadOnlyToken,
			Actor:  contextx.Actor{Subject: "readonly", Scopes: []string{admin.ScopeRead}},
		})
	}
	return tokens
}

// FromEnv is LoadEnv followed by Options.
func FromEnv() ([]Option, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	return cfg.Options()
}
