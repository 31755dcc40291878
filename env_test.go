package gorawrstash

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keksclan/goRawrStash/cache"
	"github.com/Keksclan/goRawrStash/durable"
)

func parseMap(t *testing.T, vars map[string]string) (EnvConfig, error) {
	t.Helper()
	return parseEnv(env.Options{Environment: vars})
}

func TestEnvDefaults(t *testing.T) {
	cfg, err := parseMap(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "stash_", cfg.Namespace)
	assert.Equal(t, 100, cfg.MemoryEntries)
	assert.Equal(t, cache.FIFO, cfg.Eviction)
	assert.Equal(t, 5*time.Minute, cfg.DefaultTTL)
	assert.Equal(t, time.Minute, cfg.JanitorInterval)
	assert.True(t, cfg.DurableSweep)
	assert.Equal(t, StoreDisk, cfg.Store)
	assert.Equal(t, ByteSize(64<<20), cfg.DiskCapacity)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Equal(t, ":7070", cfg.Listen)
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := parseMap(t, map[string]string{
		"STASH_NAMESPACE":      "jobs_",
		"STASH_MEMORY_ENTRIES": "500",
		"STASH_EVICTION":       "tinylfu",
		"STASH_DEFAULT_TTL":    "90s",
		"STASH_STORE":          "memory",
		"STASH_MEMORY_QUOTA":   "1 MB",
		"LOG_LEVEL":            "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "jobs_", cfg.Namespace)
	assert.Equal(t, 500, cfg.MemoryEntries)
	assert.Equal(t, cache.TinyLFU, cfg.Eviction)
	assert.Equal(t, 90*time.Second, cfg.DefaultTTL)
	assert.Equal(t, ByteSize(1_000_000), cfg.MemoryQuota)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
}

func TestEnvRejectsBadValues(t *testing.T) {
	for name, vars := range map[string]map[string]string{
		"eviction": {"STASH_EVICTION": "random"},
		"size":     {"STASH_DISK_CAPACITY": "lots"},
		"duration": {"STASH_DEFAULT_TTL": "soon"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseMap(t, vars)
			require.Error(t, err)
		})
	}
}

func TestEnvOpenStore(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		store string
		check func(t *testing.T, s durable.Store)
	}{
		{StoreNone, func(t *testing.T, s durable.Store) { assert.Nil(t, s) }},
		{StoreMemory, func(t *testing.T, s durable.Store) { assert.IsType(t, &durable.Memory{}, s) }},
		{StoreDisk, func(t *testing.T, s durable.Store) {
			d, ok := s.(*durable.Disk)
			require.True(t, ok)
			assert.Equal(t, dir, d.Dir())
			require.NoError(t, d.Close())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			cfg, err := parseMap(t, map[string]string{"STASH_STORE": tt.store, "STASH_DISK_PATH": dir})
			require.NoError(t, err)
			s, err := cfg.OpenStore()
			require.NoError(t, err)
			tt.check(t, s)
		})
	}

	cfg, err := parseMap(t, map[string]string{"STASH_STORE": "floppy"})
	require.NoError(t, err)
	_, err = cfg.OpenStore()
	require.Error(t, err)
}

func TestEnvOptionsBuildServer(t *testing.T) {
	cfg, err := parseMap(t, map[string]string{
		"STASH_STORE":            "memory",
		"STASH_JANITOR_INTERVAL": "0s",
		"STASH_ADMIN_TOKEN":      "rw",
		"STASH_READONLY_TOKEN":   "ro",
	})
	require.NoError(t, err)
	assert.Len(t, cfg.tokens(), 2)

	opts, err := cfg.Options()
	require.NoError(t, err)

	s, err := NewServer(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := t.Context()
	require.NoError(t, s.Cache().Set(ctx, "k", []byte("v")))
	assert.Equal(t, cache.Stats{Memory: 1, Durable: 1}, s.Cache().Stats(ctx))
}

func TestByteSizeString(t *testing.T) {
	assert.Equal(t, "64 MiB", ByteSize(64<<20).String())
}
