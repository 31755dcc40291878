package durable

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDisk(t *testing.T, dir string, capacity int64) *Disk {
	t.Helper()
	d, err := OpenDisk(dir, capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDisk_GetSetRemove(t *testing.T) {
	d := openTestDisk(t, t.TempDir(), 0)
	ctx := t.Context()

	_, ok, err := d.Get(ctx, "user:1:profile")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Set(ctx, "user:1:profile", `{"name":"ada"}`))
	v, ok, err := d.Get(ctx, "user:1:profile")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"name":"ada"}`, v)

	require.NoError(t, d.Remove(ctx, "user:1:profile"))
	_, ok, _ = d.Get(ctx, "user:1:profile")
	assert.False(t, ok)
	assert.Zero(t, d.Size())
}

func TestDisk_ValueWithNewlines(t *testing.T) {
	d := openTestDisk(t, t.TempDir(), 0)
	ctx := t.Context()

	require.NoError(t, d.Set(ctx, "multi", "line one\nline two\n"))
	v, ok, err := d.Get(ctx, "multi")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "line one\nline two\n", v)
}

func TestDisk_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := t.Context()

	first, err := OpenDisk(dir, 0)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "a", "1"))
	require.NoError(t, first.Set(ctx, "b", "2"))
	require.NoError(t, first.Close())

	second := openTestDisk(t, dir, 0)
	keys, err := second.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)

	v, ok, err := second.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, first.Size(), second.Size())
}

func TestDisk_ReopenDropsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken"+recordExt), []byte("no header"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "half"+recordExt+tempExt), []byte("x"), 0o644))

	d := openTestDisk(t, dir, 0)
	n, err := d.Len(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDisk_MissingFileIsMiss(t *testing.T) {
	d := openTestDisk(t, t.TempDir(), 0)
	ctx := t.Context()

	require.NoError(t, d.Set(ctx, "gone", "value"))
	require.NoError(t, os.Remove(d.pathFor("gone")))

	_, ok, err := d.Get(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)

	n, _ := d.Len(ctx)
	assert.Zero(t, n, "vanished record must leave the index")
}

func TestDisk_ReadErrorKeepsIndex(t *testing.T) {
	d := openTestDisk(t, t.TempDir(), 0)
	ctx := t.Context()

	require.NoError(t, d.Set(ctx, "locked", "value"))
	size := d.Size()

	// A directory in place of the record file fails the read without the
	// path going away.
	path := d.pathFor("locked")
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o700))

	_, ok, err := d.Get(ctx, "locked")
	require.Error(t, err)
	assert.False(t, ok)

	n, _ := d.Len(ctx)
	assert.Equal(t, 1, n, "unreadable record must stay indexed")
	assert.Equal(t, size, d.Size())

	require.NoError(t, d.Remove(ctx, "locked"))
	assert.Zero(t, d.Size())
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDisk_MalformedRecordIsDropped(t *testing.T) {
	d := openTestDisk(t, t.TempDir(), 0)
	ctx := t.Context()

	require.NoError(t, d.Set(ctx, "bad", "value"))
	path := d.pathFor("bad")
	require.NoError(t, os.WriteFile(path, []byte("no header"), 0o600))

	_, ok, err := d.Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	n, _ := d.Len(ctx)
	assert.Zero(t, n)
	assert.Zero(t, d.Size())
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDisk_QuotaExceeded(t *testing.T) {
	d := openTestDisk(t, t.TempDir(), 32)
	ctx := t.Context()

	require.NoError(t, d.Set(ctx, "k", "small"))
	err := d.Set(ctx, "big", string(make([]byte, 64)))
	require.Error(t, err)
	assert.True(t, IsQuotaExceeded(err))

	_, ok, _ := d.Get(ctx, "big")
	assert.False(t, ok)
}

func TestDisk_ClosedStore(t *testing.T) {
	d, err := OpenDisk(t.TempDir(), 0)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, _, err = d.Get(t.Context(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.Set(t.Context(), "k", "v"), ErrClosed)
}
