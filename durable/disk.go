package durable

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"go.uber.org/multierr"
)

const (
	// DefaultDiskCapacity bounds a Disk store when no capacity is given.
	DefaultDiskCapacity = 64 * 1024 * 1024

	recordExt = ".rec"
	tempExt   = ".tmp"
)

// Disk is a Store that keeps one file per key under a directory. Each file
// holds the hex-encoded key on its first line followed by the raw value, so
// the key index can be rebuilt from the directory alone when the store is
// reopened.
type Disk struct {
	dir      string
	capacity int64

	mu     sync.RWMutex
	index  map[string]diskEntry
	size   int64
	closed bool
}

type diskEntry struct {
	path string
	size int64
}

// DefaultDiskPath returns the per-user cache directory for app.
func DefaultDiskPath(app string) (string, error) {
	dir, err := gap.NewScope(gap.User, app).CacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return dir, nil
}

// OpenDisk opens (creating if needed) a disk store rooted at dir that holds
// at most capacity bytes of record files. A capacity of zero or less selects
// [DefaultDiskCapacity]. Unreadable record files and stale temp files found
// while rebuilding the index are deleted.
func OpenDisk(dir string, capacity int64) (*Disk, error) {
	if capacity <= 0 {
		capacity = DefaultDiskCapacity
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	d := &Disk{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]diskEntry),
	}
	if err := d.loadIndex(); err != nil {
		return nil, err
	}
	return d, nil
}

// Dir returns the directory backing the store.
func (d *Disk) Dir() string { return d.dir }

// Size returns the number of bytes held in record files.
func (d *Disk) Size() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.size
}

// Get reads the value stored under key. A record file that vanished or lost
// its header is dropped and reported as missing. Other read errors are
// returned and leave the index untouched.
func (d *Disk) Get(_ context.Context, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", false, ErrClosed
	}
	ent, ok := d.index[key]
	if !ok {
		return "", false, nil
	}

	_, value, err := readRecord(ent.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.drop(key, ent)
		return "", false, nil
	case errors.Is(err, errBadRecord):
		d.drop(key, ent)
		_ = os.Remove(ent.path)
		return "", false, nil
	case err != nil:
		// The file may still be there; keep it indexed so size stays exact.
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key. It fails with ErrQuotaExceeded when the record
// would push the store over its capacity.
func (d *Disk) Set(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	data := encodeRecord(key, value)
	need := int64(len(data))

	size := d.size
	if prev, ok := d.index[key]; ok {
		size -= prev.size
	}
	if size+need > d.capacity {
		return fmt.Errorf("%w: %s record, %s of %s on disk", ErrQuotaExceeded,
			humanize.IBytes(uint64(need)), humanize.IBytes(uint64(d.size)), humanize.IBytes(uint64(d.capacity)))
	}

	path := d.pathFor(key)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	d.index[key] = diskEntry{path: path, size: need}
	d.size = size + need
	return nil
}

// Remove deletes the record for key.
func (d *Disk) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	ent, ok := d.index[key]
	if !ok {
		return nil
	}
	d.drop(key, ent)
	if err := os.Remove(ent.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

// Len returns the number of indexed keys.
func (d *Disk) Len(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return 0, ErrClosed
	}
	return len(d.index), nil
}

// Keys returns a snapshot of the indexed keys.
func (d *Disk) Keys(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(d.index))
	for k := range d.index {
		keys = append(keys, k)
	}
	return keys, nil
}

// Close marks the store closed. Record files stay on disk.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}

// drop removes key from the index. Must be called with d.mu held.
func (d *Disk) drop(key string, ent diskEntry) {
	delete(d.index, key)
	d.size -= ent.size
}

func (d *Disk) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:16])+recordExt)
}

func (d *Disk) loadIndex() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("read store directory: %w", err)
	}

	var errs error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(d.dir, e.Name())
		switch filepath.Ext(e.Name()) {
		case tempExt:
			errs = multierr.Append(errs, os.Remove(path))
		case recordExt:
			key, _, err := readRecord(path)
			if err != nil {
				errs = multierr.Append(errs, os.Remove(path))
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			d.index[key] = diskEntry{path: path, size: info.Size()}
			d.size += info.Size()
		}
	}
	if errs != nil {
		return fmt.Errorf("clean store directory: %w", errs)
	}
	return nil
}

var errBadRecord = errors.New("malformed record header")

func encodeRecord(key, value string) []byte {
	var buf bytes.Buffer
	buf.Grow(hex.EncodedLen(len(key)) + 1 + len(value))
	buf.WriteString(hex.EncodeToString([]byte(key)))
	buf.WriteByte('\n')
	buf.WriteString(value)
	return buf.Bytes()
}

func readRecord(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	header, value, ok := bytes.Cut(data, []byte{'\n'})
	if !ok {
		return "", "", errBadRecord
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(header)))
	if err != nil || len(key) == 0 {
		return "", "", errBadRecord
	}
	return string(key), string(value), nil
}

// writeFileAtomic writes to a temp file first, then renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + tempExt

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	_, err = w.Write(data)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
