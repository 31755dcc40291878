package cache

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Entry is one cached value together with its lifetime.
type Entry struct {
	Data      []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Live reports whether the entry may still be served at now.
func (e Entry) Live(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// record is the durable representation of an Entry. Times are unix
// milliseconds; Data is base64 through encoding/json.
type record struct {
	Data      []byte `json:"data"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

const compressedPrefix = "z1:"

// DefaultCompressThreshold is the encoded size above which durable records
// are zstd compressed.
const DefaultCompressThreshold = 1024

var errCorrupt = errors.New("cache: corrupt durable record")

// codec converts entries to and from durable record strings.
type codec struct {
	threshold int // <= 0 disables compression
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

func newCodec(threshold int) (*codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &codec{threshold: threshold, enc: enc, dec: dec}, nil
}

func (c *codec) encode(e Entry) (string, error) {
	raw, err := json.Marshal(record{
		Data:      e.Data,
		CreatedAt: e.CreatedAt.UnixMilli(),
		ExpiresAt: e.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	if c.threshold > 0 && len(raw) > c.threshold {
		packed := c.enc.EncodeAll(raw, nil)
		if s := compressedPrefix + base64.StdEncoding.EncodeToString(packed); len(s) < len(raw) {
			return s, nil
		}
	}
	return string(raw), nil
}

func (c *codec) decode(s string) (Entry, error) {
	raw := []byte(s)
	if rest, ok := strings.CutPrefix(s, compressedPrefix); ok {
		packed, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %v", errCorrupt, err)
		}
		if raw, err = c.dec.DecodeAll(packed, nil); err != nil {
			return Entry{}, fmt.Errorf("%w: %v", errCorrupt, err)
		}
	}

	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if r.ExpiresAt == 0 {
		return Entry{}, fmt.Errorf("%w: missing expiresAt", errCorrupt)
	}
	return Entry{
		Data:      r.Data,
		CreatedAt: time.UnixMilli(r.CreatedAt),
		ExpiresAt: time.UnixMilli(r.ExpiresAt),
	}, nil
}

func (c *codec) close() {
	_ = c.enc.Close()
	c.dec.Close()
}
