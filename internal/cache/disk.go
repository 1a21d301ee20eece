package cache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// DiskCache persists entries as files: an 8-byte expiry header followed by
// the payload
type DiskCache struct {
	dir    string
	ttl    time.Duration
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
	}
}

const headerSize = 8

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil || len(data) < headerSize {
		c.misses.Add(1)
		return nil, false
	}

	expires := time.Unix(0, int64(binary.LittleEndian.Uint64(data[:headerSize])))
	if time.Now().After(expires) {
		_ = os.Remove(path)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return data[headerSize:], true
}

// Set stores a value in the disk cache. Writes go through a temp file and
// rename so concurrent readers never see a partial entry.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	buf := make([]byte, headerSize+len(value))
	binary.LittleEndian.PutUint64(buf, uint64(time.Now().Add(ttl).UnixNano()))
	copy(buf[headerSize:], value)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// Stats returns hit, miss and on-disk entry counts
func (c *DiskCache) Stats() Stats {
	items := 0
	if entries, err := os.ReadDir(c.dir); err == nil {
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".vec") {
				items++
			}
		}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Items: items}
}

// path maps a key to a file name safe on every platform
func (c *DiskCache) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(c.dir, name+".vec")
}
