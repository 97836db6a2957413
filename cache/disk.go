package cache

import (
	"bufio"
	"bytes"
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// entryExt is the filename extension for durable cache entries.
const entryExt = ".cache"

// entryHeader is the small metadata header written before the payload.
// The file layout is one JSON header line followed by the raw payload.
type entryHeader struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// diskEntry is the in-memory index record for one durable entry.
type diskEntry struct {
	key       string
	path      string
	createdAt time.Time
	expiresAt time.Time
}

// DiskCache is a durable cache keeping one file per entry under a
// dedicated directory. Files survive process restarts; the index is
// rebuilt by scanning the directory at startup.
//
// Writes go to a temporary file first and are renamed into place, so
// concurrent readers never observe a partially written entry. If multiple
// processes share the directory, last writer wins on the rename.
//
// The in-memory index is guarded by a mutex; file I/O always happens
// outside the critical section.
type DiskCache struct {
	dir    string
	policy Policy

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

// NewDiskCache creates a disk cache rooted at dir, creating the directory
// if it does not exist. Existing entries are indexed; files that cannot
// be parsed are removed.
func NewDiskCache(dir string, policy Policy) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache directory: %v", ErrStorage, err)
	}

	c := &DiskCache{
		dir:     dir,
		policy:  policy,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}

	if err := c.loadIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the directory backing this cache.
func (c *DiskCache) Dir() string {
	return c.dir
}

// Get retrieves a value from the durable store.
// Returns (nil, false) if the entry is absent, expired, or corrupted.
func (c *DiskCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	elem, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}
	entry := elem.Value.(*diskEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		path := entry.path
		c.mu.Unlock()
		_ = os.Remove(path)
		return nil, false
	}
	path := entry.path
	c.mu.Unlock()

	// Read and decode outside the lock.
	data, err := os.ReadFile(path)
	if err != nil {
		c.dropEntry(key)
		return nil, false
	}
	hdr, payload, err := decodeEntry(data)
	if err != nil || hdr.Key != key {
		// Corrupted entry: treat as miss, remove so it gets rewritten.
		c.dropEntry(key)
		_ = os.Remove(path)
		return nil, false
	}

	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
	}
	c.mu.Unlock()

	return payload, true
}

// TTL reports the remaining lifetime of an entry. Returns (0, false) if
// the entry is absent or already expired.
func (c *DiskCache) TTL(_ context.Context, key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	remaining := time.Until(elem.Value.(*diskEntry).expiresAt)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// Set writes a value durably with the given TTL. TTL=0 means no caching.
// The entry file is written to a temporary path and renamed into place.
func (c *DiskCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	now := time.Now()
	hdr := entryHeader{Key: key, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	data, err := encodeEntry(hdr, value)
	if err != nil {
		return err
	}

	path := c.entryPath(key)
	if err := writeAtomic(c.dir, path, data); err != nil {
		return err
	}

	var victims []string
	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*diskEntry)
		entry.createdAt = now
		entry.expiresAt = hdr.ExpiresAt
		c.order.MoveToFront(elem)
	} else {
		elem := c.order.PushFront(&diskEntry{
			key:       key,
			path:      path,
			createdAt: now,
			expiresAt: hdr.ExpiresAt,
		})
		c.entries[key] = elem
	}
	victims = c.evictLocked()
	c.mu.Unlock()

	for _, v := range victims {
		_ = os.Remove(v)
	}
	return nil
}

// Delete removes an entry. Idempotent - no error if the entry does not exist.
func (c *DiskCache) Delete(_ context.Context, key string) error {
	c.dropEntry(key)

	err := os.Remove(c.entryPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove entry: %v", ErrStorage, err)
	}
	return nil
}

// Clear removes all entries from the store and the backing directory.
// Idempotent.
func (c *DiskCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	names, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("%w: read cache directory: %v", ErrStorage, err)
	}
	var errs []error
	for _, d := range names {
		if d.IsDir() || filepath.Ext(d.Name()) != entryExt {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, d.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: clear: %v", ErrStorage, errors.Join(errs...))
	}
	return nil
}

// Len returns the number of indexed entries, including any that have
// expired but not yet been cleaned up.
func (c *DiskCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// entryPath maps a key to its file path. The filename is the hex SHA-256
// of the full key, so arbitrary key bytes never reach the filesystem.
func (c *DiskCache) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+entryExt)
}

// dropEntry removes a key from the in-memory index only.
func (c *DiskCache) dropEntry(key string) {
	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// evictLocked trims least-recently-used entries down to MaxEntries and
// returns the file paths to remove. Ties (entries never read since load)
// fall out in creation order because loadIndex seeds recency from
// creation time. Caller must hold c.mu.
func (c *DiskCache) evictLocked() []string {
	if c.policy.MaxEntries <= 0 {
		return nil
	}
	var victims []string
	for len(c.entries) > c.policy.MaxEntries {
		tail := c.order.Back()
		if tail == nil {
			break
		}
		entry := tail.Value.(*diskEntry)
		c.order.Remove(tail)
		delete(c.entries, entry.key)
		victims = append(victims, entry.path)
	}
	return victims
}

// loadIndex scans the directory and rebuilds the index, oldest entries at
// the eviction end. Unparseable files are removed.
func (c *DiskCache) loadIndex() error {
	names, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("%w: read cache directory: %v", ErrStorage, err)
	}

	var loaded []*diskEntry
	for _, d := range names {
		if d.IsDir() || filepath.Ext(d.Name()) != entryExt {
			continue
		}
		path := filepath.Join(c.dir, d.Name())
		hdr, err := readHeader(path)
		if err != nil {
			_ = os.Remove(path)
			continue
		}
		loaded = append(loaded, &diskEntry{
			key:       hdr.Key,
			path:      path,
			createdAt: hdr.CreatedAt,
			expiresAt: hdr.ExpiresAt,
		})
	}

	// Newest first so the oldest-created entries sit at the LRU tail.
	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].createdAt.After(loaded[j].createdAt)
	})
	for _, entry := range loaded {
		c.entries[entry.key] = c.order.PushBack(entry)
	}
	return nil
}

// encodeEntry serializes a header line followed by the raw payload.
func encodeEntry(hdr entryHeader, payload []byte) ([]byte, error) {
	head, err := json.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("%w: encode header: %v", ErrSerialize, err)
	}
	buf := make([]byte, 0, len(head)+1+len(payload))
	buf = append(buf, head...)
	buf = append(buf, '\n')
	buf = append(buf, payload...)
	return buf, nil
}

// decodeEntry splits an entry file into header and payload. The payload
// may contain arbitrary bytes; only the first newline delimits the header.
func decodeEntry(data []byte) (entryHeader, []byte, error) {
	var hdr entryHeader
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return hdr, nil, fmt.Errorf("%w: missing header delimiter", ErrSerialize)
	}
	if err := json.Unmarshal(data[:i], &hdr); err != nil {
		return hdr, nil, fmt.Errorf("%w: decode header: %v", ErrSerialize, err)
	}
	if hdr.Key == "" {
		return hdr, nil, fmt.Errorf("%w: empty key in header", ErrSerialize)
	}
	return hdr, data[i+1:], nil
}

// readHeader reads only the header line of an entry file.
func readHeader(path string) (entryHeader, error) {
	var hdr entryHeader
	f, err := os.Open(path)
	if err != nil {
		return hdr, fmt.Errorf("%w: open entry: %v", ErrStorage, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil {
		return hdr, fmt.Errorf("%w: read header: %v", ErrSerialize, err)
	}
	if err := json.Unmarshal(bytes.TrimSuffix(line, []byte{'\n'}), &hdr); err != nil {
		return hdr, fmt.Errorf("%w: decode header: %v", ErrSerialize, err)
	}
	if hdr.Key == "" {
		return hdr, fmt.Errorf("%w: empty key in header", ErrSerialize)
	}
	return hdr, nil
}

// writeAtomic writes data to a temporary file in dir and renames it to
// path, so readers never observe a partial write.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write entry: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close entry: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename entry: %v", ErrStorage, err)
	}
	return nil
}

// Ensure DiskCache implements Cache
var (
	_ Cache       = (*DiskCache)(nil)
	_ ttlReporter = (*DiskCache)(nil)
)
