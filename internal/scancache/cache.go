// Package scancache keeps extracted marker data of unchanged files
// between runs.
package scancache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"autoplugin/internal/project"
	"autoplugin/internal/scan"
)

// Current schema version - increment when Payload format changes.
const schemaVersion uint16 = 2

// Payload is what is stored per file content.
type Payload struct {
	Schema uint16
	Path   string
	Raw    scan.Raw
}

// Cache stores payloads on disk keyed by file content digest. Safe for
// concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns the cache under $XDG_CACHE_HOME/<app>, creating it.
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir returns a cache rooted at dir.
func OpenDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Key derives the cache key of a file from its content hash.
func Key(content project.Digest) project.Digest {
	return project.Combine(content, project.StringDigest(fmt.Sprintf("autoplugin-scan-v%d", schemaVersion)))
}

func (c *Cache) pathFor(key project.Digest) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "scan", hexKey[:2], hexKey+".mp")
}

// Put serializes raw under key. The write is atomic.
func (c *Cache) Put(key project.Digest, path string, raw *scan.Raw) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&Payload{Schema: schemaVersion, Path: path, Raw: *raw}); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads the payload stored under key. A missing entry or one with an
// older schema is a miss, not an error.
func (c *Cache) Get(key project.Digest) (*scan.Raw, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() {
		_ = f.Close()
	}()

	var payload Payload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode scan cache entry: %w", err)
	}
	if payload.Schema != schemaVersion {
		return nil, false, nil
	}
	return &payload.Raw, true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "scan"))
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}
