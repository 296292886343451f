package scriptengine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/makeflow/internal/log"
)

// GoCache keeps compiled Go snippets keyed by the hash of their source, so
// an unchanged script is compiled once.
type GoCache struct {
	CacheDir string
	MaxAge   time.Duration
	Logger   *log.Logger
	mu       sync.Mutex
	binaries map[string]*BinaryState
	loaded   bool
}

// BinaryState tracks one cached binary.
type BinaryState struct {
	Key       string    `json:"key"`
	Binary    string    `json:"binary"`
	BuiltAt   time.Time `json:"built_at"`
	LastUsed  time.Time `json:"last_used"`
	BuildTime int64     `json:"build_time_ms"`
	SizeBytes int64     `json:"size_bytes"`
}

// CacheManifest stores metadata about cached binaries.
type CacheManifest struct {
	Version   string                  `json:"version"`
	Binaries  map[string]*BinaryState `json:"binaries"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// BuildFunc compiles source into the binary at output.
type BuildFunc func(source []byte, output string) error

// NewGoCache creates a cache rooted at cacheDir. Entries older than maxAge
// are rebuilt; a zero maxAge never expires entries.
func NewGoCache(cacheDir string, maxAge time.Duration) *GoCache {
	return &GoCache{
		CacheDir: cacheDir,
		MaxAge:   maxAge,
		binaries: make(map[string]*BinaryState),
	}
}

// Key returns the cache key of source.
func Key(source []byte) string {
	hasher := blake3.New()
	_, _ = hasher.Write(source)
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// LoadManifest loads the cache manifest from disk.
func (c *GoCache) LoadManifest() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *GoCache) loadLocked() error {
	c.loaded = true
	data, err := os.ReadFile(c.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			c.binaries = make(map[string]*BinaryState)
			return nil
		}
		return fmt.Errorf("read manifest: %w", err)
	}

	var manifest CacheManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		c.logger().WithError(err).Warn("resetting unreadable go script cache manifest", "path", c.manifestPath())
		c.binaries = make(map[string]*BinaryState)
		return nil
	}
	c.binaries = manifest.Binaries
	if c.binaries == nil {
		c.binaries = make(map[string]*BinaryState)
	}
	return nil
}

// SaveManifest saves the cache manifest to disk.
func (c *GoCache) SaveManifest() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *GoCache) saveLocked() error {
	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	manifest := CacheManifest{
		Version:   "1.0",
		Binaries:  c.binaries,
		UpdatedAt: time.Now(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(c.manifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Ensure returns the path of the binary for source, building it with build
// when it is missing or expired.
func (c *GoCache) Ensure(source []byte, build BuildFunc) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		if err := c.loadLocked(); err != nil {
			return "", err
		}
	}

	key := Key(source)
	if state, ok := c.binaries[key]; ok && c.fresh(state) {
		if _, err := os.Stat(state.Binary); err == nil {
			state.LastUsed = time.Now()
			_ = c.saveLocked()
			return state.Binary, nil
		}
	}

	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	binary := filepath.Join(c.CacheDir, key+exeSuffix())

	startTime := time.Now()
	if err := build(source, binary); err != nil {
		return "", err
	}

	var size int64
	if info, err := os.Stat(binary); err == nil {
		size = info.Size()
	}
	now := time.Now()
	c.binaries[key] = &BinaryState{
		Key:       key,
		Binary:    binary,
		BuiltAt:   now,
		LastUsed:  now,
		BuildTime: time.Since(startTime).Milliseconds(),
		SizeBytes: size,
	}
	if err := c.saveLocked(); err != nil {
		return "", err
	}
	return binary, nil
}

// Prune removes binaries unused for longer than maxAge and returns how many
// were removed. A zero maxAge removes nothing.
func (c *GoCache) Prune(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		if err := c.loadLocked(); err != nil {
			return 0, err
		}
	}

	pruned := 0
	for key, state := range c.binaries {
		if time.Since(state.LastUsed) <= maxAge {
			continue
		}
		if err := os.Remove(state.Binary); err != nil && !os.IsNotExist(err) {
			return pruned, fmt.Errorf("remove %s: %w", state.Binary, err)
		}
		delete(c.binaries, key)
		pruned++
	}
	if pruned == 0 {
		return 0, nil
	}
	return pruned, c.saveLocked()
}

// Len returns the number of cached binaries.
func (c *GoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.binaries)
}

func (c *GoCache) fresh(state *BinaryState) bool {
	return c.MaxAge <= 0 || time.Since(state.BuiltAt) < c.MaxAge
}

func (c *GoCache) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.DefaultLogger()
}

func (c *GoCache) manifestPath() string {
	return filepath.Join(c.CacheDir, "manifest.json")
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
