// Package storage persists the global config and the cache of the runner as
// TOML files.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/felixgeelhaar/makeflow/internal/log"
	"github.com/felixgeelhaar/makeflow/internal/version"
)

// HomeEnv overrides the directory both files are stored in.
const HomeEnv = "MAKEFLOW_HOME"

const (
	appDir     = "makeflow"
	configFile = "config.toml"
	cacheFile  = "cache.toml"
)

// GlobalConfig is the user-wide configuration.
type GlobalConfig struct {
	LogLevel                   string `toml:"log_level,omitempty"`
	DefaultTaskName            string `toml:"default_task_name,omitempty"`
	UpdateCheckMinimumInterval string `toml:"update_check_minimum_interval,omitempty"`
	// GoCacheMaxAge is a duration such as "72h"; "0" keeps compiled scripts forever.
	GoCacheMaxAge string `toml:"go_cache_max_age,omitempty"`
}

// DefaultGoCacheMaxAge applies when go_cache_max_age is unset.
const DefaultGoCacheMaxAge = 7 * 24 * time.Hour

// GoCacheAge returns how long compiled Go scripts are kept. An invalid value
// yields the default along with the parse error.
func (c *GlobalConfig) GoCacheAge() (time.Duration, error) {
	if c.GoCacheMaxAge == "" {
		return DefaultGoCacheMaxAge, nil
	}
	d, err := time.ParseDuration(c.GoCacheMaxAge)
	if err != nil {
		return DefaultGoCacheMaxAge, fmt.Errorf("invalid go_cache_max_age %q: %w", c.GoCacheMaxAge, err)
	}
	if d < 0 {
		return DefaultGoCacheMaxAge, fmt.Errorf("invalid go_cache_max_age %q: negative duration", c.GoCacheMaxAge)
	}
	return d, nil
}

// UpdateInterval returns the configured update check interval, weekly when unset.
func (c *GlobalConfig) UpdateInterval() string {
	if c.UpdateCheckMinimumInterval == "" {
		return version.IntervalWeekly
	}
	return c.UpdateCheckMinimumInterval
}

// Cache holds state carried between runs.
type Cache struct {
	// LastUpdateCheck is a unix timestamp, 0 when no check ran yet.
	LastUpdateCheck int64 `toml:"last_update_check,omitempty"`
}

// Store reads and writes the files of one home.
type Store struct {
	configDir string
	cacheDir  string
}

// NewStore creates a store rooted at explicit directories.
func NewStore(configDir, cacheDir string) *Store {
	return &Store{configDir: configDir, cacheDir: cacheDir}
}

// Default returns the store of the current user. MAKEFLOW_HOME, when set,
// holds both files; otherwise the OS config and cache directories are used.
func Default() (*Store, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return NewStore(home, home), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate config directory: %w", err)
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("locate cache directory: %w", err)
	}
	return NewStore(filepath.Join(configDir, appDir), filepath.Join(cacheDir, appDir)), nil
}

// ConfigPath returns the path of config.toml.
func (s *Store) ConfigPath() string { return filepath.Join(s.configDir, configFile) }

// CachePath returns the path of cache.toml.
func (s *Store) CachePath() string { return filepath.Join(s.cacheDir, cacheFile) }

// CacheDir returns the directory cached artifacts are kept in.
func (s *Store) CacheDir() string { return s.cacheDir }

// LoadConfig reads the global config. A missing file yields the zero config.
func (s *Store) LoadConfig() (*GlobalConfig, error) {
	cfg := &GlobalConfig{}
	if err := load(s.ConfigPath(), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the global config.
func (s *Store) SaveConfig(cfg *GlobalConfig) error {
	return save(s.ConfigPath(), cfg)
}

// LoadCache reads the cache. A missing or corrupt file yields an empty cache.
func (s *Store) LoadCache() *Cache {
	c := &Cache{}
	if err := load(s.CachePath(), c); err != nil {
		log.DefaultLogger().WithError(err).Debug("ignoring unreadable cache", "path", s.CachePath())
		return &Cache{}
	}
	return c
}

// SaveCache writes the cache.
func (s *Store) SaveCache(c *Cache) error {
	return save(s.CachePath(), c)
}

func load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func save(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := toml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
