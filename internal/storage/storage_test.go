package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, dir)

	cfg, err := s.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, &GlobalConfig{}, cfg)
	assert.Equal(t, "weekly", cfg.UpdateInterval())

	cfg.LogLevel = "verbose"
	cfg.DefaultTaskName = "ci"
	cfg.UpdateCheckMinimumInterval = "daily"
	require.NoError(t, s.SaveConfig(cfg))

	loaded, err := s.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, "daily", loaded.UpdateInterval())
}

func TestConfigFileFormat(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, dir)
	require.NoError(t, os.WriteFile(s.ConfigPath(), []byte(`
log_level = "error"
update_check_minimum_interval = "never"
`), 0o644))

	cfg, err := s.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "never", cfg.UpdateInterval())
}

func TestConfigParseError(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, dir)
	require.NoError(t, os.WriteFile(s.ConfigPath(), []byte("log_level = ["), 0o644))

	_, err := s.LoadConfig()
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	s := NewStore(t.TempDir(), dir)

	assert.Zero(t, s.LoadCache().LastUpdateCheck)

	require.NoError(t, s.SaveCache(&Cache{LastUpdateCheck: 1700000000}))
	assert.Equal(t, int64(1700000000), s.LoadCache().LastUpdateCheck)
	assert.Equal(t, dir, s.CacheDir())

	require.NoError(t, os.WriteFile(s.CachePath(), []byte("not = [toml"), 0o644))
	assert.Zero(t, s.LoadCache().LastUpdateCheck)
}

func TestDefaultHonorsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	s, err := Default()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml"), s.ConfigPath())
	assert.Equal(t, filepath.Join(home, "cache.toml"), s.CachePath())
}

func TestGoCacheAge(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"", DefaultGoCacheMaxAge, false},
		{"72h", 72 * time.Hour, false},
		{"0", 0, false},
		{"soon", DefaultGoCacheMaxAge, true},
		{"-1h", DefaultGoCacheMaxAge, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := (&GlobalConfig{GoCacheMaxAge: tt.value}).GoCacheAge()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestGoCacheAgeFromFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, dir)
	require.NoError(t, os.WriteFile(s.ConfigPath(), []byte(`go_cache_max_age = "36h"`), 0o644))

	cfg, err := s.LoadConfig()
	require.NoError(t, err)
	age, err := cfg.GoCacheAge()
	require.NoError(t, err)
	assert.Equal(t, 36*time.Hour, age)
}
