package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "api:\n  base_url: http://plone:8080/Plone/++api++\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "conference-rooms/bookings", cfg.API.BookingsPath)
	assert.Equal(t, 10*time.Second, cfg.APITimeout())
	assert.Equal(t, 8, cfg.Calendar.StartHour)
	assert.Equal(t, 20, cfg.Calendar.EndHour)
	assert.Equal(t, 30, cfg.Calendar.SlotMinutes)
	assert.Equal(t, "data/roombook.db", cfg.Database.Path)
	assert.Equal(t, 14*24*time.Hour, cfg.SnapshotRetention())
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.False(t, cfg.NotificationsEnabled())
	assert.False(t, cfg.SheetsEnabled())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.Equal(t, 14*24*time.Hour, cfg.BackupRetention())
	assert.Equal(t, 15*time.Minute, cfg.SheetSyncInterval())

	grid, err := cfg.Grid()
	require.NoError(t, err)
	assert.Len(t, grid.Slots(), 24)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ROOMBOOK_TEST_API", "https://camp.example/++api++")
	t.Setenv("ROOMBOOK_TEST_BOT", "123:abc")
	path := writeConfig(t, t.TempDir(), `
api:
  base_url: ${ROOMBOOK_TEST_API}
  cache_ttl_seconds: 60
calendar:
  start_hour: 9
  end_hour: 17
  slot_minutes: 60
  timezone: UTC
telegram:
  bot_token: ${ROOMBOOK_TEST_BOT}
  chat_ids: [-100200, 42]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://camp.example/++api++", cfg.API.BaseURL)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.True(t, cfg.NotificationsEnabled())
	assert.Equal(t, []int64{-100200, 42}, cfg.Telegram.ChatIDs)

	grid, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, "UTC", grid.Location.String())
	assert.Len(t, grid.Slots(), 8)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing base url", "calendar:\n  start_hour: 8\n"},
		{"bad window", "api:\n  base_url: http://x\ncalendar:\n  start_hour: 18\n  end_hour: 9\n"},
		{"bad timezone", "api:\n  base_url: http://x\ncalendar:\n  timezone: Mars/Olympus\n"},
		{"bad yaml", "api: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "api:\n  base_url: http://x\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *Config, 1)
	require.NoError(t, Watch(ctx, path, 10*time.Millisecond, nil, func(cfg *Config) {
		select {
		case updates <- cfg:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://y\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case cfg := <-updates:
		assert.Equal(t, "http://y", cfg.API.BaseURL)
	case <-time.After(2 * time.Second):
		t.Fatal("config reload not observed")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_RejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "api:\n  base_url: http://x\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	logger := zerolog.New(&out)
	updates := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, 10*time.Millisecond, &logger, func(cfg *Config) {
		updates <- cfg
	}))

	require.NoError(t, os.WriteFile(path, []byte("api: [\n"), 0o644))
	broken := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, broken, broken))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "config change rejected")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, updates)

	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://z\n"), 0o644))
	fixed := broken.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, fixed, fixed))

	select {
	case cfg := <-updates:
		assert.Equal(t, "http://z", cfg.API.BaseURL)
	case <-time.After(2 * time.Second):
		t.Fatal("config reload not observed")
	}
	assert.Equal(t, 1, strings.Count(out.String(), "config change rejected"))
}
