package settings

import (
	"context"
	"sync"
	"time"

	"contentsync/internal/config"
)

// Memory keeps settings in process, for tests and database-less runs.
type Memory struct {
	mu sync.Mutex

	Sync    SyncConfig
	LogBlob string
	RunAt   time.Time

	SaveLogErr error
}

func NewMemory(cfg SyncConfig) *Memory {
	return &Memory{Sync: cfg}
}

func (m *Memory) LoadSyncConfig(ctx context.Context) (SyncConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.Sync
	if cfg.IntervalMinutes < config.MinSyncIntervalMinutes {
		cfg.IntervalMinutes = config.MinSyncIntervalMinutes
	}
	return cfg, nil
}

func (m *Memory) SaveRunLog(ctx context.Context, blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveLogErr != nil {
		return m.SaveLogErr
	}
	m.LogBlob = blob
	return nil
}

func (m *Memory) SetLastRun(ctx context.Context, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunAt = t
	return nil
}

func (m *Memory) LastRun(ctx context.Context) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LogBlob, m.RunAt, nil
}

func (m *Memory) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogBlob = ""
	m.RunAt = time.Time{}
	return nil
}
