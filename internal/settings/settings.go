package settings

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contentsync/internal/config"
)

// Setting keys. The engine re-reads the sync_* keys on every run, so
// operator changes take effect without a restart.
const (
	keyToken    = "sync_token"
	keySourceID = "sync_source_id"
	keyAutoSync = "sync_auto"
	keyInterval = "sync_interval_minutes"
	keyLastLog  = "last_run_log"
	keyLastRun  = "last_run_at"
)

// SyncConfig is the mutable engine configuration, loaded fresh before
// each run.
type SyncConfig struct {
	Token           string
	SourceID        string
	AutoSync        bool
	IntervalMinutes int
}

// Store persists key/value settings, the run log blob and the last
// successful run timestamp.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO settings (key, value) VALUES ($1, $2)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
    `, key, value)
	return err
}

// Seed writes the sync settings from the bootstrap config unless they are
// already present, so a deployed instance keeps operator edits across
// restarts.
func (s *Store) Seed(ctx context.Context, cfg *config.Config) error {
	existing, err := s.get(ctx, keySourceID)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}

	pairs := map[string]string{
		keyToken:    cfg.APIToken,
		keySourceID: cfg.SourceID,
		keyAutoSync: strconv.FormatBool(cfg.AutoSync),
		keyInterval: strconv.Itoa(cfg.IntervalMinutes),
	}
	for k, v := range pairs {
		if err := s.set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// LoadSyncConfig reads the mutable sync settings, applying the interval
// floor.
func (s *Store) LoadSyncConfig(ctx context.Context) (SyncConfig, error) {
	var cfg SyncConfig
	var err error

	if cfg.Token, err = s.get(ctx, keyToken); err != nil {
		return cfg, err
	}
	if cfg.SourceID, err = s.get(ctx, keySourceID); err != nil {
		return cfg, err
	}
	auto, err := s.get(ctx, keyAutoSync)
	if err != nil {
		return cfg, err
	}
	cfg.AutoSync = auto == "true"

	interval, err := s.get(ctx, keyInterval)
	if err != nil {
		return cfg, err
	}
	cfg.IntervalMinutes, _ = strconv.Atoi(interval)
	if cfg.IntervalMinutes < config.MinSyncIntervalMinutes {
		cfg.IntervalMinutes = config.MinSyncIntervalMinutes
	}
	return cfg, nil
}

// SaveRunLog persists the run log blob. Called for faulted runs too.
func (s *Store) SaveRunLog(ctx context.Context, blob string) error {
	return s.set(ctx, keyLastLog, blob)
}

// SetLastRun records the completion time of a successful run.
func (s *Store) SetLastRun(ctx context.Context, t time.Time) error {
	return s.set(ctx, keyLastRun, t.UTC().Format(time.RFC3339))
}

// LastRun returns the persisted log blob and last successful run time.
// A zero time means no successful run has completed yet.
func (s *Store) LastRun(ctx context.Context) (string, time.Time, error) {
	blob, err := s.get(ctx, keyLastLog)
	if err != nil {
		return "", time.Time{}, err
	}
	raw, err := s.get(ctx, keyLastRun)
	if err != nil {
		return "", time.Time{}, err
	}
	var ts time.Time
	if raw != "" {
		if ts, err = time.Parse(time.RFC3339, raw); err != nil {
			return "", time.Time{}, err
		}
	}
	return blob, ts, nil
}

// ClearHistory blanks the persisted log and timestamp.
func (s *Store) ClearHistory(ctx context.Context) error {
	if err := s.set(ctx, keyLastLog, ""); err != nil {
		return err
	}
	return s.set(ctx, keyLastRun, "")
}
