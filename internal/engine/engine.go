package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contentsync/internal/logger"
	"contentsync/internal/metrics"
	"contentsync/internal/models"
	"contentsync/internal/processor"
	"contentsync/internal/runlog"
	"contentsync/internal/settings"
	"contentsync/internal/source"
	"contentsync/internal/store"
)

// Source fetches the latest batch of records from the provider.
type Source interface {
	Fetch(ctx context.Context, token, sourceID string) ([]models.ContentRecord, error)
}

// Settings is the engine's view of the mutable configuration and run
// history.
type Settings interface {
	LoadSyncConfig(ctx context.Context) (settings.SyncConfig, error)
	SaveRunLog(ctx context.Context, blob string) error
	SetLastRun(ctx context.Context, t time.Time) error
	ClearHistory(ctx context.Context) error
}

// Attacher sideloads and attaches a record's media onto a content.
type Attacher interface {
	Attach(ctx context.Context, c *store.Content, rec models.ContentRecord, rl *runlog.Log)
}

// Summary strings returned by RunOnce. Operators consult the persisted
// log for detail; the return value is deliberately terse.
const (
	SummaryComplete = "Sync complete, check logs"
	SummaryFailed   = "Sync failed, check logs"
	SummaryBusy     = "Sync already running"
)

// Engine runs one end-to-end synchronization per RunOnce call:
// fetch → validate → dedupe → create → enrich → attach media → log.
// Runs are strictly sequential per instance; a call that arrives while a
// run is in flight returns SummaryBusy without touching any state.
type Engine struct {
	src      Source
	store    store.ContentStore
	settings Settings
	registry processor.Registry
	media    Attacher

	mu sync.Mutex
}

func New(src Source, st store.ContentStore, set Settings, reg processor.Registry, media Attacher) *Engine {
	return &Engine{
		src:      src,
		store:    st,
		settings: set,
		registry: reg,
		media:    media,
	}
}

// RunOnce executes a full run. Content-level failures never propagate to
// the caller; every path resolves to a summary string plus log entries.
// The returned error is non-nil only for faults in the engine's own
// plumbing: an unreadable configuration or an unwritable run log.
func (e *Engine) RunOnce(ctx context.Context) (string, error) {
	if !e.mu.TryLock() {
		return SummaryBusy, nil
	}
	defer e.mu.Unlock()

	started := time.Now()
	defer func() {
		metrics.RunDuration.Observe(time.Since(started).Seconds())
	}()

	log := logger.Log.WithField("service", "sync")
	rl := runlog.New()

	cfg, err := e.settings.LoadSyncConfig(ctx)
	if err != nil {
		return SummaryFailed, fmt.Errorf("load sync config: %w", err)
	}

	log.WithField("source_id", cfg.SourceID).Info("Starting sync run")

	records, err := e.src.Fetch(ctx, cfg.Token, cfg.SourceID)
	if err != nil {
		if errors.Is(err, source.ErrEmptyDataset) {
			// Nothing to do, still a successful run.
			rl.Append("No records returned, nothing to import")
			return e.finalize(ctx, rl, 0, 0)
		}
		return e.fault(ctx, rl, err)
	}

	imported, skipped := 0, 0
	for _, raw := range records {
		if ctx.Err() != nil {
			rl.Appendf("Run cancelled: %v", ctx.Err())
			break
		}
		if e.processRecord(ctx, raw, rl) {
			imported++
		} else {
			skipped++
		}
	}

	return e.finalize(ctx, rl, imported, skipped)
}

// processRecord imports one record, reporting whether it was imported.
// Every failure is absorbed into the run log.
func (e *Engine) processRecord(ctx context.Context, raw models.ContentRecord, rl *runlog.Log) bool {
	rec, ok := models.Validate(raw, e.registry.Known)
	if !ok {
		metrics.RecordsSkipped.Inc()
		if rec.Title == "" {
			rl.Append("Skipped record without a title")
		} else {
			rl.Appendf("Skipped '%s': unknown content type '%s'", rec.Title, rec.ContentType)
		}
		return false
	}

	exists, err := e.store.Exists(ctx, rec.ContentType, rec.Title)
	if err != nil {
		metrics.RecordsFailed.Inc()
		rl.Appendf("Failed duplicate check for '%s': %v", rec.Title, err)
		return false
	}
	if exists {
		metrics.RecordsSkipped.Inc()
		rl.Appendf("Skipped duplicate: '%s'", rec.Title)
		return false
	}

	content, err := e.store.Create(ctx, rec)
	if err != nil {
		metrics.RecordsFailed.Inc()
		rl.Appendf("Failed to create '%s': %v", rec.Title, err)
		return false
	}

	if p := e.registry.For(rec.ContentType); p != nil {
		if err := p.Enrich(ctx, content, rec, rl); err != nil {
			// The content exists; enrichment detail is lost but the
			// import stands.
			rl.Appendf("Enrichment failed for '%s': %v", rec.Title, err)
		}
	}

	e.media.Attach(ctx, content, rec, rl)

	metrics.RecordsImported.Inc()
	rl.Appendf("Imported: '%s'", rec.Title)
	return true
}

// fault handles a fatal fetch error: one log line, persist, return.
// The last-successful-run timestamp is left untouched.
func (e *Engine) fault(ctx context.Context, rl *runlog.Log, err error) (string, error) {
	if errors.Is(err, source.ErrMissingToken) {
		rl.Append("Error: API Token is missing")
	} else {
		rl.Appendf("Error: %v", err)
	}
	logger.Log.Errorf("Sync run faulted: %v", err)
	metrics.RunsTotal.WithLabelValues("faulted").Inc()

	if saveErr := e.settings.SaveRunLog(ctx, rl.String()); saveErr != nil {
		return SummaryFailed, fmt.Errorf("persist run log: %w", saveErr)
	}
	return SummaryFailed, nil
}

func (e *Engine) finalize(ctx context.Context, rl *runlog.Log, imported, skipped int) (string, error) {
	rl.Appendf("Sync finished: %d imported, %d skipped", imported, skipped)
	logger.Log.WithField("imported", imported).WithField("skipped", skipped).Info("Sync run finished")
	metrics.RunsTotal.WithLabelValues("success").Inc()

	if err := e.settings.SaveRunLog(ctx, rl.String()); err != nil {
		return SummaryFailed, fmt.Errorf("persist run log: %w", err)
	}
	if err := e.settings.SetLastRun(ctx, time.Now()); err != nil {
		return SummaryFailed, fmt.Errorf("persist last run time: %w", err)
	}
	return SummaryComplete, nil
}

// ClearHistory blanks the persisted run log and timestamp.
func (e *Engine) ClearHistory(ctx context.Context) error {
	return e.settings.ClearHistory(ctx)
}
