package scheduler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"contentsync/internal/config"
	"contentsync/internal/logger"
)

// Scheduler drives the engine on a fixed interval. It owns a single cron
// entry: re-registration removes the previous entry before adding the new
// one, so interval changes can never stack timers, and the run chain is
// wrapped in SkipIfStillRunning so a slow run swallows the next tick
// instead of overlapping it.
type Scheduler struct {
	cron *cron.Cron

	mu       sync.Mutex
	tick     func()
	entryID  cron.EntryID
	active   bool
	interval int
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{}),
		)),
	}
}

// OnTick sets the callback invoked on every interval. Must be called
// before RegisterInterval.
func (s *Scheduler) OnTick(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = fn
}

// RegisterInterval (re)schedules the tick every minutes minutes, applying
// the configured floor. Idempotent: any prior registration is cleared
// first.
func (s *Scheduler) RegisterInterval(minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tick == nil {
		return errors.New("no tick callback registered")
	}
	if minutes < config.MinSyncIntervalMinutes {
		minutes = config.MinSyncIntervalMinutes
	}

	if s.active {
		s.cron.Remove(s.entryID)
		s.active = false
	}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", minutes), s.tick)
	if err != nil {
		return fmt.Errorf("register interval: %w", err)
	}
	s.entryID = id
	s.active = true
	s.interval = minutes
	logger.Log.WithField("interval_minutes", minutes).Info("Sync schedule registered")
	return nil
}

// Clear removes the registration, if any.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.cron.Remove(s.entryID)
		s.active = false
		s.interval = 0
		logger.Log.Info("Sync schedule cleared")
	}
}

// Interval returns the currently registered interval in minutes, or 0.
func (s *Scheduler) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Entries returns the number of live cron entries.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins dispatching ticks.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts dispatch and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts logrus to the cron.Logger interface used by the
// overlap-skip chain.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.WithField("service", "scheduler").Debug(msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.WithField("service", "scheduler").Errorf("%s: %v", msg, err)
}
