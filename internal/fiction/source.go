package fiction

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/goatkit/fingerd/internal/finger"
	"github.com/goatkit/fingerd/internal/models"
)

// tickSchedule fires every second, the resolution scenario offsets
// are written in.
const tickSchedule = "* * * * * *"

// ScenarioSource is a finger.Source whose users are played from a
// Scenario. Between Start and Stop a cron job advances the scenario
// once per second; queries see the state as of their own time.
type ScenarioSource struct {
	finger.DummySource

	logger  *log.Logger
	cron    *cron.Cron
	ownCron bool
	now     func() time.Time
	onStop  func()
	metrics *fictionMetrics

	mu        sync.Mutex
	scenario  *Scenario
	store     *Store
	start     time.Time
	lastStart *time.Time
	lastDelta *time.Duration
	entry     cron.EntryID
	ended     bool
}

// SourceOption configures a ScenarioSource.
type SourceOption func(*ScenarioSource)

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) SourceOption {
	return func(s *ScenarioSource) {
		s.logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance. It must
// accept six-field schedules and the caller keeps ownership of its
// lifecycle.
func WithCron(c *cron.Cron) SourceOption {
	return func(s *ScenarioSource) {
		s.cron = c
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) SourceOption {
	return func(s *ScenarioSource) {
		s.now = now
	}
}

// WithStart sets the scenario start time instead of the moment the
// source was created.
func WithStart(start time.Time) SourceOption {
	return func(s *ScenarioSource) {
		s.start = start
	}
}

// WithOnStop registers the callback invoked when a scenario with a
// stop ending runs out. The callback runs from the scheduler
// goroutine and must not block.
func WithOnStop(fn func()) SourceOption {
	return func(s *ScenarioSource) {
		s.onStop = fn
	}
}

// NewScenarioSource verifies the scenario and builds a source playing
// it. The source keeps its own copy; later changes to the given
// scenario have no effect.
func NewScenarioSource(sc *Scenario, opts ...SourceOption) (*ScenarioSource, error) {
	if err := sc.Verify(); err != nil {
		return nil, err
	}

	s := &ScenarioSource{
		logger:   log.Default(),
		now:      time.Now,
		scenario: sc.clone(),
		store:    NewStore(),
		metrics:  globalFictionMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.start.IsZero() {
		s.start = s.now()
	}
	return s, nil
}

// Start registers the scheduler tick and begins playing the scenario.
func (s *ScenarioSource) Start() error {
	if s.cron == nil {
		s.cron = cron.New(cron.WithSeconds())
		s.ownCron = true
	}

	entry, err := s.cron.AddFunc(tickSchedule, s.Tick)
	if err != nil {
		return fmt.Errorf("fiction: scheduling ticks: %w", err)
	}
	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()

	if s.ownCron {
		s.cron.Start()
	}

	// Play the opening actions right away instead of waiting for the
	// first tick.
	s.Tick()
	return nil
}

// Stop unregisters the scheduler tick. The current state stays
// queryable but no longer advances.
func (s *ScenarioSource) Stop() {
	s.mu.Lock()
	entry := s.entry
	s.entry = 0
	s.mu.Unlock()

	if entry != 0 {
		s.cron.Remove(entry)
	}
	if s.ownCron {
		s.cron.Stop()
	}
}

// Tick advances the scenario to the current time, applying every
// action whose offset has been reached since the previous tick.
func (s *ScenarioSource) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}

	now := s.now()
	base := s.start
	if s.lastStart != nil {
		base = *s.lastStart
	}

	if s.lastDelta != nil && now.Before(base.Add(*s.lastDelta)) {
		// The clock regressed past the last observed point.
		// Resynchronize by replaying from the original start.
		s.logger.Printf("fiction: clock went backward, replaying the scenario")
		s.store.Reset()
		s.lastStart = nil
		s.lastDelta = nil
		base = s.start
	}

	delta := now.Sub(base)
	duration := s.scenario.Duration()

	if delta > duration {
		switch s.scenario.Ending() {
		case EndingStop:
			// Actions up to the duration still play below, so the
			// final state is complete before the stop callback runs.
			delta = duration
			s.ended = true
		case EndingFreeze:
			delta = duration
		case EndingRepeat:
			base = now.Add(-(now.Sub(base) % duration))
			s.store.Reset()
			s.lastDelta = nil
			delta = now.Sub(base)
			s.metrics.restarts.Inc()
			s.logger.Printf("fiction: scenario over, replaying from the start")
		}
	}

	for _, ta := range s.scenario.Between(s.lastDelta, delta) {
		if err := s.store.Apply(ta.action, base.Add(ta.offset)); err != nil {
			// A verified scenario cannot produce this; if it does the
			// fictional state is corrupt and lying about it is worse
			// than crashing.
			s.logger.Printf("fiction: %v", err)
			panic(err)
		}
		s.metrics.recordAction(ta.action)
	}

	d := delta
	s.lastDelta = &d
	s.lastStart = &base

	if s.ended {
		s.logger.Printf("fiction: scenario over, stopping")
		if s.onStop != nil {
			go s.onStop()
		}
	}
}

// ReplaceScenario swaps in a new scenario and restarts playback from
// now. The new scenario is verified first; on error the current one
// keeps playing.
func (s *ScenarioSource) ReplaceScenario(sc *Scenario) error {
	if err := sc.Verify(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenario = sc.clone()
	s.store.Reset()
	s.start = s.now()
	s.lastStart = nil
	s.lastDelta = nil
	s.ended = false
	return nil
}

// SearchUsers implements finger.Source against the scenario state.
func (s *ScenarioSource) SearchUsers(query *string, active *bool) []*models.User {
	s.mu.Lock()
	now := s.now()
	store := s.store
	s.mu.Unlock()
	return store.SearchUsers(query, active, now)
}
