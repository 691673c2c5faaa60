package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"netguard/internal/snapshot"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultPacing   = 100 * time.Millisecond
)

// Config controls how often cycles run and how fast probes are started.
type Config struct {
	Interval time.Duration
	// Pacing is the minimum gap between two probe starts within a cycle.
	// Zero disables pacing.
	Pacing time.Duration
	// Workers bounds the number of probes in flight. 1 probes devices one
	// after another.
	Workers int
}

// Scheduler runs scan cycles on a fixed interval until stopped.
type Scheduler struct {
	cfg       Config
	store     Registry
	prober    Prober
	emitter   *Emitter
	metrics   *Metrics
	snapshots *snapshot.Store
	logger    zerolog.Logger

	now func() time.Time
	seq atomic.Uint64

	// cycleMu keeps cycles from overlapping, including direct RunCycle calls.
	cycleMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(
	cfg Config,
	store Registry,
	prober Prober,
	notifier Notifier,
	metrics *Metrics,
	snapshots *snapshot.Store,
	logger zerolog.Logger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Pacing < 0 {
		cfg.Pacing = 0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	if snapshots == nil {
		snapshots = snapshot.NewStore()
	}

	return &Scheduler{
		cfg:       cfg,
		store:     store,
		prober:    prober,
		emitter:   NewEmitter(store, notifier, metrics, logger),
		metrics:   metrics,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
	}
}

// Start launches the monitoring loop. The first cycle runs immediately.
// Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.logger.Warn().Msg("scheduler already started")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Dur("pacing", s.cfg.Pacing).
		Int("workers", s.cfg.Workers).
		Msg("monitoring started")

	go func() {
		defer close(done)
		s.loop(ctx)
	}()
}

// Stop cancels the loop, abandoning any in-flight probes, and waits for it to
// exit. It is safe to call more than once or before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info().Msg("monitoring stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	s.safeCycle(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeCycle(ctx)
		}
	}
}

// safeCycle runs one cycle and swallows whatever it raises so the loop keeps
// going.
func (s *Scheduler) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.CycleFailures.Inc()
			s.logger.Error().Interface("panic", r).Msg("scan cycle panicked")
		}
	}()

	if _, err := s.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.metrics.CycleFailures.Inc()
		s.logger.Error().Err(err).Msg("scan cycle failed")
	}
}

// Snapshots returns the store the scheduler publishes cycle summaries to.
func (s *Scheduler) Snapshots() *snapshot.Store {
	return s.snapshots
}

func (s *Scheduler) publish(c snapshot.Cycle, cycleErr error) snapshot.Cycle {
	c.FinishedAt = s.now()
	c.DurationMs = c.FinishedAt.Sub(c.StartedAt).Milliseconds()
	if cycleErr != nil {
		c.Error = cycleErr.Error()
	}
	s.metrics.CycleDuration.Observe(c.FinishedAt.Sub(c.StartedAt).Seconds())
	s.snapshots.Publish(c)
	return c
}
