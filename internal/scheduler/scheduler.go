// Package scheduler runs the recurring materializer on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"walletwise/internal/schedule"
	"walletwise/internal/services"
)

// Scheduler triggers a materialization run once at start and then on every
// tick. Only one run is in flight at a time.
type Scheduler struct {
	materializer services.Materializer
	interval     time.Duration
	location     *time.Location
	log          *zap.SugaredLogger
	now          func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a scheduler. A nil location means UTC.
func New(m services.Materializer, interval time.Duration, loc *time.Location, log *zap.SugaredLogger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		materializer: m,
		interval:     interval,
		location:     loc,
		log:          log,
		now:          time.Now,
	}
}

// Today returns the current business date in the scheduler's timezone.
func (s *Scheduler) Today() time.Time {
	return schedule.Day(s.now().In(s.location))
}

// Start launches the background loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Infow("scheduler started", "interval", s.interval, "timezone", s.location.String())
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Infow("scheduler stopped")
}

// RunOnce materializes everything due today.
func (s *Scheduler) RunOnce(ctx context.Context) (*services.RunResult, error) {
	today := s.Today()
	result, err := s.materializer.RunDueRules(ctx, today)
	if err != nil {
		s.log.Errorw("recurring run failed", "today", today.Format("2006-01-02"), "error", err)
		return nil, err
	}
	for _, f := range result.Failures {
		s.log.Warnw("recurring rule left behind",
			"rule_id", f.RuleID,
			"wallet_id", f.WalletID,
			"period", f.Period.Format("2006-01-02"),
			"error", f.Error,
		)
	}
	return result, nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
