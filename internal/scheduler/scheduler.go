package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"

	"github.com/hamed0406/storewatch/internal/domain"
)

// Runner is the single entry point shared by the timer and the HTTP trigger.
type Runner interface {
	RunCheckCycle(ctx context.Context) (domain.AppStatus, error)
}

// Scheduler runs a check cycle at startup and then whenever the cron
// expression fires.
type Scheduler struct {
	Logger *zap.Logger
	Runner Runner
	Cron   string

	expr  *cronexpr.Expression
	clock clock.Clock
}

func New(logger *zap.Logger, runner Runner, cron string, clk clock.Clock) (*Scheduler, error) {
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", cron, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		Logger: logger,
		Runner: runner,
		Cron:   cron,
		expr:   expr,
		clock:  clk,
	}, nil
}

// Next returns the first fire time strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.expr.Next(t)
}

// Run does an immediate pass, then one per cron fire.
// Stops when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	for {
		now := s.clock.Now()
		next := s.Next(now)
		if next.IsZero() {
			s.Logger.Warn("scheduler_no_future_run", zap.String("cron", s.Cron))
			return
		}
		s.Logger.Info("scheduler_next_run", zap.Time("at", next))

		t := s.clock.Timer(next.Sub(now))
		select {
		case <-ctx.Done():
			t.Stop()
			s.Logger.Info("scheduler_stopped")
			return
		case <-t.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce never lets a failing or panicking cycle stop the loop.
func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("scheduler_cycle_panic",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if _, err := s.Runner.RunCheckCycle(ctx); err != nil {
		s.Logger.Error("scheduler_cycle_failed", zap.Error(err))
	}
}
