// Package scheduler runs periodic ledger maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/robfig/cron/v3"
)

// Expirer fails pending withdrawals older than maxAge.
type Expirer interface {
	ExpireStaleWithdrawals(ctx context.Context, maxAge time.Duration) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	expirer Expirer
	cfg     *config.Scheduler
	logger  *slog.Logger
}

// slogPrintf adapts cron's Printf logger to slog.
type slogPrintf struct {
	logger *slog.Logger
}

func (p slogPrintf) Printf(format string, args ...any) {
	p.logger.Debug(fmt.Sprintf(format, args...))
}

// New registers the jobs enabled by cfg. A bad schedule is an error.
func New(cfg *config.Scheduler, expirer Expirer, logger *slog.Logger) (*Scheduler, error) {
	logger = logger.With("component", "scheduler")
	cronLogger := cron.PrintfLogger(slogPrintf{logger: logger})
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		), cron.WithLogger(cronLogger)),
		expirer: expirer,
		cfg:     cfg,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(cfg.WithdrawalExpirySchedule, s.expireWithdrawals); err != nil {
		return nil, fmt.Errorf("invalid withdrawal expiry schedule %q: %w", cfg.WithdrawalExpirySchedule, err)
	}
	return s, nil
}

func (s *Scheduler) expireWithdrawals() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.expirer.ExpireStaleWithdrawals(ctx, s.cfg.WithdrawalMaxAge)
	if err != nil {
		s.logger.Error("Withdrawal expiry run failed", "error", err)
		return
	}
	s.logger.Debug("Withdrawal expiry run finished", "expired", n)
}

func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started", "withdrawal_expiry", s.cfg.WithdrawalExpirySchedule)
	s.cron.Start()
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}
