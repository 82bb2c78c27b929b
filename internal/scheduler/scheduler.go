package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	"github.com/nivalabs/creditgate/internal/config"
	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
)

// fallbackPlanID is where lapsed paid accounts land after their renewal
// window plus grace period passes without a successful payment.
const fallbackPlanID = "free"

type Param struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	AccountRepo accountdomain.Repository
	UsageRepo   usagedomain.Repository
}

type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.SchedulerConfig
	clock       clock.Clock
	accountRepo accountdomain.Repository
	usageRepo   usagedomain.Repository
}

func New(p Param) *Scheduler {
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler"),
		cfg:         p.Cfg.Scheduler,
		clock:       p.Clock,
		accountRepo: p.AccountRepo,
		usageRepo:   p.UsageRepo,
	}
}

// RunForever ticks every configured interval until ctx is cancelled. Job
// errors are logged, never fatal; the next tick retries.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	s.log.Info("scheduler started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) {
	if err := s.ExpirePlansJob(ctx); err != nil {
		s.log.Error("plan expiry job failed", zap.Error(err))
	}
	if err := s.PruneUsageJob(ctx); err != nil {
		s.log.Error("usage prune job failed", zap.Error(err))
	}
	if err := s.PrunePaymentEventsJob(ctx); err != nil {
		s.log.Error("payment event prune job failed", zap.Error(err))
	}
}

// ExpirePlansJob downgrades active paid plans whose renewal date has lapsed
// past the grace period back to the fallback plan.
func (s *Scheduler) ExpirePlansJob(ctx context.Context) error {
	cutoff := s.clock.Now(ctx).AddDate(0, 0, -s.cfg.PlanExpiryGraceDays)

	expired, err := s.accountRepo.ExpireLapsedPlans(ctx, s.db, cutoff, fallbackPlanID)
	if err != nil {
		return err
	}
	if expired > 0 {
		s.log.Info("expired lapsed plans",
			zap.Int64("accounts", expired),
			zap.Time("cutoff", cutoff))
	}
	return nil
}

// PruneUsageJob drops closed usage periods older than the retention window.
// Periods sort lexicographically (YYYY-MM) so a key comparison is enough.
func (s *Scheduler) PruneUsageJob(ctx context.Context) error {
	if s.cfg.UsageRetentionDays <= 0 {
		return nil
	}

	oldestKept := usagedomain.PeriodKey(s.clock.Now(ctx).AddDate(0, 0, -s.cfg.UsageRetentionDays))
	deleted, err := s.usageRepo.DeleteBefore(ctx, oldestKept)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.log.Info("pruned usage records",
			zap.Int64("deleted", deleted),
			zap.String("oldest_kept", oldestKept))
	}
	return nil
}

// PrunePaymentEventsJob trims the gateway callback audit log. Transactions
// themselves are kept forever, only the raw event rows age out.
func (s *Scheduler) PrunePaymentEventsJob(ctx context.Context) error {
	if s.cfg.UsageRetentionDays <= 0 {
		return nil
	}

	cutoff := s.clock.Now(ctx).AddDate(0, 0, -s.cfg.UsageRetentionDays)
	result := s.db.WithContext(ctx).Delete(&paymentdomain.EventRecord{}, "received_at < ?", cutoff)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("pruned payment events",
			zap.Int64("deleted", result.RowsAffected),
			zap.Time("cutoff", cutoff))
	}
	return nil
}
