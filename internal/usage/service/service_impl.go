package service

import (
	"context"
	"errors"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	"github.com/nivalabs/creditgate/internal/observability"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Repo       usagedomain.Repository
	CatalogSvc catalogdomain.Service
	Metrics    *observability.Metrics
}

type service struct {
	log        *zap.Logger
	clock      clock.Clock
	repo       usagedomain.Repository
	catalogSvc catalogdomain.Service
	metrics    *observability.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &service{
		log:        p.Log.Named("usage.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		catalogSvc: p.CatalogSvc,
		metrics:    p.Metrics,
	}
}

func (s *service) Consume(ctx context.Context, req usagedomain.ConsumeRequest) (*usagedomain.ConsumeResult, error) {
	account := req.Account
	if account == nil {
		return nil, accountdomain.ErrAccountNotFound
	}

	cost := usagedomain.CostFor(req.Feature)
	if req.CostOverride != nil && *req.CostOverride > 0 {
		cost = *req.CostOverride
	}

	limit, planID, err := s.resolveLimit(ctx, account)
	if err != nil {
		return nil, err
	}

	periodKey := usagedomain.PeriodKey(s.clock.Now(ctx))
	unlimited := limit == catalogdomain.Unlimited

	result := &usagedomain.ConsumeResult{
		Feature:      req.Feature,
		Cost:         cost,
		MonthlyLimit: limit,
		Unlimited:    unlimited,
		PlanID:       planID,
		PeriodKey:    periodKey,
	}

	// The cost can never fit, so deny without touching the ledger.
	if !unlimited && (limit <= 0 || cost > limit) {
		result.Allowed = false
		result.RemainingCredits = 0
		if rec, err := s.repo.Get(ctx, account.ID, periodKey); err == nil && rec != nil {
			result.CreditsUsed = rec.TotalCreditsUsed
			result.RemainingCredits = remaining(limit, rec.TotalCreditsUsed)
		}
		return result, nil
	}

	allowed, err := s.repo.TryIncrement(ctx, account.ID, periodKey, req.Feature, cost, limit)
	if errors.Is(err, usagedomain.ErrConflict) {
		// Another request created the period row first; one retry takes the
		// plain conditional-update path.
		allowed, err = s.repo.TryIncrement(ctx, account.ID, periodKey, req.Feature, cost, limit)
	}
	if err != nil {
		return nil, err
	}
	result.Allowed = allowed

	if allowed && s.metrics != nil {
		s.metrics.CreditsConsumed.WithLabelValues(req.Feature).Add(float64(cost))
	}

	rec, err := s.repo.Get(ctx, account.ID, periodKey)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		result.CreditsUsed = rec.TotalCreditsUsed
	}
	if unlimited {
		result.RemainingCredits = catalogdomain.Unlimited
	} else {
		result.RemainingCredits = remaining(limit, result.CreditsUsed)
	}

	if !allowed {
		s.log.Info("credit consumption denied",
			zap.String("user_id", account.ID.String()),
			zap.String("feature", req.Feature),
			zap.Int64("cost", cost),
			zap.Int64("limit", limit),
			zap.Int64("used", result.CreditsUsed))
	}
	return result, nil
}

func (s *service) CurrentSnapshot(ctx context.Context, account *accountdomain.Account) (*usagedomain.Snapshot, error) {
	limit, planID, err := s.resolveLimit(ctx, account)
	if err != nil {
		return nil, err
	}

	periodKey := usagedomain.PeriodKey(s.clock.Now(ctx))
	snap := &usagedomain.Snapshot{
		PeriodKey:       periodKey,
		PlanID:          planID,
		MonthlyLimit:    limit,
		Unlimited:       limit == catalogdomain.Unlimited,
		FeatureRequests: map[string]int64{},
	}

	rec, err := s.repo.Get(ctx, account.ID, periodKey)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		snap.TotalCreditsUsed = rec.TotalCreditsUsed
		snap.TotalRequests = rec.TotalRequests
		for feature, v := range rec.FeatureRequests {
			snap.FeatureRequests[feature] = featureCount(v)
		}
	}
	if snap.Unlimited {
		snap.RemainingCredits = catalogdomain.Unlimited
	} else {
		snap.RemainingCredits = remaining(limit, snap.TotalCreditsUsed)
	}
	return snap, nil
}

func (s *service) resolveLimit(ctx context.Context, account *accountdomain.Account) (int64, string, error) {
	cat, err := s.catalogSvc.Resolve(ctx, false)
	if err != nil {
		return 0, "", err
	}

	planID := account.PlanID
	plan, err := cat.Plan(planID)
	if err != nil {
		// Accounts carrying a retired or mistyped plan id degrade to free.
		planID = catalogdomain.PlanFree
		plan, _ = cat.Plan(planID)
	}
	return catalogdomain.MonthlyCreditLimit(account, plan), planID, nil
}

func remaining(limit, used int64) int64 {
	if r := limit - used; r > 0 {
		return r
	}
	return 0
}

func featureCount(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}
