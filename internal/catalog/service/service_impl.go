package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	"github.com/nivalabs/creditgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
	Repo  catalogdomain.Repository
}

type service struct {
	log   *zap.Logger
	clock clock.Clock
	repo  catalogdomain.Repository
	ttl   time.Duration

	mu        sync.Mutex
	cached    *catalogdomain.Catalog
	fetchedAt time.Time
}

func NewService(p ServiceParam) catalogdomain.Service {
	ttl := p.Cfg.Catalog.CacheTTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &service{
		log:   p.Log.Named("catalog.service"),
		clock: p.Clock,
		repo:  p.Repo,
		ttl:   ttl,
	}
}

func (s *service) Resolve(ctx context.Context, forceRefresh bool) (catalogdomain.Catalog, error) {
	now := s.clock.Now(ctx)

	s.mu.Lock()
	if !forceRefresh && s.cached != nil && now.Sub(s.fetchedAt) < s.ttl {
		cached := s.cached.Clone()
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	resolved, err := s.load(ctx)
	if err != nil {
		return catalogdomain.Catalog{}, err
	}

	s.mu.Lock()
	s.cached = &resolved
	s.fetchedAt = now
	s.mu.Unlock()

	return resolved.Clone(), nil
}

func (s *service) SaveOverrides(ctx context.Context, currency string, overrides map[string]catalogdomain.PlanOverride, updatedBy string) (catalogdomain.Catalog, error) {
	for id := range overrides {
		if !catalogdomain.IsKnownPlanID(id) {
			return catalogdomain.Catalog{}, catalogdomain.ErrUnknownPlan
		}
	}

	raw, err := json.Marshal(overrides)
	if err != nil {
		return catalogdomain.Catalog{}, err
	}

	rec := &catalogdomain.OverrideRecord{
		Currency:  currency,
		Plans:     raw,
		UpdatedBy: updatedBy,
		UpdatedAt: s.clock.Now(ctx),
	}
	if err := s.repo.UpsertGlobal(ctx, rec); err != nil {
		return catalogdomain.Catalog{}, err
	}

	// Admin edits must be visible immediately.
	return s.Resolve(ctx, true)
}

func (s *service) load(ctx context.Context) (catalogdomain.Catalog, error) {
	resolved := catalogdomain.Defaults()

	rec, err := s.repo.FindGlobal(ctx)
	if err != nil {
		return catalogdomain.Catalog{}, err
	}
	if rec == nil {
		return resolved, nil
	}

	if rec.Currency != "" {
		resolved.Currency = rec.Currency
	}
	resolved.UpdatedBy = rec.UpdatedBy
	updatedAt := rec.UpdatedAt
	resolved.UpdatedAt = &updatedAt

	var overrides map[string]catalogdomain.PlanOverride
	if len(rec.Plans) > 0 {
		if err := json.Unmarshal(rec.Plans, &overrides); err != nil {
			// A corrupt override row must not take the catalog down.
			s.log.Warn("ignoring malformed catalog override document", zap.Error(err))
			return resolved, nil
		}
	}

	for id, ov := range overrides {
		def, ok := resolved.Plans[id]
		if !ok {
			continue
		}
		resolved.Plans[id] = mergePlan(def, ov)
	}
	return resolved, nil
}

func mergePlan(def catalogdomain.PlanDefinition, ov catalogdomain.PlanOverride) catalogdomain.PlanDefinition {
	if ov.DisplayName != nil {
		def.DisplayName = *ov.DisplayName
	}
	if ov.Description != nil {
		def.Description = *ov.Description
	}
	if ov.MonthlyCredits != nil {
		def.MonthlyCredits = *ov.MonthlyCredits
	}
	if ov.MonthlyPrice != nil {
		def.MonthlyPrice = *ov.MonthlyPrice
	}
	if ov.YearlyPrice != nil {
		def.YearlyPrice = *ov.YearlyPrice
	}
	if ov.MonthlyCompareAt != nil {
		def.MonthlyCompareAt = *ov.MonthlyCompareAt
	}
	if ov.YearlyCompareAt != nil {
		def.YearlyCompareAt = *ov.YearlyCompareAt
	}
	return def
}
