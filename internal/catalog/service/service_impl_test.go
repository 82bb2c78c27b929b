package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	"github.com/nivalabs/creditgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	rec   *catalogdomain.OverrideRecord
	reads int
}

func (f *fakeRepo) FindGlobal(ctx context.Context) (*catalogdomain.OverrideRecord, error) {
	f.reads++
	return f.rec, nil
}

func (f *fakeRepo) UpsertGlobal(ctx context.Context, rec *catalogdomain.OverrideRecord) error {
	f.rec = rec
	return nil
}

func newTestService(repo catalogdomain.Repository, fc clock.Clock) catalogdomain.Service {
	cfg := config.Config{}
	cfg.Catalog.CacheTTL = 60 * time.Second
	return NewService(ServiceParam{
		Log:   zap.NewNop(),
		Cfg:   cfg,
		Clock: fc,
		Repo:  repo,
	})
}

func TestResolve_DefaultsWhenNoOverrideRow(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, clock.NewFake(time.Now()))

	cat, err := svc.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "INR", cat.Currency)
	assert.Len(t, cat.Plans, len(catalogdomain.KnownPlanIDs()))
	assert.Equal(t, int64(10), cat.Plans[catalogdomain.PlanFree].MonthlyCredits)
}

func TestResolve_MergesPartialOverride(t *testing.T) {
	credits := int64(25)
	name := "Free Forever"
	raw, _ := json.Marshal(map[string]catalogdomain.PlanOverride{
		catalogdomain.PlanFree: {DisplayName: &name, MonthlyCredits: &credits},
	})
	repo := &fakeRepo{rec: &catalogdomain.OverrideRecord{
		Key:       catalogdomain.OverrideKeyGlobal,
		Currency:  "USD",
		Plans:     raw,
		UpdatedBy: "admin@example.com",
		UpdatedAt: time.Now(),
	}}
	svc := newTestService(repo, clock.NewFake(time.Now()))

	cat, err := svc.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "USD", cat.Currency)
	assert.Equal(t, "admin@example.com", cat.UpdatedBy)

	free := cat.Plans[catalogdomain.PlanFree]
	assert.Equal(t, "Free Forever", free.DisplayName)
	assert.Equal(t, int64(25), free.MonthlyCredits)
	// Untouched fields keep the hardcoded defaults.
	assert.Equal(t, int64(200), cat.Plans[catalogdomain.PlanStarter].MonthlyCredits)
}

func TestResolve_CacheTTL(t *testing.T) {
	repo := &fakeRepo{}
	fc := clock.NewFake(time.Now())
	svc := newTestService(repo, fc)

	_, err := svc.Resolve(context.Background(), false)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.reads, "second read inside TTL must hit the cache")

	fc.Advance(61 * time.Second)
	_, err = svc.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads, "read past TTL must refresh")

	_, err = svc.Resolve(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.reads, "forceRefresh must bypass the cache")
}

func TestSaveOverrides_RejectsUnknownPlan(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, clock.NewFake(time.Now()))

	_, err := svc.SaveOverrides(context.Background(), "USD", map[string]catalogdomain.PlanOverride{
		"enterprise": {},
	}, "admin")
	assert.ErrorIs(t, err, catalogdomain.ErrUnknownPlan)
	assert.Nil(t, repo.rec)
}

func TestSaveOverrides_RefreshesImmediately(t *testing.T) {
	repo := &fakeRepo{}
	fc := clock.NewFake(time.Now())
	svc := newTestService(repo, fc)

	// Warm the cache with defaults.
	_, err := svc.Resolve(context.Background(), false)
	require.NoError(t, err)

	credits := int64(500)
	cat, err := svc.SaveOverrides(context.Background(), "USD", map[string]catalogdomain.PlanOverride{
		catalogdomain.PlanStarter: {MonthlyCredits: &credits},
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(500), cat.Plans[catalogdomain.PlanStarter].MonthlyCredits)

	// Subsequent cached reads see the new value without waiting out the TTL.
	again, err := svc.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(500), again.Plans[catalogdomain.PlanStarter].MonthlyCredits)
}

func TestResolve_CallersCannotPoisonCache(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, clock.NewFake(time.Now()))

	first, err := svc.Resolve(context.Background(), false)
	require.NoError(t, err)

	// Mutating the returned map must not leak into later cached reads.
	free := first.Plans[catalogdomain.PlanFree]
	free.MonthlyCredits = 999999
	first.Plans[catalogdomain.PlanFree] = free
	delete(first.Plans, catalogdomain.PlanPro)

	second, err := svc.Resolve(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.reads, "second read must come from the cache")
	assert.Equal(t, int64(10), second.Plans[catalogdomain.PlanFree].MonthlyCredits)
	assert.Contains(t, second.Plans, catalogdomain.PlanPro)
}
