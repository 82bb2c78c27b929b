package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nivalabs/creditgate/internal/clock"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RepoParam struct {
	fx.In

	DB    *gorm.DB
	Clock clock.Clock
}

type repo struct {
	db    *gorm.DB
	clock clock.Clock
}

func Provide(p RepoParam) usagedomain.Repository {
	return &repo{db: p.DB, clock: p.Clock}
}

// TryIncrement increments the period counter only if the new total stays at
// or under limit. The cap lives in the UPDATE's WHERE clause, so the check
// and the write are a single atomic statement per row.
func (r *repo) TryIncrement(ctx context.Context, userID snowflake.ID, periodKey, feature string, cost, limit int64) (bool, error) {
	now := r.clock.Now(ctx)

	query := `UPDATE usage_records
		 SET total_credits_used = total_credits_used + ?,
		     total_requests = total_requests + 1,
		     updated_at = ?
		 WHERE user_id = ? AND period_key = ?`
	args := []any{cost, now, userID, periodKey}
	if limit >= 0 {
		query += ` AND total_credits_used <= ?`
		args = append(args, limit-cost)
	}

	result := r.db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		r.bumpFeatureCount(ctx, userID, periodKey, feature, now)
		return true, nil
	}

	// Nothing matched: either the row exists and the cap filter rejected the
	// increment, or no row exists yet for this period.
	var count int64
	if err := r.db.WithContext(ctx).Model(&usagedomain.Record{}).
		Where("user_id = ? AND period_key = ?", userID, periodKey).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	rec := usagedomain.Record{
		UserID:           userID,
		PeriodKey:        periodKey,
		TotalCreditsUsed: cost,
		TotalRequests:    1,
		FeatureRequests:  datatypes.JSONMap{feature: int64(1)},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, usagedomain.ErrConflict
		}
		return false, err
	}
	return true, nil
}

func (r *repo) Get(ctx context.Context, userID snowflake.ID, periodKey string) (*usagedomain.Record, error) {
	var rec usagedomain.Record
	err := r.db.WithContext(ctx).
		First(&rec, "user_id = ? AND period_key = ?", userID, periodKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repo) DeleteBefore(ctx context.Context, oldestKept string) (int64, error) {
	result := r.db.WithContext(ctx).
		Delete(&usagedomain.Record{}, "period_key < ?", oldestKept)
	return result.RowsAffected, result.Error
}

// Per-feature counts are informational; they ride behind the authoritative
// credit counter as a read-modify-write and tolerate lost updates.
func (r *repo) bumpFeatureCount(ctx context.Context, userID snowflake.ID, periodKey, feature string, now time.Time) {
	var rec usagedomain.Record
	if err := r.db.WithContext(ctx).
		First(&rec, "user_id = ? AND period_key = ?", userID, periodKey).Error; err != nil {
		return
	}
	counts := rec.FeatureRequests
	if counts == nil {
		counts = datatypes.JSONMap{}
	}
	counts[feature] = asInt64(counts[feature]) + 1
	_ = r.db.WithContext(ctx).Model(&usagedomain.Record{}).
		Where("user_id = ? AND period_key = ?", userID, periodKey).
		Updates(map[string]any{"feature_requests": counts, "updated_at": now}).Error
}

func asInt64(v any) int64 {
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
