package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accountdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *accountdomain.Account) error {
	return db.WithContext(ctx).Create(a).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*accountdomain.Account, error) {
	var a accountdomain.Account
	err := db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, accountdomain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*accountdomain.Account, error) {
	var a accountdomain.Account
	err := db.WithContext(ctx).First(&a, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, accountdomain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) ApplyPlan(ctx context.Context, db *gorm.DB, id snowflake.ID, change accountdomain.PlanChange) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE accounts SET
			plan_id = ?, plan_status = ?, plan_billing_cycle = ?,
			plan_started_at = ?, plan_renewal_at = ?, last_payment_at = ?,
			updated_at = ?
		 WHERE id = ?`,
		change.PlanID,
		accountdomain.PlanStatusActive,
		change.BillingCycle,
		change.StartedAt,
		change.RenewalAt,
		change.LastPaymentAt,
		change.LastPaymentAt,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return accountdomain.ErrAccountNotFound
	}
	return nil
}

func (r *repo) UpdateBillingFields(ctx context.Context, db *gorm.DB, id snowflake.ID, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	result := db.WithContext(ctx).Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Updates(patch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return accountdomain.ErrAccountNotFound
	}
	return nil
}

func (r *repo) ExpireLapsedPlans(ctx context.Context, db *gorm.DB, cutoff time.Time, fallbackPlanID string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE accounts SET plan_id = ?, plan_status = ?, updated_at = ?
		 WHERE plan_status = ? AND plan_renewal_at IS NOT NULL AND plan_renewal_at < ?`,
		fallbackPlanID,
		accountdomain.PlanStatusExpired,
		cutoff,
		accountdomain.PlanStatusActive,
		cutoff,
	)
	return result.RowsAffected, result.Error
}
