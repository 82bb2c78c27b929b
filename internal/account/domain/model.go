package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
)

// Plan lifecycle states stored on the account row.
const (
	PlanStatusNone    = "none"
	PlanStatusActive  = "active"
	PlanStatusExpired = "expired"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

// Account owns all billing fields. They are mutated only by signup,
// admin patch, payment reconciliation and the plan expiry job.
type Account struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Email        string       `json:"email" gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string       `json:"-" gorm:"type:text;not null"`
	DisplayName  string       `json:"display_name" gorm:"type:text"`

	IsAdmin              bool  `json:"is_admin" gorm:"not null;default:false"`
	DeveloperModeEnabled bool  `json:"developer_mode_enabled" gorm:"not null;default:false"`
	SessionVersion       int64 `json:"session_version" gorm:"not null;default:1"`

	PlanID           string     `json:"plan_id" gorm:"type:varchar(32);not null;default:'free'"`
	PlanStatus       string     `json:"plan_status" gorm:"type:varchar(16);not null;default:'none'"`
	PlanBillingCycle string     `json:"plan_billing_cycle" gorm:"type:varchar(16);not null;default:'monthly'"`
	PlanStartedAt    *time.Time `json:"plan_started_at"`
	PlanRenewalAt    *time.Time `json:"plan_renewal_at"`
	LastPaymentAt    *time.Time `json:"last_payment_at"`

	RateLimitBonusCredits int64  `json:"rate_limit_bonus_credits" gorm:"not null;default:0"`
	CustomMonthlyCredits  *int64 `json:"custom_monthly_credits"`
	IsUnlimitedAccess     bool   `json:"is_unlimited_access" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

// PlanChange is the set of fields payment reconciliation writes on activation.
type PlanChange struct {
	PlanID        string
	BillingCycle  string
	StartedAt     time.Time
	RenewalAt     time.Time
	LastPaymentAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, a *Account) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Account, error)
	ApplyPlan(ctx context.Context, db *gorm.DB, id snowflake.ID, change PlanChange) error
	UpdateBillingFields(ctx context.Context, db *gorm.DB, id snowflake.ID, patch map[string]any) error
	ExpireLapsedPlans(ctx context.Context, db *gorm.DB, cutoff time.Time, fallbackPlanID string) (int64, error)
}
