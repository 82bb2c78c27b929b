package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	"gorm.io/datatypes"
)

var (
	ErrQuotaExceeded = errors.New("quota_exceeded")
	// ErrConflict signals the upsert lost a first-write race for the period
	// row; callers retry the increment once without the insert path.
	ErrConflict = errors.New("usage_record_conflict")
)

// Credit costs per feature. Unknown features charge DefaultCost.
const DefaultCost int64 = 1

const (
	FeatureAIGeneration           = "ai_generation"
	FeatureImageGeneration        = "image_generation"
	FeaturePresentationGeneration = "presentation_generation"
	FeatureEmailCampaign          = "email_campaign"
	FeatureDeployment             = "deployment"
)

var featureCosts = map[string]int64{
	FeatureAIGeneration:           3,
	FeatureImageGeneration:        3,
	FeaturePresentationGeneration: 5,
	FeatureEmailCampaign:          2,
	FeatureDeployment:             5,
}

func CostFor(feature string) int64 {
	if cost, ok := featureCosts[feature]; ok {
		return cost
	}
	return DefaultCost
}

// PeriodKey buckets usage by UTC calendar month.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Record is the per-account, per-month credit ledger row. Created lazily on
// first consumption in a period; never deleted inline (the retention job
// prunes old periods).
type Record struct {
	UserID    snowflake.ID `json:"user_id" gorm:"primaryKey"`
	PeriodKey string       `json:"period_key" gorm:"primaryKey;type:varchar(7)"`

	TotalCreditsUsed int64             `json:"total_credits_used" gorm:"not null;default:0"`
	TotalRequests    int64             `json:"total_requests" gorm:"not null;default:0"`
	FeatureRequests  datatypes.JSONMap `json:"feature_requests" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Record) TableName() string { return "usage_records" }

type ConsumeRequest struct {
	Account      *accountdomain.Account
	Feature      string
	CostOverride *int64
}

type ConsumeResult struct {
	Allowed          bool   `json:"allowed"`
	Feature          string `json:"feature"`
	Cost             int64  `json:"cost"`
	CreditsUsed      int64  `json:"credits_used"`
	RemainingCredits int64  `json:"remaining_credits"`
	MonthlyLimit     int64  `json:"monthly_limit"`
	Unlimited        bool   `json:"unlimited"`
	PlanID           string `json:"plan_id"`
	PeriodKey        string `json:"period_key"`
}

type Snapshot struct {
	PeriodKey        string           `json:"period_key"`
	PlanID           string           `json:"plan_id"`
	MonthlyLimit     int64            `json:"monthly_limit"`
	Unlimited        bool             `json:"unlimited"`
	TotalCreditsUsed int64            `json:"total_credits_used"`
	RemainingCredits int64            `json:"remaining_credits"`
	TotalRequests    int64            `json:"total_requests"`
	FeatureRequests  map[string]int64 `json:"feature_requests"`
}

// Repository is the atomic-conditional-write contract the ledger relies on:
// TryIncrement must apply the cap filter and the increment in one storage
// round trip so concurrent consumers can never push a period past its limit.
// A negative limit means uncapped.
type Repository interface {
	TryIncrement(ctx context.Context, userID snowflake.ID, periodKey, feature string, cost, limit int64) (bool, error)
	Get(ctx context.Context, userID snowflake.ID, periodKey string) (*Record, error)
	DeleteBefore(ctx context.Context, oldestKept string) (int64, error)
}

type Service interface {
	Consume(ctx context.Context, req ConsumeRequest) (*ConsumeResult, error)
	CurrentSnapshot(ctx context.Context, account *accountdomain.Account) (*Snapshot, error)
}
