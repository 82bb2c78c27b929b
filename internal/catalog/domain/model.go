package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

// Unlimited is the sentinel monthly limit for accounts that bypass metering.
const Unlimited int64 = -1

const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
	PlanCustom  = "custom"
)

var ErrUnknownPlan = errors.New("unknown_plan")

// KnownPlanIDs returns catalog plan ids in display order.
func KnownPlanIDs() []string {
	return []string{PlanFree, PlanStarter, PlanPro, PlanCustom}
}

func IsKnownPlanID(id string) bool {
	switch id {
	case PlanFree, PlanStarter, PlanPro, PlanCustom:
		return true
	}
	return false
}

type PlanDefinition struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	Description      string `json:"description"`
	MonthlyCredits   int64  `json:"monthly_credits"`
	MonthlyPrice     int64  `json:"monthly_price"`
	YearlyPrice      int64  `json:"yearly_price"`
	MonthlyCompareAt int64  `json:"monthly_compare_at"`
	YearlyCompareAt  int64  `json:"yearly_compare_at"`
}

// PlanOverride is a partial, admin-edited view of a plan definition.
// Nil fields fall through to the hardcoded default.
type PlanOverride struct {
	DisplayName      *string `json:"display_name,omitempty"`
	Description      *string `json:"description,omitempty"`
	MonthlyCredits   *int64  `json:"monthly_credits,omitempty"`
	MonthlyPrice     *int64  `json:"monthly_price,omitempty"`
	YearlyPrice      *int64  `json:"yearly_price,omitempty"`
	MonthlyCompareAt *int64  `json:"monthly_compare_at,omitempty"`
	YearlyCompareAt  *int64  `json:"yearly_compare_at,omitempty"`
}

type Catalog struct {
	Currency  string                    `json:"currency"`
	Plans     map[string]PlanDefinition `json:"plans"`
	UpdatedBy string                    `json:"updated_by,omitempty"`
	UpdatedAt *time.Time                `json:"updated_at,omitempty"`
}

// Clone returns a copy whose Plans map is detached from the receiver, so
// callers can mutate the result without touching a shared cache entry.
func (c Catalog) Clone() Catalog {
	out := c
	out.Plans = make(map[string]PlanDefinition, len(c.Plans))
	for id, def := range c.Plans {
		out.Plans[id] = def
	}
	return out
}

// Plan returns the resolved definition for id; the catalog is always fully
// populated for known plan ids, so a miss means an unknown id.
func (c Catalog) Plan(id string) (PlanDefinition, error) {
	def, ok := c.Plans[id]
	if !ok {
		return PlanDefinition{}, ErrUnknownPlan
	}
	return def, nil
}

// OverrideRecord is the singleton admin-edited catalog row, keyed "global".
type OverrideRecord struct {
	Key       string         `gorm:"column:key;primaryKey;type:varchar(32)"`
	Currency  string         `gorm:"column:currency;type:varchar(8)"`
	Plans     datatypes.JSON `gorm:"column:plans;type:jsonb"`
	UpdatedBy string         `gorm:"column:updated_by;type:text"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
}

func (OverrideRecord) TableName() string { return "plan_catalog_overrides" }

const OverrideKeyGlobal = "global"

type Repository interface {
	// FindGlobal returns (nil, nil) when no override row exists.
	FindGlobal(ctx context.Context) (*OverrideRecord, error)
	UpsertGlobal(ctx context.Context, rec *OverrideRecord) error
}

type Service interface {
	// Resolve returns the merged catalog, served from a short-lived
	// process cache unless forceRefresh is set.
	Resolve(ctx context.Context, forceRefresh bool) (Catalog, error)
	SaveOverrides(ctx context.Context, currency string, overrides map[string]PlanOverride, updatedBy string) (Catalog, error)
}

// Defaults returns the hardcoded plan catalog used when the override
// document is missing or partial.
func Defaults() Catalog {
	return Catalog{
		Currency: "INR",
		Plans: map[string]PlanDefinition{
			PlanFree: {
				ID:             PlanFree,
				DisplayName:    "Free",
				Description:    "Get started with a small monthly credit allowance.",
				MonthlyCredits: 10,
			},
			PlanStarter: {
				ID:               PlanStarter,
				DisplayName:      "Starter",
				Description:      "For individuals shipping their first projects.",
				MonthlyCredits:   200,
				MonthlyPrice:     499,
				YearlyPrice:      4990,
				MonthlyCompareAt: 699,
				YearlyCompareAt:  6990,
			},
			PlanPro: {
				ID:               PlanPro,
				DisplayName:      "Pro",
				Description:      "For teams that need room to grow.",
				MonthlyCredits:   1000,
				MonthlyPrice:     1499,
				YearlyPrice:      14990,
				MonthlyCompareAt: 1999,
				YearlyCompareAt:  19990,
			},
			PlanCustom: {
				ID:             PlanCustom,
				DisplayName:    "Custom",
				Description:    "Tailored limits negotiated with sales.",
				MonthlyCredits: 1000,
			},
		},
	}
}
