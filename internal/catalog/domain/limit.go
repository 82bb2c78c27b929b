package domain

import (
	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
)

// MonthlyCreditLimit resolves the effective monthly credit allowance for an
// account against its plan definition. Unlimited accounts short-circuit to
// the Unlimited sentinel; a custom per-account allowance overrides the plan
// base; admin-granted bonus credits are added on top; the result never goes
// below zero.
func MonthlyCreditLimit(a *accountdomain.Account, plan PlanDefinition) int64 {
	if a.IsUnlimitedAccess {
		return Unlimited
	}

	base := plan.MonthlyCredits
	if a.CustomMonthlyCredits != nil && *a.CustomMonthlyCredits >= 0 {
		base = *a.CustomMonthlyCredits
	}

	limit := base + a.RateLimitBonusCredits
	if limit < 0 {
		return 0
	}
	return limit
}
