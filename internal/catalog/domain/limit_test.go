package domain_test

import (
	"testing"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	"github.com/nivalabs/creditgate/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64 { return &v }

func TestMonthlyCreditLimit(t *testing.T) {
	plan := domain.PlanDefinition{ID: domain.PlanStarter, MonthlyCredits: 200}

	tests := []struct {
		name    string
		account accountdomain.Account
		want    int64
	}{
		{
			name:    "plan base only",
			account: accountdomain.Account{PlanID: domain.PlanStarter},
			want:    200,
		},
		{
			name:    "bonus credits added",
			account: accountdomain.Account{RateLimitBonusCredits: 50},
			want:    250,
		},
		{
			name:    "custom override replaces plan base",
			account: accountdomain.Account{CustomMonthlyCredits: i64(1000)},
			want:    1000,
		},
		{
			name:    "custom override keeps bonus",
			account: accountdomain.Account{CustomMonthlyCredits: i64(1000), RateLimitBonusCredits: 25},
			want:    1025,
		},
		{
			name:    "negative custom override ignored",
			account: accountdomain.Account{CustomMonthlyCredits: i64(-5)},
			want:    200,
		},
		{
			name:    "custom zero allowance",
			account: accountdomain.Account{CustomMonthlyCredits: i64(0)},
			want:    0,
		},
		{
			name: "unlimited wins over everything",
			account: accountdomain.Account{
				IsUnlimitedAccess:     true,
				CustomMonthlyCredits:  i64(5),
				RateLimitBonusCredits: 100,
			},
			want: domain.Unlimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.MonthlyCreditLimit(&tt.account, plan))
		})
	}
}

func TestMonthlyCreditLimit_NeverNegative(t *testing.T) {
	plan := domain.PlanDefinition{MonthlyCredits: 0}
	a := accountdomain.Account{RateLimitBonusCredits: -10}
	assert.Equal(t, int64(0), domain.MonthlyCreditLimit(&a, plan))
}

func TestDefaults_FullyPopulated(t *testing.T) {
	cat := domain.Defaults()
	for _, id := range domain.KnownPlanIDs() {
		def, err := cat.Plan(id)
		assert.NoError(t, err)
		assert.Equal(t, id, def.ID)
	}
	_, err := cat.Plan("enterprise")
	assert.ErrorIs(t, err, domain.ErrUnknownPlan)
}
