package service

import (
	"context"
	"testing"
	"time"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	state syscontroldomain.State
}

func (f *fakeRepo) Get(ctx context.Context) (syscontroldomain.State, error) {
	return f.state, nil
}

func (f *fakeRepo) Save(ctx context.Context, state syscontroldomain.State) error {
	f.state = state
	return nil
}

func newTestService(state syscontroldomain.State) (syscontroldomain.Service, *fakeRepo) {
	repo := &fakeRepo{state: state}
	svc := NewService(ServiceParam{
		Log:   zap.NewNop(),
		Clock: clock.NewFake(time.Now()),
		Repo:  repo,
	})
	return svc, repo
}

func TestEnforce_AllowsByDefault(t *testing.T) {
	svc, _ := newTestService(syscontroldomain.DefaultState())
	_, err := svc.Enforce(context.Background(), nil, syscontroldomain.CapabilitySignup)
	assert.NoError(t, err)
}

func TestEnforce_Precedence(t *testing.T) {
	admin := &accountdomain.Account{IsAdmin: true}
	developer := &accountdomain.Account{DeveloperModeEnabled: true}
	user := &accountdomain.Account{}

	tests := []struct {
		name       string
		state      syscontroldomain.State
		account    *accountdomain.Account
		capability string
		wantErr    error
	}{
		{
			name: "maintenance blocks regular user",
			state: syscontroldomain.State{
				MaintenanceMode: true,
			},
			account:    user,
			capability: syscontroldomain.CapabilityAIGeneration,
			wantErr:    syscontroldomain.ErrMaintenance,
		},
		{
			name: "maintenance checked before admin-only",
			state: syscontroldomain.State{
				MaintenanceMode: true,
				AdminOnlyMode:   true,
			},
			account:    user,
			capability: "",
			wantErr:    syscontroldomain.ErrMaintenance,
		},
		{
			name: "developer mode bypasses maintenance but not admin-only",
			state: syscontroldomain.State{
				MaintenanceMode: true,
				AdminOnlyMode:   true,
			},
			account: developer,
			wantErr: syscontroldomain.ErrAdminOnly,
		},
		{
			name: "admin bypasses everything",
			state: syscontroldomain.State{
				MaintenanceMode: true,
				AdminOnlyMode:   true,
			},
			account:    admin,
			capability: syscontroldomain.CapabilityPayments,
			wantErr:    nil,
		},
		{
			name:       "disabled capability blocks regular user",
			state:      syscontroldomain.State{SignupEnabled: false, PaymentsEnabled: true, AIGenerationEnabled: true, DeploymentsEnabled: true},
			account:    nil,
			capability: syscontroldomain.CapabilitySignup,
			wantErr:    syscontroldomain.ErrCapabilityDisabled,
		},
		{
			name:       "disabled capability bypassed by developer mode",
			state:      syscontroldomain.State{AIGenerationEnabled: false},
			account:    developer,
			capability: syscontroldomain.CapabilityAIGeneration,
			wantErr:    nil,
		},
		{
			name:       "unnamed capability rides the deployments flag",
			state:      syscontroldomain.State{SignupEnabled: true, PaymentsEnabled: true, AIGenerationEnabled: true, DeploymentsEnabled: false},
			account:    user,
			capability: "sandboxPreview",
			wantErr:    syscontroldomain.ErrCapabilityDisabled,
		},
		{
			name:       "no capability requested skips the flag table",
			state:      syscontroldomain.State{},
			account:    user,
			capability: "",
			wantErr:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(tt.state)
			_, err := svc.Enforce(context.Background(), tt.account, tt.capability)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPatch_AllowListed(t *testing.T) {
	svc, repo := newTestService(syscontroldomain.DefaultState())

	state, err := svc.Patch(context.Background(), map[string]any{
		"maintenanceMode": true,
		"signupEnabled":   false,
	}, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, state.MaintenanceMode)
	assert.False(t, state.SignupEnabled)
	assert.True(t, state.PaymentsEnabled, "untouched flags keep their value")
	assert.Equal(t, "admin@example.com", repo.state.UpdatedBy)
}

func TestPatch_RejectsUnknownKey(t *testing.T) {
	svc, repo := newTestService(syscontroldomain.DefaultState())

	_, err := svc.Patch(context.Background(), map[string]any{"betaEnabled": true}, "admin")
	assert.ErrorIs(t, err, syscontroldomain.ErrUnknownFlag)
	assert.False(t, repo.state.MaintenanceMode)
}

func TestPatch_RejectsNonBoolean(t *testing.T) {
	svc, _ := newTestService(syscontroldomain.DefaultState())

	_, err := svc.Patch(context.Background(), map[string]any{"maintenanceMode": "yes"}, "admin")
	assert.ErrorIs(t, err, syscontroldomain.ErrUnknownFlag)
}
