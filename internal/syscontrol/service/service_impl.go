package service

import (
	"context"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
	Repo  syscontroldomain.Repository
}

type service struct {
	log   *zap.Logger
	clock clock.Clock
	repo  syscontroldomain.Repository
}

func NewService(p ServiceParam) syscontroldomain.Service {
	return &service{
		log:   p.Log.Named("syscontrol.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *service) Current(ctx context.Context) (syscontroldomain.State, error) {
	return s.repo.Get(ctx)
}

func (s *service) Patch(ctx context.Context, flags map[string]any, updatedBy string) (syscontroldomain.State, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return syscontroldomain.State{}, err
	}

	for key, raw := range flags {
		value, ok := raw.(bool)
		if !ok {
			return syscontroldomain.State{}, syscontroldomain.ErrUnknownFlag
		}
		switch key {
		case "signupEnabled":
			state.SignupEnabled = value
		case "paymentsEnabled":
			state.PaymentsEnabled = value
		case "aiGenerationEnabled":
			state.AIGenerationEnabled = value
		case "deploymentsEnabled":
			state.DeploymentsEnabled = value
		case "maintenanceMode":
			state.MaintenanceMode = value
		case "adminOnlyMode":
			state.AdminOnlyMode = value
		default:
			return syscontroldomain.State{}, syscontroldomain.ErrUnknownFlag
		}
	}

	state.UpdatedBy = updatedBy
	state.UpdatedAt = s.clock.Now(ctx)
	if err := s.repo.Save(ctx, state); err != nil {
		return syscontroldomain.State{}, err
	}

	s.log.Info("system control state updated",
		zap.String("updated_by", updatedBy),
		zap.Bool("maintenance_mode", state.MaintenanceMode),
		zap.Bool("admin_only_mode", state.AdminOnlyMode))
	return state, nil
}

// Enforce re-evaluates current flags on every call; precedence is fixed:
// maintenance beats admin-only beats per-capability toggles.
func (s *service) Enforce(ctx context.Context, account *accountdomain.Account, capability string) (syscontroldomain.State, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return syscontroldomain.State{}, err
	}

	isAdmin := account != nil && account.IsAdmin
	hasDeveloperMode := account != nil && account.DeveloperModeEnabled

	if state.MaintenanceMode && !isAdmin && !hasDeveloperMode {
		return state, syscontroldomain.ErrMaintenance
	}
	if state.AdminOnlyMode && !isAdmin {
		return state, syscontroldomain.ErrAdminOnly
	}
	if capability != "" && !state.CapabilityEnabled(capability) && !isAdmin && !hasDeveloperMode {
		return state, syscontroldomain.CapabilityError(capability)
	}
	return state, nil
}
