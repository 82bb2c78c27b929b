package service

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"

	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	billingdomain "github.com/nivalabs/creditgate/internal/billing/domain"
	"github.com/nivalabs/creditgate/internal/observability"
	syscontroldomain "github.com/nivalabs/creditgate/internal/syscontrol/domain"
	usagedomain "github.com/nivalabs/creditgate/internal/usage/domain"
)

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Control syscontroldomain.Service
	Usage   usagedomain.Service
	Metrics *observability.Metrics `optional:"true"`
}

type service struct {
	log     *zap.Logger
	control syscontroldomain.Service
	usage   usagedomain.Service
	metrics *observability.Metrics
}

func NewService(p ServiceParam) billingdomain.Service {
	return &service{
		log:     p.Log.Named("billing.service"),
		control: p.Control,
		usage:   p.Usage,
		metrics: p.Metrics,
	}
}

func (s *service) Enforce(ctx context.Context, account *accountdomain.Account, capability, feature string) (*billingdomain.EnforceResult, error) {
	if account == nil {
		s.deny("unauthenticated")
		return nil, billingdomain.ErrAuthenticationRequired
	}

	state, err := s.control.Enforce(ctx, account, capability)
	if err != nil {
		s.deny(denialReason(err))
		return nil, err
	}

	res, err := s.usage.Consume(ctx, usagedomain.ConsumeRequest{
		Account: account,
		Feature: feature,
	})
	if err != nil {
		return nil, err
	}

	out := &billingdomain.EnforceResult{Account: account, Control: state, Usage: res}
	if !res.Allowed {
		s.deny("quota_exceeded")
		s.log.Info("feature request denied on credits",
			zap.String("user_id", account.ID.String()),
			zap.String("feature", feature),
			zap.Int64("credits_used", res.CreditsUsed),
			zap.Int64("limit", res.MonthlyLimit))
		return out, usagedomain.ErrQuotaExceeded
	}
	return out, nil
}

func (s *service) deny(reason string) {
	if s.metrics != nil {
		s.metrics.GateDenials.WithLabelValues(reason).Inc()
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, syscontroldomain.ErrMaintenance):
		return "maintenance"
	case errors.Is(err, syscontroldomain.ErrAdminOnly):
		return "admin_only"
	case errors.Is(err, syscontroldomain.ErrCapabilityDisabled):
		return "capability_disabled"
	default:
		return "control_error"
	}
}
