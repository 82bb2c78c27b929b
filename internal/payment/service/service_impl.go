package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/nivalabs/creditgate/internal/account/domain"
	catalogdomain "github.com/nivalabs/creditgate/internal/catalog/domain"
	"github.com/nivalabs/creditgate/internal/clock"
	"github.com/nivalabs/creditgate/internal/config"
	"github.com/nivalabs/creditgate/internal/observability"
	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
	"github.com/nivalabs/creditgate/internal/payment/payu"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	GenID       *snowflake.Node
	Repo        paymentdomain.Repository
	AccountRepo accountdomain.Repository
	CatalogSvc  catalogdomain.Service
	Metrics     *observability.Metrics
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.PayUConfig
	clock       clock.Clock
	genID       *snowflake.Node
	repo        paymentdomain.Repository
	accountRepo accountdomain.Repository
	catalogSvc  catalogdomain.Service
	metrics     *observability.Metrics
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		cfg:         p.Cfg.PayU,
		clock:       p.Clock,
		genID:       p.GenID,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		catalogSvc:  p.CatalogSvc,
		metrics:     p.Metrics,
	}
}

func (s *service) InitiateCheckout(ctx context.Context, req paymentdomain.CheckoutRequest) (*paymentdomain.CheckoutSession, error) {
	if s.cfg.MerchantKey == "" || s.cfg.MerchantSalt == "" {
		return nil, paymentdomain.ErrSaltMissing
	}

	cat, err := s.catalogSvc.Resolve(ctx, false)
	if err != nil {
		return nil, err
	}
	plan, err := cat.Plan(req.PlanID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidPlan
	}

	cycle := req.BillingCycle
	if cycle != accountdomain.BillingCycleYearly {
		cycle = accountdomain.BillingCycleMonthly
	}
	amount := plan.MonthlyPrice
	if cycle == accountdomain.BillingCycleYearly {
		amount = plan.YearlyPrice
	}
	if amount <= 0 {
		return nil, paymentdomain.ErrInvalidPlan
	}

	now := s.clock.Now(ctx)
	txn := &paymentdomain.Transaction{
		ID:           s.genID.Generate(),
		UserID:       req.UserID,
		PlanID:       req.PlanID,
		BillingCycle: cycle,
		Amount:       amount,
		Currency:     cat.Currency,
		Status:       paymentdomain.StatusInitiated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	txn.TxnID = fmt.Sprintf("CG%s", txn.ID.String())

	if err := s.repo.Insert(ctx, txn); err != nil {
		return nil, err
	}

	fields := payu.Response{
		Key:         s.cfg.MerchantKey,
		TxnID:       txn.TxnID,
		Amount:      formatAmount(amount),
		ProductInfo: fmt.Sprintf("%s:%s", req.PlanID, cycle),
		Firstname:   req.Firstname,
		Email:       req.Email,
		UDF1:        txn.ID.String(),
	}

	return &paymentdomain.CheckoutSession{
		Transaction: txn,
		ActionURL:   s.cfg.BaseURL,
		Fields: map[string]string{
			"key":         fields.Key,
			"txnid":       fields.TxnID,
			"amount":      fields.Amount,
			"productinfo": fields.ProductInfo,
			"firstname":   fields.Firstname,
			"email":       fields.Email,
			"udf1":        fields.UDF1,
			"hash":        payu.RequestHash(s.cfg.MerchantSalt, fields),
		},
	}, nil
}

func (s *service) ProcessCallback(ctx context.Context, payload map[string]string, source string) *paymentdomain.CallbackResult {
	if strings.TrimSpace(s.cfg.MerchantSalt) == "" {
		return failure(paymentdomain.ErrSaltMissing, "payment gateway is not configured")
	}

	resp := payu.FromForm(payload)
	if resp.TxnID == "" || resp.Hash == "" {
		return failure(paymentdomain.ErrMissingFields, "txnid and hash are required")
	}

	if err := payu.VerifyResponseHash(s.cfg.MerchantSalt, resp); err != nil {
		s.log.Warn("rejected payment callback with bad hash",
			zap.String("txn_id", resp.TxnID),
			zap.String("source", source))
		return failure(err, "hash verification failed")
	}

	txn, err := s.lookupTransaction(ctx, resp)
	if err != nil {
		return failure(err, "transaction lookup failed")
	}
	if txn == nil {
		return failure(paymentdomain.ErrTransactionNotFound, "transaction not found")
	}

	normalized := payu.NormalizeStatus(resp.Status)
	now := s.clock.Now(ctx)
	meta := paymentdomain.CallbackMeta{
		GatewayPaymentID: resp.MihPayID,
		GatewayMode:      resp.Mode,
		BankRef:          resp.BankRefNum,
		GatewayHash:      resp.Hash,
		RawPayload:       rawPayload(payload),
		Source:           source,
	}

	// The audit trail records every verified delivery, including replays
	// whose plan application is skipped below.
	event := &paymentdomain.EventRecord{
		ID:         ulid.Make().String(),
		TxnID:      txn.TxnID,
		Source:     source,
		Status:     normalized,
		RawPayload: meta.RawPayload,
		ReceivedAt: now,
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		s.log.Error("failed to append payment event", zap.Error(err))
	}

	planApplied := false
	if normalized == paymentdomain.StatusSuccess {
		claimed, err := s.repo.ClaimSuccess(ctx, txn.TxnID, meta, now)
		if err != nil {
			return failure(err, "failed to persist transaction status")
		}
		if claimed {
			if err := s.applyPlan(ctx, txn, now); err != nil {
				s.log.Error("plan application failed after claimed success",
					zap.String("txn_id", txn.TxnID),
					zap.Error(err))
				return failure(err, "failed to apply plan")
			}
			planApplied = true
			if s.metrics != nil {
				s.metrics.PlansApplied.Inc()
			}
		}
	} else {
		if err := s.repo.RecordStatus(ctx, txn.TxnID, normalized, meta, now); err != nil {
			return failure(err, "failed to persist transaction status")
		}
	}

	if s.metrics != nil {
		s.metrics.PaymentCallbacks.WithLabelValues(normalized, source).Inc()
	}
	s.log.Info("payment callback processed",
		zap.String("txn_id", txn.TxnID),
		zap.String("status", normalized),
		zap.String("source", source),
		zap.Bool("plan_applied", planApplied))

	return &paymentdomain.CallbackResult{
		Success:       true,
		StatusCode:    200,
		Message:       "payment " + normalized,
		TransactionID: txn.TxnID,
		PaymentStatus: normalized,
		PlanApplied:   planApplied,
	}
}

func (s *service) History(ctx context.Context, userID snowflake.ID) ([]paymentdomain.Transaction, error) {
	return s.repo.ListByUser(ctx, userID, 50)
}

func (s *service) lookupTransaction(ctx context.Context, resp payu.Response) (*paymentdomain.Transaction, error) {
	txn, err := s.repo.FindByTxnID(ctx, resp.TxnID)
	if err != nil || txn != nil {
		return txn, err
	}
	// Some gateway flows echo our internal id back in udf1.
	if resp.UDF1 != "" {
		if id, parseErr := snowflake.ParseString(resp.UDF1); parseErr == nil {
			return s.repo.FindByID(ctx, id)
		}
	}
	return nil, nil
}

func (s *service) applyPlan(ctx context.Context, txn *paymentdomain.Transaction, now time.Time) error {
	renewal := now.AddDate(0, 1, 0)
	if txn.BillingCycle == accountdomain.BillingCycleYearly {
		renewal = now.AddDate(1, 0, 0)
	}
	return s.accountRepo.ApplyPlan(ctx, s.db, txn.UserID, accountdomain.PlanChange{
		PlanID:        txn.PlanID,
		BillingCycle:  txn.BillingCycle,
		StartedAt:     now,
		RenewalAt:     renewal,
		LastPaymentAt: now,
	})
}

func failure(err error, message string) *paymentdomain.CallbackResult {
	return &paymentdomain.CallbackResult{
		Success:    false,
		StatusCode: paymentdomain.StatusCodeFor(err),
		Message:    message,
	}
}

func formatAmount(amount int64) string {
	return fmt.Sprintf("%d.00", amount)
}

func rawPayload(payload map[string]string) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
