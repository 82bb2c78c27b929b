package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/nivalabs/creditgate/internal/payment/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type RepoParam struct {
	fx.In

	DB *gorm.DB
}

type repo struct {
	db *gorm.DB
}

func Provide(p RepoParam) paymentdomain.Repository {
	return &repo{db: p.DB}
}

func (r *repo) Insert(ctx context.Context, txn *paymentdomain.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repo) FindByTxnID(ctx context.Context, txnID string) (*paymentdomain.Transaction, error) {
	var txn paymentdomain.Transaction
	err := r.db.WithContext(ctx).First(&txn, "txn_id = ?", txnID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*paymentdomain.Transaction, error) {
	var txn paymentdomain.Transaction
	err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]paymentdomain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txns []paymentdomain.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func (r *repo) RecordStatus(ctx context.Context, txnID, status string, meta paymentdomain.CallbackMeta, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE payment_transactions SET
			status = ?, source = ?, gateway_payment_id = ?, gateway_mode = ?,
			bank_ref = ?, gateway_hash = ?, raw_payload = ?, updated_at = ?
		 WHERE txn_id = ?`,
		status, meta.Source, meta.GatewayPaymentID, meta.GatewayMode,
		meta.BankRef, meta.GatewayHash, meta.RawPayload, at,
		txnID,
	).Error
}

func (r *repo) ClaimSuccess(ctx context.Context, txnID string, meta paymentdomain.CallbackMeta, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE payment_transactions SET
			status = ?, source = ?, gateway_payment_id = ?, gateway_mode = ?,
			bank_ref = ?, gateway_hash = ?, raw_payload = ?, updated_at = ?
		 WHERE txn_id = ? AND status <> ?`,
		paymentdomain.StatusSuccess, meta.Source, meta.GatewayPaymentID, meta.GatewayMode,
		meta.BankRef, meta.GatewayHash, meta.RawPayload, at,
		txnID, paymentdomain.StatusSuccess,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) AppendEvent(ctx context.Context, event *paymentdomain.EventRecord) error {
	return r.db.WithContext(ctx).Create(event).Error
}
