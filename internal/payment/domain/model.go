package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrSaltMissing         = errors.New("merchant_salt_not_configured")
	ErrMissingFields       = errors.New("missing_required_fields")
	ErrInvalidSignature    = errors.New("invalid_payment_signature")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrInvalidPlan         = errors.New("invalid_plan_for_checkout")
)

// Transaction lifecycle states.
const (
	StatusInitiated = "initiated"
	StatusSuccess   = "success"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Callback sources, recorded for audit.
const (
	SourceWebhook  = "webhook"
	SourceValidate = "validate"
)

// Transaction is one row per initiated gateway transaction. TxnID is the
// merchant reference sent to the gateway; it is unique for the table's
// lifetime.
type Transaction struct {
	ID     snowflake.ID `json:"id" gorm:"primaryKey"`
	TxnID  string       `json:"txn_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	UserID snowflake.ID `json:"user_id" gorm:"not null;index"`

	PlanID       string `json:"plan_id" gorm:"type:varchar(32);not null"`
	BillingCycle string `json:"billing_cycle" gorm:"type:varchar(16);not null"`
	Amount       int64  `json:"amount" gorm:"not null"`
	Currency     string `json:"currency" gorm:"type:varchar(8);not null"`

	Status string `json:"status" gorm:"type:varchar(16);not null;index"`
	Source string `json:"source" gorm:"type:varchar(16)"`

	GatewayPaymentID string         `json:"gateway_payment_id" gorm:"type:varchar(64)"`
	GatewayMode      string         `json:"gateway_mode" gorm:"type:varchar(32)"`
	BankRef          string         `json:"bank_ref" gorm:"type:varchar(64)"`
	GatewayHash      string         `json:"-" gorm:"type:text"`
	RawPayload       datatypes.JSON `json:"-" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "payment_transactions" }

// EventRecord is the append-only audit log of every callback delivery,
// persisted regardless of the idempotency decision.
type EventRecord struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(26)"`
	TxnID      string         `json:"txn_id" gorm:"type:varchar(64);index"`
	Source     string         `json:"source" gorm:"type:varchar(16);not null"`
	Status     string         `json:"status" gorm:"type:varchar(16);not null"`
	RawPayload datatypes.JSON `json:"raw_payload" gorm:"type:jsonb"`
	ReceivedAt time.Time      `json:"received_at" gorm:"not null"`
}

func (EventRecord) TableName() string { return "payment_events" }

// CallbackMeta is the audit metadata persisted onto the transaction with
// every status write.
type CallbackMeta struct {
	GatewayPaymentID string
	GatewayMode      string
	BankRef          string
	GatewayHash      string
	RawPayload       []byte
	Source           string
}

type CallbackResult struct {
	Success       bool   `json:"success"`
	StatusCode    int    `json:"-"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	PlanApplied   bool   `json:"planApplied"`
}

// CheckoutSession is the gateway form a browser posts to start a payment.
type CheckoutSession struct {
	Transaction *Transaction      `json:"transaction"`
	ActionURL   string            `json:"action_url"`
	Fields      map[string]string `json:"fields"`
}

type Repository interface {
	Insert(ctx context.Context, txn *Transaction) error
	// FindByTxnID returns (nil, nil) when no transaction matches.
	FindByTxnID(ctx context.Context, txnID string) (*Transaction, error)
	FindByID(ctx context.Context, id snowflake.ID) (*Transaction, error)
	ListByUser(ctx context.Context, userID snowflake.ID, limit int) ([]Transaction, error)
	// RecordStatus persists status + audit metadata unconditionally.
	RecordStatus(ctx context.Context, txnID, status string, meta CallbackMeta, at time.Time) error
	// ClaimSuccess flips the transaction to success only if it is not
	// already there; the condition rides in the UPDATE's WHERE clause, so
	// two concurrent success callbacks cannot both claim it.
	ClaimSuccess(ctx context.Context, txnID string, meta CallbackMeta, at time.Time) (bool, error)
	AppendEvent(ctx context.Context, event *EventRecord) error
}

type Service interface {
	InitiateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ProcessCallback funnels both the webhook and the validate callback
	// through the same verification and reconciliation path.
	ProcessCallback(ctx context.Context, payload map[string]string, source string) *CallbackResult
	History(ctx context.Context, userID snowflake.ID) ([]Transaction, error)
}

type CheckoutRequest struct {
	UserID       snowflake.ID
	Email        string
	Firstname    string
	PlanID       string
	BillingCycle string
}

// StatusCodeFor maps reconciliation errors onto the HTTP statuses the
// gateway-facing routes mirror back.
func StatusCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrSaltMissing):
		return http.StatusInternalServerError
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, ErrTransactionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
