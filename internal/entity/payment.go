package entity

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	Id                  uuid.UUID      `json:"id" db:"id"`
	JobRequestId        uuid.UUID      `json:"jobRequestId" db:"job_request_id"`
	PayerId             uuid.UUID      `json:"payerId" db:"payer_id"`
	PayeeId             uuid.UUID      `json:"payeeId" db:"payee_id"`
	AmountCents         int64          `json:"amountCents" db:"amount_cents"`
	PlatformFeeCents    sql.NullInt64  `json:"platformFeeCents" db:"platform_fee_cents"`
	ProviderAmountCents sql.NullInt64  `json:"providerAmountCents" db:"provider_amount_cents"`
	Currency            string         `json:"currency" db:"currency"`
	Status              string         `json:"status" db:"status"`
	GatewayIntentId     sql.NullString `json:"gatewayIntentId" db:"gateway_intent_id"`
	GatewayTransferId   sql.NullString `json:"gatewayTransferId" db:"gateway_transfer_id"`
	FailureReason       sql.NullString `json:"failureReason" db:"failure_reason"`
	AuthorizedAt        sql.NullTime   `json:"authorizedAt" db:"authorized_at"`
	CapturedAt          sql.NullTime   `json:"capturedAt" db:"captured_at"`
	ReleasedAt          sql.NullTime   `json:"releasedAt" db:"released_at"`
	RefundedAt          sql.NullTime   `json:"refundedAt" db:"refunded_at"`
	CreatedAt           time.Time      `json:"createdAt" db:"created_at"`
}

// service + repo input model
type CreatePaymentInput struct {
	JobRequestId        uuid.UUID
	PayerId             uuid.UUID
	PayeeId             uuid.UUID
	AmountCents         int64
	PlatformFeeCents    int64
	ProviderAmountCents int64
	Currency            string
	Status              string // should be set: "pending"
}

// controller model
type PaymentOutputModel struct {
	Id                  string `json:"id"`
	JobRequestId        string `json:"jobRequestId"`
	PayerId             string `json:"payerId"`
	PayeeId             string `json:"payeeId"`
	AmountCents         int64  `json:"amountCents"`
	PlatformFeeCents    int64  `json:"platformFeeCents,omitempty"`
	ProviderAmountCents int64  `json:"providerAmountCents,omitempty"`
	Currency            string `json:"currency"`
	Status              string `json:"status"`
	AuthorizedAt        string `json:"authorizedAt,omitempty"`
	CapturedAt          string `json:"capturedAt,omitempty"`
	ReleasedAt          string `json:"releasedAt,omitempty"`
	RefundedAt          string `json:"refundedAt,omitempty"`
	CreatedAt           string `json:"createdAt"`
}
