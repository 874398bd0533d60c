package entity

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type JobBid struct {
	Id                       uuid.UUID      `json:"id" db:"id"`
	JobRequestId             uuid.UUID      `json:"jobRequestId" db:"job_request_id"`
	ProviderId               uuid.UUID      `json:"providerId" db:"provider_id"`
	BidAmountCents           int64          `json:"bidAmountCents" db:"bid_amount_cents"`
	Message                  sql.NullString `json:"message" db:"message"`
	EstimatedArrival         sql.NullTime   `json:"estimatedArrival" db:"estimated_arrival"`
	EstimatedDurationMinutes sql.NullInt64  `json:"estimatedDurationMinutes" db:"estimated_duration_minutes"`
	Status                   string         `json:"status" db:"status"`
	CreatedAt                time.Time      `json:"createdAt" db:"created_at"`
}

// service + repo input model
type CreateBidInput struct {
	JobRequestId             string    // given
	ProviderUsername         string    // given
	BidAmountCents           int64     // given, must be > 0
	Message                  string    // optional
	EstimatedArrival         time.Time // optional, zero when absent
	EstimatedDurationMinutes int       // optional, zero when absent
	ProviderId               string    // resolved by the service
	Status                   string    // should be set: "pending"
	// Id UUID sets automatically
	// CreatedAt sets automatically
}

// repo input for the atomic accept operation
type AcceptBidParams struct {
	JobRequestId        uuid.UUID
	BidId               uuid.UUID
	ProviderId          uuid.UUID
	FinalPriceCents     int64
	PlatformFeeCents    int64
	ProviderPayoutCents int64
	AcceptedAt          time.Time
}

// controller model
type BidOutputModel struct {
	Id                       string `json:"id"`
	JobRequestId             string `json:"jobRequestId"`
	ProviderId               string `json:"providerId"`
	BidAmountCents           int64  `json:"bidAmountCents"`
	Message                  string `json:"message,omitempty"`
	EstimatedArrival         string `json:"estimatedArrival,omitempty"`
	EstimatedDurationMinutes int64  `json:"estimatedDurationMinutes,omitempty"`
	Status                   string `json:"status"`
	CreatedAt                string `json:"createdAt"`
}
