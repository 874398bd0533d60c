package entity

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// db model
type JobRequest struct {
	Id                    uuid.UUID      `json:"id" db:"id"`
	ConsumerId            uuid.UUID      `json:"consumerId" db:"consumer_id"`
	ProviderId            uuid.NullUUID  `json:"providerId" db:"provider_id"`
	PropertyId            uuid.UUID      `json:"propertyId" db:"property_id"`
	ServiceType           string         `json:"serviceType" db:"service_type"`
	Title                 string         `json:"title" db:"title"`
	Description           string         `json:"description" db:"description"`
	RequestedDate         time.Time      `json:"requestedDate" db:"requested_date"`
	RequestedTimeStart    sql.NullTime   `json:"requestedTimeStart" db:"requested_time_start"`
	RequestedTimeEnd      sql.NullTime   `json:"requestedTimeEnd" db:"requested_time_end"`
	Urgency               string         `json:"urgency" db:"urgency"`
	FlexibleTiming        bool           `json:"flexibleTiming" db:"flexible_timing"`
	Status                string         `json:"status" db:"status"`
	EstimatedPriceCents   sql.NullInt64  `json:"estimatedPriceCents" db:"estimated_price_cents"`
	FinalPriceCents       sql.NullInt64  `json:"finalPriceCents" db:"final_price_cents"`
	PlatformFeeCents      sql.NullInt64  `json:"platformFeeCents" db:"platform_fee_cents"`
	ProviderPayoutCents   sql.NullInt64  `json:"providerPayoutCents" db:"provider_payout_cents"`
	PlatformFeePercentage float64        `json:"platformFeePercentage" db:"platform_fee_percentage"`
	AcceptedAt            sql.NullTime   `json:"acceptedAt" db:"accepted_at"`
	StartedAt             sql.NullTime   `json:"startedAt" db:"started_at"`
	CompletedAt           sql.NullTime   `json:"completedAt" db:"completed_at"`
	CancelledAt           sql.NullTime   `json:"cancelledAt" db:"cancelled_at"`
	CancelledBy           uuid.NullUUID  `json:"cancelledBy" db:"cancelled_by"`
	CancellationReason    sql.NullString `json:"cancellationReason" db:"cancellation_reason"`
	CreatedAt             time.Time      `json:"createdAt" db:"created_at"`
}

// service + repo input model
type CreateJobRequestInput struct {
	ConsumerUsername      string    // given
	PropertyId            string    // given
	ServiceType           string    // given
	Title                 string    // given
	Description           string    // given
	RequestedDate         time.Time // given
	RequestedTimeStart    time.Time // optional, zero when absent
	RequestedTimeEnd      time.Time // optional, zero when absent
	Urgency               string    // given, defaults to "normal"
	FlexibleTiming        bool      // given
	ProviderServiceId     string    // optional, the listing the consumer priced against
	EstimatedHours        float64   // optional, used with hourly listings
	ConsumerId            string    // resolved by the service
	PlatformFeePercentage float64   // set by the service from config
	EstimatedPriceCents   int64     // computed by the service, 0 when no listing given
	Status                string    // should be set: "pending"
	// Id UUID sets automatically
	// CreatedAt sets automatically
}

// controller model
type JobRequestOutputModel struct {
	Id                    string  `json:"id"`
	ConsumerId            string  `json:"consumerId"`
	ProviderId            string  `json:"providerId,omitempty"`
	PropertyId            string  `json:"propertyId"`
	ServiceType           string  `json:"serviceType"`
	Title                 string  `json:"title"`
	Description           string  `json:"description"`
	RequestedDate         string  `json:"requestedDate"`
	Urgency               string  `json:"urgency"`
	FlexibleTiming        bool    `json:"flexibleTiming"`
	Status                string  `json:"status"`
	EstimatedPriceCents   *int64  `json:"estimatedPriceCents,omitempty"`
	FinalPriceCents       *int64  `json:"finalPriceCents,omitempty"`
	PlatformFeeCents      *int64  `json:"platformFeeCents,omitempty"`
	ProviderPayoutCents   *int64  `json:"providerPayoutCents,omitempty"`
	PlatformFeePercentage float64 `json:"platformFeePercentage"`
	AcceptedAt            string  `json:"acceptedAt,omitempty"`
	StartedAt             string  `json:"startedAt,omitempty"`
	CompletedAt           string  `json:"completedAt,omitempty"`
	CancelledAt           string  `json:"cancelledAt,omitempty"`
	CancellationReason    string  `json:"cancellationReason,omitempty"`
	CreatedAt             string  `json:"createdAt"`
}
