package entity

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type ProviderService struct {
	Id              uuid.UUID        `json:"id" db:"id"`
	ProviderId      uuid.UUID        `json:"providerId" db:"provider_id"`
	ServiceType     string           `json:"serviceType" db:"service_type"`
	PricingModel    string           `json:"pricingModel" db:"pricing_model"`
	HourlyRateCents sql.NullInt64    `json:"hourlyRateCents" db:"hourly_rate_cents"`
	BasePriceCents  sql.NullInt64    `json:"basePriceCents" db:"base_price_cents"`
	MinChargeCents  sql.NullInt64    `json:"minChargeCents" db:"min_charge_cents"`
	SizePricing     map[string]int64 `json:"sizePricing" db:"size_pricing"`
	Active          bool             `json:"active" db:"active"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
}

// service + repo input model
type CreateProviderServiceInput struct {
	ProviderUsername string           // given
	ServiceType      string           // given
	PricingModel     string           // given
	HourlyRateCents  int64            // required for "hourly"
	BasePriceCents   int64            // required for "per_job" and "property_size"
	MinChargeCents   int64            // optional
	SizePricing      map[string]int64 // optional, size bucket -> cents
	ProviderId       string           // resolved by the service
	// Id UUID sets automatically
	// CreatedAt sets automatically
}

// controller model
type ProviderServiceOutputModel struct {
	Id              string           `json:"id"`
	ProviderId      string           `json:"providerId"`
	ServiceType     string           `json:"serviceType"`
	PricingModel    string           `json:"pricingModel"`
	HourlyRateCents int64            `json:"hourlyRateCents,omitempty"`
	BasePriceCents  int64            `json:"basePriceCents,omitempty"`
	MinChargeCents  int64            `json:"minChargeCents,omitempty"`
	SizePricing     map[string]int64 `json:"sizePricing,omitempty"`
	Active          bool             `json:"active"`
	CreatedAt       string           `json:"createdAt"`
}
