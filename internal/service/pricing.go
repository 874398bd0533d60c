package service

import (
	"context"
	"errors"
	"math"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo"
	"job-marketplace-api/internal/repo/repo_errors"

	"github.com/google/uuid"
)

type PricingService struct {
	providerServiceRepo repo.ProviderService
	propertyRepo        repo.Property
}

func NewPricingService(providerServiceRepo repo.ProviderService, propertyRepo repo.Property) *PricingService {
	return &PricingService{
		providerServiceRepo: providerServiceRepo,
		propertyRepo:        propertyRepo,
	}
}

func (s *PricingService) EstimatePrice(ctx context.Context, providerServiceId, propertyId, urgency string, estimatedHours float64) (int64, error) {
	if _, err := uuid.Parse(providerServiceId); err != nil {
		return 0, ErrProviderServiceNotFound
	}

	ps, err := s.providerServiceRepo.GetProviderServiceById(ctx, providerServiceId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return 0, ErrProviderServiceNotFound
		}
		return 0, err
	}

	var property *entity.Property
	if ps.PricingModel == common.PricingPropertySize {
		if _, err := uuid.Parse(propertyId); err != nil {
			return 0, ErrPropertyNotFound
		}
		property, err = s.propertyRepo.GetPropertyById(ctx, propertyId)
		if err != nil {
			if errors.Is(err, repo_errors.ErrNotFound) {
				return 0, ErrPropertyNotFound
			}
			return 0, err
		}
	}

	return Estimate(ps, property, urgency, estimatedHours)
}

// Estimate computes a price in cents for the given service, property and
// urgency. Hourly services bill estimatedHours at the hourly rate with the
// minimum charge as a floor; per-job services bill the base price; sized
// services look the property's size bucket up in the per-size table and fall
// back to the base price when the bucket is absent.
func Estimate(ps *entity.ProviderService, property *entity.Property, urgency string, estimatedHours float64) (int64, error) {
	var base int64

	switch ps.PricingModel {
	case common.PricingHourly:
		if !ps.HourlyRateCents.Valid {
			return 0, ErrMissingRateFields
		}
		minCharge := int64(0)
		if ps.MinChargeCents.Valid {
			minCharge = ps.MinChargeCents.Int64
		}
		if estimatedHours <= 0 {
			base = minCharge
		} else {
			base = roundHalfUp(float64(ps.HourlyRateCents.Int64) * estimatedHours)
			if base < minCharge {
				base = minCharge
			}
		}
	case common.PricingPerJob:
		if !ps.BasePriceCents.Valid {
			return 0, ErrMissingRateFields
		}
		base = ps.BasePriceCents.Int64
	case common.PricingPropertySize:
		base = -1
		if property != nil && property.PropertySize.Valid {
			if cents, ok := ps.SizePricing[property.PropertySize.String]; ok {
				base = cents
			}
		}
		if base < 0 {
			if !ps.BasePriceCents.Valid {
				return 0, ErrMissingRateFields
			}
			base = ps.BasePriceCents.Int64
		}
	default:
		return 0, ErrUnknownPricingModel
	}

	num, den := urgencyMultiplier(urgency)

	// half-up rounding on the rational multiplier keeps the math in integers
	return (base*num + den/2) / den, nil
}

// urgencyMultiplier returns the urgency surcharge as a rational num/den:
// normal 1x, urgent 1.25x, emergency 1.5x. Unknown values price as normal.
func urgencyMultiplier(urgency string) (num, den int64) {
	switch urgency {
	case common.UrgencyUrgent:
		return 5, 4
	case common.UrgencyEmergency:
		return 3, 2
	default:
		return 1, 1
	}
}

func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
