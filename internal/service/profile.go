package service

import (
	"context"
	"errors"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo"
	"job-marketplace-api/internal/repo/repo_errors"
)

// ProfileService covers the supporting records the marketplace needs before a
// job can exist: consumer properties and provider service listings.
type ProfileService struct {
	userRepo            repo.User
	propertyRepo        repo.Property
	providerServiceRepo repo.ProviderService
}

func NewProfileService(repos *repo.Repositories) *ProfileService {
	return &ProfileService{
		userRepo:            repos.User,
		propertyRepo:        repos.Property,
		providerServiceRepo: repos.ProviderService,
	}
}

func (s *ProfileService) CreateProperty(ctx context.Context, input *entity.CreatePropertyInput) (*entity.PropertyOutputModel, error) {
	userId, err := s.userRepo.GetUserIdByUsername(ctx, input.OwnerUsername)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	input.UserId = userId
	if input.Country == "" {
		input.Country = "US"
	}

	id, err := s.propertyRepo.CreateProperty(ctx, input)
	if err != nil {
		return nil, err
	}

	property, err := s.propertyRepo.GetPropertyById(ctx, id.String())
	if err != nil {
		return nil, err
	}

	return mapProperty(property), nil
}

func (s *ProfileService) GetUserProperties(ctx context.Context, username string, pg *entity.PaginationInput) ([]entity.PropertyOutputModel, error) {
	userId, err := s.userRepo.GetUserIdByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	properties, err := s.propertyRepo.GetUserProperties(ctx, userId, pg)
	if err != nil {
		return nil, err
	}

	return mapProperties(properties), nil
}

func (s *ProfileService) CreateProviderService(ctx context.Context, input *entity.CreateProviderServiceInput) (*entity.ProviderServiceOutputModel, error) {
	providerId, err := s.userRepo.GetUserIdByUsername(ctx, input.ProviderUsername)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	isProvider, err := s.userRepo.IsProvider(ctx, providerId)
	if err != nil {
		return nil, err
	}
	if !isProvider {
		return nil, ErrUserNotAProvider
	}

	if err := validateRateFields(input); err != nil {
		return nil, err
	}

	input.ProviderId = providerId

	id, err := s.providerServiceRepo.CreateProviderService(ctx, input)
	if err != nil {
		if errors.Is(err, repo_errors.ErrUniqueViolation) {
			return nil, ErrDuplicateListing
		}

		return nil, err
	}

	ps, err := s.providerServiceRepo.GetProviderServiceById(ctx, id.String())
	if err != nil {
		return nil, err
	}

	return mapProviderService(ps), nil
}

func (s *ProfileService) GetProviderServices(ctx context.Context, username string, pg *entity.PaginationInput) ([]entity.ProviderServiceOutputModel, error) {
	providerId, err := s.userRepo.GetUserIdByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	services, err := s.providerServiceRepo.GetProviderServices(ctx, providerId, pg)
	if err != nil {
		return nil, err
	}

	return mapProviderServices(services), nil
}

// Each pricing model needs its own rate fields filled in before the listing
// can produce an estimate.
func validateRateFields(input *entity.CreateProviderServiceInput) error {
	switch input.PricingModel {
	case common.PricingHourly:
		if input.HourlyRateCents <= 0 {
			return ErrMissingRateFields
		}
	case common.PricingPerJob:
		if input.BasePriceCents <= 0 {
			return ErrMissingRateFields
		}
	case common.PricingPropertySize:
		// the base price is the fallback for unmapped size buckets, so a
		// size map alone is not enough
		if input.BasePriceCents <= 0 {
			return ErrMissingRateFields
		}
	default:
		return ErrUnknownPricingModel
	}

	return nil
}
