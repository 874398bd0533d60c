package pgdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo/repo_errors"
	"job-marketplace-api/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type ProviderServiceRepo struct {
	*postgres.Postgres
}

func NewProviderServiceRepo(pgdb *postgres.Postgres) *ProviderServiceRepo {
	return &ProviderServiceRepo{pgdb}
}

var providerServiceColumns = []string{
	"id", "provider_id", "service_type", "pricing_model",
	"hourly_rate_cents", "base_price_cents", "min_charge_cents",
	"size_pricing", "active", "created_at",
}

func scanProviderService(row squirrel.RowScanner) (*entity.ProviderService, error) {
	var ps entity.ProviderService
	var sizePricingRaw []byte
	err := row.Scan(
		&ps.Id, &ps.ProviderId, &ps.ServiceType, &ps.PricingModel,
		&ps.HourlyRateCents, &ps.BasePriceCents, &ps.MinChargeCents,
		&sizePricingRaw, &ps.Active, &ps.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	ps.SizePricing = make(map[string]int64)
	if len(sizePricingRaw) > 0 {
		if err := json.Unmarshal(sizePricingRaw, &ps.SizePricing); err != nil {
			return nil, err
		}
	}

	return &ps, nil
}

func nullableInt64(i int64) interface{} {
	if i == 0 {
		return nil
	}

	return i
}

func (r *ProviderServiceRepo) CreateProviderService(ctx context.Context, input *entity.CreateProviderServiceInput) (uuid.UUID, error) {
	providerUuid, err := uuid.Parse(input.ProviderId)
	if err != nil {
		return uuid.Nil, err
	}

	sizePricing := input.SizePricing
	if sizePricing == nil {
		sizePricing = map[string]int64{}
	}
	sizePricingRaw, err := json.Marshal(sizePricing)
	if err != nil {
		return uuid.Nil, err
	}

	createReq, args, _ := r.SqlBuilder.
		Insert("provider_service").
		Columns("provider_id", "service_type", "pricing_model",
			"hourly_rate_cents", "base_price_cents", "min_charge_cents", "size_pricing").
		Values(providerUuid, input.ServiceType, input.PricingModel,
			nullableInt64(input.HourlyRateCents), nullableInt64(input.BasePriceCents),
			nullableInt64(input.MinChargeCents), sizePricingRaw).
		Suffix("RETURNING id").
		ToSql()

	var id uuid.UUID
	if err := r.Database.QueryRow(createReq, args...).Scan(&id); err != nil {
		return uuid.Nil, classifyPgError(err)
	}

	return id, nil
}

func (r *ProviderServiceRepo) GetProviderServiceById(ctx context.Context, id string) (*entity.ProviderService, error) {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(providerServiceColumns...).
		From("provider_service").
		Where("id = ?", uuidForm).
		ToSql()

	ps, err := scanProviderService(r.Database.QueryRow(getReq, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, err
	}

	return ps, nil
}

func (r *ProviderServiceRepo) GetProviderServices(ctx context.Context, providerId string, pg *entity.PaginationInput) ([]entity.ProviderService, error) {
	uuidForm, err := uuid.Parse(providerId)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(providerServiceColumns...).
		From("provider_service").
		Where("provider_id = ?", uuidForm).
		Where("active = ?", true).
		OrderBy("service_type ASC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit)).
		ToSql()

	rows, err := r.Database.Query(getReq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]entity.ProviderService, 0)
	for rows.Next() {
		ps, err := scanProviderService(rows)
		if err != nil {
			return services, err
		}
		services = append(services, *ps)
	}
	if err = rows.Err(); err != nil {
		return services, err
	}

	return services, nil
}
