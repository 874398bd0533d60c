package pgdb

import (
	"context"
	"database/sql"
	"errors"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo/repo_errors"
	"job-marketplace-api/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type PropertyRepo struct {
	*postgres.Postgres
}

func NewPropertyRepo(pgdb *postgres.Postgres) *PropertyRepo {
	return &PropertyRepo{pgdb}
}

var propertyColumns = []string{
	"id", "user_id", "name", "address_line_1", "address_line_2",
	"city", "state", "zip_code", "country", "property_size",
	"special_instructions", "active", "created_at",
}

func scanProperty(row squirrel.RowScanner) (*entity.Property, error) {
	var p entity.Property
	err := row.Scan(
		&p.Id, &p.UserId, &p.Name, &p.AddressLine1, &p.AddressLine2,
		&p.City, &p.State, &p.ZipCode, &p.Country, &p.PropertySize,
		&p.SpecialInstructions, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *PropertyRepo) CreateProperty(ctx context.Context, input *entity.CreatePropertyInput) (uuid.UUID, error) {
	userUuid, err := uuid.Parse(input.UserId)
	if err != nil {
		return uuid.Nil, err
	}

	createReq, args, _ := r.SqlBuilder.
		Insert("property").
		Columns("user_id", "name", "address_line_1", "address_line_2",
			"city", "state", "zip_code", "country", "property_size", "special_instructions").
		Values(userUuid, input.Name, input.AddressLine1, nullableString(input.AddressLine2),
			input.City, input.State, input.ZipCode, input.Country,
			nullableString(input.PropertySize), nullableString(input.SpecialInstructions)).
		Suffix("RETURNING id").
		ToSql()

	var id uuid.UUID
	if err := r.Database.QueryRow(createReq, args...).Scan(&id); err != nil {
		return uuid.Nil, classifyPgError(err)
	}

	return id, nil
}

func (r *PropertyRepo) GetPropertyById(ctx context.Context, id string) (*entity.Property, error) {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(propertyColumns...).
		From("property").
		Where("id = ?", uuidForm).
		ToSql()

	p, err := scanProperty(r.Database.QueryRow(getReq, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, err
	}

	return p, nil
}

func (r *PropertyRepo) GetUserProperties(ctx context.Context, userId string, pg *entity.PaginationInput) ([]entity.Property, error) {
	uuidForm, err := uuid.Parse(userId)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(propertyColumns...).
		From("property").
		Where("user_id = ?", uuidForm).
		Where("active = ?", true).
		OrderBy("created_at ASC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit)).
		ToSql()

	rows, err := r.Database.Query(getReq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	properties := make([]entity.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return properties, err
		}
		properties = append(properties, *p)
	}
	if err = rows.Err(); err != nil {
		return properties, err
	}

	return properties, nil
}
