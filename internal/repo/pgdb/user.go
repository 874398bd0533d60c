package pgdb

import (
	"context"
	"database/sql"
	"errors"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo/repo_errors"
	"job-marketplace-api/pkg/postgres"

	"github.com/google/uuid"
)

type UserRepo struct {
	*postgres.Postgres
}

func NewUserRepo(pgdb *postgres.Postgres) *UserRepo {
	return &UserRepo{pgdb}
}

func (r *UserRepo) GetUserIdByUsername(ctx context.Context, username string) (string, error) {
	sqlReq, args, _ := r.SqlBuilder.
		Select("id").
		From("users").
		Where("username = ?", username).
		ToSql()

	var userId string
	err := r.Database.QueryRow(sqlReq, args...).Scan(&userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repo_errors.ErrNotFound
		}

		return "", err
	}

	return userId, nil
}

func (r *UserRepo) GetUserById(ctx context.Context, id string) (*entity.User, error) {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	sqlReq, args, _ := r.SqlBuilder.
		Select("id", "username", "display_name", "is_provider").
		From("users").
		Where("id = ?", uuidForm).
		ToSql()

	var user entity.User
	err = r.Database.QueryRow(sqlReq, args...).
		Scan(&user.Id, &user.Username, &user.DisplayName, &user.IsProvider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, err
	}

	return &user, nil
}

func (r *UserRepo) IsProvider(ctx context.Context, id string) (bool, error) {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return false, err
	}

	sqlReq, args, _ := r.SqlBuilder.
		Select("is_provider").
		From("users").
		Where("id = ?", uuidForm).
		ToSql()

	var isProvider bool
	err = r.Database.QueryRow(sqlReq, args...).Scan(&isProvider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, repo_errors.ErrNotFound
		}

		return false, err
	}

	return isProvider, nil
}
