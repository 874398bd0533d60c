package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo/repo_errors"
	"job-marketplace-api/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type PaymentRepo struct {
	*postgres.Postgres
}

func NewPaymentRepo(pgdb *postgres.Postgres) *PaymentRepo {
	return &PaymentRepo{pgdb}
}

var paymentColumns = []string{
	"id", "job_request_id", "payer_id", "payee_id",
	"amount_cents", "platform_fee_cents", "provider_amount_cents", "currency", "status",
	"gateway_intent_id", "gateway_transfer_id", "failure_reason",
	"authorized_at", "captured_at", "released_at", "refunded_at", "created_at",
}

func scanPayment(row squirrel.RowScanner) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.Id, &p.JobRequestId, &p.PayerId, &p.PayeeId,
		&p.AmountCents, &p.PlatformFeeCents, &p.ProviderAmountCents, &p.Currency, &p.Status,
		&p.GatewayIntentId, &p.GatewayTransferId, &p.FailureReason,
		&p.AuthorizedAt, &p.CapturedAt, &p.ReleasedAt, &p.RefundedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *PaymentRepo) CreatePayment(ctx context.Context, input *entity.CreatePaymentInput) (uuid.UUID, error) {
	createReq, args, _ := r.SqlBuilder.
		Insert("payment").
		Columns("job_request_id", "payer_id", "payee_id",
			"amount_cents", "platform_fee_cents", "provider_amount_cents", "currency", "status").
		Values(input.JobRequestId, input.PayerId, input.PayeeId,
			input.AmountCents, input.PlatformFeeCents, input.ProviderAmountCents, input.Currency, input.Status).
		Suffix("RETURNING id").
		ToSql()

	var id uuid.UUID
	if err := r.Database.QueryRow(createReq, args...).Scan(&id); err != nil {
		return uuid.Nil, classifyPgError(err)
	}

	return id, nil
}

func (r *PaymentRepo) GetPaymentById(ctx context.Context, id string) (*entity.Payment, error) {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(paymentColumns...).
		From("payment").
		Where("id = ?", uuidForm).
		ToSql()

	p, err := scanPayment(r.Database.QueryRow(getReq, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, err
	}

	return p, nil
}

func (r *PaymentRepo) GetJobRequestPayments(ctx context.Context, jobRequestId string, pg *entity.PaginationInput) ([]entity.Payment, error) {
	uuidForm, err := uuid.Parse(jobRequestId)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(paymentColumns...).
		From("payment").
		Where("job_request_id = ?", uuidForm).
		OrderBy("created_at DESC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit)).
		ToSql()

	rows, err := r.Database.Query(getReq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]entity.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return payments, err
		}
		payments = append(payments, *p)
	}
	if err = rows.Err(); err != nil {
		return payments, err
	}

	return payments, nil
}

func (r *PaymentRepo) GetLatestPaymentByStatus(ctx context.Context, jobRequestId string, statuses []string) (*entity.Payment, error) {
	uuidForm, err := uuid.Parse(jobRequestId)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(paymentColumns...).
		From("payment").
		Where("job_request_id = ?", uuidForm).
		Where(squirrel.Eq{"status": statuses}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()

	p, err := scanPayment(r.Database.QueryRow(getReq, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, err
	}

	return p, nil
}

func (r *PaymentRepo) markPayment(id string, fromStatuses []string, toStatus string, setters map[string]interface{}) error {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	update := r.SqlBuilder.
		Update("payment").
		Set("status", toStatus).
		Where("id = ?", uuidForm).
		Where(squirrel.Eq{"status": fromStatuses})

	for column, value := range setters {
		update = update.Set(column, value)
	}

	updateReq, args, _ := update.ToSql()

	result, err := r.Database.Exec(updateReq, args...)
	if err != nil {
		return classifyPgError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repo_errors.ErrStaleStatus
	}

	return nil
}

func (r *PaymentRepo) MarkPaymentAuthorized(ctx context.Context, id string, gatewayIntentId string, at time.Time) error {
	return r.markPayment(id, []string{common.PaymentStatusPending}, common.PaymentStatusAuthorized,
		map[string]interface{}{"gateway_intent_id": gatewayIntentId, "authorized_at": at})
}

func (r *PaymentRepo) MarkPaymentCaptured(ctx context.Context, id string, at time.Time) error {
	return r.markPayment(id, []string{common.PaymentStatusAuthorized}, common.PaymentStatusCaptured,
		map[string]interface{}{"captured_at": at})
}

func (r *PaymentRepo) MarkPaymentReleased(ctx context.Context, id string, gatewayTransferId string, at time.Time) error {
	return r.markPayment(id, []string{common.PaymentStatusCaptured}, common.PaymentStatusReleased,
		map[string]interface{}{"gateway_transfer_id": gatewayTransferId, "released_at": at})
}

func (r *PaymentRepo) MarkPaymentRefunded(ctx context.Context, id string, at time.Time) error {
	return r.markPayment(id, []string{common.PaymentStatusAuthorized, common.PaymentStatusCaptured}, common.PaymentStatusRefunded,
		map[string]interface{}{"refunded_at": at})
}

func (r *PaymentRepo) SetPaymentFailureReason(ctx context.Context, id string, reason string) error {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	updateReq, args, _ := r.SqlBuilder.
		Update("payment").
		Set("failure_reason", reason).
		Where("id = ?", uuidForm).
		ToSql()

	if _, err := r.Database.Exec(updateReq, args...); err != nil {
		return classifyPgError(err)
	}

	return nil
}
