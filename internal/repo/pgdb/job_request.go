package pgdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo/repo_errors"
	"job-marketplace-api/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type JobRequestRepo struct {
	*postgres.Postgres
}

func NewJobRequestRepo(pgdb *postgres.Postgres) *JobRequestRepo {
	return &JobRequestRepo{pgdb}
}

var jobRequestColumns = []string{
	"id", "consumer_id", "provider_id", "property_id", "service_type",
	"title", "description", "requested_date", "requested_time_start", "requested_time_end",
	"urgency", "flexible_timing", "status",
	"estimated_price_cents", "final_price_cents", "platform_fee_cents", "provider_payout_cents",
	"platform_fee_percentage",
	"accepted_at", "started_at", "completed_at", "cancelled_at", "cancelled_by", "cancellation_reason",
	"created_at",
}

func scanJobRequest(row squirrel.RowScanner) (*entity.JobRequest, error) {
	var jr entity.JobRequest
	err := row.Scan(
		&jr.Id, &jr.ConsumerId, &jr.ProviderId, &jr.PropertyId, &jr.ServiceType,
		&jr.Title, &jr.Description, &jr.RequestedDate, &jr.RequestedTimeStart, &jr.RequestedTimeEnd,
		&jr.Urgency, &jr.FlexibleTiming, &jr.Status,
		&jr.EstimatedPriceCents, &jr.FinalPriceCents, &jr.PlatformFeeCents, &jr.ProviderPayoutCents,
		&jr.PlatformFeePercentage,
		&jr.AcceptedAt, &jr.StartedAt, &jr.CompletedAt, &jr.CancelledAt, &jr.CancelledBy, &jr.CancellationReason,
		&jr.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &jr, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}

	return t
}

func (r *JobRequestRepo) CreateJobRequest(ctx context.Context, input *entity.CreateJobRequestInput) (uuid.UUID, error) {
	consumerUuid, err := uuid.Parse(input.ConsumerId)
	if err != nil {
		return uuid.Nil, err
	}

	propertyUuid, err := uuid.Parse(input.PropertyId)
	if err != nil {
		return uuid.Nil, err
	}

	createReq, args, _ := r.SqlBuilder.
		Insert("job_request").
		Columns("consumer_id", "property_id", "service_type", "title", "description",
			"requested_date", "requested_time_start", "requested_time_end",
			"urgency", "flexible_timing", "status", "platform_fee_percentage",
			"estimated_price_cents").
		Values(consumerUuid, propertyUuid, input.ServiceType, input.Title, input.Description,
			input.RequestedDate, nullableTime(input.RequestedTimeStart), nullableTime(input.RequestedTimeEnd),
			input.Urgency, input.FlexibleTiming, input.Status, input.PlatformFeePercentage,
			nullableInt64(input.EstimatedPriceCents)).
		Suffix("RETURNING id").
		ToSql()

	var id uuid.UUID
	if err := r.Database.QueryRow(createReq, args...).Scan(&id); err != nil {
		return uuid.Nil, classifyPgError(err)
	}

	return id, nil
}

func (r *JobRequestRepo) GetJobRequestById(ctx context.Context, id string) (*entity.JobRequest, error) {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(jobRequestColumns...).
		From("job_request").
		Where("id = ?", uuidForm).
		ToSql()

	jr, err := scanJobRequest(r.Database.QueryRow(getReq, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, err
	}

	return jr, nil
}

func (r *JobRequestRepo) UpdateJobRequestStatus(ctx context.Context, id string, fromStatus, toStatus string, stampColumn string, stampAt time.Time) error {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	update := r.SqlBuilder.
		Update("job_request").
		Set("status", toStatus).
		Where("id = ?", uuidForm).
		Where("status = ?", fromStatus)

	if stampColumn != "" {
		update = update.Set(stampColumn, stampAt)
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

func (r *JobRequestRepo) CancelJobRequest(ctx context.Context, id string, fromStatuses []string, cancelledBy string, reason string, cancelledAt time.Time) error {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	cancelledByUuid, err := uuid.Parse(cancelledBy)
	if err != nil {
		return err
	}

	tx, err := r.Database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	lockReq, args, _ := r.SqlBuilder.
		Select("status").
		From("job_request").
		Where("id = ?", uuidForm).
		Suffix("FOR UPDATE NOWAIT").
		RunWith(tx).
		ToSql()

	var status string
	if err := tx.QueryRow(lockReq, args...).Scan(&status); err != nil {
		if e := tx.Rollback(); e != nil {
			return e
		}

		if errors.Is(err, sql.ErrNoRows) {
			return repo_errors.ErrNotFound
		}

		return classifyPgError(err)
	}

	cancellable := false
	for _, s := range fromStatuses {
		if s == status {
			cancellable = true
			break
		}
	}
	if !cancellable {
		if e := tx.Rollback(); e != nil {
			return e
		}

		return repo_errors.ErrStaleStatus
	}

	cancelReq, args, _ := r.SqlBuilder.
		Update("job_request").
		Set("status", "cancelled").
		Set("cancelled_at", cancelledAt).
		Set("cancelled_by", cancelledByUuid).
		Set("cancellation_reason", reason).
		Where("id = ?", uuidForm).
		RunWith(tx).
		ToSql()

	if _, err := tx.Exec(cancelReq, args...); err != nil {
		if e := tx.Rollback(); e != nil {
			return e
		}

		return classifyPgError(err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *JobRequestRepo) queryJobRequests(builder squirrel.SelectBuilder) ([]entity.JobRequest, error) {
	getReq, args, _ := builder.ToSql()

	rows, err := r.Database.Query(getReq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobRequests := make([]entity.JobRequest, 0)
	for rows.Next() {
		jr, err := scanJobRequest(rows)
		if err != nil {
			return jobRequests, err
		}
		jobRequests = append(jobRequests, *jr)
	}
	if err = rows.Err(); err != nil {
		return jobRequests, err
	}

	return jobRequests, nil
}

func (r *JobRequestRepo) GetConsumerJobRequests(ctx context.Context, consumerId string, statuses []string, pg *entity.PaginationInput) ([]entity.JobRequest, error) {
	uuidForm, err := uuid.Parse(consumerId)
	if err != nil {
		return nil, err
	}

	builder := r.SqlBuilder.
		Select(jobRequestColumns...).
		From("job_request").
		Where("consumer_id = ?", uuidForm).
		OrderBy("created_at DESC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit))

	if len(statuses) > 0 {
		builder = builder.Where(squirrel.Eq{"status": statuses})
	}

	return r.queryJobRequests(builder)
}

func (r *JobRequestRepo) GetProviderJobRequests(ctx context.Context, providerId string, statuses []string, pg *entity.PaginationInput) ([]entity.JobRequest, error) {
	uuidForm, err := uuid.Parse(providerId)
	if err != nil {
		return nil, err
	}

	builder := r.SqlBuilder.
		Select(jobRequestColumns...).
		From("job_request").
		Where("provider_id = ?", uuidForm).
		OrderBy("requested_date ASC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit))

	if len(statuses) > 0 {
		builder = builder.Where(squirrel.Eq{"status": statuses})
	}

	return r.queryJobRequests(builder)
}

func (r *JobRequestRepo) GetOpenJobRequests(ctx context.Context, serviceTypes []string, pg *entity.PaginationInput) ([]entity.JobRequest, error) {
	builder := r.SqlBuilder.
		Select(jobRequestColumns...).
		From("job_request").
		Where("status = ?", "open_for_bids").
		OrderBy("requested_date ASC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit))

	if len(serviceTypes) > 0 {
		builder = builder.Where(squirrel.Eq{"service_type": serviceTypes})
	}

	return r.queryJobRequests(builder)
}

func (r *JobRequestRepo) GetReleasableJobRequests(ctx context.Context, completedBefore time.Time, limit int) ([]entity.JobRequest, error) {
	builder := r.SqlBuilder.
		Select(jobRequestColumns...).
		From("job_request").
		Where("status = ?", "completed").
		Where("completed_at < ?", completedBefore).
		OrderBy("completed_at ASC").
		Limit(uint64(limit))

	return r.queryJobRequests(builder)
}
