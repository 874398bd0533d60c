package pgdb

import (
	"context"
	"database/sql"
	"errors"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo/repo_errors"
	"job-marketplace-api/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type JobBidRepo struct {
	*postgres.Postgres
}

func NewJobBidRepo(pgdb *postgres.Postgres) *JobBidRepo {
	return &JobBidRepo{pgdb}
}

var jobBidColumns = []string{
	"id", "job_request_id", "provider_id", "bid_amount_cents",
	"message", "estimated_arrival", "estimated_duration_minutes",
	"status", "created_at",
}

func scanJobBid(row squirrel.RowScanner) (*entity.JobBid, error) {
	var bid entity.JobBid
	err := row.Scan(
		&bid.Id, &bid.JobRequestId, &bid.ProviderId, &bid.BidAmountCents,
		&bid.Message, &bid.EstimatedArrival, &bid.EstimatedDurationMinutes,
		&bid.Status, &bid.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &bid, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}

func nullableInt(i int) interface{} {
	if i == 0 {
		return nil
	}

	return i
}

func (r *JobBidRepo) CreateBid(ctx context.Context, input *entity.CreateBidInput) (uuid.UUID, error) {
	jobRequestUuid, err := uuid.Parse(input.JobRequestId)
	if err != nil {
		return uuid.Nil, err
	}

	providerUuid, err := uuid.Parse(input.ProviderId)
	if err != nil {
		return uuid.Nil, err
	}

	createReq, args, _ := r.SqlBuilder.
		Insert("job_bid").
		Columns("job_request_id", "provider_id", "bid_amount_cents",
			"message", "estimated_arrival", "estimated_duration_minutes", "status").
		Values(jobRequestUuid, providerUuid, input.BidAmountCents,
			nullableString(input.Message), nullableTime(input.EstimatedArrival),
			nullableInt(input.EstimatedDurationMinutes), input.Status).
		Suffix("RETURNING id").
		ToSql()

	var bidId uuid.UUID
	if err := r.Database.QueryRow(createReq, args...).Scan(&bidId); err != nil {
		return uuid.Nil, classifyPgError(err)
	}

	return bidId, nil
}

func (r *JobBidRepo) GetBidById(ctx context.Context, id string) (*entity.JobBid, error) {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(jobBidColumns...).
		From("job_bid").
		Where("id = ?", uuidForm).
		ToSql()

	bid, err := scanJobBid(r.Database.QueryRow(getReq, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, err
	}

	return bid, nil
}

func (r *JobBidRepo) GetActiveBidByProvider(ctx context.Context, jobRequestId, providerId string) (*entity.JobBid, error) {
	jobRequestUuid, err := uuid.Parse(jobRequestId)
	if err != nil {
		return nil, err
	}

	providerUuid, err := uuid.Parse(providerId)
	if err != nil {
		return nil, err
	}

	getReq, args, _ := r.SqlBuilder.
		Select(jobBidColumns...).
		From("job_bid").
		Where("job_request_id = ?", jobRequestUuid).
		Where("provider_id = ?", providerUuid).
		Where("status <> ?", common.BidWithdrawn).
		ToSql()

	bid, err := scanJobBid(r.Database.QueryRow(getReq, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, err
	}

	return bid, nil
}

func (r *JobBidRepo) queryBids(builder squirrel.SelectBuilder) ([]entity.JobBid, error) {
	getReq, args, _ := builder.ToSql()

	rows, err := r.Database.Query(getReq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make([]entity.JobBid, 0)
	for rows.Next() {
		bid, err := scanJobBid(rows)
		if err != nil {
			return bids, err
		}
		bids = append(bids, *bid)
	}
	if err = rows.Err(); err != nil {
		return bids, err
	}

	return bids, nil
}

func (r *JobBidRepo) GetJobRequestBids(ctx context.Context, jobRequestId string, pg *entity.PaginationInput) ([]entity.JobBid, error) {
	uuidForm, err := uuid.Parse(jobRequestId)
	if err != nil {
		return nil, err
	}

	return r.queryBids(r.SqlBuilder.
		Select(jobBidColumns...).
		From("job_bid").
		Where("job_request_id = ?", uuidForm).
		OrderBy("created_at DESC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit)))
}

func (r *JobBidRepo) GetProviderBids(ctx context.Context, providerId string, pg *entity.PaginationInput) ([]entity.JobBid, error) {
	uuidForm, err := uuid.Parse(providerId)
	if err != nil {
		return nil, err
	}

	return r.queryBids(r.SqlBuilder.
		Select(jobBidColumns...).
		From("job_bid").
		Where("provider_id = ?", uuidForm).
		OrderBy("created_at DESC").
		Offset(uint64(pg.Offset)).
		Limit(uint64(pg.Limit)))
}

// AcceptBid selects the winner under an exclusive row lock on the job request.
// Either every write commits or none does; a lock held by a concurrent accept
// or cancel surfaces as repo_errors.ErrLockNotAvailable.
func (r *JobBidRepo) AcceptBid(ctx context.Context, params *entity.AcceptBidParams) ([]uuid.UUID, error) {
	tx, err := r.Database.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	lockReq, args, _ := r.SqlBuilder.
		Select("status").
		From("job_request").
		Where("id = ?", params.JobRequestId).
		Suffix("FOR UPDATE NOWAIT").
		RunWith(tx).
		ToSql()

	var jobStatus string
	if err := tx.QueryRow(lockReq, args...).Scan(&jobStatus); err != nil {
		if e := tx.Rollback(); e != nil {
			return nil, e
		}

		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo_errors.ErrNotFound
		}

		return nil, classifyPgError(err)
	}

	if jobStatus != common.OpenForBids {
		if e := tx.Rollback(); e != nil {
			return nil, e
		}

		return nil, repo_errors.ErrStaleStatus
	}

	acceptReq, args, _ := r.SqlBuilder.
		Update("job_bid").
		Set("status", common.BidAccepted).
		Where("id = ?", params.BidId).
		Where("job_request_id = ?", params.JobRequestId).
		Where("status = ?", common.BidPending).
		RunWith(tx).
		ToSql()

	result, err := tx.Exec(acceptReq, args...)
	if err != nil {
		if e := tx.Rollback(); e != nil {
			return nil, e
		}

		return nil, classifyPgError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		if e := tx.Rollback(); e != nil {
			return nil, e
		}

		return nil, err
	}
	if affected == 0 {
		if e := tx.Rollback(); e != nil {
			return nil, e
		}

		return nil, repo_errors.ErrStaleStatus
	}

	rejectReq, args, _ := r.SqlBuilder.
		Update("job_bid").
		Set("status", common.BidRejected).
		Where("job_request_id = ?", params.JobRequestId).
		Where("id <> ?", params.BidId).
		Where("status = ?", common.BidPending).
		Suffix("RETURNING id").
		RunWith(tx).
		ToSql()

	rows, err := tx.Query(rejectReq, args...)
	if err != nil {
		if e := tx.Rollback(); e != nil {
			return nil, e
		}

		return nil, classifyPgError(err)
	}

	rejectedIds := make([]uuid.UUID, 0)
	for rows.Next() {
		var rejectedId uuid.UUID
		if err := rows.Scan(&rejectedId); err != nil {
			rows.Close()
			if e := tx.Rollback(); e != nil {
				return nil, e
			}

			return nil, err
		}
		rejectedIds = append(rejectedIds, rejectedId)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		if e := tx.Rollback(); e != nil {
			return nil, e
		}

		return nil, err
	}
	rows.Close()

	commitPricingReq, args, _ := r.SqlBuilder.
		Update("job_request").
		Set("provider_id", params.ProviderId).
		Set("final_price_cents", params.FinalPriceCents).
		Set("platform_fee_cents", params.PlatformFeeCents).
		Set("provider_payout_cents", params.ProviderPayoutCents).
		Set("status", common.Accepted).
		Set("accepted_at", params.AcceptedAt).
		Where("id = ?", params.JobRequestId).
		RunWith(tx).
		ToSql()

	if _, err := tx.Exec(commitPricingReq, args...); err != nil {
		if e := tx.Rollback(); e != nil {
			return nil, e
		}

		return nil, classifyPgError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return rejectedIds, nil
}

func (r *JobBidRepo) UpdateBidStatus(ctx context.Context, id string, fromStatus, toStatus string) error {
	uuidForm, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	updateReq, args, _ := r.SqlBuilder.
		Update("job_bid").
		Set("status", toStatus).
		Where("id = ?", uuidForm).
		Where("status = ?", fromStatus).
		ToSql()

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
