package service

import (
	"context"
	"errors"
	"time"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo"
	"job-marketplace-api/internal/repo/repo_errors"

	"github.com/google/uuid"
)

type BidService struct {
	bidRepo        repo.JobBid
	jobRequestRepo repo.JobRequest
	userRepo       repo.User
	now            func() time.Time
}

func NewBidService(repos *repo.Repositories, opts Options) *BidService {
	opts = opts.withDefaults()

	return &BidService{
		bidRepo:        repos.JobBid,
		jobRequestRepo: repos.JobRequest,
		userRepo:       repos.User,
		now:            opts.Now,
	}
}

func (s *BidService) SubmitBid(ctx context.Context, input *entity.CreateBidInput) (*entity.BidOutputModel, []entity.Event, error) {
	if input.BidAmountCents <= 0 {
		return nil, nil, ErrInvalidBidAmount
	}

	providerId, err := s.userRepo.GetUserIdByUsername(ctx, input.ProviderUsername)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}

		return nil, nil, err
	}

	isProvider, err := s.userRepo.IsProvider(ctx, providerId)
	if err != nil {
		return nil, nil, err
	}
	if !isProvider {
		return nil, nil, ErrUserNotAProvider
	}

	jr, err := s.jobRequestRepo.GetJobRequestById(ctx, input.JobRequestId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, nil, ErrJobRequestNotFound
		}

		return nil, nil, err
	}

	if jr.ConsumerId.String() == providerId {
		return nil, nil, ErrOwnJobBid
	}
	if jr.Status != common.OpenForBids {
		return nil, nil, ErrJobNotOpen
	}

	existing, err := s.bidRepo.GetActiveBidByProvider(ctx, input.JobRequestId, providerId)
	if err != nil && !errors.Is(err, repo_errors.ErrNotFound) {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrDuplicateBid
	}

	input.ProviderId = providerId
	input.Status = common.BidPending

	id, err := s.bidRepo.CreateBid(ctx, input)
	if err != nil {
		// the db-level unique index closes the check-then-insert race
		if errors.Is(err, repo_errors.ErrUniqueViolation) {
			return nil, nil, ErrDuplicateBid
		}

		return nil, nil, err
	}

	bid, err := s.bidRepo.GetBidById(ctx, id.String())
	if err != nil {
		return nil, nil, err
	}

	events := []entity.Event{{
		Name:         common.EventBidSubmitted,
		JobRequestId: input.JobRequestId,
		BidId:        id.String(),
		ActorId:      providerId,
		OccurredAt:   s.now(),
	}}

	return mapBid(bid), events, nil
}

// AcceptBid selects the winning bid. The repo transaction locks the job
// request row, so two consumers (or a concurrent cancel) racing on the same
// job surface as ErrConcurrencyConflict instead of a double accept.
func (s *BidService) AcceptBid(ctx context.Context, bidId, username string) (*entity.BidOutputModel, []entity.Event, error) {
	bid, jr, userId, err := s.loadBidWithJobRequest(ctx, bidId, username)
	if err != nil {
		return nil, nil, err
	}

	if jr.ConsumerId.String() != userId {
		return nil, nil, ErrUnauthorized
	}
	if jr.Status != common.OpenForBids {
		return nil, nil, ErrNotAcceptingBids
	}
	if bid.Status != common.BidPending {
		return nil, nil, ErrBidNotFound
	}

	fee, payout := ComputeFees(bid.BidAmountCents, jr.PlatformFeePercentage)
	acceptedAt := s.now()

	rejectedIds, err := s.bidRepo.AcceptBid(ctx, &entity.AcceptBidParams{
		JobRequestId:        jr.Id,
		BidId:               bid.Id,
		ProviderId:          bid.ProviderId,
		FinalPriceCents:     bid.BidAmountCents,
		PlatformFeeCents:    fee,
		ProviderPayoutCents: payout,
		AcceptedAt:          acceptedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo_errors.ErrLockNotAvailable),
			errors.Is(err, repo_errors.ErrStaleStatus):
			return nil, nil, ErrConcurrencyConflict
		case errors.Is(err, repo_errors.ErrNotFound):
			return nil, nil, ErrJobRequestNotFound
		}

		return nil, nil, err
	}

	events := make([]entity.Event, 0, len(rejectedIds)+2)
	events = append(events, entity.Event{
		Name:         common.EventBidAccepted,
		JobRequestId: jr.Id.String(),
		BidId:        bid.Id.String(),
		ActorId:      userId,
		OccurredAt:   acceptedAt,
	})
	for _, rejectedId := range rejectedIds {
		events = append(events, entity.Event{
			Name:         common.EventBidRejected,
			JobRequestId: jr.Id.String(),
			BidId:        rejectedId.String(),
			OccurredAt:   acceptedAt,
		})
	}
	events = append(events, entity.Event{
		Name:         common.EventJobAccepted,
		JobRequestId: jr.Id.String(),
		BidId:        bid.Id.String(),
		ActorId:      userId,
		OccurredAt:   acceptedAt,
	})

	bid, err = s.bidRepo.GetBidById(ctx, bidId)
	if err != nil {
		return nil, nil, err
	}

	return mapBid(bid), events, nil
}

func (s *BidService) RejectBid(ctx context.Context, bidId, username string) (*entity.BidOutputModel, []entity.Event, error) {
	bid, jr, userId, err := s.loadBidWithJobRequest(ctx, bidId, username)
	if err != nil {
		return nil, nil, err
	}

	if jr.ConsumerId.String() != userId {
		return nil, nil, ErrUnauthorized
	}

	err = s.bidRepo.UpdateBidStatus(ctx, bidId, common.BidPending, common.BidRejected)
	if err != nil {
		if errors.Is(err, repo_errors.ErrStaleStatus) {
			return nil, nil, ErrConcurrencyConflict
		}

		return nil, nil, err
	}

	events := []entity.Event{{
		Name:         common.EventBidRejected,
		JobRequestId: bid.JobRequestId.String(),
		BidId:        bidId,
		ActorId:      userId,
		OccurredAt:   s.now(),
	}}

	bid, err = s.bidRepo.GetBidById(ctx, bidId)
	if err != nil {
		return nil, nil, err
	}

	return mapBid(bid), events, nil
}

func (s *BidService) WithdrawBid(ctx context.Context, bidId, username string) (*entity.BidOutputModel, []entity.Event, error) {
	bid, _, userId, err := s.loadBidWithJobRequest(ctx, bidId, username)
	if err != nil {
		return nil, nil, err
	}

	if bid.ProviderId.String() != userId {
		return nil, nil, ErrUnauthorized
	}
	if bid.Status != common.BidPending {
		return nil, nil, ErrCannotWithdraw
	}

	err = s.bidRepo.UpdateBidStatus(ctx, bidId, common.BidPending, common.BidWithdrawn)
	if err != nil {
		if errors.Is(err, repo_errors.ErrStaleStatus) {
			return nil, nil, ErrCannotWithdraw
		}

		return nil, nil, err
	}

	events := []entity.Event{{
		Name:         common.EventBidWithdrawn,
		JobRequestId: bid.JobRequestId.String(),
		BidId:        bidId,
		ActorId:      userId,
		OccurredAt:   s.now(),
	}}

	bid, err = s.bidRepo.GetBidById(ctx, bidId)
	if err != nil {
		return nil, nil, err
	}

	return mapBid(bid), events, nil
}

func (s *BidService) GetBidStatusById(ctx context.Context, bidId, username string) (string, error) {
	bid, jr, userId, err := s.loadBidWithJobRequest(ctx, bidId, username)
	if err != nil {
		return "", err
	}

	if bid.ProviderId.String() != userId && jr.ConsumerId.String() != userId {
		return "", ErrUnauthorized
	}

	return bid.Status, nil
}

func (s *BidService) GetUserBids(ctx context.Context, username string, pg *entity.PaginationInput) ([]entity.BidOutputModel, error) {
	providerId, err := s.userRepo.GetUserIdByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	bids, err := s.bidRepo.GetProviderBids(ctx, providerId, pg)
	if err != nil {
		return nil, err
	}

	return mapBids(bids), nil
}

// Only the job request's consumer may list its bids.
func (s *BidService) GetBidsForJobRequestById(ctx context.Context, jobRequestId string, pg *entity.PaginationInput, username string) ([]entity.BidOutputModel, error) {
	userId, err := s.userRepo.GetUserIdByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	jr, err := s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrJobRequestNotFound
		}

		return nil, err
	}

	if jr.ConsumerId.String() != userId {
		return nil, ErrUnauthorized
	}

	bids, err := s.bidRepo.GetJobRequestBids(ctx, jobRequestId, pg)
	if err != nil {
		return nil, err
	}

	return mapBids(bids), nil
}

func (s *BidService) loadBidWithJobRequest(ctx context.Context, bidId, username string) (*entity.JobBid, *entity.JobRequest, string, error) {
	userId, err := s.userRepo.GetUserIdByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, nil, "", ErrUserNotFound
		}

		return nil, nil, "", err
	}

	if _, err := uuid.Parse(bidId); err != nil {
		return nil, nil, "", ErrBidNotFound
	}

	bid, err := s.bidRepo.GetBidById(ctx, bidId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, nil, "", ErrBidNotFound
		}

		return nil, nil, "", err
	}

	jr, err := s.jobRequestRepo.GetJobRequestById(ctx, bid.JobRequestId.String())
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, nil, "", ErrJobRequestNotFound
		}

		return nil, nil, "", err
	}

	return bid, jr, userId, nil
}
