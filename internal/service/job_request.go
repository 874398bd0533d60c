package service

import (
	"context"
	"errors"
	"time"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo"
	"job-marketplace-api/internal/repo/repo_errors"
)

const releaseSweepBatchSize = 100

type JobRequestService struct {
	jobRequestRepo    repo.JobRequest
	userRepo          repo.User
	propertyRepo      repo.Property
	paymentRepo       repo.Payment
	settlement        *SettlementService
	pricing           *PricingService
	defaultFeePercent float64
	now               func() time.Time
}

func NewJobRequestService(repos *repo.Repositories, settlement *SettlementService, pricing *PricingService, opts Options) *JobRequestService {
	opts = opts.withDefaults()

	return &JobRequestService{
		jobRequestRepo:    repos.JobRequest,
		userRepo:          repos.User,
		propertyRepo:      repos.Property,
		paymentRepo:       repos.Payment,
		settlement:        settlement,
		pricing:           pricing,
		defaultFeePercent: opts.DefaultFeePercent,
		now:               opts.Now,
	}
}

func (s *JobRequestService) CreateJobRequest(ctx context.Context, input *entity.CreateJobRequestInput) (*entity.JobRequestOutputModel, []entity.Event, error) {
	consumerId, err := s.resolveUserId(ctx, input.ConsumerUsername)
	if err != nil {
		return nil, nil, err
	}

	property, err := s.propertyRepo.GetPropertyById(ctx, input.PropertyId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, nil, ErrPropertyNotFound
		}

		return nil, nil, err
	}
	if property.UserId.String() != consumerId {
		return nil, nil, ErrUnauthorized
	}

	input.ConsumerId = consumerId
	if input.Urgency == "" {
		input.Urgency = common.UrgencyNormal
	}
	input.PlatformFeePercentage = s.defaultFeePercent
	input.Status = common.Pending

	if input.ProviderServiceId != "" {
		estimate, err := s.pricing.EstimatePrice(ctx, input.ProviderServiceId,
			input.PropertyId, input.Urgency, input.EstimatedHours)
		if err != nil {
			return nil, nil, err
		}
		input.EstimatedPriceCents = estimate
	}

	id, err := s.jobRequestRepo.CreateJobRequest(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	createdAt := s.now()

	// new requests go straight to the market
	err = s.jobRequestRepo.UpdateJobRequestStatus(ctx, id.String(), common.Pending, common.OpenForBids, "", time.Time{})
	if err != nil {
		return nil, nil, err
	}

	jr, err := s.jobRequestRepo.GetJobRequestById(ctx, id.String())
	if err != nil {
		return nil, nil, err
	}

	events := []entity.Event{
		{Name: common.EventJobRequestCreated, JobRequestId: id.String(), ActorId: consumerId, OccurredAt: createdAt},
		{Name: common.EventBiddingOpened, JobRequestId: id.String(), ActorId: consumerId, OccurredAt: createdAt},
	}

	return mapJobRequest(jr), events, nil
}

func (s *JobRequestService) OpenBidding(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, nil, err
	}
	if jr.ConsumerId.String() != userId {
		return nil, nil, ErrUnauthorized
	}

	if err := s.transition(ctx, jr, eventOpenBidding, "", time.Time{}); err != nil {
		return nil, nil, err
	}

	jr, err = s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		return nil, nil, err
	}

	events := []entity.Event{
		{Name: common.EventBiddingOpened, JobRequestId: jobRequestId, ActorId: userId, OccurredAt: s.now()},
	}

	return mapJobRequest(jr), events, nil
}

// AuthorizePayment places the card hold for the accepted price. The gateway
// call happens before the status flips, so a declined card leaves the job
// request in accepted and the consumer can retry.
func (s *JobRequestService) AuthorizePayment(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, nil, err
	}
	if jr.ConsumerId.String() != userId {
		return nil, nil, ErrUnauthorized
	}

	if _, err := nextJobStatus(jr.Status, eventAuthorizePayment); err != nil {
		return nil, nil, err
	}

	_, events, err := s.settlement.EnsureAuthorized(ctx, jr)
	if err != nil {
		return nil, nil, err
	}

	if err := s.transition(ctx, jr, eventAuthorizePayment, "", time.Time{}); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			s.refundIfCancelled(ctx, jr)
		}

		return nil, nil, err
	}

	jr, err = s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		return nil, nil, err
	}

	return mapJobRequest(jr), events, nil
}

// StartJob captures the authorized hold and marks the work as begun. Capture
// comes first: a job is never in progress while the money is still only on
// hold.
func (s *JobRequestService) StartJob(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, nil, err
	}
	if !jr.ProviderId.Valid || jr.ProviderId.UUID.String() != userId {
		return nil, nil, ErrUnauthorized
	}

	if _, err := nextJobStatus(jr.Status, eventStart); err != nil {
		return nil, nil, err
	}

	events, err := s.settlement.CapturePayment(ctx, jr)
	if err != nil {
		return nil, nil, err
	}

	startedAt := s.now()
	if err := s.transition(ctx, jr, eventStart, "started_at", startedAt); err != nil {
		return nil, nil, err
	}

	jr, err = s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		return nil, nil, err
	}

	events = append(events, entity.Event{
		Name: common.EventJobStarted, JobRequestId: jobRequestId, ActorId: userId, OccurredAt: startedAt,
	})

	return mapJobRequest(jr), events, nil
}

func (s *JobRequestService) CompleteJob(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, nil, err
	}
	if !jr.ProviderId.Valid || jr.ProviderId.UUID.String() != userId {
		return nil, nil, ErrUnauthorized
	}

	completedAt := s.now()
	if err := s.transition(ctx, jr, eventComplete, "completed_at", completedAt); err != nil {
		return nil, nil, err
	}

	jr, err = s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		return nil, nil, err
	}

	events := []entity.Event{
		{Name: common.EventJobCompleted, JobRequestId: jobRequestId, ActorId: userId, OccurredAt: completedAt},
	}

	return mapJobRequest(jr), events, nil
}

// CancelJobRequest cancels on behalf of the consumer or the assigned
// provider. The cancellation commits first; the refund of any held or
// captured money is best effort afterwards, with gateway failures recorded on
// the payment row rather than surfaced.
func (s *JobRequestService) CancelJobRequest(ctx context.Context, jobRequestId, username, reason string) (*entity.JobRequestOutputModel, []entity.Event, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, nil, err
	}

	isConsumer := jr.ConsumerId.String() == userId
	isProvider := jr.ProviderId.Valid && jr.ProviderId.UUID.String() == userId
	if !isConsumer && !isProvider {
		return nil, nil, ErrUnauthorized
	}

	cancelledAt := s.now()
	err = s.jobRequestRepo.CancelJobRequest(ctx, jobRequestId, common.CancellableStatuses, userId, reason, cancelledAt)
	if err != nil {
		switch {
		case errors.Is(err, repo_errors.ErrLockNotAvailable):
			return nil, nil, ErrConcurrencyConflict
		case errors.Is(err, repo_errors.ErrStaleStatus):
			return nil, nil, ErrInvalidTransition
		case errors.Is(err, repo_errors.ErrNotFound):
			return nil, nil, ErrJobRequestNotFound
		}

		return nil, nil, err
	}

	events := []entity.Event{
		{Name: common.EventJobCancelled, JobRequestId: jobRequestId, ActorId: userId, OccurredAt: cancelledAt},
	}

	refundEvents, err := s.settlement.RefundPayment(ctx, jr)
	if err == nil {
		events = append(events, refundEvents...)
	}

	jr, err = s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		return nil, nil, err
	}

	return mapJobRequest(jr), events, nil
}

func (s *JobRequestService) DisputeJobRequest(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, nil, err
	}

	isConsumer := jr.ConsumerId.String() == userId
	isProvider := jr.ProviderId.Valid && jr.ProviderId.UUID.String() == userId
	if !isConsumer && !isProvider {
		return nil, nil, ErrUnauthorized
	}

	if err := s.transition(ctx, jr, eventDispute, "", time.Time{}); err != nil {
		return nil, nil, err
	}

	jr, err = s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		return nil, nil, err
	}

	events := []entity.Event{
		{Name: common.EventJobDisputed, JobRequestId: jobRequestId, ActorId: userId, OccurredAt: s.now()},
	}

	return mapJobRequest(jr), events, nil
}

// ReleasePayment pays the provider out for a completed job once the hold
// period has elapsed.
func (s *JobRequestService) ReleasePayment(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, nil, err
	}
	if jr.ConsumerId.String() != userId {
		return nil, nil, ErrUnauthorized
	}

	if _, err := nextJobStatus(jr.Status, eventReleasePayment); err != nil {
		return nil, nil, err
	}
	if !s.settlement.ReleaseEligible(jr, s.now()) {
		return nil, nil, ErrReleaseHoldActive
	}

	events, err := s.releaseOne(ctx, jr)
	if err != nil {
		return nil, nil, err
	}

	jr, err = s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		return nil, nil, err
	}

	return mapJobRequest(jr), events, nil
}

func (s *JobRequestService) ReleaseEligiblePayments(ctx context.Context) ([]entity.Event, error) {
	cutoff := s.now().Add(-s.settlement.releaseHold)

	jrs, err := s.jobRequestRepo.GetReleasableJobRequests(ctx, cutoff, releaseSweepBatchSize)
	if err != nil {
		return nil, err
	}

	var events []entity.Event
	var errs []error
	for i := range jrs {
		jr := &jrs[i]
		if !s.settlement.ReleaseEligible(jr, s.now()) {
			continue
		}

		released, err := s.releaseOne(ctx, jr)
		if err != nil {
			// one stuck payment must not stall the rest of the sweep
			errs = append(errs, err)
			continue
		}
		events = append(events, released...)
	}

	return events, errors.Join(errs...)
}

// releaseOne claims the job request before calling the gateway: once the job
// is payment_released no dispute can land while the transfer is in flight. A
// transfer that never moved money puts the job back in completed for a retry.
func (s *JobRequestService) releaseOne(ctx context.Context, jr *entity.JobRequest) ([]entity.Event, error) {
	err := s.jobRequestRepo.UpdateJobRequestStatus(ctx, jr.Id.String(), common.Completed, common.PaymentReleased, "", time.Time{})
	if err != nil {
		if errors.Is(err, repo_errors.ErrStaleStatus) {
			return nil, ErrConcurrencyConflict
		}

		return nil, err
	}

	events, err := s.settlement.ReleasePayment(ctx, jr)
	if err != nil {
		if errors.Is(err, ErrPaymentGateway) || errors.Is(err, ErrPaymentNotFound) {
			if revertErr := s.jobRequestRepo.UpdateJobRequestStatus(ctx, jr.Id.String(),
				common.PaymentReleased, common.Completed, "", time.Time{}); revertErr != nil {
				return nil, errors.Join(err, revertErr)
			}
		}

		return nil, err
	}

	return events, nil
}

func (s *JobRequestService) GetJobRequestById(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, err
	}

	if err := s.checkReadAccess(jr, userId); err != nil {
		return nil, err
	}

	return mapJobRequest(jr), nil
}

// A job request on the market is public; off the market only the parties see it.
func (s *JobRequestService) GetJobRequestStatusById(ctx context.Context, jobRequestId, username string) (string, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return "", err
	}

	if err := s.checkReadAccess(jr, userId); err != nil {
		return "", err
	}

	return jr.Status, nil
}

func (s *JobRequestService) GetConsumerJobRequests(ctx context.Context, username, filter string, pg *entity.PaginationInput) ([]entity.JobRequestOutputModel, error) {
	consumerId, err := s.resolveUserId(ctx, username)
	if err != nil {
		return nil, err
	}

	jrs, err := s.jobRequestRepo.GetConsumerJobRequests(ctx, consumerId, statusesForFilter(filter), pg)
	if err != nil {
		return nil, err
	}

	return mapJobRequests(jrs), nil
}

func (s *JobRequestService) GetProviderJobRequests(ctx context.Context, username, filter string, pg *entity.PaginationInput) ([]entity.JobRequestOutputModel, error) {
	providerId, err := s.resolveUserId(ctx, username)
	if err != nil {
		return nil, err
	}

	if filter == "" {
		filter = "active"
	}

	jrs, err := s.jobRequestRepo.GetProviderJobRequests(ctx, providerId, statusesForFilter(filter), pg)
	if err != nil {
		return nil, err
	}

	return mapJobRequests(jrs), nil
}

func (s *JobRequestService) GetAvailableJobRequests(ctx context.Context, serviceTypes []string, pg *entity.PaginationInput) ([]entity.JobRequestOutputModel, error) {
	jrs, err := s.jobRequestRepo.GetOpenJobRequests(ctx, serviceTypes, pg)
	if err != nil {
		return nil, err
	}

	return mapJobRequests(jrs), nil
}

func (s *JobRequestService) GetJobRequestPayments(ctx context.Context, jobRequestId, username string, pg *entity.PaginationInput) ([]entity.PaymentOutputModel, error) {
	jr, userId, err := s.loadForActor(ctx, jobRequestId, username)
	if err != nil {
		return nil, err
	}

	isConsumer := jr.ConsumerId.String() == userId
	isProvider := jr.ProviderId.Valid && jr.ProviderId.UUID.String() == userId
	if !isConsumer && !isProvider {
		return nil, ErrUnauthorized
	}

	payments, err := s.paymentRepo.GetJobRequestPayments(ctx, jobRequestId, pg)
	if err != nil {
		return nil, err
	}

	return mapPayments(payments), nil
}

func (s *JobRequestService) resolveUserId(ctx context.Context, username string) (string, error) {
	userId, err := s.userRepo.GetUserIdByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return "", ErrUserNotFound
		}

		return "", err
	}

	return userId, nil
}

func (s *JobRequestService) loadForActor(ctx context.Context, jobRequestId, username string) (*entity.JobRequest, string, error) {
	userId, err := s.resolveUserId(ctx, username)
	if err != nil {
		return nil, "", err
	}

	jr, err := s.jobRequestRepo.GetJobRequestById(ctx, jobRequestId)
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, "", ErrJobRequestNotFound
		}

		return nil, "", err
	}

	return jr, userId, nil
}

func (s *JobRequestService) checkReadAccess(jr *entity.JobRequest, userId string) error {
	if jr.Status == common.OpenForBids {
		return nil
	}

	isConsumer := jr.ConsumerId.String() == userId
	isProvider := jr.ProviderId.Valid && jr.ProviderId.UUID.String() == userId
	if !isConsumer && !isProvider {
		return ErrUnauthorized
	}

	return nil
}

// refundIfCancelled sweeps up the card hold when a cancel beat the authorize
// transition: the cancel's own refund pass ran while the payment was still
// pending and found nothing to return.
func (s *JobRequestService) refundIfCancelled(ctx context.Context, jr *entity.JobRequest) {
	current, err := s.jobRequestRepo.GetJobRequestById(ctx, jr.Id.String())
	if err != nil || current.Status != common.Cancelled {
		return
	}

	_, _ = s.settlement.RefundPayment(ctx, jr)
}

func (s *JobRequestService) transition(ctx context.Context, jr *entity.JobRequest, event machineEvent, stampColumn string, stampAt time.Time) error {
	toStatus, err := nextJobStatus(jr.Status, event)
	if err != nil {
		return err
	}

	err = s.jobRequestRepo.UpdateJobRequestStatus(ctx, jr.Id.String(), jr.Status, toStatus, stampColumn, stampAt)
	if err != nil {
		if errors.Is(err, repo_errors.ErrStaleStatus) {
			return ErrConcurrencyConflict
		}

		return err
	}

	return nil
}

func statusesForFilter(filter string) []string {
	switch filter {
	case "active":
		return []string{common.OpenForBids, common.Accepted, common.PaymentAuthorized, common.InProgress}
	case "pending":
		return []string{common.Pending, common.OpenForBids}
	case "completed":
		return []string{common.Completed, common.PaymentReleased}
	case "cancelled":
		return []string{common.Cancelled}
	case "disputed":
		return []string{common.Disputed}
	default:
		return nil
	}
}
