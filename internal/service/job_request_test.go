package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"

	"github.com/google/uuid"
)

type jobFixture struct {
	store      *fakeStore
	gateway    *fakeGateway
	svc        *JobRequestService
	now        time.Time
	consumerId string
	providerId string
	propertyId string
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()

	f := &jobFixture{
		store:   newFakeStore(),
		gateway: &fakeGateway{},
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.consumerId = f.store.addUser("carol", false)
	f.providerId = f.store.addUser("pete", true)
	f.propertyId = f.store.addProperty(f.consumerId, common.SizeMedium)

	opts := Options{Now: func() time.Time { return f.now }}
	settlement := NewSettlementService(f.store, f.gateway, opts)
	pricing := NewPricingService(f.store, f.store)
	f.svc = NewJobRequestService(f.store.repositories(), settlement, pricing, opts)

	return f
}

// acceptedJob seeds a job request in accepted with pete assigned at $100.
func (f *jobFixture) acceptedJob() *entity.JobRequest {
	jr := f.store.addJobRequest(f.consumerId, f.propertyId, common.Accepted)
	jr.ProviderId = uuid.NullUUID{UUID: uuid.MustParse(f.providerId), Valid: true}
	jr.FinalPriceCents = sql.NullInt64{Int64: 10000, Valid: true}
	jr.PlatformFeeCents = sql.NullInt64{Int64: 1500, Valid: true}
	jr.ProviderPayoutCents = sql.NullInt64{Int64: 8500, Valid: true}
	jr.AcceptedAt = sql.NullTime{Time: f.now, Valid: true}

	return jr
}

func TestCreateJobRequest(t *testing.T) {
	f := newJobFixture(t)

	out, events, err := f.svc.CreateJobRequest(context.Background(), &entity.CreateJobRequestInput{
		ConsumerUsername: "carol",
		PropertyId:       f.propertyId,
		ServiceType:      "lawn_care",
		Title:            "mow the lawn",
		RequestedDate:    f.now.AddDate(0, 0, 3),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// new requests open for bidding right away
	if out.Status != common.OpenForBids {
		t.Fatalf("expected open_for_bids, got %q", out.Status)
	}
	if out.Urgency != common.UrgencyNormal {
		t.Fatalf("expected normal urgency default, got %q", out.Urgency)
	}
	if out.PlatformFeePercentage != 15.0 {
		t.Fatalf("expected default fee percent, got %v", out.PlatformFeePercentage)
	}

	if len(events) != 2 ||
		events[0].Name != common.EventJobRequestCreated ||
		events[1].Name != common.EventBiddingOpened {
		t.Fatalf("expected created + bidding_opened events, got %+v", events)
	}
}

func TestCreateJobRequestOnForeignProperty(t *testing.T) {
	f := newJobFixture(t)
	otherId := f.store.addUser("dan", false)
	foreignProperty := f.store.addProperty(otherId, "")

	_, _, err := f.svc.CreateJobRequest(context.Background(), &entity.CreateJobRequestInput{
		ConsumerUsername: "carol",
		PropertyId:       foreignProperty,
		ServiceType:      "lawn_care",
		Title:            "mow the lawn",
		RequestedDate:    f.now.AddDate(0, 0, 3),
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestJobLifecycleHappyPath(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()
	id := jr.Id.String()

	out, events, err := f.svc.AuthorizePayment(context.Background(), id, "carol")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if out.Status != common.PaymentAuthorized {
		t.Fatalf("expected payment_authorized, got %q", out.Status)
	}
	if len(events) != 1 || events[0].Name != common.EventPaymentAuthorized {
		t.Fatalf("expected payment.authorized event, got %+v", events)
	}

	out, events, err = f.svc.StartJob(context.Background(), id, "pete")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if out.Status != common.InProgress {
		t.Fatalf("expected in_progress, got %q", out.Status)
	}
	if out.StartedAt == "" {
		t.Fatalf("expected started_at to be stamped")
	}
	if len(events) != 2 ||
		events[0].Name != common.EventPaymentCaptured ||
		events[1].Name != common.EventJobStarted {
		t.Fatalf("expected captured + started events, got %+v", events)
	}

	out, _, err = f.svc.CompleteJob(context.Background(), id, "pete")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Status != common.Completed || out.CompletedAt == "" {
		t.Fatalf("expected completed with a stamp, got %+v", out)
	}

	// hold period not over yet
	f.now = f.now.Add(23 * time.Hour)
	if _, _, err := f.svc.ReleasePayment(context.Background(), id, "carol"); !errors.Is(err, ErrReleaseHoldActive) {
		t.Fatalf("expected ErrReleaseHoldActive, got %v", err)
	}

	f.now = f.now.Add(2 * time.Hour)
	out, events, err = f.svc.ReleasePayment(context.Background(), id, "carol")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if out.Status != common.PaymentReleased {
		t.Fatalf("expected payment_released, got %q", out.Status)
	}
	if len(events) != 1 || events[0].Name != common.EventPaymentReleased {
		t.Fatalf("expected payment.released event, got %+v", events)
	}
}

func TestLifecycleActorChecks(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()
	id := jr.Id.String()

	// the provider can't authorize, the consumer can't start
	if _, _, err := f.svc.AuthorizePayment(context.Background(), id, "pete"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, _, err := f.svc.AuthorizePayment(context.Background(), id, "carol"); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if _, _, err := f.svc.StartJob(context.Background(), id, "carol"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestStartJobRequiresAuthorization(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()

	if _, _, err := f.svc.StartJob(context.Background(), jr.Id.String(), "pete"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStartJobCaptureFailureKeepsStatus(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()
	id := jr.Id.String()

	if _, _, err := f.svc.AuthorizePayment(context.Background(), id, "carol"); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	f.gateway.failCapture = true
	if _, _, err := f.svc.StartJob(context.Background(), id, "pete"); !errors.Is(err, ErrPaymentGateway) {
		t.Fatalf("expected ErrPaymentGateway, got %v", err)
	}

	// money still only on hold, the job hasn't started
	if f.store.jobRequests[id].Status != common.PaymentAuthorized {
		t.Fatalf("expected payment_authorized, got %q", f.store.jobRequests[id].Status)
	}

	f.gateway.failCapture = false
	if _, _, err := f.svc.StartJob(context.Background(), id, "pete"); err != nil {
		t.Fatalf("retry after gateway recovery: %v", err)
	}
}

func TestAuthorizePaymentDeclineLeavesAccepted(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()
	id := jr.Id.String()

	f.gateway.failAuthorize = true
	if _, _, err := f.svc.AuthorizePayment(context.Background(), id, "carol"); !errors.Is(err, ErrPaymentGateway) {
		t.Fatalf("expected ErrPaymentGateway, got %v", err)
	}
	if f.store.jobRequests[id].Status != common.Accepted {
		t.Fatalf("declined card must leave the job in accepted, got %q", f.store.jobRequests[id].Status)
	}

	f.gateway.failAuthorize = false
	if _, _, err := f.svc.AuthorizePayment(context.Background(), id, "carol"); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestCancelRefundsHeldPayment(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()
	id := jr.Id.String()

	if _, _, err := f.svc.AuthorizePayment(context.Background(), id, "carol"); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	out, events, err := f.svc.CancelJobRequest(context.Background(), id, "carol", "found someone else")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if out.Status != common.Cancelled {
		t.Fatalf("expected cancelled, got %q", out.Status)
	}
	if out.CancellationReason != "found someone else" {
		t.Fatalf("expected the reason recorded, got %q", out.CancellationReason)
	}
	if len(events) != 2 ||
		events[0].Name != common.EventJobCancelled ||
		events[1].Name != common.EventPaymentRefunded {
		t.Fatalf("expected cancelled + refunded events, got %+v", events)
	}
	if f.gateway.refundCalls != 1 {
		t.Fatalf("expected 1 refund call, got %d", f.gateway.refundCalls)
	}
}

func TestCancelSurvivesRefundFailure(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()
	id := jr.Id.String()

	if _, _, err := f.svc.AuthorizePayment(context.Background(), id, "carol"); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	f.gateway.failRefund = true
	out, events, err := f.svc.CancelJobRequest(context.Background(), id, "carol", "")
	if err != nil {
		t.Fatalf("cancel must not fail on a refund error: %v", err)
	}
	if out.Status != common.Cancelled {
		t.Fatalf("expected cancelled, got %q", out.Status)
	}
	if len(events) != 1 || events[0].Name != common.EventJobCancelled {
		t.Fatalf("expected only the cancelled event, got %+v", events)
	}

	// the failed refund shows up on the payment row
	payment, _ := f.store.GetLatestPaymentByStatus(context.Background(), id, []string{common.PaymentStatusAuthorized})
	if payment == nil || !payment.FailureReason.Valid {
		t.Fatalf("expected the refund failure recorded on the payment")
	}
}

func TestCancelRules(t *testing.T) {
	f := newJobFixture(t)
	f.store.addUser("mallory", false)

	jr := f.acceptedJob()
	id := jr.Id.String()

	// a stranger can't cancel
	if _, _, err := f.svc.CancelJobRequest(context.Background(), id, "mallory", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// the assigned provider can
	if _, _, err := f.svc.CancelJobRequest(context.Background(), id, "pete", "truck broke down"); err != nil {
		t.Fatalf("provider cancel: %v", err)
	}

	// once the work started there's no cancelling
	inProgress := f.acceptedJob()
	inProgress.Status = common.InProgress
	if _, _, err := f.svc.CancelJobRequest(context.Background(), inProgress.Id.String(), "carol", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelUnderRowLock(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()

	f.store.lockHeld = true
	if _, _, err := f.svc.CancelJobRequest(context.Background(), jr.Id.String(), "carol", ""); !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
}

func TestDisputeJobRequest(t *testing.T) {
	f := newJobFixture(t)
	jr := f.acceptedJob()
	jr.Status = common.Completed
	jr.CompletedAt = sql.NullTime{Time: f.now, Valid: true}

	out, events, err := f.svc.DisputeJobRequest(context.Background(), jr.Id.String(), "carol")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if out.Status != common.Disputed {
		t.Fatalf("expected disputed, got %q", out.Status)
	}
	if len(events) != 1 || events[0].Name != common.EventJobDisputed {
		t.Fatalf("expected job_request.disputed event, got %+v", events)
	}
}

func TestReleaseEligiblePaymentsSweep(t *testing.T) {
	f := newJobFixture(t)

	seedCompleted := func(completedAt time.Time, captured bool) *entity.JobRequest {
		jr := f.acceptedJob()
		jr.Status = common.Completed
		jr.CompletedAt = sql.NullTime{Time: completedAt, Valid: true}
		if captured {
			paymentId, _ := f.store.CreatePayment(context.Background(), &entity.CreatePaymentInput{
				JobRequestId:        jr.Id,
				PayerId:             jr.ConsumerId,
				PayeeId:             jr.ProviderId.UUID,
				AmountCents:         10000,
				PlatformFeeCents:    1500,
				ProviderAmountCents: 8500,
				Currency:            "usd",
				Status:              common.PaymentStatusPending,
			})
			_ = f.store.MarkPaymentAuthorized(context.Background(), paymentId.String(), "pi_seed", completedAt)
			_ = f.store.MarkPaymentCaptured(context.Background(), paymentId.String(), completedAt)
		}

		return jr
	}

	ripe := seedCompleted(f.now.Add(-30*time.Hour), true)
	stuck := seedCompleted(f.now.Add(-48*time.Hour), false) // no captured payment
	fresh := seedCompleted(f.now.Add(-2*time.Hour), true)

	events, err := f.svc.ReleaseEligiblePayments(context.Background())
	if err == nil {
		t.Fatalf("expected an error for the job with no captured payment")
	}
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound in the join, got %v", err)
	}

	if len(events) != 1 || events[0].Name != common.EventPaymentReleased {
		t.Fatalf("expected one payment.released event, got %+v", events)
	}
	if events[0].JobRequestId != ripe.Id.String() {
		t.Fatalf("released the wrong job request")
	}

	if f.store.jobRequests[ripe.Id.String()].Status != common.PaymentReleased {
		t.Fatalf("ripe job should be payment_released")
	}
	if f.store.jobRequests[stuck.Id.String()].Status != common.Completed {
		t.Fatalf("stuck job should stay completed")
	}
	if f.store.jobRequests[fresh.Id.String()].Status != common.Completed {
		t.Fatalf("job inside the hold period should stay completed")
	}
}

func TestDisputeCannotLandDuringRelease(t *testing.T) {
	f := newJobFixture(t)

	jr := f.acceptedJob()
	jr.Status = common.Completed
	jr.CompletedAt = sql.NullTime{Time: f.now.Add(-30 * time.Hour), Valid: true}
	paymentId, _ := f.store.CreatePayment(context.Background(), &entity.CreatePaymentInput{
		JobRequestId:        jr.Id,
		PayerId:             jr.ConsumerId,
		PayeeId:             jr.ProviderId.UUID,
		AmountCents:         10000,
		PlatformFeeCents:    1500,
		ProviderAmountCents: 8500,
		Currency:            "usd",
		Status:              common.PaymentStatusPending,
	})
	_ = f.store.MarkPaymentAuthorized(context.Background(), paymentId.String(), "pi_seed", f.now)
	_ = f.store.MarkPaymentCaptured(context.Background(), paymentId.String(), f.now)

	// the consumer disputes while the transfer is on the wire
	var disputeErr error
	f.gateway.onTransfer = func() {
		_, _, disputeErr = f.svc.DisputeJobRequest(context.Background(), jr.Id.String(), "carol")
	}

	if _, _, err := f.svc.ReleasePayment(context.Background(), jr.Id.String(), "carol"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !errors.Is(disputeErr, ErrInvalidTransition) {
		t.Fatalf("expected the in-flight dispute to be rejected, got %v", disputeErr)
	}
	if f.gateway.transferCalls != 1 {
		t.Fatalf("expected exactly one transfer, got %d", f.gateway.transferCalls)
	}
	if got := f.store.jobRequests[jr.Id.String()].Status; got != common.PaymentReleased {
		t.Fatalf("expected payment_released, got %s", got)
	}
	payment, _ := f.store.GetLatestPaymentByStatus(context.Background(), jr.Id.String(),
		[]string{common.PaymentStatusReleased})
	if payment == nil {
		t.Fatalf("expected the payment to be released")
	}
}

func TestReleaseRevertsWhenTransferFails(t *testing.T) {
	f := newJobFixture(t)

	jr := f.acceptedJob()
	jr.Status = common.Completed
	jr.CompletedAt = sql.NullTime{Time: f.now.Add(-30 * time.Hour), Valid: true}
	paymentId, _ := f.store.CreatePayment(context.Background(), &entity.CreatePaymentInput{
		JobRequestId:        jr.Id,
		PayerId:             jr.ConsumerId,
		PayeeId:             jr.ProviderId.UUID,
		AmountCents:         10000,
		PlatformFeeCents:    1500,
		ProviderAmountCents: 8500,
		Currency:            "usd",
		Status:              common.PaymentStatusPending,
	})
	_ = f.store.MarkPaymentAuthorized(context.Background(), paymentId.String(), "pi_seed", f.now)
	_ = f.store.MarkPaymentCaptured(context.Background(), paymentId.String(), f.now)

	f.gateway.failTransfer = true
	if _, _, err := f.svc.ReleasePayment(context.Background(), jr.Id.String(), "carol"); !errors.Is(err, ErrPaymentGateway) {
		t.Fatalf("expected ErrPaymentGateway, got %v", err)
	}
	if got := f.store.jobRequests[jr.Id.String()].Status; got != common.Completed {
		t.Fatalf("a failed transfer must leave the job completed, got %s", got)
	}

	// the next attempt goes through
	f.gateway.failTransfer = false
	if _, _, err := f.svc.ReleasePayment(context.Background(), jr.Id.String(), "carol"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.store.jobRequests[jr.Id.String()].Status; got != common.PaymentReleased {
		t.Fatalf("expected payment_released, got %s", got)
	}
}

func TestCancelDuringAuthorizeRefundsHold(t *testing.T) {
	f := newJobFixture(t)

	jr := f.acceptedJob()

	// a cancel commits while the card hold is being placed; its refund pass
	// saw only a pending payment
	f.gateway.onAuthorize = func() {
		f.store.jobRequests[jr.Id.String()].Status = common.Cancelled
	}

	_, _, err := f.svc.AuthorizePayment(context.Background(), jr.Id.String(), "carol")
	if !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}

	if f.gateway.refundCalls != 1 {
		t.Fatalf("expected the orphaned hold to be refunded, got %d refunds", f.gateway.refundCalls)
	}
	payment, _ := f.store.GetLatestPaymentByStatus(context.Background(), jr.Id.String(),
		[]string{common.PaymentStatusRefunded})
	if payment == nil {
		t.Fatalf("expected the payment to end refunded")
	}
}

func TestCreateJobRequestStampsEstimate(t *testing.T) {
	f := newJobFixture(t)

	listingId, err := f.store.CreateProviderService(context.Background(), &entity.CreateProviderServiceInput{
		ProviderId:     f.providerId,
		ServiceType:    "lawn_care",
		PricingModel:   common.PricingPerJob,
		BasePriceCents: 5000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, _, err := f.svc.CreateJobRequest(context.Background(), &entity.CreateJobRequestInput{
		ConsumerUsername:  "carol",
		PropertyId:        f.propertyId,
		ServiceType:       "lawn_care",
		Title:             "mow the lawn",
		RequestedDate:     f.now.AddDate(0, 0, 2),
		Urgency:           common.UrgencyUrgent,
		ProviderServiceId: listingId.String(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.EstimatedPriceCents == nil || *out.EstimatedPriceCents != 6250 {
		t.Fatalf("expected a $62.50 estimate stamped on the job request, got %v", out.EstimatedPriceCents)
	}

	// without a listing there is nothing to price against
	out, _, err = f.svc.CreateJobRequest(context.Background(), &entity.CreateJobRequestInput{
		ConsumerUsername: "carol",
		PropertyId:       f.propertyId,
		ServiceType:      "lawn_care",
		Title:            "mow the lawn again",
		RequestedDate:    f.now.AddDate(0, 0, 9),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.EstimatedPriceCents != nil {
		t.Fatalf("expected no estimate, got %v", *out.EstimatedPriceCents)
	}

	_, _, err = f.svc.CreateJobRequest(context.Background(), &entity.CreateJobRequestInput{
		ConsumerUsername:  "carol",
		PropertyId:        f.propertyId,
		ServiceType:       "lawn_care",
		Title:             "mow yet again",
		RequestedDate:     f.now.AddDate(0, 0, 9),
		ProviderServiceId: uuid.NewString(),
	})
	if !errors.Is(err, ErrProviderServiceNotFound) {
		t.Fatalf("expected ErrProviderServiceNotFound, got %v", err)
	}
}

func TestStatusVisibility(t *testing.T) {
	f := newJobFixture(t)
	f.store.addUser("mallory", false)

	open := f.store.addJobRequest(f.consumerId, f.propertyId, common.OpenForBids)
	status, err := f.svc.GetJobRequestStatusById(context.Background(), open.Id.String(), "mallory")
	if err != nil {
		t.Fatalf("open job status should be public: %v", err)
	}
	if status != common.OpenForBids {
		t.Fatalf("expected open_for_bids, got %q", status)
	}

	private := f.acceptedJob()
	if _, err := f.svc.GetJobRequestStatusById(context.Background(), private.Id.String(), "mallory"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := f.svc.GetJobRequestStatusById(context.Background(), private.Id.String(), "pete"); err != nil {
		t.Fatalf("assigned provider should see the status: %v", err)
	}
}

func TestConsumerJobRequestFilters(t *testing.T) {
	f := newJobFixture(t)

	f.store.addJobRequest(f.consumerId, f.propertyId, common.OpenForBids)
	f.store.addJobRequest(f.consumerId, f.propertyId, common.InProgress)
	f.store.addJobRequest(f.consumerId, f.propertyId, common.Completed)
	f.store.addJobRequest(f.consumerId, f.propertyId, common.Cancelled)

	pg := entity.NewPaginationInput(10, 0)

	active, err := f.svc.GetConsumerJobRequests(context.Background(), "carol", "active", pg)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active requests, got %d", len(active))
	}

	completed, err := f.svc.GetConsumerJobRequests(context.Background(), "carol", "completed", pg)
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("expected 1 completed request, got %d", len(completed))
	}

	all, err := f.svc.GetConsumerJobRequests(context.Background(), "carol", "", pg)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(all))
	}
}
