package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo"
	"job-marketplace-api/internal/repo/repo_errors"
)

// SettlementService owns the payment side of the job lifecycle: fee math,
// gateway calls and the payment record state. Job request status changes stay
// with JobRequestService; settlement only ever touches payment rows.
type SettlementService struct {
	paymentRepo    repo.Payment
	gateway        PaymentGateway
	currency       string
	gatewayTimeout time.Duration
	releaseHold    time.Duration
	now            func() time.Time
}

func NewSettlementService(paymentRepo repo.Payment, gateway PaymentGateway, opts Options) *SettlementService {
	opts = opts.withDefaults()

	return &SettlementService{
		paymentRepo:    paymentRepo,
		gateway:        gateway,
		currency:       opts.Currency,
		gatewayTimeout: opts.GatewayTimeout,
		releaseHold:    opts.ReleaseHold,
		now:            opts.Now,
	}
}

// ComputeFees splits an amount into the platform fee and the provider payout.
// The percentage is converted to basis points first so the split is exact
// integer math: fee + payout == amount always holds.
func ComputeFees(amountCents int64, feePercent float64) (feeCents, payoutCents int64) {
	feeBps := int64(math.Round(feePercent * 100))
	feeCents = (amountCents*feeBps + 5000) / 10000
	payoutCents = amountCents - feeCents

	return feeCents, payoutCents
}

// EnsureAuthorized puts a hold on the consumer's card for the final price.
// Re-invoking after a prior success is safe: an existing authorized or
// captured payment is returned as-is with no gateway call.
func (s *SettlementService) EnsureAuthorized(ctx context.Context, jr *entity.JobRequest) (*entity.Payment, []entity.Event, error) {
	existing, err := s.paymentRepo.GetLatestPaymentByStatus(ctx, jr.Id.String(),
		[]string{common.PaymentStatusAuthorized, common.PaymentStatusCaptured})
	if err != nil && !errors.Is(err, repo_errors.ErrNotFound) {
		return nil, nil, err
	}
	if existing != nil {
		return existing, nil, nil
	}

	if !jr.ProviderId.Valid || !jr.FinalPriceCents.Valid {
		return nil, nil, ErrInvalidTransition
	}

	amount := jr.FinalPriceCents.Int64
	fee := jr.PlatformFeeCents.Int64
	payout := jr.ProviderPayoutCents.Int64
	if !jr.PlatformFeeCents.Valid || !jr.ProviderPayoutCents.Valid {
		fee, payout = ComputeFees(amount, jr.PlatformFeePercentage)
	}

	paymentId, err := s.paymentRepo.CreatePayment(ctx, &entity.CreatePaymentInput{
		JobRequestId:        jr.Id,
		PayerId:             jr.ConsumerId,
		PayeeId:             jr.ProviderId.UUID,
		AmountCents:         amount,
		PlatformFeeCents:    fee,
		ProviderAmountCents: payout,
		Currency:            s.currency,
		Status:              common.PaymentStatusPending,
	})
	if err != nil {
		return nil, nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	intentId, err := s.gateway.AuthorizeCharge(gwCtx, amount, s.currency,
		jr.ConsumerId.String(), jr.ProviderId.UUID.String())
	if err != nil {
		s.recordFailure(ctx, paymentId.String(), "authorize", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	at := s.now()
	if err := s.paymentRepo.MarkPaymentAuthorized(ctx, paymentId.String(), intentId, at); err != nil {
		return nil, nil, err
	}

	payment, err := s.paymentRepo.GetPaymentById(ctx, paymentId.String())
	if err != nil {
		return nil, nil, err
	}

	events := []entity.Event{{
		Name:         common.EventPaymentAuthorized,
		JobRequestId: jr.Id.String(),
		PaymentId:    paymentId.String(),
		OccurredAt:   at,
	}}

	return payment, events, nil
}

// CapturePayment moves the authorized hold into a charge. Already-captured
// payments are a no-op so callers can retry safely.
func (s *SettlementService) CapturePayment(ctx context.Context, jr *entity.JobRequest) ([]entity.Event, error) {
	captured, err := s.paymentRepo.GetLatestPaymentByStatus(ctx, jr.Id.String(),
		[]string{common.PaymentStatusCaptured})
	if err != nil && !errors.Is(err, repo_errors.ErrNotFound) {
		return nil, err
	}
	if captured != nil {
		return nil, nil
	}

	payment, err := s.paymentRepo.GetLatestPaymentByStatus(ctx, jr.Id.String(),
		[]string{common.PaymentStatusAuthorized})
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	if err := s.gateway.Capture(gwCtx, payment.GatewayIntentId.String); err != nil {
		s.recordFailure(ctx, payment.Id.String(), "capture", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	at := s.now()
	if err := s.paymentRepo.MarkPaymentCaptured(ctx, payment.Id.String(), at); err != nil {
		return nil, err
	}

	return []entity.Event{{
		Name:         common.EventPaymentCaptured,
		JobRequestId: jr.Id.String(),
		PaymentId:    payment.Id.String(),
		OccurredAt:   at,
	}}, nil
}

// ReleasePayment transfers the provider's share of the captured charge out to
// the provider.
func (s *SettlementService) ReleasePayment(ctx context.Context, jr *entity.JobRequest) ([]entity.Event, error) {
	payment, err := s.paymentRepo.GetLatestPaymentByStatus(ctx, jr.Id.String(),
		[]string{common.PaymentStatusCaptured})
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	transferId, err := s.gateway.Transfer(gwCtx, payment.GatewayIntentId.String,
		payment.PayeeId.String(), payment.ProviderAmountCents.Int64)
	if err != nil {
		s.recordFailure(ctx, payment.Id.String(), "release", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	at := s.now()
	if err := s.paymentRepo.MarkPaymentReleased(ctx, payment.Id.String(), transferId, at); err != nil {
		return nil, err
	}

	return []entity.Event{{
		Name:         common.EventPaymentReleased,
		JobRequestId: jr.Id.String(),
		PaymentId:    payment.Id.String(),
		OccurredAt:   at,
	}}, nil
}

// RefundPayment returns an authorized or captured charge to the consumer. No
// payment on the job request is not an error: jobs cancelled before
// authorization have nothing to refund.
func (s *SettlementService) RefundPayment(ctx context.Context, jr *entity.JobRequest) ([]entity.Event, error) {
	payment, err := s.paymentRepo.GetLatestPaymentByStatus(ctx, jr.Id.String(),
		[]string{common.PaymentStatusAuthorized, common.PaymentStatusCaptured})
	if err != nil {
		if errors.Is(err, repo_errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	if err := s.gateway.Refund(gwCtx, payment.GatewayIntentId.String); err != nil {
		s.recordFailure(ctx, payment.Id.String(), "refund", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	at := s.now()
	if err := s.paymentRepo.MarkPaymentRefunded(ctx, payment.Id.String(), at); err != nil {
		return nil, err
	}

	return []entity.Event{{
		Name:         common.EventPaymentRefunded,
		JobRequestId: jr.Id.String(),
		PaymentId:    payment.Id.String(),
		OccurredAt:   at,
	}}, nil
}

// ReleaseEligible reports whether the hold period on a completed job has
// fully elapsed at the given instant.
func (s *SettlementService) ReleaseEligible(jr *entity.JobRequest, at time.Time) bool {
	if jr.Status != common.Completed || !jr.CompletedAt.Valid {
		return false
	}

	return jr.CompletedAt.Time.Add(s.releaseHold).Before(at)
}

func (s *SettlementService) recordFailure(ctx context.Context, paymentId, op string, cause error) {
	reason := fmt.Sprintf("%s: %v", op, cause)
	// best effort, the gateway error is what the caller sees
	_ = s.paymentRepo.SetPaymentFailureReason(ctx, paymentId, reason)
}
