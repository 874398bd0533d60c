package service

import (
	"context"
	"time"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo"
)

type Diagnostics interface {
	Ping() error
}

type JobRequest interface {
	CreateJobRequest(ctx context.Context, input *entity.CreateJobRequestInput) (*entity.JobRequestOutputModel, []entity.Event, error)
	OpenBidding(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error)
	AuthorizePayment(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error)
	StartJob(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error)
	CompleteJob(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error)
	CancelJobRequest(ctx context.Context, jobRequestId, username, reason string) (*entity.JobRequestOutputModel, []entity.Event, error)
	DisputeJobRequest(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error)
	ReleasePayment(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error)

	// ReleaseEligiblePayments releases every completed job past the hold
	// period. Invoked by the background sweep, not by an actor.
	ReleaseEligiblePayments(ctx context.Context) ([]entity.Event, error)

	GetJobRequestById(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, error)
	GetJobRequestStatusById(ctx context.Context, jobRequestId, username string) (string, error)
	GetConsumerJobRequests(ctx context.Context, username, filter string, pg *entity.PaginationInput) ([]entity.JobRequestOutputModel, error)
	GetProviderJobRequests(ctx context.Context, username, filter string, pg *entity.PaginationInput) ([]entity.JobRequestOutputModel, error)
	GetAvailableJobRequests(ctx context.Context, serviceTypes []string, pg *entity.PaginationInput) ([]entity.JobRequestOutputModel, error)
	GetJobRequestPayments(ctx context.Context, jobRequestId, username string, pg *entity.PaginationInput) ([]entity.PaymentOutputModel, error)
}

type Bid interface {
	SubmitBid(ctx context.Context, input *entity.CreateBidInput) (*entity.BidOutputModel, []entity.Event, error)
	AcceptBid(ctx context.Context, bidId, username string) (*entity.BidOutputModel, []entity.Event, error)
	RejectBid(ctx context.Context, bidId, username string) (*entity.BidOutputModel, []entity.Event, error)
	WithdrawBid(ctx context.Context, bidId, username string) (*entity.BidOutputModel, []entity.Event, error)

	GetBidStatusById(ctx context.Context, bidId, username string) (string, error)
	GetUserBids(ctx context.Context, username string, pg *entity.PaginationInput) ([]entity.BidOutputModel, error)
	GetBidsForJobRequestById(ctx context.Context, jobRequestId string, pg *entity.PaginationInput, username string) ([]entity.BidOutputModel, error)
}

type Pricing interface {
	EstimatePrice(ctx context.Context, providerServiceId, propertyId, urgency string, estimatedHours float64) (int64, error)
}

type Profile interface {
	CreateProperty(ctx context.Context, input *entity.CreatePropertyInput) (*entity.PropertyOutputModel, error)
	GetUserProperties(ctx context.Context, username string, pg *entity.PaginationInput) ([]entity.PropertyOutputModel, error)
	CreateProviderService(ctx context.Context, input *entity.CreateProviderServiceInput) (*entity.ProviderServiceOutputModel, error)
	GetProviderServices(ctx context.Context, username string, pg *entity.PaginationInput) ([]entity.ProviderServiceOutputModel, error)
}

// PaymentGateway is the narrow interface onto the external card-processing
// provider. Implementations must honor context deadlines.
type PaymentGateway interface {
	AuthorizeCharge(ctx context.Context, amountCents int64, currency, payerId, payeeId string) (string, error)
	Capture(ctx context.Context, intentId string) error
	Transfer(ctx context.Context, intentId, payeeId string, amountCents int64) (string, error)
	Refund(ctx context.Context, intentId string) error
}

// Options carries the tunables shared by the services. Zero values fall back
// to the marketplace defaults.
type Options struct {
	DefaultFeePercent float64
	ReleaseHold       time.Duration
	GatewayTimeout    time.Duration
	Currency          string
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultFeePercent == 0 {
		o.DefaultFeePercent = 15.0
	}
	if o.ReleaseHold == 0 {
		o.ReleaseHold = 24 * time.Hour
	}
	if o.GatewayTimeout == 0 {
		o.GatewayTimeout = 10 * time.Second
	}
	if o.Currency == "" {
		o.Currency = "usd"
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}

type Services struct {
	Diagnostics Diagnostics
	JobRequest  JobRequest
	Bid         Bid
	Pricing     Pricing
	Profile     Profile
}

func NewServices(repos *repo.Repositories, gateway PaymentGateway, opts Options) *Services {
	opts = opts.withDefaults()
	settlement := NewSettlementService(repos.Payment, gateway, opts)
	pricing := NewPricingService(repos.ProviderService, repos.Property)

	return &Services{
		Diagnostics: NewDiagnosticsService(repos),
		JobRequest:  NewJobRequestService(repos, settlement, pricing, opts),
		Bid:         NewBidService(repos, opts),
		Pricing:     pricing,
		Profile:     NewProfileService(repos),
	}
}
