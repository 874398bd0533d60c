package repo

import (
	"context"
	"time"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo/pgdb"
	"job-marketplace-api/pkg/postgres"

	"github.com/google/uuid"
)

type Diagnostics interface {
	Ping() error
}

type User interface {
	GetUserIdByUsername(ctx context.Context, username string) (string, error)
	GetUserById(ctx context.Context, id string) (*entity.User, error)
	IsProvider(ctx context.Context, id string) (bool, error)
}

type Property interface {
	CreateProperty(ctx context.Context, input *entity.CreatePropertyInput) (uuid.UUID, error)
	GetPropertyById(ctx context.Context, id string) (*entity.Property, error)
	GetUserProperties(ctx context.Context, userId string, pg *entity.PaginationInput) ([]entity.Property, error)
}

type ProviderService interface {
	CreateProviderService(ctx context.Context, input *entity.CreateProviderServiceInput) (uuid.UUID, error)
	GetProviderServiceById(ctx context.Context, id string) (*entity.ProviderService, error)
	GetProviderServices(ctx context.Context, providerId string, pg *entity.PaginationInput) ([]entity.ProviderService, error)
}

type JobRequest interface {
	CreateJobRequest(ctx context.Context, input *entity.CreateJobRequestInput) (uuid.UUID, error)
	GetJobRequestById(ctx context.Context, id string) (*entity.JobRequest, error)

	// UpdateJobRequestStatus performs a status-conditional transition and
	// optionally stamps a timestamp column. Zero matched rows yields
	// repo_errors.ErrStaleStatus.
	UpdateJobRequestStatus(ctx context.Context, id string, fromStatus, toStatus string, stampColumn string, stampAt time.Time) error

	// CancelJobRequest locks the job request row (FOR UPDATE NOWAIT), verifies
	// the status is still cancellable and records the cancellation.
	CancelJobRequest(ctx context.Context, id string, fromStatuses []string, cancelledBy string, reason string, cancelledAt time.Time) error

	GetConsumerJobRequests(ctx context.Context, consumerId string, statuses []string, pg *entity.PaginationInput) ([]entity.JobRequest, error)
	GetProviderJobRequests(ctx context.Context, providerId string, statuses []string, pg *entity.PaginationInput) ([]entity.JobRequest, error)
	GetOpenJobRequests(ctx context.Context, serviceTypes []string, pg *entity.PaginationInput) ([]entity.JobRequest, error)
	GetReleasableJobRequests(ctx context.Context, completedBefore time.Time, limit int) ([]entity.JobRequest, error)
}

type JobBid interface {
	CreateBid(ctx context.Context, input *entity.CreateBidInput) (uuid.UUID, error)
	GetBidById(ctx context.Context, id string) (*entity.JobBid, error)
	GetActiveBidByProvider(ctx context.Context, jobRequestId, providerId string) (*entity.JobBid, error)
	GetJobRequestBids(ctx context.Context, jobRequestId string, pg *entity.PaginationInput) ([]entity.JobBid, error)
	GetProviderBids(ctx context.Context, providerId string, pg *entity.PaginationInput) ([]entity.JobBid, error)

	// AcceptBid runs the winner-selection transaction: lock the job request row,
	// re-check it is open for bids, accept the winning bid, reject every other
	// pending bid and commit the pricing onto the job request. Returns the ids
	// of the rejected sibling bids.
	AcceptBid(ctx context.Context, params *entity.AcceptBidParams) ([]uuid.UUID, error)

	// UpdateBidStatus is a single-bid conditional status change. Zero matched
	// rows yields repo_errors.ErrStaleStatus.
	UpdateBidStatus(ctx context.Context, id string, fromStatus, toStatus string) error
}

type Payment interface {
	CreatePayment(ctx context.Context, input *entity.CreatePaymentInput) (uuid.UUID, error)
	GetPaymentById(ctx context.Context, id string) (*entity.Payment, error)
	GetJobRequestPayments(ctx context.Context, jobRequestId string, pg *entity.PaginationInput) ([]entity.Payment, error)
	GetLatestPaymentByStatus(ctx context.Context, jobRequestId string, statuses []string) (*entity.Payment, error)

	MarkPaymentAuthorized(ctx context.Context, id string, gatewayIntentId string, at time.Time) error
	MarkPaymentCaptured(ctx context.Context, id string, at time.Time) error
	MarkPaymentReleased(ctx context.Context, id string, gatewayTransferId string, at time.Time) error
	MarkPaymentRefunded(ctx context.Context, id string, at time.Time) error
	SetPaymentFailureReason(ctx context.Context, id string, reason string) error
}

type Repositories struct {
	Diagnostics
	User
	Property
	ProviderService
	JobRequest
	JobBid
	Payment
}

func NewRepositories(p *postgres.Postgres) *Repositories {
	return &Repositories{
		Diagnostics:     pgdb.NewDiagnosticsRepo(p),
		User:            pgdb.NewUserRepo(p),
		Property:        pgdb.NewPropertyRepo(p),
		ProviderService: pgdb.NewProviderServiceRepo(p),
		JobRequest:      pgdb.NewJobRequestRepo(p),
		JobBid:          pgdb.NewJobBidRepo(p),
		Payment:         pgdb.NewPaymentRepo(p),
	}
}
