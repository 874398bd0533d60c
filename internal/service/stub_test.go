package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"job-marketplace-api/internal/common"
	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/repo"
	"job-marketplace-api/internal/repo/repo_errors"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the postgres repos. It mirrors the
// conditional-update semantics of the real layer (zero matched rows is
// ErrStaleStatus) so the services see the same failure modes in tests.
type fakeStore struct {
	users            map[string]*entity.User // keyed by username
	properties       map[string]*entity.Property
	providerServices map[string]*entity.ProviderService
	jobRequests      map[string]*entity.JobRequest
	bids             map[string]*entity.JobBid
	payments         map[string]*entity.Payment

	lockHeld bool // simulates another tx holding the job request row lock
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:            make(map[string]*entity.User),
		properties:       make(map[string]*entity.Property),
		providerServices: make(map[string]*entity.ProviderService),
		jobRequests:      make(map[string]*entity.JobRequest),
		bids:             make(map[string]*entity.JobBid),
		payments:         make(map[string]*entity.Payment),
	}
}

func (f *fakeStore) repositories() *repo.Repositories {
	return &repo.Repositories{
		User:            f,
		Property:        f,
		ProviderService: f,
		JobRequest:      f,
		JobBid:          f,
		Payment:         f,
	}
}

func (f *fakeStore) addUser(username string, isProvider bool) string {
	u := &entity.User{Id: uuid.New(), Username: username, IsProvider: isProvider}
	f.users[username] = u

	return u.Id.String()
}

func (f *fakeStore) addProperty(userId string, size string) string {
	p := &entity.Property{
		Id:      uuid.New(),
		UserId:  uuid.MustParse(userId),
		Name:    "home",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62704",
		Country: "US",
		Active:  true,
	}
	if size != "" {
		p.PropertySize = sql.NullString{String: size, Valid: true}
	}
	f.properties[p.Id.String()] = p

	return p.Id.String()
}

func (f *fakeStore) addJobRequest(consumerId, propertyId, status string) *entity.JobRequest {
	jr := &entity.JobRequest{
		Id:                    uuid.New(),
		ConsumerId:            uuid.MustParse(consumerId),
		PropertyId:            uuid.MustParse(propertyId),
		ServiceType:           "lawn_care",
		Title:                 "mow the lawn",
		RequestedDate:         time.Now().AddDate(0, 0, 2),
		Urgency:               common.UrgencyNormal,
		Status:                status,
		PlatformFeePercentage: 15.0,
		CreatedAt:             time.Now(),
	}
	f.jobRequests[jr.Id.String()] = jr

	return jr
}

func (f *fakeStore) addBid(jobRequestId, providerId string, amountCents int64, status string) *entity.JobBid {
	b := &entity.JobBid{
		Id:             uuid.New(),
		JobRequestId:   uuid.MustParse(jobRequestId),
		ProviderId:     uuid.MustParse(providerId),
		BidAmountCents: amountCents,
		Status:         status,
		CreatedAt:      time.Now(),
	}
	f.bids[b.Id.String()] = b

	return b
}

// repo.User

func (f *fakeStore) GetUserIdByUsername(_ context.Context, username string) (string, error) {
	u, ok := f.users[username]
	if !ok {
		return "", repo_errors.ErrNotFound
	}

	return u.Id.String(), nil
}

func (f *fakeStore) GetUserById(_ context.Context, id string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Id.String() == id {
			return u, nil
		}
	}

	return nil, repo_errors.ErrNotFound
}

func (f *fakeStore) IsProvider(_ context.Context, id string) (bool, error) {
	for _, u := range f.users {
		if u.Id.String() == id {
			return u.IsProvider, nil
		}
	}

	return false, repo_errors.ErrNotFound
}

// repo.Property

func (f *fakeStore) CreateProperty(_ context.Context, input *entity.CreatePropertyInput) (uuid.UUID, error) {
	p := &entity.Property{
		Id:           uuid.New(),
		UserId:       uuid.MustParse(input.UserId),
		Name:         input.Name,
		AddressLine1: input.AddressLine1,
		City:         input.City,
		State:        input.State,
		ZipCode:      input.ZipCode,
		Country:      input.Country,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if input.PropertySize != "" {
		p.PropertySize = sql.NullString{String: input.PropertySize, Valid: true}
	}
	f.properties[p.Id.String()] = p

	return p.Id, nil
}

func (f *fakeStore) GetPropertyById(_ context.Context, id string) (*entity.Property, error) {
	p, ok := f.properties[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	return p, nil
}

func (f *fakeStore) GetUserProperties(_ context.Context, userId string, _ *entity.PaginationInput) ([]entity.Property, error) {
	var out []entity.Property
	for _, p := range f.properties {
		if p.UserId.String() == userId && p.Active {
			out = append(out, *p)
		}
	}

	return out, nil
}

// repo.ProviderService

func (f *fakeStore) CreateProviderService(_ context.Context, input *entity.CreateProviderServiceInput) (uuid.UUID, error) {
	for _, ps := range f.providerServices {
		if ps.ProviderId.String() == input.ProviderId && ps.ServiceType == input.ServiceType {
			return uuid.Nil, repo_errors.ErrUniqueViolation
		}
	}

	ps := &entity.ProviderService{
		Id:           uuid.New(),
		ProviderId:   uuid.MustParse(input.ProviderId),
		ServiceType:  input.ServiceType,
		PricingModel: input.PricingModel,
		SizePricing:  input.SizePricing,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if input.HourlyRateCents > 0 {
		ps.HourlyRateCents = sql.NullInt64{Int64: input.HourlyRateCents, Valid: true}
	}
	if input.BasePriceCents > 0 {
		ps.BasePriceCents = sql.NullInt64{Int64: input.BasePriceCents, Valid: true}
	}
	if input.MinChargeCents > 0 {
		ps.MinChargeCents = sql.NullInt64{Int64: input.MinChargeCents, Valid: true}
	}
	f.providerServices[ps.Id.String()] = ps

	return ps.Id, nil
}

func (f *fakeStore) GetProviderServiceById(_ context.Context, id string) (*entity.ProviderService, error) {
	ps, ok := f.providerServices[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	return ps, nil
}

func (f *fakeStore) GetProviderServices(_ context.Context, providerId string, _ *entity.PaginationInput) ([]entity.ProviderService, error) {
	var out []entity.ProviderService
	for _, ps := range f.providerServices {
		if ps.ProviderId.String() == providerId {
			out = append(out, *ps)
		}
	}

	return out, nil
}

// repo.JobRequest

func (f *fakeStore) CreateJobRequest(_ context.Context, input *entity.CreateJobRequestInput) (uuid.UUID, error) {
	jr := &entity.JobRequest{
		Id:                    uuid.New(),
		ConsumerId:            uuid.MustParse(input.ConsumerId),
		PropertyId:            uuid.MustParse(input.PropertyId),
		ServiceType:           input.ServiceType,
		Title:                 input.Title,
		Description:           input.Description,
		RequestedDate:         input.RequestedDate,
		Urgency:               input.Urgency,
		FlexibleTiming:        input.FlexibleTiming,
		Status:                input.Status,
		PlatformFeePercentage: input.PlatformFeePercentage,
		CreatedAt:             time.Now(),
	}
	if input.EstimatedPriceCents > 0 {
		jr.EstimatedPriceCents = sql.NullInt64{Int64: input.EstimatedPriceCents, Valid: true}
	}
	f.jobRequests[jr.Id.String()] = jr

	return jr.Id, nil
}

func (f *fakeStore) GetJobRequestById(_ context.Context, id string) (*entity.JobRequest, error) {
	jr, ok := f.jobRequests[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	copied := *jr

	return &copied, nil
}

func (f *fakeStore) UpdateJobRequestStatus(_ context.Context, id string, fromStatus, toStatus string, stampColumn string, stampAt time.Time) error {
	jr, ok := f.jobRequests[id]
	if !ok || jr.Status != fromStatus {
		return repo_errors.ErrStaleStatus
	}

	jr.Status = toStatus
	switch stampColumn {
	case "started_at":
		jr.StartedAt = sql.NullTime{Time: stampAt, Valid: true}
	case "completed_at":
		jr.CompletedAt = sql.NullTime{Time: stampAt, Valid: true}
	}

	return nil
}

func (f *fakeStore) CancelJobRequest(_ context.Context, id string, fromStatuses []string, cancelledBy string, reason string, cancelledAt time.Time) error {
	if f.lockHeld {
		return repo_errors.ErrLockNotAvailable
	}

	jr, ok := f.jobRequests[id]
	if !ok {
		return repo_errors.ErrNotFound
	}

	cancellable := false
	for _, st := range fromStatuses {
		if jr.Status == st {
			cancellable = true
			break
		}
	}
	if !cancellable {
		return repo_errors.ErrStaleStatus
	}

	jr.Status = common.Cancelled
	jr.CancelledAt = sql.NullTime{Time: cancelledAt, Valid: true}
	jr.CancelledBy = uuid.NullUUID{UUID: uuid.MustParse(cancelledBy), Valid: true}
	if reason != "" {
		jr.CancellationReason = sql.NullString{String: reason, Valid: true}
	}

	return nil
}

func (f *fakeStore) GetConsumerJobRequests(_ context.Context, consumerId string, statuses []string, _ *entity.PaginationInput) ([]entity.JobRequest, error) {
	var out []entity.JobRequest
	for _, jr := range f.jobRequests {
		if jr.ConsumerId.String() == consumerId && statusMatches(jr.Status, statuses) {
			out = append(out, *jr)
		}
	}

	return out, nil
}

func (f *fakeStore) GetProviderJobRequests(_ context.Context, providerId string, statuses []string, _ *entity.PaginationInput) ([]entity.JobRequest, error) {
	var out []entity.JobRequest
	for _, jr := range f.jobRequests {
		if jr.ProviderId.Valid && jr.ProviderId.UUID.String() == providerId && statusMatches(jr.Status, statuses) {
			out = append(out, *jr)
		}
	}

	return out, nil
}

func (f *fakeStore) GetOpenJobRequests(_ context.Context, serviceTypes []string, _ *entity.PaginationInput) ([]entity.JobRequest, error) {
	var out []entity.JobRequest
	for _, jr := range f.jobRequests {
		if jr.Status != common.OpenForBids {
			continue
		}
		if len(serviceTypes) > 0 && !statusMatches(jr.ServiceType, serviceTypes) {
			continue
		}
		out = append(out, *jr)
	}

	return out, nil
}

func (f *fakeStore) GetReleasableJobRequests(_ context.Context, completedBefore time.Time, limit int) ([]entity.JobRequest, error) {
	var out []entity.JobRequest
	for _, jr := range f.jobRequests {
		if jr.Status == common.Completed && jr.CompletedAt.Valid && jr.CompletedAt.Time.Before(completedBefore) {
			out = append(out, *jr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Time.Before(out[j].CompletedAt.Time) })
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// repo.JobBid

func (f *fakeStore) CreateBid(_ context.Context, input *entity.CreateBidInput) (uuid.UUID, error) {
	for _, b := range f.bids {
		if b.JobRequestId.String() == input.JobRequestId && b.ProviderId.String() == input.ProviderId && b.Status != common.BidWithdrawn {
			return uuid.Nil, repo_errors.ErrUniqueViolation
		}
	}

	b := &entity.JobBid{
		Id:             uuid.New(),
		JobRequestId:   uuid.MustParse(input.JobRequestId),
		ProviderId:     uuid.MustParse(input.ProviderId),
		BidAmountCents: input.BidAmountCents,
		Status:         input.Status,
		CreatedAt:      time.Now(),
	}
	if input.Message != "" {
		b.Message = sql.NullString{String: input.Message, Valid: true}
	}
	f.bids[b.Id.String()] = b

	return b.Id, nil
}

func (f *fakeStore) GetBidById(_ context.Context, id string) (*entity.JobBid, error) {
	b, ok := f.bids[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	copied := *b

	return &copied, nil
}

func (f *fakeStore) GetActiveBidByProvider(_ context.Context, jobRequestId, providerId string) (*entity.JobBid, error) {
	for _, b := range f.bids {
		if b.JobRequestId.String() == jobRequestId && b.ProviderId.String() == providerId && b.Status != common.BidWithdrawn {
			copied := *b
			return &copied, nil
		}
	}

	return nil, repo_errors.ErrNotFound
}

func (f *fakeStore) GetJobRequestBids(_ context.Context, jobRequestId string, _ *entity.PaginationInput) ([]entity.JobBid, error) {
	var out []entity.JobBid
	for _, b := range f.bids {
		if b.JobRequestId.String() == jobRequestId {
			out = append(out, *b)
		}
	}

	return out, nil
}

func (f *fakeStore) GetProviderBids(_ context.Context, providerId string, _ *entity.PaginationInput) ([]entity.JobBid, error) {
	var out []entity.JobBid
	for _, b := range f.bids {
		if b.ProviderId.String() == providerId {
			out = append(out, *b)
		}
	}

	return out, nil
}

func (f *fakeStore) AcceptBid(_ context.Context, params *entity.AcceptBidParams) ([]uuid.UUID, error) {
	if f.lockHeld {
		return nil, repo_errors.ErrLockNotAvailable
	}

	jr, ok := f.jobRequests[params.JobRequestId.String()]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}
	if jr.Status != common.OpenForBids {
		return nil, repo_errors.ErrStaleStatus
	}

	winner, ok := f.bids[params.BidId.String()]
	if !ok || winner.Status != common.BidPending {
		return nil, repo_errors.ErrStaleStatus
	}
	winner.Status = common.BidAccepted

	var rejected []uuid.UUID
	for _, b := range f.bids {
		if b.JobRequestId == params.JobRequestId && b.Id != params.BidId && b.Status == common.BidPending {
			b.Status = common.BidRejected
			rejected = append(rejected, b.Id)
		}
	}

	jr.Status = common.Accepted
	jr.ProviderId = uuid.NullUUID{UUID: params.ProviderId, Valid: true}
	jr.FinalPriceCents = sql.NullInt64{Int64: params.FinalPriceCents, Valid: true}
	jr.PlatformFeeCents = sql.NullInt64{Int64: params.PlatformFeeCents, Valid: true}
	jr.ProviderPayoutCents = sql.NullInt64{Int64: params.ProviderPayoutCents, Valid: true}
	jr.AcceptedAt = sql.NullTime{Time: params.AcceptedAt, Valid: true}

	return rejected, nil
}

func (f *fakeStore) UpdateBidStatus(_ context.Context, id string, fromStatus, toStatus string) error {
	b, ok := f.bids[id]
	if !ok || b.Status != fromStatus {
		return repo_errors.ErrStaleStatus
	}

	b.Status = toStatus

	return nil
}

// repo.Payment

func (f *fakeStore) CreatePayment(_ context.Context, input *entity.CreatePaymentInput) (uuid.UUID, error) {
	p := &entity.Payment{
		Id:                  uuid.New(),
		JobRequestId:        input.JobRequestId,
		PayerId:             input.PayerId,
		PayeeId:             input.PayeeId,
		AmountCents:         input.AmountCents,
		PlatformFeeCents:    sql.NullInt64{Int64: input.PlatformFeeCents, Valid: true},
		ProviderAmountCents: sql.NullInt64{Int64: input.ProviderAmountCents, Valid: true},
		Currency:            input.Currency,
		Status:              input.Status,
		CreatedAt:           time.Now(),
	}
	f.payments[p.Id.String()] = p

	return p.Id, nil
}

func (f *fakeStore) GetPaymentById(_ context.Context, id string) (*entity.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	copied := *p

	return &copied, nil
}

func (f *fakeStore) GetJobRequestPayments(_ context.Context, jobRequestId string, _ *entity.PaginationInput) ([]entity.Payment, error) {
	var out []entity.Payment
	for _, p := range f.payments {
		if p.JobRequestId.String() == jobRequestId {
			out = append(out, *p)
		}
	}

	return out, nil
}

func (f *fakeStore) GetLatestPaymentByStatus(_ context.Context, jobRequestId string, statuses []string) (*entity.Payment, error) {
	var latest *entity.Payment
	for _, p := range f.payments {
		if p.JobRequestId.String() != jobRequestId || !statusMatches(p.Status, statuses) {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, repo_errors.ErrNotFound
	}

	copied := *latest

	return &copied, nil
}

func (f *fakeStore) MarkPaymentAuthorized(_ context.Context, id string, gatewayIntentId string, at time.Time) error {
	p, ok := f.payments[id]
	if !ok || p.Status != common.PaymentStatusPending {
		return repo_errors.ErrStaleStatus
	}

	p.Status = common.PaymentStatusAuthorized
	p.GatewayIntentId = sql.NullString{String: gatewayIntentId, Valid: true}
	p.AuthorizedAt = sql.NullTime{Time: at, Valid: true}

	return nil
}

func (f *fakeStore) MarkPaymentCaptured(_ context.Context, id string, at time.Time) error {
	p, ok := f.payments[id]
	if !ok || p.Status != common.PaymentStatusAuthorized {
		return repo_errors.ErrStaleStatus
	}

	p.Status = common.PaymentStatusCaptured
	p.CapturedAt = sql.NullTime{Time: at, Valid: true}

	return nil
}

func (f *fakeStore) MarkPaymentReleased(_ context.Context, id string, gatewayTransferId string, at time.Time) error {
	p, ok := f.payments[id]
	if !ok || p.Status != common.PaymentStatusCaptured {
		return repo_errors.ErrStaleStatus
	}

	p.Status = common.PaymentStatusReleased
	p.GatewayTransferId = sql.NullString{String: gatewayTransferId, Valid: true}
	p.ReleasedAt = sql.NullTime{Time: at, Valid: true}

	return nil
}

func (f *fakeStore) MarkPaymentRefunded(_ context.Context, id string, at time.Time) error {
	p, ok := f.payments[id]
	if !ok || (p.Status != common.PaymentStatusAuthorized && p.Status != common.PaymentStatusCaptured) {
		return repo_errors.ErrStaleStatus
	}

	p.Status = common.PaymentStatusRefunded
	p.RefundedAt = sql.NullTime{Time: at, Valid: true}

	return nil
}

func (f *fakeStore) SetPaymentFailureReason(_ context.Context, id string, reason string) error {
	p, ok := f.payments[id]
	if !ok {
		return repo_errors.ErrNotFound
	}

	p.FailureReason = sql.NullString{String: reason, Valid: true}

	return nil
}

func statusMatches(status string, statuses []string) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, st := range statuses {
		if st == status {
			return true
		}
	}

	return false
}

// fakeGateway records calls and can be told to fail a given operation. The
// hooks run while the gateway call is in flight, standing in for whatever
// else commits during the network round trip.
type fakeGateway struct {
	authorizeCalls int
	captureCalls   int
	transferCalls  int
	refundCalls    int

	failAuthorize bool
	failCapture   bool
	failTransfer  bool
	failRefund    bool

	onAuthorize func()
	onTransfer  func()
}

var errGatewayDown = errors.New("gateway unavailable")

func (g *fakeGateway) AuthorizeCharge(_ context.Context, _ int64, _, _, _ string) (string, error) {
	g.authorizeCalls++
	if g.failAuthorize {
		return "", errGatewayDown
	}
	if g.onAuthorize != nil {
		g.onAuthorize()
	}

	return "pi_test_1", nil
}

func (g *fakeGateway) Capture(_ context.Context, _ string) error {
	g.captureCalls++
	if g.failCapture {
		return errGatewayDown
	}

	return nil
}

func (g *fakeGateway) Transfer(_ context.Context, _, _ string, _ int64) (string, error) {
	g.transferCalls++
	if g.failTransfer {
		return "", errGatewayDown
	}
	if g.onTransfer != nil {
		g.onTransfer()
	}

	return "tr_test_1", nil
}

func (g *fakeGateway) Refund(_ context.Context, _ string) error {
	g.refundCalls++
	if g.failRefund {
		return errGatewayDown
	}

	return nil
}
