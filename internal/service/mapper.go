package service

import (
	"database/sql"
	"time"

	"job-marketplace-api/internal/entity"

	"github.com/google/uuid"
)

// entity -> controller output model mapping, with sql null types flattened

func mapJobRequest(jr *entity.JobRequest) *entity.JobRequestOutputModel {
	return &entity.JobRequestOutputModel{
		Id:                    jr.Id.String(),
		ConsumerId:            jr.ConsumerId.String(),
		ProviderId:            nullUUIDString(jr.ProviderId),
		PropertyId:            jr.PropertyId.String(),
		ServiceType:           jr.ServiceType,
		Title:                 jr.Title,
		Description:           jr.Description,
		RequestedDate:         jr.RequestedDate.Format(time.RFC3339),
		Urgency:               jr.Urgency,
		FlexibleTiming:        jr.FlexibleTiming,
		Status:                jr.Status,
		EstimatedPriceCents:   nullInt64Ptr(jr.EstimatedPriceCents),
		FinalPriceCents:       nullInt64Ptr(jr.FinalPriceCents),
		PlatformFeeCents:      nullInt64Ptr(jr.PlatformFeeCents),
		ProviderPayoutCents:   nullInt64Ptr(jr.ProviderPayoutCents),
		PlatformFeePercentage: jr.PlatformFeePercentage,
		AcceptedAt:            nullTimeString(jr.AcceptedAt),
		StartedAt:             nullTimeString(jr.StartedAt),
		CompletedAt:           nullTimeString(jr.CompletedAt),
		CancelledAt:           nullTimeString(jr.CancelledAt),
		CancellationReason:    jr.CancellationReason.String,
		CreatedAt:             jr.CreatedAt.Format(time.RFC3339),
	}
}

func mapJobRequests(jrs []entity.JobRequest) []entity.JobRequestOutputModel {
	models := make([]entity.JobRequestOutputModel, 0, len(jrs))
	for i := range jrs {
		models = append(models, *mapJobRequest(&jrs[i]))
	}

	return models
}

func mapBid(bid *entity.JobBid) *entity.BidOutputModel {
	return &entity.BidOutputModel{
		Id:                       bid.Id.String(),
		JobRequestId:             bid.JobRequestId.String(),
		ProviderId:               bid.ProviderId.String(),
		BidAmountCents:           bid.BidAmountCents,
		Message:                  bid.Message.String,
		EstimatedArrival:         nullTimeString(bid.EstimatedArrival),
		EstimatedDurationMinutes: bid.EstimatedDurationMinutes.Int64,
		Status:                   bid.Status,
		CreatedAt:                bid.CreatedAt.Format(time.RFC3339),
	}
}

func mapBids(bids []entity.JobBid) []entity.BidOutputModel {
	models := make([]entity.BidOutputModel, 0, len(bids))
	for i := range bids {
		models = append(models, *mapBid(&bids[i]))
	}

	return models
}

func mapPayment(p *entity.Payment) *entity.PaymentOutputModel {
	return &entity.PaymentOutputModel{
		Id:                  p.Id.String(),
		JobRequestId:        p.JobRequestId.String(),
		PayerId:             p.PayerId.String(),
		PayeeId:             p.PayeeId.String(),
		AmountCents:         p.AmountCents,
		PlatformFeeCents:    p.PlatformFeeCents.Int64,
		ProviderAmountCents: p.ProviderAmountCents.Int64,
		Currency:            p.Currency,
		Status:              p.Status,
		AuthorizedAt:        nullTimeString(p.AuthorizedAt),
		CapturedAt:          nullTimeString(p.CapturedAt),
		ReleasedAt:          nullTimeString(p.ReleasedAt),
		RefundedAt:          nullTimeString(p.RefundedAt),
		CreatedAt:           p.CreatedAt.Format(time.RFC3339),
	}
}

func mapPayments(payments []entity.Payment) []entity.PaymentOutputModel {
	models := make([]entity.PaymentOutputModel, 0, len(payments))
	for i := range payments {
		models = append(models, *mapPayment(&payments[i]))
	}

	return models
}

func mapProperty(p *entity.Property) *entity.PropertyOutputModel {
	return &entity.PropertyOutputModel{
		Id:           p.Id.String(),
		UserId:       p.UserId.String(),
		Name:         p.Name,
		AddressLine1: p.AddressLine1,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		Country:      p.Country,
		PropertySize: p.PropertySize.String,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

func mapProperties(properties []entity.Property) []entity.PropertyOutputModel {
	models := make([]entity.PropertyOutputModel, 0, len(properties))
	for i := range properties {
		models = append(models, *mapProperty(&properties[i]))
	}

	return models
}

func mapProviderService(ps *entity.ProviderService) *entity.ProviderServiceOutputModel {
	return &entity.ProviderServiceOutputModel{
		Id:              ps.Id.String(),
		ProviderId:      ps.ProviderId.String(),
		ServiceType:     ps.ServiceType,
		PricingModel:    ps.PricingModel,
		HourlyRateCents: ps.HourlyRateCents.Int64,
		BasePriceCents:  ps.BasePriceCents.Int64,
		MinChargeCents:  ps.MinChargeCents.Int64,
		SizePricing:     ps.SizePricing,
		Active:          ps.Active,
		CreatedAt:       ps.CreatedAt.Format(time.RFC3339),
	}
}

func mapProviderServices(services []entity.ProviderService) []entity.ProviderServiceOutputModel {
	models := make([]entity.ProviderServiceOutputModel, 0, len(services))
	for i := range services {
		models = append(models, *mapProviderService(&services[i]))
	}

	return models
}

func nullUUIDString(id uuid.NullUUID) string {
	if !id.Valid {
		return ""
	}

	return id.UUID.String()
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}

	return &v.Int64
}

func nullTimeString(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}

	return t.Time.Format(time.RFC3339)
}
