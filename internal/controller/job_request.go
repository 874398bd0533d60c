package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/service"
	"job-marketplace-api/pkg/eventbus"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
)

type jobRequestRoutesHandler struct {
	jobRequestService service.JobRequest
	validate          *validator.Validate
	events            eventbus.Publisher
}

func newJobRequestRoutesHandler(outer *echo.Group, services *service.Services, v *validator.Validate, events eventbus.Publisher) *jobRequestRoutesHandler {
	h := &jobRequestRoutesHandler{jobRequestService: services.JobRequest, validate: v, events: events}

	outer.POST("/job-requests/new", h.PostJobRequest)
	outer.GET("/job-requests/available", h.GetAvailableJobRequests)
	outer.GET("/job-requests/my", h.GetConsumerJobRequests)
	outer.GET("/job-requests/assigned", h.GetProviderJobRequests)
	outer.GET("/job-requests/:jobRequestId", h.GetJobRequest)
	outer.GET("/job-requests/:jobRequestId/status", h.GetJobRequestStatus)
	outer.GET("/job-requests/:jobRequestId/payments", h.GetJobRequestPayments)

	outer.PUT("/job-requests/:jobRequestId/open_bidding", h.OpenBidding)
	outer.PUT("/job-requests/:jobRequestId/authorize_payment", h.AuthorizePayment)
	outer.PUT("/job-requests/:jobRequestId/start", h.StartJob)
	outer.PUT("/job-requests/:jobRequestId/complete", h.CompleteJob)
	outer.PUT("/job-requests/:jobRequestId/cancel", h.CancelJobRequest)
	outer.PUT("/job-requests/:jobRequestId/dispute", h.DisputeJobRequest)
	outer.PUT("/job-requests/:jobRequestId/release_payment", h.ReleasePayment)

	return h
}

// The lifecycle endpoints share one error vocabulary, mapped in one place.
func respondLifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		if e := c.JSON(http.StatusUnauthorized, errorResponse{"There is no user with given username"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrJobRequestNotFound):
		if e := c.JSON(http.StatusNotFound, errorResponse{"There is no job request with given id"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrUnauthorized):
		if e := c.JSON(http.StatusForbidden, errorResponse{"You have no enough rights for this job request"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrInvalidTransition):
		if e := c.JSON(http.StatusConflict, errorResponse{"Job request can't perform this action in its current status"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrConcurrencyConflict):
		if e := c.JSON(http.StatusConflict, errorResponse{"Job request was modified concurrently, try again"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrReleaseHoldActive):
		if e := c.JSON(http.StatusConflict, errorResponse{"Release hold period hasn't elapsed yet"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrPaymentNotFound):
		if e := c.JSON(http.StatusConflict, errorResponse{"There is no payment in the required state for this job request"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrPaymentGateway):
		if e := c.JSON(http.StatusBadGateway, errorResponse{"Payment processor rejected or failed the operation"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrPropertyNotFound):
		if e := c.JSON(http.StatusBadRequest, errorResponse{"There is no property with given id"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrProviderServiceNotFound):
		if e := c.JSON(http.StatusBadRequest, errorResponse{"There is no provider service with given id"}); e != nil {
			return e
		}
	default:
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Error"}); e != nil {
			return e
		}
	}

	return err
}

type postJobRequestInput struct {
	ConsumerUsername string  `json:"consumerUsername" validate:"required"`
	PropertyId       string  `json:"propertyId" validate:"required,uuid"`
	ServiceType      string  `json:"serviceType" validate:"required,max=100"`
	Title            string  `json:"title" validate:"required,max=200"`
	Description      string  `json:"description" validate:"max=2000"`
	RequestedDate    string  `json:"requestedDate" validate:"required"`
	Urgency          string  `json:"urgency" validate:"omitempty,oneof=normal urgent emergency"`
	FlexibleTiming   bool    `json:"flexibleTiming"`
	// the listing the consumer is pricing against, for the upfront estimate
	ProviderServiceId string  `json:"providerServiceId" validate:"omitempty,uuid"`
	EstimatedHours    float64 `json:"estimatedHours" validate:"gte=0"`
}

// /job-requests/new
func (h *jobRequestRoutesHandler) PostJobRequest(c echo.Context) error {
	var input postJobRequestInput
	if err := c.Bind(&input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"}); e != nil {
			return e
		}

		return err
	}

	if err := h.validate.Struct(input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{getAllErrorMessages(err)}); e != nil {
			return e
		}

		return err
	}

	requestedDate, err := time.Parse(time.RFC3339, input.RequestedDate)
	if err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"'requestedDate': should be an RFC3339 timestamp"}); e != nil {
			return e
		}

		return err
	}

	model := &entity.CreateJobRequestInput{
		ConsumerUsername: input.ConsumerUsername,
		PropertyId:       input.PropertyId,
		ServiceType:      input.ServiceType,
		Title:            input.Title,
		Description:      input.Description,
		RequestedDate:    requestedDate,
		Urgency:          input.Urgency,
		FlexibleTiming:   input.FlexibleTiming,

		ProviderServiceId: input.ProviderServiceId,
		EstimatedHours:    input.EstimatedHours,
	}

	jobRequest, events, err := h.jobRequestService.CreateJobRequest(c.Request().Context(), model)
	if err != nil {
		return respondLifecycleError(c, err)
	}

	publishEvents(c.Request().Context(), h.events, events)
	if e := c.JSON(http.StatusOK, jobRequest); e != nil {
		return e
	}

	return nil
}

type lifecycleOp func(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error)

func (h *jobRequestRoutesHandler) runLifecycleOp(c echo.Context, op lifecycleOp) error {
	jobRequestId := c.Param("jobRequestId")
	username := c.QueryParam("username")
	if username == defaultUsername {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"'username': this field is required"}); e != nil {
			return e
		}

		return nil
	}

	jobRequest, events, err := op(c.Request().Context(), jobRequestId, username)
	if err != nil {
		return respondLifecycleError(c, err)
	}

	publishEvents(c.Request().Context(), h.events, events)
	if e := c.JSON(http.StatusOK, jobRequest); e != nil {
		return e
	}

	return nil
}

// /job-requests/:jobRequestId/open_bidding
func (h *jobRequestRoutesHandler) OpenBidding(c echo.Context) error {
	return h.runLifecycleOp(c, h.jobRequestService.OpenBidding)
}

// /job-requests/:jobRequestId/authorize_payment
func (h *jobRequestRoutesHandler) AuthorizePayment(c echo.Context) error {
	return h.runLifecycleOp(c, h.jobRequestService.AuthorizePayment)
}

// /job-requests/:jobRequestId/start
func (h *jobRequestRoutesHandler) StartJob(c echo.Context) error {
	return h.runLifecycleOp(c, h.jobRequestService.StartJob)
}

// /job-requests/:jobRequestId/complete
func (h *jobRequestRoutesHandler) CompleteJob(c echo.Context) error {
	return h.runLifecycleOp(c, h.jobRequestService.CompleteJob)
}

// /job-requests/:jobRequestId/dispute
func (h *jobRequestRoutesHandler) DisputeJobRequest(c echo.Context) error {
	return h.runLifecycleOp(c, h.jobRequestService.DisputeJobRequest)
}

// /job-requests/:jobRequestId/release_payment
func (h *jobRequestRoutesHandler) ReleasePayment(c echo.Context) error {
	return h.runLifecycleOp(c, h.jobRequestService.ReleasePayment)
}

type cancelJobRequestInput struct {
	Reason string `json:"reason" validate:"max=500"`
}

// /job-requests/:jobRequestId/cancel
func (h *jobRequestRoutesHandler) CancelJobRequest(c echo.Context) error {
	var input cancelJobRequestInput
	if err := c.Bind(&input); err != nil {
		// the body is optional, cancelling without a reason is fine
		input.Reason = ""
	}

	if err := h.validate.Struct(input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{getAllErrorMessages(err)}); e != nil {
			return e
		}

		return err
	}

	return h.runLifecycleOp(c, func(ctx context.Context, jobRequestId, username string) (*entity.JobRequestOutputModel, []entity.Event, error) {
		return h.jobRequestService.CancelJobRequest(ctx, jobRequestId, username, input.Reason)
	})
}

// /job-requests/:jobRequestId
func (h *jobRequestRoutesHandler) GetJobRequest(c echo.Context) error {
	jobRequest, err := h.jobRequestService.GetJobRequestById(c.Request().Context(), c.Param("jobRequestId"), c.QueryParam("username"))
	if err != nil {
		return respondLifecycleError(c, err)
	}

	if e := c.JSON(http.StatusOK, jobRequest); e != nil {
		return e
	}

	return nil
}

// /job-requests/:jobRequestId/status
func (h *jobRequestRoutesHandler) GetJobRequestStatus(c echo.Context) error {
	status, err := h.jobRequestService.GetJobRequestStatusById(c.Request().Context(), c.Param("jobRequestId"), c.QueryParam("username"))
	if err != nil {
		return respondLifecycleError(c, err)
	}

	if e := c.JSON(http.StatusOK, status); e != nil {
		return e
	}

	return nil
}

type getAvailableJobRequestsInput struct {
	Limit        int32    `query:"limit" validate:"gte=0,lte=50"`
	Offset       int32    `query:"offset" validate:"gte=0"`
	ServiceTypes []string `query:"service_type" validate:"dive,max=100"`
}

// /job-requests/available
func (h *jobRequestRoutesHandler) GetAvailableJobRequests(c echo.Context) error {
	input := getAvailableJobRequestsInput{Limit: defaultLimit, Offset: defaultOffset, ServiceTypes: make([]string, 0)}
	if err := c.Bind(&input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"}); e != nil {
			return e
		}

		return err
	}

	if err := h.validate.Struct(input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{getAllErrorMessages(err)}); e != nil {
			return e
		}

		return err
	}

	pg := entity.NewPaginationInput(int(input.Limit), int(input.Offset))
	jobRequests, err := h.jobRequestService.GetAvailableJobRequests(c.Request().Context(), input.ServiceTypes, pg)
	if err != nil {
		return respondLifecycleError(c, err)
	}

	if e := c.JSON(http.StatusOK, jobRequests); e != nil {
		return e
	}

	return nil
}

type getUserJobRequestsInput struct {
	Limit    int32  `query:"limit" validate:"gte=0,lte=50"`
	Offset   int32  `query:"offset" validate:"gte=0"`
	Username string `query:"username" validate:"required"`
	Filter   string `query:"filter" validate:"omitempty,oneof=active pending completed cancelled disputed"`
}

// /job-requests/my
func (h *jobRequestRoutesHandler) GetConsumerJobRequests(c echo.Context) error {
	input := getUserJobRequestsInput{Limit: defaultLimit, Offset: defaultOffset}
	if err := c.Bind(&input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"}); e != nil {
			return e
		}

		return err
	}

	if err := h.validate.Struct(input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{getAllErrorMessages(err)}); e != nil {
			return e
		}

		return err
	}

	pg := entity.NewPaginationInput(int(input.Limit), int(input.Offset))
	jobRequests, err := h.jobRequestService.GetConsumerJobRequests(c.Request().Context(), input.Username, input.Filter, pg)
	if err != nil {
		return respondLifecycleError(c, err)
	}

	if e := c.JSON(http.StatusOK, jobRequests); e != nil {
		return e
	}

	return nil
}

// /job-requests/assigned
func (h *jobRequestRoutesHandler) GetProviderJobRequests(c echo.Context) error {
	input := getUserJobRequestsInput{Limit: defaultLimit, Offset: defaultOffset}
	if err := c.Bind(&input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"}); e != nil {
			return e
		}

		return err
	}

	if err := h.validate.Struct(input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{getAllErrorMessages(err)}); e != nil {
			return e
		}

		return err
	}

	pg := entity.NewPaginationInput(int(input.Limit), int(input.Offset))
	jobRequests, err := h.jobRequestService.GetProviderJobRequests(c.Request().Context(), input.Username, input.Filter, pg)
	if err != nil {
		return respondLifecycleError(c, err)
	}

	if e := c.JSON(http.StatusOK, jobRequests); e != nil {
		return e
	}

	return nil
}

type getJobRequestPaymentsInput struct {
	Limit    int32  `query:"limit" validate:"gte=0,lte=50"`
	Offset   int32  `query:"offset" validate:"gte=0"`
	Username string `query:"username" validate:"required"`
}

// /job-requests/:jobRequestId/payments
func (h *jobRequestRoutesHandler) GetJobRequestPayments(c echo.Context) error {
	input := getJobRequestPaymentsInput{Limit: defaultLimit, Offset: defaultOffset}
	if err := c.Bind(&input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"}); e != nil {
			return e
		}

		return err
	}

	if err := h.validate.Struct(input); err != nil {
		if e := c.JSON(http.StatusBadRequest, errorResponse{getAllErrorMessages(err)}); e != nil {
			return e
		}

		return err
	}

	pg := entity.NewPaginationInput(int(input.Limit), int(input.Offset))
	payments, err := h.jobRequestService.GetJobRequestPayments(c.Request().Context(), c.Param("jobRequestId"), input.Username, pg)
	if err != nil {
		return respondLifecycleError(c, err)
	}

	if e := c.JSON(http.StatusOK, payments); e != nil {
		return e
	}

	return nil
}
