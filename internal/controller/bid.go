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

type bidRoutesHandler struct {
	bidService service.Bid
	validate   *validator.Validate
	events     eventbus.Publisher
}

func newBidRoutesHandler(outer *echo.Group, services *service.Services, v *validator.Validate, events eventbus.Publisher) *bidRoutesHandler {
	h := &bidRoutesHandler{bidService: services.Bid, validate: v, events: events}

	outer.POST("/bids/new", h.PostBid)
	outer.GET("/bids/my", h.GetUserBids)
	outer.GET("/bids/:jobRequestId/list", h.GetJobRequestBids)
	outer.GET("/bids/:bidId/status", h.GetBidStatus)

	outer.PUT("/bids/:bidId/accept", h.AcceptBid)
	outer.PUT("/bids/:bidId/reject", h.RejectBid)
	outer.PUT("/bids/:bidId/withdraw", h.WithdrawBid)

	return h
}

func respondBidError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		if e := c.JSON(http.StatusUnauthorized, errorResponse{"There is no user with given username"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrBidNotFound):
		if e := c.JSON(http.StatusNotFound, errorResponse{"There is no bid with given id"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrJobRequestNotFound):
		if e := c.JSON(http.StatusNotFound, errorResponse{"There is no job request with given id"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrUnauthorized):
		if e := c.JSON(http.StatusForbidden, errorResponse{"You have no enough rights for this bid"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrUserNotAProvider):
		if e := c.JSON(http.StatusForbidden, errorResponse{"Only registered providers can bid on job requests"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrOwnJobBid):
		if e := c.JSON(http.StatusForbidden, errorResponse{"You can't bid on your own job request"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrJobNotOpen), errors.Is(err, service.ErrNotAcceptingBids):
		if e := c.JSON(http.StatusConflict, errorResponse{"Job request isn't accepting bids"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrDuplicateBid):
		if e := c.JSON(http.StatusConflict, errorResponse{"You already have an active bid on this job request"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrCannotWithdraw):
		if e := c.JSON(http.StatusConflict, errorResponse{"Only pending bids can be withdrawn"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrConcurrencyConflict):
		if e := c.JSON(http.StatusConflict, errorResponse{"Job request was modified concurrently, try again"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrInvalidBidAmount):
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Bid amount must be greater than zero"}); e != nil {
			return e
		}
	default:
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Error"}); e != nil {
			return e
		}
	}

	return err
}

type postBidInput struct {
	JobRequestId             string `json:"jobRequestId" validate:"required,uuid"`
	ProviderUsername         string `json:"providerUsername" validate:"required"`
	BidAmountCents           int64  `json:"bidAmountCents" validate:"required,gt=0"`
	Message                  string `json:"message" validate:"max=1000"`
	EstimatedArrival         string `json:"estimatedArrival" validate:"omitempty"`
	EstimatedDurationMinutes int    `json:"estimatedDurationMinutes" validate:"gte=0"`
}

// /bids/new
func (h *bidRoutesHandler) PostBid(c echo.Context) error {
	var input postBidInput
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

	var estimatedArrival time.Time
	if input.EstimatedArrival != "" {
		var err error
		estimatedArrival, err = time.Parse(time.RFC3339, input.EstimatedArrival)
		if err != nil {
			if e := c.JSON(http.StatusBadRequest, errorResponse{"'estimatedArrival': should be an RFC3339 timestamp"}); e != nil {
				return e
			}

			return err
		}
	}

	model := &entity.CreateBidInput{
		JobRequestId:             input.JobRequestId,
		ProviderUsername:         input.ProviderUsername,
		BidAmountCents:           input.BidAmountCents,
		Message:                  input.Message,
		EstimatedArrival:         estimatedArrival,
		EstimatedDurationMinutes: input.EstimatedDurationMinutes,
	}

	bid, events, err := h.bidService.SubmitBid(c.Request().Context(), model)
	if err != nil {
		return respondBidError(c, err)
	}

	publishEvents(c.Request().Context(), h.events, events)
	if e := c.JSON(http.StatusOK, bid); e != nil {
		return e
	}

	return nil
}

// /bids/:bidId/accept
func (h *bidRoutesHandler) AcceptBid(c echo.Context) error {
	bidId := c.Param("bidId")
	username := c.QueryParam("username")
	if username == defaultUsername {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"'username': this field is required"}); e != nil {
			return e
		}

		return nil
	}

	bid, events, err := h.bidService.AcceptBid(c.Request().Context(), bidId, username)
	if errors.Is(err, service.ErrConcurrencyConflict) {
		// a bidder withdrawing concurrently releases the row fast, one retry
		// usually settles it
		bid, events, err = h.bidService.AcceptBid(c.Request().Context(), bidId, username)
	}
	if err != nil {
		return respondBidError(c, err)
	}

	publishEvents(c.Request().Context(), h.events, events)
	if e := c.JSON(http.StatusOK, bid); e != nil {
		return e
	}

	return nil
}

// /bids/:bidId/reject
func (h *bidRoutesHandler) RejectBid(c echo.Context) error {
	return h.runBidOp(c, h.bidService.RejectBid)
}

// /bids/:bidId/withdraw
func (h *bidRoutesHandler) WithdrawBid(c echo.Context) error {
	return h.runBidOp(c, h.bidService.WithdrawBid)
}

func (h *bidRoutesHandler) runBidOp(c echo.Context, op func(ctx context.Context, bidId, username string) (*entity.BidOutputModel, []entity.Event, error)) error {
	bidId := c.Param("bidId")
	username := c.QueryParam("username")
	if username == defaultUsername {
		if e := c.JSON(http.StatusBadRequest, errorResponse{"'username': this field is required"}); e != nil {
			return e
		}

		return nil
	}

	bid, events, err := op(c.Request().Context(), bidId, username)
	if err != nil {
		return respondBidError(c, err)
	}

	publishEvents(c.Request().Context(), h.events, events)
	if e := c.JSON(http.StatusOK, bid); e != nil {
		return e
	}

	return nil
}

// /bids/:bidId/status
func (h *bidRoutesHandler) GetBidStatus(c echo.Context) error {
	status, err := h.bidService.GetBidStatusById(c.Request().Context(), c.Param("bidId"), c.QueryParam("username"))
	if err != nil {
		return respondBidError(c, err)
	}

	if e := c.JSON(http.StatusOK, status); e != nil {
		return e
	}

	return nil
}

type getUserBidsInput struct {
	Limit    int32  `query:"limit" validate:"gte=0,lte=50"`
	Offset   int32  `query:"offset" validate:"gte=0"`
	Username string `query:"username" validate:"required"`
}

// /bids/my
func (h *bidRoutesHandler) GetUserBids(c echo.Context) error {
	input := getUserBidsInput{Limit: defaultLimit, Offset: defaultOffset}
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
	bids, err := h.bidService.GetUserBids(c.Request().Context(), input.Username, pg)
	if err != nil {
		return respondBidError(c, err)
	}

	if e := c.JSON(http.StatusOK, bids); e != nil {
		return e
	}

	return nil
}

type getJobRequestBidsInput struct {
	Limit    int32  `query:"limit" validate:"gte=0,lte=50"`
	Offset   int32  `query:"offset" validate:"gte=0"`
	Username string `query:"username" validate:"required"`
}

// /bids/:jobRequestId/list
func (h *bidRoutesHandler) GetJobRequestBids(c echo.Context) error {
	input := getJobRequestBidsInput{Limit: defaultLimit, Offset: defaultOffset}
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
	bids, err := h.bidService.GetBidsForJobRequestById(c.Request().Context(), c.Param("jobRequestId"), pg, input.Username)
	if err != nil {
		return respondBidError(c, err)
	}

	if e := c.JSON(http.StatusOK, bids); e != nil {
		return e
	}

	return nil
}
