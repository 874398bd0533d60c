package controller

import (
	"errors"
	"net/http"

	"job-marketplace-api/internal/entity"
	"job-marketplace-api/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
)

type profileRoutesHandler struct {
	profileService service.Profile
	pricingService service.Pricing
	validate       *validator.Validate
}

func newProfileRoutesHandler(outer *echo.Group, services *service.Services, v *validator.Validate) *profileRoutesHandler {
	h := &profileRoutesHandler{profileService: services.Profile, pricingService: services.Pricing, validate: v}

	outer.POST("/properties/new", h.PostProperty)
	outer.GET("/properties/my", h.GetUserProperties)

	outer.POST("/provider-services/new", h.PostProviderService)
	outer.GET("/provider-services/my", h.GetProviderServices)

	outer.GET("/estimates", h.GetEstimate)

	return h
}

func respondProfileError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		if e := c.JSON(http.StatusUnauthorized, errorResponse{"There is no user with given username"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrUserNotAProvider):
		if e := c.JSON(http.StatusForbidden, errorResponse{"Only registered providers can list services"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrDuplicateListing):
		if e := c.JSON(http.StatusConflict, errorResponse{"You already list this service type"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrMissingRateFields):
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Rate fields required by the pricing model are missing"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrUnknownPricingModel):
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Unknown pricing model"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrProviderServiceNotFound):
		if e := c.JSON(http.StatusNotFound, errorResponse{"There is no provider service with given id"}); e != nil {
			return e
		}
	case errors.Is(err, service.ErrPropertyNotFound):
		if e := c.JSON(http.StatusNotFound, errorResponse{"There is no property with given id"}); e != nil {
			return e
		}
	default:
		if e := c.JSON(http.StatusBadRequest, errorResponse{"Error"}); e != nil {
			return e
		}
	}

	return err
}

type postPropertyInput struct {
	OwnerUsername       string `json:"ownerUsername" validate:"required"`
	Name                string `json:"name" validate:"max=100"`
	AddressLine1        string `json:"addressLine1" validate:"required,max=200"`
	AddressLine2        string `json:"addressLine2" validate:"max=200"`
	City                string `json:"city" validate:"required,max=100"`
	State               string `json:"state" validate:"required,max=100"`
	ZipCode             string `json:"zipCode" validate:"required,max=20"`
	Country             string `json:"country" validate:"max=2"`
	PropertySize        string `json:"propertySize" validate:"omitempty,oneof=small medium large xlarge"`
	SpecialInstructions string `json:"specialInstructions" validate:"max=1000"`
}

// /properties/new
func (h *profileRoutesHandler) PostProperty(c echo.Context) error {
	var input postPropertyInput
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

	model := &entity.CreatePropertyInput{
		OwnerUsername:       input.OwnerUsername,
		Name:                input.Name,
		AddressLine1:        input.AddressLine1,
		AddressLine2:        input.AddressLine2,
		City:                input.City,
		State:               input.State,
		ZipCode:             input.ZipCode,
		Country:             input.Country,
		PropertySize:        input.PropertySize,
		SpecialInstructions: input.SpecialInstructions,
	}

	property, err := h.profileService.CreateProperty(c.Request().Context(), model)
	if err != nil {
		return respondProfileError(c, err)
	}

	if e := c.JSON(http.StatusOK, property); e != nil {
		return e
	}

	return nil
}

type getMineInput struct {
	Limit    int32  `query:"limit" validate:"gte=0,lte=50"`
	Offset   int32  `query:"offset" validate:"gte=0"`
	Username string `query:"username" validate:"required"`
}

// /properties/my
func (h *profileRoutesHandler) GetUserProperties(c echo.Context) error {
	input := getMineInput{Limit: defaultLimit, Offset: defaultOffset}
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
	properties, err := h.profileService.GetUserProperties(c.Request().Context(), input.Username, pg)
	if err != nil {
		return respondProfileError(c, err)
	}

	if e := c.JSON(http.StatusOK, properties); e != nil {
		return e
	}

	return nil
}

type postProviderServiceInput struct {
	ProviderUsername string           `json:"providerUsername" validate:"required"`
	ServiceType      string           `json:"serviceType" validate:"required,max=100"`
	PricingModel     string           `json:"pricingModel" validate:"required,oneof=hourly per_job property_size"`
	HourlyRateCents  int64            `json:"hourlyRateCents" validate:"gte=0"`
	BasePriceCents   int64            `json:"basePriceCents" validate:"gte=0"`
	MinChargeCents   int64            `json:"minChargeCents" validate:"gte=0"`
	SizePricing      map[string]int64 `json:"sizePricing" validate:"dive,keys,oneof=small medium large xlarge,endkeys,gte=0"`
}

// /provider-services/new
func (h *profileRoutesHandler) PostProviderService(c echo.Context) error {
	var input postProviderServiceInput
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

	model := &entity.CreateProviderServiceInput{
		ProviderUsername: input.ProviderUsername,
		ServiceType:      input.ServiceType,
		PricingModel:     input.PricingModel,
		HourlyRateCents:  input.HourlyRateCents,
		BasePriceCents:   input.BasePriceCents,
		MinChargeCents:   input.MinChargeCents,
		SizePricing:      input.SizePricing,
	}

	listing, err := h.profileService.CreateProviderService(c.Request().Context(), model)
	if err != nil {
		return respondProfileError(c, err)
	}

	if e := c.JSON(http.StatusOK, listing); e != nil {
		return e
	}

	return nil
}

// /provider-services/my
func (h *profileRoutesHandler) GetProviderServices(c echo.Context) error {
	input := getMineInput{Limit: defaultLimit, Offset: defaultOffset}
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
	services, err := h.profileService.GetProviderServices(c.Request().Context(), input.Username, pg)
	if err != nil {
		return respondProfileError(c, err)
	}

	if e := c.JSON(http.StatusOK, services); e != nil {
		return e
	}

	return nil
}

type getEstimateInput struct {
	ProviderServiceId string  `query:"provider_service_id" validate:"required,uuid"`
	PropertyId        string  `query:"property_id" validate:"omitempty,uuid"`
	Urgency           string  `query:"urgency" validate:"omitempty,oneof=normal urgent emergency"`
	EstimatedHours    float64 `query:"estimated_hours" validate:"gte=0"`
}

type estimateResponse struct {
	EstimatedPriceCents int64 `json:"estimatedPriceCents"`
}

// /estimates
func (h *profileRoutesHandler) GetEstimate(c echo.Context) error {
	var input getEstimateInput
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

	cents, err := h.pricingService.EstimatePrice(c.Request().Context(), input.ProviderServiceId, input.PropertyId, input.Urgency, input.EstimatedHours)
	if err != nil {
		return respondProfileError(c, err)
	}

	if e := c.JSON(http.StatusOK, estimateResponse{EstimatedPriceCents: cents}); e != nil {
		return e
	}

	return nil
}
