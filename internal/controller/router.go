package controller

import (
	"job-marketplace-api/internal/service"
	"job-marketplace-api/pkg/eventbus"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
)

func SetupRoutesHandlers(handler *echo.Echo, services *service.Services, events eventbus.Publisher) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	api := handler.Group("/api")
	newDiagnosticRoutesHandler(api, services)
	newJobRequestRoutesHandler(api, services, validate, events)
	newBidRoutesHandler(api, services, validate, events)
	newProfileRoutesHandler(api, services, validate)
}
