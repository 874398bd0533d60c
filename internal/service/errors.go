package service

import "errors"

var (
	ErrJobRequestNotFound      = errors.New("job request not found")
	ErrBidNotFound             = errors.New("bid not found")
	ErrUserNotFound            = errors.New("user with given username not found")
	ErrPropertyNotFound        = errors.New("property not found")
	ErrProviderServiceNotFound = errors.New("provider service not found")
	ErrPaymentNotFound         = errors.New("payment not found")

	ErrUnauthorized     = errors.New("user doesn't have sufficient rights for this operation")
	ErrUserNotAProvider = errors.New("user isn't registered as a provider")

	ErrInvalidTransition = errors.New("job request can't perform this action in its current status")
	ErrJobNotOpen        = errors.New("job request isn't open for bids")
	ErrNotAcceptingBids  = errors.New("job request is no longer accepting bids")
	ErrDuplicateBid      = errors.New("provider already has an active bid on this job request")
	ErrCannotWithdraw    = errors.New("only pending bids can be withdrawn")
	ErrOwnJobBid         = errors.New("attempt to bid on own job request")
	ErrDuplicateListing  = errors.New("provider already lists this service type")
	ErrInvalidBidAmount  = errors.New("bid amount must be greater than zero")

	ErrConcurrencyConflict = errors.New("job request was modified concurrently, please retry")
	ErrPaymentGateway      = errors.New("payment gateway call failed")
	ErrReleaseHoldActive   = errors.New("payment release hold period hasn't elapsed yet")

	ErrMissingRateFields   = errors.New("rate fields required by the pricing model are missing")
	ErrUnknownPricingModel = errors.New("unknown pricing model")
)
