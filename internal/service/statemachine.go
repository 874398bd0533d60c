package service

import "job-marketplace-api/internal/common"

// The job request status machine is an explicit transition table rather than
// per-operation status checks, so every legal move is visible in one place.

type machineEvent string

const (
	eventOpenBidding      machineEvent = "open_bidding"
	eventAccept           machineEvent = "accept"
	eventAuthorizePayment machineEvent = "authorize_payment"
	eventStart            machineEvent = "start"
	eventComplete         machineEvent = "complete"
	eventReleasePayment   machineEvent = "release_payment"
	eventCancel           machineEvent = "cancel"
	eventDispute          machineEvent = "dispute"
)

type transition struct {
	from []string
	to   string
}

var jobTransitions = map[machineEvent]transition{
	eventOpenBidding:      {from: []string{common.Pending}, to: common.OpenForBids},
	eventAccept:           {from: []string{common.Pending, common.OpenForBids}, to: common.Accepted},
	eventAuthorizePayment: {from: []string{common.Accepted}, to: common.PaymentAuthorized},
	eventStart:            {from: []string{common.PaymentAuthorized}, to: common.InProgress},
	eventComplete:         {from: []string{common.InProgress}, to: common.Completed},
	eventReleasePayment:   {from: []string{common.Completed}, to: common.PaymentReleased},
	eventCancel:           {from: common.CancellableStatuses, to: common.Cancelled},
	eventDispute:          {from: []string{common.InProgress, common.Completed}, to: common.Disputed},
}

// nextJobStatus resolves the target status for firing the given event from
// the current status, or ErrInvalidTransition when the event isn't legal.
func nextJobStatus(current string, event machineEvent) (string, error) {
	t, ok := jobTransitions[event]
	if !ok {
		return "", ErrInvalidTransition
	}

	for _, from := range t.from {
		if from == current {
			return t.to, nil
		}
	}

	return "", ErrInvalidTransition
}
