package entity

import "time"

// Event is a domain event produced by a lifecycle operation. Operations return
// their events in order; delivery to the event sink is the caller's job.
type Event struct {
	Name         string    `json:"name"`
	JobRequestId string    `json:"jobRequestId,omitempty"`
	BidId        string    `json:"bidId,omitempty"`
	PaymentId    string    `json:"paymentId,omitempty"`
	ActorId      string    `json:"actorId,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}
