package common

// Job request statuses
const (
	Pending           = "pending"
	OpenForBids       = "open_for_bids"
	Accepted          = "accepted"
	PaymentAuthorized = "payment_authorized"
	InProgress        = "in_progress"
	Completed         = "completed"
	PaymentReleased   = "payment_released"
	Cancelled         = "cancelled"
	Disputed          = "disputed"
)

// Bid statuses
const (
	BidPending   = "pending"
	BidAccepted  = "accepted"
	BidRejected  = "rejected"
	BidWithdrawn = "withdrawn"
)

// Payment statuses
const (
	PaymentStatusPending    = "pending"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusReleased   = "released"
	PaymentStatusRefunded   = "refunded"
)

// Urgency levels
const (
	UrgencyNormal    = "normal"
	UrgencyUrgent    = "urgent"
	UrgencyEmergency = "emergency"
)

// Pricing models
const (
	PricingHourly       = "hourly"
	PricingPerJob       = "per_job"
	PricingPropertySize = "property_size"
)

// Property size buckets
const (
	SizeSmall  = "small"
	SizeMedium = "medium"
	SizeLarge  = "large"
	SizeXLarge = "xlarge"
)

// Domain event names, published as AMQP routing keys
const (
	EventJobRequestCreated = "job_request.created"
	EventBiddingOpened     = "job_request.bidding_opened"
	EventJobAccepted       = "job_request.accepted"
	EventJobStarted        = "job_request.started"
	EventJobCompleted      = "job_request.completed"
	EventJobCancelled      = "job_request.cancelled"
	EventJobDisputed       = "job_request.disputed"
	EventBidSubmitted      = "bid.submitted"
	EventBidAccepted       = "bid.accepted"
	EventBidRejected       = "bid.rejected"
	EventBidWithdrawn      = "bid.withdrawn"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
	EventPaymentReleased   = "payment.released"
	EventPaymentRefunded   = "payment.refunded"
)

// CancellableStatuses are the job request statuses from which a cancel is legal.
var CancellableStatuses = []string{Pending, OpenForBids, Accepted, PaymentAuthorized}
