package services

import "errors"

// Sentinel errors translated to HTTP statuses at the handler boundary.
var (
	// ErrPlanNotFound covers both a missing plan id and an inactive plan.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrNotFound deliberately does not distinguish "does not exist" from
	// "owned by someone else".
	ErrNotFound = errors.New("not found")

	// ErrGateway wraps payment-provider failures. The order stays PENDING
	// with no invoice attached when this is returned.
	ErrGateway = errors.New("payment gateway error")
)
