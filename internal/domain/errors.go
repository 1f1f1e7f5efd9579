package domain

import "errors"

var (
	// ErrIncompleteProfile marks a profile missing a required field. It is a
	// silent skip, never a failure.
	ErrIncompleteProfile = errors.New("incomplete profile")

	// ErrInvalidDepartureTime is returned when departureTime cannot be parsed.
	ErrInvalidDepartureTime = errors.New("invalid departure time")

	// ErrRouteUnavailable is returned when the directions provider gives no usable route.
	ErrRouteUnavailable = errors.New("route unavailable")

	// ErrMailDeliveryFailed is returned when the mail transport rejects or fails a send.
	ErrMailDeliveryFailed = errors.New("mail delivery failed")

	// ErrBatchFetchFailed is returned when the profile collection cannot be read.
	ErrBatchFetchFailed = errors.New("batch fetch failed")
)
