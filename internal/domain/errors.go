package domain

import "github.com/cockroachdb/errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidRequest       = errors.New("invalid request")

	// Payment path. Terminal and reported to the caller.
	ErrConfiguration   = errors.New("configuration error")
	ErrPaymentDeclined = errors.New("payment declined")
	ErrPaymentProvider = errors.New("payment provider error")
	// ErrPaymentNotCompleted is a confirmed intent that did not reach succeeded.
	// It is always also an ErrPaymentDeclined.
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// Fulfillment path. Logged, never reported to the caller.
	ErrArtifactGeneration   = errors.New("artifact generation failed")
	ErrNotificationDelivery = errors.New("notification delivery failed")
)

// Declined builds an ErrPaymentDeclined error carrying the provider's reason.
func Declined(reason string) error {
	return errors.Mark(errors.New(reason), ErrPaymentDeclined)
}

// NotCompleted reports a payment whose final status was not succeeded.
func NotCompleted(reason string) error {
	return errors.Mark(Declined(reason), ErrPaymentNotCompleted)
}

func InvalidRequest(reason string) error {
	return errors.Mark(errors.New(reason), ErrInvalidRequest)
}

func Misconfigured(reason string) error {
	return errors.Mark(errors.New(reason), ErrConfiguration)
}
