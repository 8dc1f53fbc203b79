package domain

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// PaymentConfirmation is the outcome of one authorize-and-capture attempt.
type PaymentConfirmation struct {
	Reference     string
	Status        PaymentStatus
	FailureReason string
}

func (c PaymentConfirmation) Succeeded() bool {
	return c.Status == PaymentSucceeded
}
