package domain

// NotificationOutcome records one delivery attempt. Failures stay server-side.
type NotificationOutcome struct {
	Recipient         string
	Delivered         bool
	ProviderMessageID string
	ErrorDetail       string
	DiagnosticCode    int
}

type NotificationOutcomes struct {
	Customer NotificationOutcome
	Billing  NotificationOutcome
}
