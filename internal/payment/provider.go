package payment

import "context"

// IntentSucceeded is the provider's terminal success state.
const IntentSucceeded = "succeeded"

type Intent struct {
	ID        string
	Status    string
	LastError string
	Metadata  map[string]string
}

type CreateIntentParams struct {
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// Provider is the external payment processor. Implementations mark their errors
// with domain.ErrPaymentDeclined, domain.ErrInvalidRequest or domain.ErrPaymentProvider.
type Provider interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (Intent, error)
	GetIntent(ctx context.Context, intentID string) (Intent, error)
}
