package stripe

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/robertarktes/ticket-checkout/internal/config"
	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/payment"
)

type Provider struct {
	client paymentintent.Client
}

type Option func(*stripe.BackendConfig)

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) Option {
	return func(c *stripe.BackendConfig) {
		c.URL = stripe.String(url)
	}
}

func NewProvider(cfg config.PaymentConfig, opts ...Option) *Provider {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	for _, opt := range opts {
		opt(backendCfg)
	}
	return &Provider{
		client: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.StripeSecretKey,
		},
	}
}

func (p *Provider) CreateIntent(ctx context.Context, in payment.CreateIntentParams) (payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.AmountMinor),
		Currency: stripe.String(in.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.client.New(params)
	if err != nil {
		return payment.Intent{}, mapError(err)
	}
	return toIntent(pi), nil
}

func (p *Provider) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (payment.Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx

	pi, err := p.client.Confirm(intentID, params)
	if err != nil {
		return payment.Intent{}, mapError(err)
	}
	return toIntent(pi), nil
}

func (p *Provider) GetIntent(ctx context.Context, intentID string) (payment.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.client.Get(intentID, params)
	if err != nil {
		return payment.Intent{}, mapError(err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) payment.Intent {
	intent := payment.Intent{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Metadata: pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		intent.LastError = pi.LastPaymentError.Msg
	}
	return intent
}

func mapError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return errors.Mark(errors.Wrap(err, "stripe"), domain.ErrPaymentProvider)
	}
	switch se.Type {
	case stripe.ErrorTypeCard:
		return domain.Declined(se.Msg)
	case stripe.ErrorTypeInvalidRequest:
		if se.HTTPStatusCode == http.StatusNotFound {
			return errors.Mark(domain.InvalidRequest(se.Msg), domain.ErrNotFound)
		}
		return domain.InvalidRequest(se.Msg)
	default:
		return errors.Mark(errors.New(se.Msg), domain.ErrPaymentProvider)
	}
}
