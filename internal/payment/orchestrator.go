package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/robertarktes/ticket-checkout/internal/config"
	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

// Metadata keys stored on the payment intent.
const (
	MetaEventTitle    = "eventTitle"
	MetaEventDate     = "eventDate"
	MetaTicketName    = "ticketName"
	MetaQuantity      = "quantity"
	MetaUnitPrice     = "unitPrice"
	MetaTotalPrice    = "totalPrice"
	MetaCustomerEmail = "customerEmail"
)

type Orchestrator struct {
	provider Provider
	currency string
	timeout  time.Duration
	logger   observability.Logger
}

// NewOrchestrator accepts a nil provider; every call then fails with
// domain.ErrConfiguration before reaching the network.
func NewOrchestrator(provider Provider, cfg config.PaymentConfig, logger observability.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		currency: cfg.Currency,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

func (o *Orchestrator) Configured() bool {
	return o.provider != nil
}

func (o *Orchestrator) Currency() string {
	return o.currency
}

// AuthorizeAndCapture creates a payment intent for the booking and confirms it
// with the customer's payment method. There is no retry.
func (o *Orchestrator) AuthorizeAndCapture(ctx context.Context, req domain.BookingRequest) (domain.PaymentConfirmation, error) {
	if o.provider == nil {
		return domain.PaymentConfirmation{}, domain.Misconfigured("STRIPE_SECRET_KEY environment variable is not set")
	}

	ctx, span := observability.Tracer("payment").Start(ctx, "payment.AuthorizeAndCapture")
	defer span.End()

	amount := req.ChargeAmount()
	span.SetAttributes(attribute.Int64("payment.amount_minor", amount), attribute.String("payment.currency", o.currency))

	var intent Intent
	err := o.call(ctx, "create", func(ctx context.Context) error {
		var err error
		intent, err = o.provider.CreateIntent(ctx, CreateIntentParams{
			AmountMinor: amount,
			Currency:    o.currency,
			Metadata:    Metadata(req),
		})
		return err
	})
	if err != nil {
		observability.PaymentsTotal.WithLabelValues("error").Inc()
		return domain.PaymentConfirmation{}, err
	}

	err = o.call(ctx, "confirm", func(ctx context.Context) error {
		var err error
		intent, err = o.provider.ConfirmIntent(ctx, intent.ID, req.PaymentMethodID)
		return err
	})
	if err != nil {
		observability.PaymentsTotal.WithLabelValues("error").Inc()
		return domain.PaymentConfirmation{}, err
	}

	span.SetAttributes(attribute.String("payment.reference", intent.ID), attribute.String("payment.status", intent.Status))

	if intent.Status != IntentSucceeded {
		reason := intent.LastError
		if reason == "" {
			reason = "Unknown error"
		}
		observability.PaymentsTotal.WithLabelValues("failed").Inc()
		return domain.PaymentConfirmation{
			Reference:     intent.ID,
			Status:        domain.PaymentFailed,
			FailureReason: reason,
		}, nil
	}

	observability.PaymentsTotal.WithLabelValues("succeeded").Inc()
	return domain.PaymentConfirmation{Reference: intent.ID, Status: domain.PaymentSucceeded}, nil
}

// Lookup returns the booking metadata stored on a succeeded payment intent.
// An intent that has not succeeded is reported as ErrNotFound.
func (o *Orchestrator) Lookup(ctx context.Context, reference string) (map[string]string, error) {
	if o.provider == nil {
		return nil, domain.Misconfigured("Stripe not configured")
	}
	var intent Intent
	err := o.call(ctx, "retrieve", func(ctx context.Context) error {
		var err error
		intent, err = o.provider.GetIntent(ctx, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	if intent.Status != IntentSucceeded {
		return nil, errors.Mark(errors.Newf("payment %s has status %q", reference, intent.Status), domain.ErrNotFound)
	}
	return intent.Metadata, nil
}

func (o *Orchestrator) call(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	observability.PaymentDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	o.logger.WithField("step", step).WithError(err).Error("payment provider call failed")
	if errors.Is(err, domain.ErrPaymentDeclined) || errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrPaymentProvider) {
		return err
	}
	return errors.Mark(err, domain.ErrPaymentProvider)
}

func Metadata(req domain.BookingRequest) map[string]string {
	return map[string]string{
		MetaEventTitle:    req.EventTitle,
		MetaEventDate:     req.EventDate,
		MetaTicketName:    req.TicketName,
		MetaQuantity:      strconv.Itoa(req.Quantity),
		MetaUnitPrice:     req.UnitPrice.StringFixed(2),
		MetaTotalPrice:    req.ComputedTotal().StringFixed(2),
		MetaCustomerEmail: req.CustomerEmail,
	}
}
