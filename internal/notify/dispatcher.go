package notify

import (
	"context"
	"html/template"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

const (
	kindCustomer = "customer"
	kindBilling  = "billing"
)

type Options struct {
	Brand          string
	BillingAddress string
	Timeout        time.Duration
	// VerifyBeforeSend runs Mailer.Verify first; a failure is only logged.
	VerifyBeforeSend bool
}

// Dispatcher sends the customer confirmation and the billing notice. Delivery
// failures end up in the returned outcomes and the logs, nowhere else.
type Dispatcher struct {
	mailer Mailer
	opts   Options
	logger observability.Logger
}

// NewDispatcher accepts a nil mailer when mail is not configured; every
// notification is then recorded as undelivered.
func NewDispatcher(mailer Mailer, opts Options, logger observability.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, opts: opts, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, details domain.TicketDetails, artifact domain.TicketArtifact) domain.NotificationOutcomes {
	ctx, span := observability.Tracer("notify").Start(ctx, "notify.Notify")
	defer span.End()

	logger := observability.LoggerFromContext(ctx, d.logger).WithField("payment_reference", details.Reference)

	if d.mailer != nil && d.opts.VerifyBeforeSend {
		if err := d.Verify(ctx); err != nil {
			logger.WithError(err).Warn("mail transport verification failed, sending anyway")
		}
	}

	data := emailData{TicketDetails: details, Brand: d.opts.Brand, BillingAddress: d.opts.BillingAddress}
	attachment := Attachment{
		Filename:    artifact.Filename,
		ContentType: artifact.ContentType(),
		Content:     artifact.Content,
	}

	var out domain.NotificationOutcomes
	var g errgroup.Group
	g.Go(func() error {
		out.Customer = d.send(ctx, logger, kindCustomer, details.CustomerEmail, "Booking Confirmation - "+details.EventTitle, customerTmpl, data, attachment)
		return nil
	})
	g.Go(func() error {
		out.Billing = d.send(ctx, logger, kindBilling, d.opts.BillingAddress, "New Booking - "+details.EventTitle, billingTmpl, data, attachment)
		return nil
	})
	_ = g.Wait()

	return out
}

// Verify checks connectivity to the mail transport.
func (d *Dispatcher) Verify(ctx context.Context) error {
	if d.mailer == nil {
		return domain.Misconfigured("mail transport not configured")
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.mailer.Verify(ctx)
}

func (d *Dispatcher) send(ctx context.Context, logger observability.Logger, kind, to, subject string, t *template.Template, data emailData, attachment Attachment) domain.NotificationOutcome {
	outcome := domain.NotificationOutcome{Recipient: to}
	logger = logger.WithField("kind", kind).WithField("recipient", to)

	id, err := d.deliver(ctx, to, subject, t, data, attachment)
	if err != nil {
		err = errors.Mark(err, domain.ErrNotificationDelivery)
		outcome.ErrorDetail = err.Error()
		var de *DeliveryError
		if errors.As(err, &de) {
			outcome.DiagnosticCode = de.Code
			logger = logger.WithField("diagnostic_code", de.Code)
		}
		logger.WithError(err).Error("notification not delivered")
		observability.NotificationsTotal.WithLabelValues(kind, "failed").Inc()
		return outcome
	}

	outcome.Delivered = true
	outcome.ProviderMessageID = id
	logger.WithField("message_id", id).Info("notification delivered")
	observability.NotificationsTotal.WithLabelValues(kind, "delivered").Inc()
	return outcome
}

func (d *Dispatcher) deliver(ctx context.Context, to, subject string, t *template.Template, data emailData, attachment Attachment) (string, error) {
	if d.mailer == nil {
		return "", domain.Misconfigured("mail transport not configured")
	}

	body, err := render(t, data)
	if err != nil {
		return "", errors.Wrapf(err, "render %s email", t.Name())
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	return d.mailer.Send(ctx, Message{
		To:          to,
		Subject:     subject,
		HTMLBody:    body,
		Attachments: []Attachment{attachment},
	})
}

func (d *Dispatcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.opts.Timeout)
}
