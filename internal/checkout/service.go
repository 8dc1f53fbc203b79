package checkout

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/notify"
	"github.com/robertarktes/ticket-checkout/internal/observability"
	"github.com/robertarktes/ticket-checkout/internal/payment"
	"github.com/robertarktes/ticket-checkout/internal/ticket"
)

// Used when a payment intent carries no booking metadata.
const (
	defaultEventTitle    = "In Stitches Comedy Club"
	defaultTicketName    = "General Admission"
	defaultCustomerEmail = "customer@example.com"
	eventDateLayout      = "January 2, 2006"
)

var defaultUnitPrice = decimal.NewFromInt(12)

type BookingStore interface {
	SaveBooking(ctx context.Context, b domain.Booking) error
	GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error)
}

// BookingCache returns domain.ErrNotFound on a miss.
type BookingCache interface {
	PutBooking(ctx context.Context, b domain.Booking) error
	GetBooking(ctx context.Context, reference string) (*domain.Booking, error)
}

type Catalog interface {
	VenueFor(ctx context.Context, eventTitle string) (string, error)
}

// Deps wires the service. Store, Cache and Catalog are optional.
type Deps struct {
	Payments *payment.Orchestrator
	Tickets  *ticket.Generator
	Notifier *notify.Dispatcher
	Store    BookingStore
	Cache    BookingCache
	Catalog  Catalog
}

type Service struct {
	payments     *payment.Orchestrator
	tickets      *ticket.Generator
	notifier     *notify.Dispatcher
	store        BookingStore
	cache        BookingCache
	catalog      Catalog
	defaultVenue string
	logger       observability.Logger
	now          func() time.Time
}

func NewService(deps Deps, defaultVenue string, logger observability.Logger) *Service {
	return &Service{
		payments:     deps.Payments,
		tickets:      deps.Tickets,
		notifier:     deps.Notifier,
		store:        deps.Store,
		cache:        deps.Cache,
		catalog:      deps.Catalog,
		defaultVenue: defaultVenue,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock replaces the clock used for booked-on dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Result struct {
	PaymentReference string
	Booking          domain.Booking
	Artifact         domain.TicketArtifact
	Notifications    domain.NotificationOutcomes
}

// Checkout charges the booking and, once the payment has succeeded, fulfils it.
// Errors are only returned from the payment path; nothing after a succeeded
// payment can turn the result into a failure.
func (s *Service) Checkout(ctx context.Context, req domain.BookingRequest) (Result, error) {
	ctx, span := observability.Tracer("checkout").Start(ctx, "checkout.Checkout")
	defer span.End()
	logger := observability.LoggerFromContext(ctx, s.logger).WithField("event", req.EventTitle)

	if !s.payments.Configured() {
		return Result{}, domain.Misconfigured("STRIPE_SECRET_KEY environment variable is not set")
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	if req.TotalMismatch() {
		observability.TotalMismatch.Inc()
		logger.WithField("client_total", req.TotalPrice.String()).
			WithField("computed_total", req.ComputedTotal().StringFixed(2)).
			Warn("client total does not match unit price times quantity, charging computed total")
	}

	conf, err := s.payments.AuthorizeAndCapture(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if !conf.Succeeded() {
		logger.WithField("payment_reference", conf.Reference).
			WithField("reason", conf.FailureReason).
			Warn("payment did not succeed")
		return Result{PaymentReference: conf.Reference}, domain.NotCompleted(conf.FailureReason)
	}

	span.SetAttributes(attribute.String("payment.reference", conf.Reference))
	return s.fulfil(ctx, logger.WithField("payment_reference", conf.Reference), req, conf), nil
}

func (s *Service) fulfil(ctx context.Context, logger observability.Logger, req domain.BookingRequest, conf domain.PaymentConfirmation) Result {
	booking, err := domain.NewBooking(req, conf, s.venue(ctx, logger, req.EventTitle), s.payments.Currency(), s.now())
	if err != nil {
		// unreachable for a succeeded confirmation
		logger.WithError(err).Error("build booking")
		return Result{PaymentReference: conf.Reference}
	}

	s.persist(ctx, logger, booking)

	details := booking.TicketDetails()
	artifact := s.tickets.Generate(ctx, details)
	outcomes := s.notifier.Notify(ctx, details, artifact)

	logger.WithField("artifact_format", artifact.Format).
		WithField("customer_delivered", outcomes.Customer.Delivered).
		WithField("billing_delivered", outcomes.Billing.Delivered).
		Info("booking fulfilled")

	return Result{
		PaymentReference: conf.Reference,
		Booking:          booking,
		Artifact:         artifact,
		Notifications:    outcomes,
	}
}

func (s *Service) venue(ctx context.Context, logger observability.Logger, eventTitle string) string {
	if s.catalog == nil {
		return s.defaultVenue
	}
	venue, err := s.catalog.VenueFor(ctx, eventTitle)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WithError(err).Warn("event catalog lookup failed, using default venue")
		}
		return s.defaultVenue
	}
	if venue == "" {
		return s.defaultVenue
	}
	return venue
}

func (s *Service) persist(ctx context.Context, logger observability.Logger, b domain.Booking) {
	if s.store != nil {
		if err := s.store.SaveBooking(ctx, b); err != nil {
			logger.WithError(err).Error("failed to persist booking")
		}
	}
	if s.cache != nil {
		if err := s.cache.PutBooking(ctx, b); err != nil {
			logger.WithError(err).Warn("failed to cache booking")
		}
	}
}

// Ticket regenerates the ticket for a payment reference. The booking is read
// from the cache, then the store, then the payment intent's metadata.
func (s *Service) Ticket(ctx context.Context, reference string) (domain.TicketArtifact, error) {
	ctx, span := observability.Tracer("checkout").Start(ctx, "checkout.Ticket")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", reference))

	details, err := s.ticketDetails(ctx, reference)
	if err != nil {
		return domain.TicketArtifact{}, err
	}
	return s.tickets.Generate(ctx, details), nil
}

func (s *Service) ticketDetails(ctx context.Context, reference string) (domain.TicketDetails, error) {
	logger := observability.LoggerFromContext(ctx, s.logger).WithField("payment_reference", reference)

	if s.cache != nil {
		b, err := s.cache.GetBooking(ctx, reference)
		if err == nil {
			return b.TicketDetails(), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WithError(err).Warn("booking cache read failed")
		}
	}

	if s.store != nil {
		b, err := s.store.GetBookingByReference(ctx, reference)
		if err == nil {
			if s.cache != nil {
				if err := s.cache.PutBooking(ctx, *b); err != nil {
					logger.WithError(err).Warn("failed to cache booking")
				}
			}
			return b.TicketDetails(), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WithError(err).Warn("booking store read failed")
		}
	}

	meta, err := s.payments.Lookup(ctx, reference)
	if err != nil {
		return domain.TicketDetails{}, err
	}
	return s.detailsFromMetadata(reference, meta), nil
}

// detailsFromMetadata rebuilds ticket details for payments made before
// bookings were persisted. Missing fields get fixed defaults.
func (s *Service) detailsFromMetadata(reference string, meta map[string]string) domain.TicketDetails {
	now := s.now()

	quantity, err := strconv.Atoi(meta[payment.MetaQuantity])
	if err != nil || quantity < 1 {
		quantity = 1
	}

	total, totalErr := decimal.NewFromString(meta[payment.MetaTotalPrice])
	unit, unitErr := decimal.NewFromString(meta[payment.MetaUnitPrice])
	switch {
	case unitErr == nil && totalErr != nil:
		total = unit.Mul(decimal.NewFromInt(int64(quantity)))
	case unitErr != nil && totalErr == nil:
		unit = total.Div(decimal.NewFromInt(int64(quantity))).Round(2)
	case unitErr != nil && totalErr != nil:
		unit = defaultUnitPrice
		total = defaultUnitPrice
	}

	return domain.TicketDetails{
		Reference:     reference,
		EventTitle:    valueOr(meta[payment.MetaEventTitle], defaultEventTitle),
		EventDate:     valueOr(meta[payment.MetaEventDate], now.Format(eventDateLayout)),
		Venue:         s.defaultVenue,
		TicketName:    valueOr(meta[payment.MetaTicketName], defaultTicketName),
		Quantity:      quantity,
		UnitPrice:     unit,
		TotalPrice:    total,
		Currency:      s.payments.Currency(),
		CustomerEmail: valueOr(meta[payment.MetaCustomerEmail], defaultCustomerEmail),
		BookedOn:      now,
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
