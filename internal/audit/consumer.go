package audit

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

type Recorder interface {
	LogEvent(ctx context.Context, id, action, paymentReference string, data map[string]interface{}) error
}

const (
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryMax  = 30 * time.Second
)

// Handler records booking events delivered by the broker.
type Handler struct {
	recorder Recorder
	logger   observability.Logger

	retryBase time.Duration
	retryMax  time.Duration
	failures  atomic.Int32
}

func NewHandler(recorder Recorder, logger observability.Logger) *Handler {
	return &Handler{
		recorder:  recorder,
		logger:    logger,
		retryBase: defaultRetryBase,
		retryMax:  defaultRetryMax,
	}
}

// WithBackoff sets the delay before a failed event is requeued. It doubles
// with every consecutive failure up to max and resets after a success.
func (h *Handler) WithBackoff(base, max time.Duration) *Handler {
	h.retryBase, h.retryMax = base, max
	return h
}

// Run handles deliveries until ctx is done or the channel closes.
func (h *Handler) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				h.logger.Warn("delivery channel closed")
				return
			}
			if err := h.Handle(ctx, d); err != nil {
				h.logger.WithField("message_id", d.MessageId).WithError(err).Error("audit event not recorded")
			}
		}
	}
}

// Handle acks recorded events, rejects malformed ones and requeues the rest.
func (h *Handler) Handle(ctx context.Context, d amqp.Delivery) error {
	var evt domain.BookingConfirmed
	if err := json.Unmarshal(d.Body, &evt); err != nil || evt.PaymentReference == "" {
		_ = d.Nack(false, false)
		if err == nil {
			err = errors.New("event has no payment reference")
		}
		return errors.Wrap(err, "decode booking event")
	}

	id := d.MessageId
	if id == "" {
		id = d.RoutingKey + ":" + evt.PaymentReference
	}
	data := map[string]interface{}{
		"booking_id":     evt.BookingID.String(),
		"event_title":    evt.EventTitle,
		"event_date":     evt.EventDate,
		"venue":          evt.Venue,
		"quantity":       evt.Quantity,
		"total_price":    evt.TotalPrice,
		"currency":       evt.Currency,
		"customer_email": evt.CustomerEmail,
		"booked_at":      evt.BookedAt,
	}

	if err := h.recorder.LogEvent(ctx, id, d.RoutingKey, evt.PaymentReference, data); err != nil {
		h.wait(ctx, h.backoff(h.failures.Add(1)))
		_ = d.Nack(false, true)
		return err
	}
	h.failures.Store(0)
	return d.Ack(false)
}

func (h *Handler) backoff(failures int32) time.Duration {
	delay := h.retryBase
	for i := int32(1); i < failures && delay < h.retryMax; i++ {
		delay *= 2
	}
	if delay > h.retryMax {
		delay = h.retryMax
	}
	return delay
}

func (h *Handler) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
