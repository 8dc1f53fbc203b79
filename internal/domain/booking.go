package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const BookingStatusConfirmed = "CONFIRMED"

var hundred = decimal.NewFromInt(100)

// BookingRequest is one customer's request for Quantity tickets to one event.
type BookingRequest struct {
	EventTitle      string          `json:"eventTitle"`
	EventDate       string          `json:"eventDate"`
	TicketName      string          `json:"ticketName"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	CustomerEmail   string          `json:"customerEmail"`
	PaymentMethodID string          `json:"paymentMethodId"`
}

func (r BookingRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.EventTitle) == "":
		return InvalidRequest("eventTitle is required")
	case r.Quantity < 1:
		return InvalidRequest("quantity must be at least 1")
	case r.UnitPrice.IsNegative():
		return InvalidRequest("unitPrice must not be negative")
	case strings.TrimSpace(r.PaymentMethodID) == "":
		return InvalidRequest("paymentMethodId is required")
	}
	if _, err := mail.ParseAddress(r.CustomerEmail); err != nil {
		return errors.Mark(errors.Wrap(err, "customerEmail"), ErrInvalidRequest)
	}
	return nil
}

// ComputedTotal is the server-side total; the client's TotalPrice is never charged.
func (r BookingRequest) ComputedTotal() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// ChargeAmount is the computed total in minor currency units.
func (r BookingRequest) ChargeAmount() int64 {
	return r.ComputedTotal().Mul(hundred).Round(0).IntPart()
}

func (r BookingRequest) TotalMismatch() bool {
	return !r.TotalPrice.Equal(r.ComputedTotal())
}

// Booking is the persisted record of a paid booking, keyed by payment reference.
type Booking struct {
	ID               uuid.UUID
	PaymentReference string
	EventTitle       string
	EventDate        string
	TicketName       string
	Venue            string
	Quantity         int
	UnitPrice        decimal.Decimal
	TotalPrice       decimal.Decimal
	Currency         string
	AmountMinor      int64
	CustomerEmail    string
	Status           string
	CreatedAt        time.Time
}

// NewBooking records a booking for a succeeded payment. Any other confirmation is rejected.
func NewBooking(req BookingRequest, conf PaymentConfirmation, venue, currency string, now time.Time) (Booking, error) {
	if !conf.Succeeded() {
		return Booking{}, errors.Wrapf(ErrPaymentDeclined, "booking for payment %s", conf.Reference)
	}
	return Booking{
		ID:               uuid.New(),
		PaymentReference: conf.Reference,
		EventTitle:       req.EventTitle,
		EventDate:        req.EventDate,
		TicketName:       req.TicketName,
		Venue:            venue,
		Quantity:         req.Quantity,
		UnitPrice:        req.UnitPrice,
		TotalPrice:       req.ComputedTotal(),
		Currency:         strings.ToLower(currency),
		AmountMinor:      req.ChargeAmount(),
		CustomerEmail:    req.CustomerEmail,
		Status:           BookingStatusConfirmed,
		CreatedAt:        now.UTC(),
	}, nil
}

func (b Booking) TicketDetails() TicketDetails {
	return TicketDetails{
		Reference:     b.PaymentReference,
		EventTitle:    b.EventTitle,
		EventDate:     b.EventDate,
		Venue:         b.Venue,
		TicketName:    b.TicketName,
		Quantity:      b.Quantity,
		UnitPrice:     b.UnitPrice,
		TotalPrice:    b.TotalPrice,
		Currency:      b.Currency,
		CustomerEmail: b.CustomerEmail,
		BookedOn:      b.CreatedAt,
	}
}
