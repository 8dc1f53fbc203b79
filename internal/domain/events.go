package domain

import (
	"time"

	"github.com/google/uuid"
)

const EventBookingConfirmed = "booking.confirmed"

// BookingConfirmed is published once per persisted booking.
type BookingConfirmed struct {
	BookingID        uuid.UUID `json:"booking_id"`
	PaymentReference string    `json:"payment_reference"`
	EventTitle       string    `json:"event_title"`
	EventDate        string    `json:"event_date"`
	Venue            string    `json:"venue"`
	Quantity         int       `json:"quantity"`
	TotalPrice       string    `json:"total_price"`
	Currency         string    `json:"currency"`
	CustomerEmail    string    `json:"customer_email"`
	BookedAt         time.Time `json:"booked_at"`
}

func (b Booking) ConfirmedEvent() BookingConfirmed {
	return BookingConfirmed{
		BookingID:        b.ID,
		PaymentReference: b.PaymentReference,
		EventTitle:       b.EventTitle,
		EventDate:        b.EventDate,
		Venue:            b.Venue,
		Quantity:         b.Quantity,
		TotalPrice:       b.TotalPrice.StringFixed(2),
		Currency:         b.Currency,
		CustomerEmail:    b.CustomerEmail,
		BookedAt:         b.CreatedAt,
	}
}
