package ticket

import (
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/robertarktes/ticket-checkout/internal/domain"
)

const qrSize = 300

// QRPayload is what door staff see when scanning the ticket.
func QRPayload(d domain.TicketDetails) string {
	return strings.Join([]string{
		"Booking ID: " + d.Reference,
		"Event: " + d.EventTitle,
		"Date: " + d.EventDate,
		"Customer: " + d.CustomerEmail,
	}, "\n")
}

// QRCode returns the payload encoded as a PNG image.
func QRCode(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, qrSize)
}
