package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ArtifactFormat string

const (
	ArtifactPDF       ArtifactFormat = "PDF"
	ArtifactPlainText ArtifactFormat = "PLAIN_TEXT"
)

type TicketArtifact struct {
	Format   ArtifactFormat
	Content  []byte
	Filename string
}

func (a TicketArtifact) ContentType() string {
	if a.Format == ArtifactPDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// TicketDetails is everything printed on a ticket. It is built from a Booking
// or from the metadata of a succeeded payment intent.
type TicketDetails struct {
	Reference     string
	EventTitle    string
	EventDate     string
	Venue         string
	TicketName    string
	Quantity      int
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	Currency      string
	CustomerEmail string
	BookedOn      time.Time
}

var currencySymbols = map[string]string{
	"eur": "€",
	"gbp": "£",
	"usd": "$",
}

// Money formats v with two decimals and the booking currency symbol, e.g. €24.00.
func (d TicketDetails) Money(v decimal.Decimal) string {
	sym, ok := currencySymbols[strings.ToLower(d.Currency)]
	if !ok {
		return v.StringFixed(2) + " " + strings.ToUpper(d.Currency)
	}
	return sym + v.StringFixed(2)
}

// ShortReference is the reference printed on the ticket face: the provider's pi_
// prefix removed and at most 15 characters kept.
func (d TicketDetails) ShortReference() string {
	ref := strings.TrimPrefix(d.Reference, "pi_")
	if len(ref) > 15 {
		ref = ref[:15]
	}
	return ref
}

func (d TicketDetails) BookedOnDate() string {
	return d.BookedOn.Format("02/01/2006")
}
