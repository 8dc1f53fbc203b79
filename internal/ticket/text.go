package ticket

import (
	"fmt"
	"strings"

	"github.com/robertarktes/ticket-checkout/internal/domain"
)

const rule = "═══════════════════════════════════════════════════════"

// TextRenderer produces the plain-text ticket. It only interpolates strings.
type TextRenderer struct {
	brand string
}

func NewTextRenderer(brand string) *TextRenderer {
	return &TextRenderer{brand: brand}
}

func (r *TextRenderer) Text(d domain.TicketDetails) []byte {
	var b strings.Builder

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%s\n", center(r.brand))
	fmt.Fprintf(&b, "%s\n", center("DIGITAL EVENT TICKET"))
	b.WriteString(rule + "\n\n")

	fmt.Fprintf(&b, "EVENT:   %s\n", d.EventTitle)
	fmt.Fprintf(&b, "DATE:    %s\n", d.EventDate)
	fmt.Fprintf(&b, "VENUE:   %s\n", d.Venue)
	fmt.Fprintf(&b, "TICKET:  %s (Qty: %d)\n\n", d.TicketName, d.Quantity)

	fmt.Fprintf(&b, "TOTAL PAID: %s\n", d.Money(d.TotalPrice))
	fmt.Fprintf(&b, "    (%s per ticket)\n\n", d.Money(d.UnitPrice))

	fmt.Fprintf(&b, "BOOKING ID: %s\n", d.Reference)
	fmt.Fprintf(&b, "CUSTOMER:   %s\n", d.CustomerEmail)
	fmt.Fprintf(&b, "BOOKED:     %s\n\n", d.BookedOnDate())

	b.WriteString(rule + "\n\n")
	b.WriteString("IMPORTANT INFORMATION:\n")
	for _, n := range Notices {
		fmt.Fprintf(&b, "• %s\n", n)
	}
	b.WriteString("\n" + rule + "\n\n")
	fmt.Fprintf(&b, "Thank you for choosing %s!\n", r.brand)

	return []byte(b.String())
}

func center(s string) string {
	width := len([]rune(rule))
	pad := (width - len([]rune(s))) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
