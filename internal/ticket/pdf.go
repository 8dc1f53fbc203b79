package ticket

import (
	"bytes"
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-pdf/fpdf"

	"github.com/robertarktes/ticket-checkout/internal/config"
	"github.com/robertarktes/ticket-checkout/internal/domain"
)

type rgb struct{ r, g, b int }

var (
	primaryBlue   = rgb{0x1a, 0x23, 0x7e}
	secondaryBlue = rgb{0x3f, 0x51, 0xb5}
	accentOrange  = rgb{0xff, 0x6f, 0x00}
	successGreen  = rgb{0x4c, 0xaf, 0x50}
	darkGray      = rgb{0x49, 0x50, 0x57}
	textGray      = rgb{0x33, 0x33, 0x33}
	lineGray      = rgb{0xe0, 0xe0, 0xe0}
)

const (
	margin     = 20.0
	leftColumn = 30.0
	valueX     = leftColumn + 30
	qrImage    = "qr"

	pageHeight    = 210.0
	noticesTop    = 186.0
	noticeLeading = 4.5
)

// noticeLayout returns the baseline of each notice and of the closing rule.
func noticeLayout(n int) (baselines []float64, rule float64) {
	y := noticesTop
	for i := 0; i < n; i++ {
		baselines = append(baselines, y)
		y += noticeLeading
	}
	return baselines, y
}

// PDFRenderer draws a single-page A4 landscape ticket.
type PDFRenderer struct {
	brand    string
	fontPath string
}

func NewPDFRenderer(cfg config.TicketConfig) *PDFRenderer {
	return &PDFRenderer{brand: cfg.Brand, fontPath: cfg.FontPath}
}

func (r *PDFRenderer) Format() domain.ArtifactFormat {
	return domain.ArtifactPDF
}

func (r *PDFRenderer) Render(ctx context.Context, d domain.TicketDetails) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(r.brand+" ticket "+d.Reference, true)
	pdf.SetCreationDate(d.BookedOn)
	pdf.SetAutoPageBreak(false, 0)

	family, tr := "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	if r.fontPath != "" {
		pdf.AddUTF8Font("ticket", "", r.fontPath)
		pdf.AddUTF8Font("ticket", "B", r.fontPath)
		family, tr = "ticket", func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return nil, errors.Wrap(err, "load ticket font")
	}

	png, err := QRCode(QRPayload(d))
	if err != nil {
		return nil, errors.Wrap(err, "encode qr code")
	}
	pdf.RegisterImageOptionsReader(qrImage, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()

	text := func(c rgb, style string, size float64) {
		pdf.SetTextColor(c.r, c.g, c.b)
		pdf.SetFont(family, style, size)
	}
	centered := func(y float64, s string) {
		pdf.SetXY(0, y-4)
		pdf.CellFormat(pageW, 5, tr(s), "", 0, "C", false, 0, "")
	}
	centeredAt := func(x, y float64, s string) {
		w := pdf.GetStringWidth(tr(s))
		pdf.Text(x-w/2, y, tr(s))
	}
	line := func(c rgb, width, y float64) {
		pdf.SetDrawColor(c.r, c.g, c.b)
		pdf.SetLineWidth(width)
		pdf.Line(margin, y, pageW-margin, y)
	}
	field := func(label, value string, y float64) {
		text(darkGray, "B", 11)
		pdf.Text(leftColumn, y, tr(label))
		text(textGray, "", 11)
		pdf.Text(valueX, y, tr(value))
	}

	text(darkGray, "B", 28)
	centered(30, r.brand)
	text(darkGray, "", 14)
	centered(37, "Digital Event Ticket")
	line(primaryBlue, 3, 42)

	text(primaryBlue, "B", 20)
	centered(55, d.EventTitle)
	text(accentOrange, "B", 13)
	centered(62, d.EventDate)
	line(secondaryBlue, 1, 68)

	venue := d.Venue
	if runes := []rune(venue); len(runes) > 35 {
		field("VENUE:", string(runes[:35]), 78)
		pdf.Text(valueX, 82, tr(string(runes[35:])))
	} else {
		field("VENUE:", venue, 78)
	}
	field("TICKET TYPE:", d.TicketName, 86)
	field("QUANTITY:", strconv.Itoa(d.Quantity), 92)
	line(lineGray, 0.5, 98)

	priceX := pageW/2 + 30
	text(successGreen, "B", 12)
	centeredAt(priceX, 110, "TOTAL PAID")
	text(successGreen, "B", 24)
	centeredAt(priceX, 120, d.Money(d.TotalPrice))
	text(darkGray, "", 10)
	centeredAt(priceX, 126, d.Money(d.UnitPrice)+" per ticket")
	line(primaryBlue, 2, 135)

	field("BOOKING ID:", d.ShortReference(), 148)
	field("CUSTOMER:", d.CustomerEmail, 155)
	field("BOOKED ON:", d.BookedOnDate(), 162)

	pdf.ImageOptions(qrImage, pageW-55, 130, 30, 30, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	line(accentOrange, 1.5, 170)
	text(accentOrange, "B", 12)
	centered(179, "IMPORTANT INFORMATION")
	text(darkGray, "", 9)
	baselines, rule := noticeLayout(len(Notices))
	for i, n := range Notices {
		centered(baselines[i], "• "+n)
	}
	line(lineGray, 1, rule)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "write pdf")
	}
	return buf.Bytes(), nil
}
