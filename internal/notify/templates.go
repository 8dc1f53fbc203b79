package notify

import (
	"bytes"
	"html/template"

	"github.com/robertarktes/ticket-checkout/internal/domain"
)

var (
	customerTmpl = template.Must(template.New("customer").Parse(customerHTML))
	billingTmpl  = template.Must(template.New("billing").Parse(billingHTML))
)

type emailData struct {
	domain.TicketDetails
	Brand          string
	BillingAddress string
}

func (d emailData) Unit() string  { return d.Money(d.UnitPrice) }
func (d emailData) Total() string { return d.Money(d.TotalPrice) }

func render(t *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const styles = `
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background: #1976d2; color: white; padding: 20px; text-align: center; }
  .content { padding: 20px; background: #f9f9f9; }
  .booking-details { background: white; padding: 20px; margin: 20px 0; border-radius: 8px; }
  .footer { text-align: center; padding: 20px; color: #666; font-size: 14px; }
  .total { font-size: 18px; font-weight: bold; color: #1976d2; }
`

const customerHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Booking Confirmation - {{.EventTitle}}</title>
  <style>` + styles + `</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Booking Confirmed!</h1>
      <p>Thank you for your purchase</p>
    </div>
    <div class="content">
      <div class="booking-details">
        <h3>Event Details</h3>
        <p><strong>Event:</strong> {{.EventTitle}}</p>
        <p><strong>Date:</strong> {{.EventDate}}</p>
        <p><strong>Venue:</strong> {{.Venue}}</p>
        <p><strong>Ticket Type:</strong> {{.TicketName}}</p>
        <p><strong>Quantity:</strong> {{.Quantity}}</p>
        <p><strong>Unit Price:</strong> {{.Unit}}</p>
        <p class="total"><strong>Total Paid:</strong> {{.Total}}</p>
      </div>
      <div class="booking-details">
        <h3>Booking Information</h3>
        <p><strong>Booking ID:</strong> {{.Reference}}</p>
        <p><strong>Email:</strong> {{.CustomerEmail}}</p>
        <p><strong>Booking Date:</strong> {{.BookedOnDate}}</p>
      </div>
      <div style="background: #fff3cd; padding: 15px; border-radius: 5px; margin: 20px 0;">
        <h4>Important Notes:</h4>
        <ul>
          <li>Your ticket is attached to this email</li>
          <li>Please arrive 15 minutes before the event starts</li>
          <li>Bring a valid ID for age verification (18+)</li>
          <li>This booking is non-refundable and non-exchangeable</li>
          <li>Keep this email and ticket as your booking confirmation</li>
        </ul>
      </div>
    </div>
    <div class="footer">
      <p>Thank you for choosing {{.Brand}}!</p>
      <p>If you have any questions, please contact us at {{.BillingAddress}}</p>
    </div>
  </div>
</body>
</html>
`

const billingHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>New Booking - {{.EventTitle}}</title>
  <style>` + styles + `</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>New Booking Received</h1>
      <p>{{.Brand}} Booking Notification</p>
    </div>
    <div class="content">
      <div class="booking-details">
        <h3>Event Details</h3>
        <p><strong>Event:</strong> {{.EventTitle}}</p>
        <p><strong>Date:</strong> {{.EventDate}}</p>
        <p><strong>Venue:</strong> {{.Venue}}</p>
        <p><strong>Ticket Type:</strong> {{.TicketName}}</p>
        <p><strong>Quantity:</strong> {{.Quantity}}</p>
        <p><strong>Unit Price:</strong> {{.Unit}}</p>
        <p class="total"><strong>Total Revenue:</strong> {{.Total}}</p>
      </div>
      <div class="booking-details">
        <h3>Customer Information</h3>
        <p><strong>Email:</strong> {{.CustomerEmail}}</p>
        <p><strong>Payment Intent ID:</strong> {{.Reference}}</p>
        <p><strong>Booking Date:</strong> {{.BookedOnDate}}</p>
        <p><strong>Payment Status:</strong> Completed</p>
      </div>
    </div>
    <div class="footer">
      <p>{{.Brand}} Booking System</p>
      <p>This is an automated notification</p>
    </div>
  </div>
</body>
</html>
`
