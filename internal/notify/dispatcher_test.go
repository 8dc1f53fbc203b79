package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/notify"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

type fakeMailer struct {
	mu        sync.Mutex
	sent      []notify.Message
	failFor   map[string]error
	verifyErr error
	verified  int
}

func (f *fakeMailer) Verify(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified++
	return f.verifyErr
}

func (f *fakeMailer) Send(_ context.Context, msg notify.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[msg.To]; ok {
		return "", err
	}
	f.sent = append(f.sent, msg)
	return "<" + msg.To + "@test>", nil
}

func (f *fakeMailer) byRecipient(to string) (notify.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		if m.To == to {
			return m, true
		}
	}
	return notify.Message{}, false
}

var opts = notify.Options{
	Brand:            "EVENTHUB",
	BillingAddress:   "billing@eventmite.com",
	Timeout:          time.Second,
	VerifyBeforeSend: true,
}

func ticketDetails() domain.TicketDetails {
	return domain.TicketDetails{
		Reference:     "pi_123",
		EventTitle:    "Show",
		EventDate:     "October 16, 2025",
		Venue:         "Cellar",
		TicketName:    "General Admission",
		Quantity:      2,
		UnitPrice:     decimal.RequireFromString("12.00"),
		TotalPrice:    decimal.RequireFromString("24.00"),
		Currency:      "eur",
		CustomerEmail: "a@b.com",
		BookedOn:      time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

var artifact = domain.TicketArtifact{Format: domain.ArtifactPlainText, Content: []byte("ticket"), Filename: "ticket-pi_123.txt"}

func TestNotify_BothDelivered(t *testing.T) {
	m := &fakeMailer{}
	d := notify.NewDispatcher(m, opts, observability.NopLogger())

	out := d.Notify(context.Background(), ticketDetails(), artifact)

	assert.True(t, out.Customer.Delivered)
	assert.Equal(t, "a@b.com", out.Customer.Recipient)
	assert.Equal(t, "<a@b.com@test>", out.Customer.ProviderMessageID)
	assert.True(t, out.Billing.Delivered)
	assert.Equal(t, "billing@eventmite.com", out.Billing.Recipient)
	assert.Equal(t, 1, m.verified)

	customer, ok := m.byRecipient("a@b.com")
	require.True(t, ok)
	assert.Equal(t, "Booking Confirmation - Show", customer.Subject)
	assert.Contains(t, customer.HTMLBody, "€24.00")
	assert.Contains(t, customer.HTMLBody, "pi_123")
	require.Len(t, customer.Attachments, 1)
	assert.Equal(t, "ticket-pi_123.txt", customer.Attachments[0].Filename)
	assert.Equal(t, "text/plain; charset=utf-8", customer.Attachments[0].ContentType)

	billing, ok := m.byRecipient("billing@eventmite.com")
	require.True(t, ok)
	assert.Equal(t, "New Booking - Show", billing.Subject)
	assert.Contains(t, billing.HTMLBody, "Total Revenue")
	assert.Equal(t, customer.Attachments, billing.Attachments)
}

func TestNotify_BillingFailureDoesNotAffectCustomer(t *testing.T) {
	m := &fakeMailer{failFor: map[string]error{
		"billing@eventmite.com": &notify.DeliveryError{Code: 550, Err: errors.New("mailbox unavailable")},
	}}
	d := notify.NewDispatcher(m, opts, observability.NopLogger())

	out := d.Notify(context.Background(), ticketDetails(), artifact)

	assert.True(t, out.Customer.Delivered)
	assert.Equal(t, "<a@b.com@test>", out.Customer.ProviderMessageID)
	assert.Empty(t, out.Customer.ErrorDetail)

	assert.False(t, out.Billing.Delivered)
	assert.Equal(t, 550, out.Billing.DiagnosticCode)
	assert.Contains(t, out.Billing.ErrorDetail, "mailbox unavailable")
}

func TestNotify_VerifyFailureStillSends(t *testing.T) {
	m := &fakeMailer{verifyErr: errors.New("dial tcp: connection refused")}
	d := notify.NewDispatcher(m, opts, observability.NopLogger())

	out := d.Notify(context.Background(), ticketDetails(), artifact)

	assert.True(t, out.Customer.Delivered)
	assert.True(t, out.Billing.Delivered)
}

func TestNotify_NoMailer(t *testing.T) {
	d := notify.NewDispatcher(nil, opts, observability.NopLogger())

	out := d.Notify(context.Background(), ticketDetails(), artifact)

	assert.False(t, out.Customer.Delivered)
	assert.False(t, out.Billing.Delivered)
	assert.Contains(t, out.Customer.ErrorDetail, "not configured")

	err := d.Verify(context.Background())
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestNotify_EscapesHTML(t *testing.T) {
	m := &fakeMailer{}
	d := notify.NewDispatcher(m, opts, observability.NopLogger())

	details := ticketDetails()
	details.EventTitle = "<script>alert(1)</script>"
	d.Notify(context.Background(), details, artifact)

	customer, ok := m.byRecipient("a@b.com")
	require.True(t, ok)
	assert.NotContains(t, customer.HTMLBody, "<script>")
}
