package notify

import (
	"context"
	"fmt"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Message struct {
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer is the outbound mail transport.
type Mailer interface {
	// Verify checks that the transport accepts connections and credentials.
	Verify(ctx context.Context) error
	// Send delivers msg and returns the transport's message id.
	Send(ctx context.Context, msg Message) (string, error)
}

// DeliveryError carries the transport's diagnostic code (an SMTP reply code).
type DeliveryError struct {
	Code int
	Err  error
}

func (e *DeliveryError) Error() string {
	if e.Code == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%d: %v", e.Code, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
