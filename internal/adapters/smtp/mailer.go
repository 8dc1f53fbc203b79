package smtp

import (
	"bytes"
	"context"
	"net/textproto"

	"github.com/cockroachdb/errors"
	"github.com/wneessen/go-mail"

	"github.com/robertarktes/ticket-checkout/internal/config"
	"github.com/robertarktes/ticket-checkout/internal/notify"
)

// Mailer sends mail over SMTP. A fresh client is dialed per call so the two
// notification sends never share a connection.
type Mailer struct {
	cfg config.MailConfig
}

func NewMailer(cfg config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithTimeout(m.cfg.Timeout),
	}
	if m.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}
	opts = append(opts, mail.WithPort(m.cfg.Port))

	c, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create smtp client")
	}
	return c, nil
}

func (m *Mailer) Verify(ctx context.Context) error {
	c, err := m.client()
	if err != nil {
		return err
	}
	if err := c.DialWithContext(ctx); err != nil {
		return errors.Wrapf(err, "dial %s:%d", m.cfg.Host, m.cfg.Port)
	}
	return c.Close()
}

func (m *Mailer) Send(ctx context.Context, msg notify.Message) (string, error) {
	mm := mail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return "", errors.Wrap(err, "from address")
	}
	if err := mm.To(msg.To); err != nil {
		return "", errors.Wrap(err, "to address")
	}
	mm.Subject(msg.Subject)
	mm.SetDate()
	mm.SetMessageID()
	mm.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	for _, a := range msg.Attachments {
		err := mm.AttachReader(a.Filename, bytes.NewReader(a.Content), mail.WithFileContentType(mail.ContentType(a.ContentType)))
		if err != nil {
			return "", errors.Wrapf(err, "attach %s", a.Filename)
		}
	}

	c, err := m.client()
	if err != nil {
		return "", err
	}
	if err := c.DialAndSendWithContext(ctx, mm); err != nil {
		return "", &notify.DeliveryError{Code: replyCode(err), Err: err}
	}
	return mm.GetMessageID(), nil
}

func replyCode(err error) int {
	var se *mail.SendError
	if errors.As(err, &se) && se.ErrorCode() != 0 {
		return se.ErrorCode()
	}
	var te *textproto.Error
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}
