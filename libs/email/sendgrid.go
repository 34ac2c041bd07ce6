package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridSender struct {
	client   sendgridClient
	fromName string
	fromAddr string
}

func NewSendGridSender(apiKey, from string) *SendGridSender {
	name, addr := splitFrom(from)
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: name,
		fromAddr: addr,
	}
}

func (s *SendGridSender) ProviderID() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	text := msg.Text
	if text == "" {
		text = msg.HTML
	}
	html := msg.HTML
	if html == "" {
		html = msg.Text
	}
	m := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromAddr),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		text,
		html,
	)
	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
