// Package email delivers outbound mail through SMTP, SendGrid or SES.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/seiflawfirm/site/libs/config"
)

// ErrDisabled is returned by senders when no provider is configured.
var ErrDisabled = errors.New("email sending is disabled")

type Message struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
	ProviderID() string
}

var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidAddress applies the loose "x@y.z" check used by the contact form.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(strings.TrimSpace(addr))
}

func (m Message) validate() error {
	if !ValidAddress(m.To) {
		return fmt.Errorf("invalid recipient %q", m.To)
	}
	if m.ReplyTo != "" && !ValidAddress(m.ReplyTo) {
		return fmt.Errorf("invalid reply-to %q", m.ReplyTo)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("subject is required")
	}
	if m.Text == "" && m.HTML == "" {
		return errors.New("message body is required")
	}
	return nil
}

// Disabled rejects every message with ErrDisabled.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error { return ErrDisabled }
func (Disabled) ProviderID() string                  { return "disabled" }

// FromEnv builds the sender selected by EMAIL_PROVIDER (smtp, sendgrid, ses
// or disabled). Missing credentials fall back to Disabled with a warning.
func FromEnv(ctx context.Context, logger *slog.Logger) (Sender, error) {
	from := config.String("EMAIL_FROM", "Seif Law Firm <no-reply@seiflawfirm.com>")
	provider := strings.ToLower(config.String("EMAIL_PROVIDER", "smtp"))

	switch provider {
	case "smtp":
		host := config.String("SMTP_HOST", "")
		if host == "" {
			logger.Warn("email disabled: SMTP_HOST not set")
			return Disabled{}, nil
		}
		return NewSMTPSender(SMTPConfig{
			Host:     host,
			Port:     config.String("SMTP_PORT", "587"),
			Username: config.String("SMTP_USERNAME", ""),
			Password: config.String("SMTP_PASSWORD", ""),
			From:     from,
		}), nil
	case "sendgrid":
		key := config.String("SENDGRID_API_KEY", "")
		if key == "" {
			logger.Warn("email disabled: SENDGRID_API_KEY not set")
			return Disabled{}, nil
		}
		return NewSendGridSender(key, from), nil
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), from), nil
	case "disabled", "none", "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", provider)
	}
}

// splitFrom turns "Name <addr>" into its parts. A bare address has no name.
func splitFrom(from string) (name, addr string) {
	from = strings.TrimSpace(from)
	if i := strings.Index(from, "<"); i >= 0 && strings.HasSuffix(from, ">") {
		return strings.TrimSpace(from[:i]), strings.TrimSpace(from[i+1 : len(from)-1])
	}
	return "", from
}
