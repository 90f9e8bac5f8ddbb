package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"
)

// SendGrid sends transactional mail through the SendGrid API
type SendGrid struct {
	client *sendgrid.Client
	from   string
}

func NewSendGrid(apiKey, fromAddress string) *SendGrid {
	return &SendGrid{
		client: sendgrid.NewSendClient(apiKey),
		from:   fromAddress,
	}
}

func (s *SendGrid) SendPasswordReset(ctx context.Context, toEmail, resetLink string) error {
	from := mail.NewEmail("", s.from)
	to := mail.NewEmail("", toEmail)
	body := fmt.Sprintf("Use the following link to reset your password:\n%s", resetLink)
	message := mail.NewSingleEmail(from, "Password reset", to, body, "")

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: unexpected status %d", resp.StatusCode)
	}

	log.Tracef("password reset mail sent to %s", toEmail)
	return nil
}
