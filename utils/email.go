package utils

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers transactional email through SendGrid.
type SendGridSender struct {
	apiKey   string
	fromName string
	fromAddr string
}

// NewSendGridSender returns a sender. An empty apiKey is allowed; every send
// then fails so callers apply their own failure policy.
func NewSendGridSender(apiKey, fromName, fromAddr string) *SendGridSender {
	if apiKey == "" {
		log.Warn().Msg("SENDGRID_API_KEY is not set; outbound email will fail")
	}
	return &SendGridSender{apiKey: apiKey, fromName: fromName, fromAddr: fromAddr}
}

// SendEmail sends an email using SendGrid
func (s *SendGridSender) SendEmail(ctx context.Context, toName, toEmail, subject, textContent, htmlContent string) error {
	if s.apiKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not set in environment variables")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, textContent, htmlContent)
	client := sendgrid.NewSendClient(s.apiKey)

	response, err := client.Send(message)
	if err != nil {
		log.Error().Err(err).Str("to", toEmail).Msg("Error sending email")
		return err
	}

	if response.StatusCode >= 400 {
		log.Error().Int("status", response.StatusCode).Str("body", response.Body).Msg("SendGrid API Error")
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	log.Info().Str("to", toEmail).Int("status", response.StatusCode).Msg("Email sent successfully")
	return nil
}
