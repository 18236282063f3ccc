package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/comment-widget-api/internal/config"
	"github.com/rs/zerolog"
)

const sendgridURL = "https://api.sendgrid.com/v3/mail/send"

// SendgridSender delivers mail through the SendGrid v3 API
type SendgridSender struct {
	apiKey string
	from   string
	client *http.Client
	log    zerolog.Logger
}

// NewSendgridSender creates a SendGrid-backed Sender
func NewSendgridSender(cfg *config.MailConfig, log zerolog.Logger) *SendgridSender {
	timeout := cfg.SendTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SendgridSender{
		apiKey: cfg.SendgridAPIKey,
		from:   cfg.FromEmail,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "sendgrid").Logger(),
	}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To      []sgAddress `json:"to"`
	Subject string      `json:"subject"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Content          []sgContent         `json:"content"`
}

// Send posts one HTML email to the SendGrid API
func (s *SendgridSender) Send(ctx context.Context, to, subject, html string) error {
	if s.apiKey == "" {
		s.log.Warn().Str("to", to).Msg("SendGrid API key not configured, email not sent")
		return nil
	}

	payload := sgPayload{
		Personalizations: []sgPersonalization{{
			To:      []sgAddress{{Email: to}},
			Subject: subject,
		}},
		From:    sgAddress{Email: s.from},
		Content: []sgContent{{Type: "text/html", Value: html}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendgridURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, string(detail))
	}

	s.log.Debug().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}
