package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Transport posts one JSON event body to a webhook target. Failures are
// reported through the error; notification callers log and swallow them.
type Transport interface {
	Post(ctx context.Context, url string, body []byte) error
}

// HTTPTransport posts webhook events over HTTP behind a circuit breaker,
// so a persistently failing target stops consuming outbound requests.
type HTTPTransport struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker[struct{}]
	log    zerolog.Logger
}

// NewHTTPTransport creates a Transport with the given per-request timeout.
// Breaker settings: opens after 60% failures across at least 10 requests,
// recovers after one minute.
func NewHTTPTransport(timeout time.Duration, log zerolog.Logger) *HTTPTransport {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	scoped := log.With().Str("component", "webhook").Logger()

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "webhook-delivery",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			scoped.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Webhook circuit breaker state changed")
		},
	})

	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
		cb:     cb,
		log:    scoped,
	}
}

// Post delivers the body to url with Content-Type application/json
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) error {
	_, err := t.cb.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to post webhook: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode >= 400 {
			return struct{}{}, fmt.Errorf("webhook target returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}
