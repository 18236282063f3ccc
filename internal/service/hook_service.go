package service

import (
	"context"
	"sync"
	"time"

	"github.com/comment-widget-api/internal/models"
	"github.com/rs/zerolog"
)

// hookService dispatches moderation events to the email and webhook
// channels. The two branches run concurrently, each with its own timeout,
// and neither failure can cancel the other or reach the caller: the
// comment write has already committed by the time dispatch happens.
type hookService struct {
	notification NotificationService
	webhook      WebhookService
	timeout      time.Duration
	wg           sync.WaitGroup
	log          zerolog.Logger
}

// newHookService creates a new HookService
func newHookService(notification NotificationService, webhookSvc WebhookService, timeout time.Duration, log zerolog.Logger) *hookService {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &hookService{
		notification: notification,
		webhook:      webhookSvc,
		timeout:      timeout,
		log:          log.With().Str("service", "hook").Logger(),
	}
}

// NewComment fans a new-comment event out to both channels. Moderator
// comments never fan out.
func (s *hookService) NewComment(comment *models.Comment, projectID string) {
	if comment.IsModerator() {
		return
	}

	s.run("email", func(ctx context.Context) error {
		return s.notification.NotifyNewComment(ctx, comment, projectID)
	})
	s.run("webhook", func(ctx context.Context) error {
		return s.webhook.NotifyNewComment(ctx, comment, projectID)
	})
}

// Reply dispatches a reply notification to the parent comment's author
func (s *hookService) Reply(parent, reply *models.Comment) {
	s.run("email", func(ctx context.Context) error {
		return s.notification.NotifyReply(ctx, parent, reply)
	})
}

// run executes one delivery branch in the background. The branch gets a
// fresh context so it outlives the triggering request, and its failure is
// logged, never propagated.
func (s *hookService) run(channel string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Str("channel", channel).Msg("Notification dispatch panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.log.Error().Err(err).Str("channel", channel).Msg("Notification dispatch failed")
		}
	}()
}

// Wait blocks until all in-flight dispatches finish. Used on shutdown so
// accepted events are still observed.
func (s *hookService) Wait() {
	s.wg.Wait()
}
