package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose names the single class of action a capability token authorizes.
// Each purpose signs with its own derived secret, so a token issued for
// one purpose can never verify under another.
type Purpose string

const (
	PurposeApproveComment Purpose = "approve_comment"
	PurposeUnsubscribe    Purpose = "unsubscribe"
	PurposeAcceptNotify   Purpose = "accept_notify"
)

// Token lifetimes per purpose
const (
	ApproveTokenTTL      = 3 * 24 * time.Hour
	UnsubscribeTokenTTL  = 365 * 24 * time.Hour
	AcceptNotifyTokenTTL = 24 * time.Hour
)

// SubscriptionNewComment is the only subscription type unsubscribe tokens
// currently carry.
const SubscriptionNewComment = "NEW_COMMENT"

// ErrTokenInvalid covers both bad signatures and expired tokens. The two
// are deliberately not distinguishable by callers.
var ErrTokenInvalid = errors.New("invalid token")

// ApproveClaims authorize approving one comment. OwnerID is embedded so
// the quota check needs no second join at verification time.
type ApproveClaims struct {
	CommentID string `json:"comment_id"`
	OwnerID   string `json:"owner_id"`
	jwt.RegisteredClaims
}

// UnsubscribeClaims authorize turning off one subscription
type UnsubscribeClaims struct {
	SubjectID        string `json:"subject_id"`
	SubscriptionType string `json:"subscription_type"`
	jwt.RegisteredClaims
}

// AcceptNotifyClaims authorize enabling reply notifications on one comment
type AcceptNotifyClaims struct {
	CommentID string `json:"comment_id"`
	jwt.RegisteredClaims
}

// CommentOwnerResolver resolves the project owner a comment belongs to
type CommentOwnerResolver interface {
	OwnerOf(ctx context.Context, commentID string) (projectID, ownerID string, err error)
}

// Service issues and verifies purpose-scoped, expiring capability tokens.
// Tokens are bearer credentials: possession alone authorizes the action.
type Service struct {
	masterSecret string
	comments     CommentOwnerResolver
	now          func() time.Time
}

// NewService creates a token service signing with secrets derived from
// masterSecret per purpose.
func NewService(masterSecret string, comments CommentOwnerResolver) *Service {
	return &Service{
		masterSecret: masterSecret,
		comments:     comments,
		now:          time.Now,
	}
}

func (s *Service) secretFor(purpose Purpose) []byte {
	return []byte(fmt.Sprintf("%s-%s", s.masterSecret, purpose))
}

func (s *Service) sign(purpose Purpose, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretFor(purpose))
}

func (s *Service) verify(purpose Purpose, tokenString string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secretFor(purpose), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		// Bad signature and expiry collapse into one outcome so the
		// response is not a signature oracle.
		return ErrTokenInvalid
	}
	return nil
}

func (s *Service) registeredClaims(ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueApproveToken mints an approve-comment token, resolving the owning
// project so the owner id rides along in the claims. Fails when the
// comment's page/project chain is broken.
func (s *Service) IssueApproveToken(ctx context.Context, commentID string) (string, error) {
	_, ownerID, err := s.comments.OwnerOf(ctx, commentID)
	if err != nil {
		return "", fmt.Errorf("resolve comment owner: %w", err)
	}
	return s.sign(PurposeApproveComment, &ApproveClaims{
		CommentID:        commentID,
		OwnerID:          ownerID,
		RegisteredClaims: s.registeredClaims(ApproveTokenTTL),
	})
}

// IssueUnsubscribeToken mints a token that turns off the new-comment
// subscription for subjectID (an owner id or a comment id).
func (s *Service) IssueUnsubscribeToken(subjectID string) (string, error) {
	return s.sign(PurposeUnsubscribe, &UnsubscribeClaims{
		SubjectID:        subjectID,
		SubscriptionType: SubscriptionNewComment,
		RegisteredClaims: s.registeredClaims(UnsubscribeTokenTTL),
	})
}

// IssueAcceptNotifyToken mints a token confirming reply notifications for
// one comment.
func (s *Service) IssueAcceptNotifyToken(commentID string) (string, error) {
	return s.sign(PurposeAcceptNotify, &AcceptNotifyClaims{
		CommentID:        commentID,
		RegisteredClaims: s.registeredClaims(AcceptNotifyTokenTTL),
	})
}

// VerifyApproveToken validates an approve-comment token
func (s *Service) VerifyApproveToken(tokenString string) (*ApproveClaims, error) {
	claims := &ApproveClaims{}
	if err := s.verify(PurposeApproveComment, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyUnsubscribeToken validates an unsubscribe token
func (s *Service) VerifyUnsubscribeToken(tokenString string) (*UnsubscribeClaims, error) {
	claims := &UnsubscribeClaims{}
	if err := s.verify(PurposeUnsubscribe, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyAcceptNotifyToken validates an accept-notify token
func (s *Service) VerifyAcceptNotifyToken(tokenString string) (*AcceptNotifyClaims, error) {
	claims := &AcceptNotifyClaims{}
	if err := s.verify(PurposeAcceptNotify, tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
