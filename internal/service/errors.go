package service

import (
	"errors"
)

// Sentinel errors surfaced to handlers, which map them onto HTTP statuses
var (
	ErrCommentNotFound   = errors.New("comment not found")
	ErrParentNotFound    = errors.New("parent comment not found")
	ErrModeratorNotFound = errors.New("moderator not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrForbidden         = errors.New("forbidden")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrEmailTaken        = errors.New("email already registered")
	ErrBadCredentials    = errors.New("invalid email or password")
)
