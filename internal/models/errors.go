package models

import "errors"

var (
	// ErrUserBanned is returned by write operations when the caller's live profile is banned.
	ErrUserBanned = errors.New("USER_BANNED")
	// ErrAlreadyVoted is returned when a vote already exists for the (user, deal) pair.
	ErrAlreadyVoted = errors.New("already voted on this deal")

	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrForbidden         = errors.New("admin role required")
	ErrDealNotFound      = errors.New("deal not found")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrUnconfigured      = errors.New("backend not configured")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotConfirmed      = errors.New("action requires confirmation")
	ErrCannotBanAdmin    = errors.New("admin accounts cannot be banned")
	ErrInvalidInput      = errors.New("invalid input")
)
