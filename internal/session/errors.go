package session

import (
	"errors"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/identity"
)

var (
	// ErrInvalidCredentials is returned for malformed or rejected credentials.
	ErrInvalidCredentials = identity.ErrInvalidCredentials
	// ErrInvalidSession is returned for unknown, revoked or foreign sessions.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionExpired is returned when a session is past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrAccountInactive is returned when the user profile is deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountBanned is returned when the user profile is banned.
	ErrAccountBanned = errors.New("account banned")
)
