package store

import (
	"context"
	"errors"

	"couplecoach/backend/go/internal/models"
)

// ErrUserNotFound is returned when the user record does not exist.
var ErrUserNotFound = errors.New("user not found")

// Store defines the read and update operations the memory subsystem issues
// against the relational store. Each method is a single statement; the store
// guarantees per-statement atomicity and nothing more.
type Store interface {
	// ListUserSessions returns the analyzed sessions owned by userID, newest first.
	ListUserSessions(ctx context.Context, userID string) ([]models.SessionRecord, error)
	// ListCoupleSessions returns the analyzed couple sessions of coupleID, newest first.
	ListCoupleSessions(ctx context.Context, coupleID string) ([]models.SessionRecord, error)
	// GetCoupleID returns the couple of userID, or "" if the user has none.
	GetCoupleID(ctx context.Context, userID string) (string, error)

	ResetPersonalContext(ctx context.Context, userID string) error
	ResetSharedContext(ctx context.Context, coupleID string) error
	RevokeConsent(ctx context.Context, userID string) error
}
