package session

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/tabletop/internal/repositories/session Repository

import (
	"context"

	"github.com/KirkDiggler/tabletop/internal/models"
)

// Repository defines the interface for session persistence
type Repository interface {
	// GetSession loads a session by ID
	GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error)

	// SaveSession persists a session if its version still matches the stored one.
	// On success the session's Version is bumped in place.
	SaveSession(ctx context.Context, input *SaveSessionInput) error

	// DeleteSession removes a session and its index entries. A non-zero
	// ExpectedVersion that no longer matches returns ErrSessionConflict.
	DeleteSession(ctx context.Context, input *DeleteSessionInput) error

	// FindStaleSessions returns sessions in a status created before a cutoff
	FindStaleSessions(ctx context.Context, input *FindStaleSessionsInput) (*FindStaleSessionsOutput, error)

	// ListSessionsByGame returns every session created from a game
	ListSessionsByGame(ctx context.Context, input *ListSessionsByGameInput) (*ListSessionsByGameOutput, error)
}
