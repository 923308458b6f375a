package session

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/KirkDiggler/tabletop/internal/services/session Service

import "context"

// Service defines the session lifecycle operations
type Service interface {
	// CreateSession opens a new waiting session of a game
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// JoinSession adds a player to a waiting session
	JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error)

	// LeaveSession removes a player from a session
	LeaveSession(ctx context.Context, input *LeaveSessionInput) (*LeaveSessionOutput, error)

	// StartSession moves a waiting session to active
	StartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error)

	// AdvanceTurn passes the turn to the next player in join order
	AdvanceTurn(ctx context.Context, input *AdvanceTurnInput) (*AdvanceTurnOutput, error)

	// UpdateSessionState replaces the session state after schema validation
	UpdateSessionState(ctx context.Context, input *UpdateSessionStateInput) (*UpdateSessionStateOutput, error)

	// FinishSession ends an active session
	FinishSession(ctx context.Context, input *FinishSessionInput) (*FinishSessionOutput, error)

	// CleanupSessions deletes empty waiting sessions created before a cutoff
	CleanupSessions(ctx context.Context, input *CleanupSessionsInput) (*CleanupSessionsOutput, error)

	// GetSession loads one session
	GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error)

	// ListGameSessions lists every session of a game
	ListGameSessions(ctx context.Context, input *ListGameSessionsInput) (*ListGameSessionsOutput, error)

	// DeleteSession removes a session regardless of status
	DeleteSession(ctx context.Context, input *DeleteSessionInput) (*DeleteSessionOutput, error)
}
